package domain

// MessageBus carries inbound messages from the gateway to the dispatcher.
type MessageBus interface {
	Publish(msg Message)
	Subscribe() <-chan Message
	Close()
}
