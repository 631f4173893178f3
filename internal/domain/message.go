package domain

import "time"

// Message is a chat message as delivered by the platform gateway.
type Message struct {
	ID          string
	Author      Author
	Channel     ChannelRef
	Body        string
	Timestamp   time.Time
	Attachments []Attachment
	FromSelf    bool // authored by the bot's own identity
}

// Author identifies the sender of a message.
type Author struct {
	ID   string
	Name string
	Tag  string // platform discriminator; empty on platforms without one
}

// FullUser returns the qualified username (name#tag). Discord accounts
// migrated off discriminators report tag "0" and are rendered bare.
func (a Author) FullUser() string {
	if a.Tag == "" || a.Tag == "0" {
		return a.Name
	}
	return a.Name + "#" + a.Tag
}

// ChannelRef identifies the channel a message belongs to.
type ChannelRef struct {
	ID   string
	Name string
}

// Attachment is a file attached to a message.
type Attachment struct {
	ContentType string // may be empty when the platform omits it
	URL         string
}
