package domain

import "context"

// WriteOutcome is the datastore's response to a single document write.
type WriteOutcome struct {
	StatusCode int
	Body       string
}

// OK reports whether the write was accepted (2xx).
func (o WriteOutcome) OK() bool {
	return o.StatusCode >= 200 && o.StatusCode < 300
}

// Sink writes mapped documents to the datastore. A non-2xx response is not
// an error: the outcome carries the status and body for the caller to surface.
// Errors are reserved for transport failures.
type Sink interface {
	Write(ctx context.Context, doc Document) (WriteOutcome, error)
}
