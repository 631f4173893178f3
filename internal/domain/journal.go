package domain

import (
	"context"
	"time"
)

// WriteRecord is one journaled write outcome.
type WriteRecord struct {
	ID          int64     `json:"id"`
	RunID       string    `json:"run_id,omitempty"` // backfill run id; empty for live traffic
	MessageID   string    `json:"message_id"`
	ChannelID   string    `json:"channel_id"`
	ChannelName string    `json:"channel_name"`
	AuthorID    string    `json:"author_id"`
	Status      int       `json:"status"` // HTTP status; 0 on transport failure
	Error       string    `json:"error,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Failed reports whether the recorded write was rejected or never delivered.
func (r WriteRecord) Failed() bool {
	return r.Error != "" || r.Status < 200 || r.Status >= 300
}

// Journal persists write outcomes for auditing. It is an audit trail only:
// nothing is replayed or resumed from it.
type Journal interface {
	Record(ctx context.Context, rec WriteRecord) error
	Close() error
}
