package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"scribe/internal/domain"
	"scribe/internal/mapper"
	"scribe/internal/metrics"
)

// Forwarder runs the map→write pipeline for a single message. Failures are
// per item: a transport error or rejected write is logged, counted, and
// journaled, surfaced into chat only under verbosity, and never aborts the
// caller's loop.
type Forwarder struct {
	sink      domain.Sink
	gateway   domain.Gateway
	journal   domain.Journal // nil when the journal is disabled
	verbosity *Verbosity
	logger    *slog.Logger
}

// NewForwarder wires the pipeline.
func NewForwarder(sink domain.Sink, gateway domain.Gateway, journal domain.Journal, verbosity *Verbosity, logger *slog.Logger) *Forwarder {
	return &Forwarder{
		sink:      sink,
		gateway:   gateway,
		journal:   journal,
		verbosity: verbosity,
		logger:    logger,
	}
}

// Forward maps msg to a document and writes it. runID tags journal rows for
// backfill traffic; it is empty for live traffic.
func (f *Forwarder) Forward(ctx context.Context, msg domain.Message, runID string) {
	doc := mapper.Map(msg)
	outcome, err := f.sink.Write(ctx, doc)

	rec := domain.WriteRecord{
		RunID:       runID,
		MessageID:   msg.ID,
		ChannelID:   msg.Channel.ID,
		ChannelName: msg.Channel.Name,
		AuthorID:    msg.Author.ID,
		Status:      outcome.StatusCode,
	}
	switch {
	case err != nil:
		rec.Error = err.Error()
		metrics.WritesFailed.Inc()
		f.logger.Error("document write failed", "channel", msg.Channel.ID, "err", err)
	case !outcome.OK():
		metrics.WritesRejected.Inc()
		f.logger.Warn("document write rejected",
			"channel", msg.Channel.ID,
			"status", outcome.StatusCode,
			"body", outcome.Body,
		)
	default:
		metrics.MessagesForwarded.Inc()
	}

	if f.journal != nil {
		if jerr := f.journal.Record(ctx, rec); jerr != nil {
			f.logger.Warn("journal record failed", "err", jerr)
		}
	}

	// The write always happens; only this acknowledgement is gated.
	if f.verbosity.Enabled() {
		f.acknowledge(ctx, msg.Channel.ID, doc, outcome, err)
	}
}

func (f *Forwarder) acknowledge(ctx context.Context, channelID string, doc domain.Document, outcome domain.WriteOutcome, writeErr error) {
	var content string
	if writeErr != nil {
		content = fmt.Sprintf("Write failed: `%v`", writeErr)
	} else {
		payload, _ := json.Marshal(doc)
		content = fmt.Sprintf("Payload: `%s`\n%d: `%s`", payload, outcome.StatusCode, outcome.Body)
	}
	if _, err := f.gateway.Send(ctx, channelID, content); err != nil {
		f.logger.Warn("acknowledgement send failed", "channel", channelID, "err", err)
	}
}
