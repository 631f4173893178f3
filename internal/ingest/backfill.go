package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"scribe/internal/domain"
	"scribe/internal/metrics"
)

// progressInterval is the cadence for in-place status message edits.
const progressInterval = 10 * time.Second

// Runner replays a channel's full message history through the forwarder.
// Runs execute in their own goroutines so live dispatch (including verbose
// toggles, which take effect mid-run) keeps flowing; a per-channel guard
// rejects overlapping runs, and each run owns its own status message.
type Runner struct {
	gateway domain.Gateway
	forward *Forwarder
	logger  *slog.Logger
	clock   func() time.Time // replaceable in tests

	mu     sync.Mutex
	active map[string]struct{} // channel ids with a run in flight
}

// NewRunner creates a backfill runner.
func NewRunner(gateway domain.Gateway, forward *Forwarder, logger *slog.Logger) *Runner {
	return &Runner{
		gateway: gateway,
		forward: forward,
		logger:  logger,
		clock:   time.Now,
		active:  make(map[string]struct{}),
	}
}

// Start launches a backfill for the channel unless one is already running
// there, in which case the channel is told and nothing else happens.
func (r *Runner) Start(ctx context.Context, ch domain.ChannelRef) {
	r.mu.Lock()
	if _, busy := r.active[ch.ID]; busy {
		r.mu.Unlock()
		r.logger.Warn("backfill already running", "channel", ch.ID)
		if _, err := r.gateway.Send(ctx, ch.ID, fmt.Sprintf("A backfill is already running for %s.", ch.Name)); err != nil {
			r.logger.Warn("rejection notice failed", "err", err)
		}
		return
	}
	r.active[ch.ID] = struct{}{}
	r.mu.Unlock()

	metrics.BackfillRuns.Inc()
	metrics.BackfillActive.Inc()
	go func() {
		defer func() {
			metrics.BackfillActive.Dec()
			r.mu.Lock()
			delete(r.active, ch.ID)
			r.mu.Unlock()
		}()
		if _, err := r.run(ctx, ch); err != nil {
			r.logger.Error("backfill aborted", "channel", ch.ID, "err", err)
		}
	}()
}

// run drives one replay to completion and returns how many messages were
// forwarded. Self-authored messages (prior acknowledgements, status posts,
// summaries) are skipped and not counted.
func (r *Runner) run(ctx context.Context, ch domain.ChannelRef) (int, error) {
	runID := uuid.NewString()
	log := r.logger.With("run_id", runID, "channel", ch.Name)
	log.Info("backfill started")

	statusID, err := r.gateway.Send(ctx, ch.ID, fmt.Sprintf("Ingesting messages from %s...", ch.Name))
	if err != nil {
		return 0, fmt.Errorf("post status message: %w", err)
	}

	count := 0
	lastProgress := r.clock()
	err = r.gateway.History(ctx, ch.ID, func(msg domain.Message) error {
		if msg.FromSelf {
			return nil
		}
		r.forward.Forward(ctx, msg, runID)
		count++

		if now := r.clock(); now.Sub(lastProgress) >= progressInterval {
			lastProgress = now
			content := fmt.Sprintf("Ingesting messages from %s... %d so far.", ch.Name, count)
			if eerr := r.gateway.Edit(ctx, ch.ID, statusID, content); eerr != nil {
				log.Warn("progress edit failed", "err", eerr)
			}
		}
		return ctx.Err()
	})
	if err != nil {
		return count, fmt.Errorf("history replay: %w", err)
	}

	if _, err := r.gateway.Send(ctx, ch.ID, fmt.Sprintf("Successfully ingested %d messages from %s.", count, ch.Name)); err != nil {
		log.Warn("summary send failed", "err", err)
	}
	log.Info("backfill finished", "count", count)
	return count, nil
}
