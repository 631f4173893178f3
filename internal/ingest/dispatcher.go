package ingest

import (
	"context"
	"fmt"
	"log/slog"

	"scribe/internal/domain"
	"scribe/internal/metrics"
)

// Dispatcher consumes inbound messages and routes them: self-authored
// messages are dropped, privileged commands are consumed by their handlers,
// everything else is forwarded to the datastore.
type Dispatcher struct {
	bus       domain.MessageBus
	gateway   domain.Gateway
	router    *Router
	forward   *Forwarder
	backfills *Runner
	verbosity *Verbosity
	logger    *slog.Logger
}

// DispatcherConfig holds the dispatcher's collaborators.
type DispatcherConfig struct {
	Bus       domain.MessageBus
	Gateway   domain.Gateway
	Router    *Router
	Forwarder *Forwarder
	Backfills *Runner
	Verbosity *Verbosity
	Logger    *slog.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(cfg DispatcherConfig) *Dispatcher {
	return &Dispatcher{
		bus:       cfg.Bus,
		gateway:   cfg.Gateway,
		router:    cfg.Router,
		forward:   cfg.Forwarder,
		backfills: cfg.Backfills,
		verbosity: cfg.Verbosity,
		logger:    cfg.Logger,
	}
}

// Run consumes the bus until ctx is cancelled. It is the bus's only
// consumer, so message handling is serialized; backfills spawned from here
// run in their own goroutines.
func (d *Dispatcher) Run(ctx context.Context) {
	d.logger.Info("dispatcher started")
	inbound := d.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			d.logger.Info("dispatcher stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				d.logger.Info("inbound bus closed, dispatcher stopping")
				return
			}
			d.handle(ctx, msg)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, msg domain.Message) {
	kind, cmd := d.router.Classify(msg)
	switch kind {
	case KindSelf:
		d.logger.Debug("self-authored message ignored", "channel", msg.Channel.ID)
	case KindCommand:
		d.handleCommand(ctx, msg, cmd)
	case KindOrdinary:
		d.forward.Forward(ctx, msg, "")
	}
}

func (d *Dispatcher) handleCommand(ctx context.Context, msg domain.Message, cmd *Command) {
	metrics.CommandsHandled.Inc()
	d.logger.Info("processing command", "command", cmd.Name, "author", msg.Author.ID)

	switch cmd.Name {
	case CmdIngest:
		d.backfills.Start(ctx, msg.Channel)
	case CmdVerbose:
		v := d.verbosity.Toggle()
		d.logger.Info("verbose toggled", "enabled", v)
		d.reply(ctx, msg.Channel.ID, fmt.Sprintf("Verbose toggled to %t.", v))
	default:
		d.reply(ctx, msg.Channel.ID, fmt.Sprintf("Unrecognized command '%s'", cmd.Name))
	}
}

func (d *Dispatcher) reply(ctx context.Context, channelID, content string) {
	if _, err := d.gateway.Send(ctx, channelID, content); err != nil {
		d.logger.Warn("command reply failed", "channel", channelID, "err", err)
	}
}
