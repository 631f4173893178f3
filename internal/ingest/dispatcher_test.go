package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"scribe/internal/bus"
	"scribe/internal/domain"
)

// --- fakes shared by the ingest tests ---

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

type sentMsg struct {
	channelID string
	content   string
}

type editMsg struct {
	channelID string
	messageID string
	content   string
}

type fakeGateway struct {
	mu      sync.Mutex
	sends   []sentMsg
	edits   []editMsg
	history map[string][]domain.Message
	nextID  int
	sendErr error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{history: make(map[string][]domain.Message)}
}

func (g *fakeGateway) Name() string                                   { return "fake" }
func (g *fakeGateway) Start(context.Context, domain.MessageBus) error { return nil }
func (g *fakeGateway) Stop() error                                    { return nil }

func (g *fakeGateway) Send(_ context.Context, channelID, content string) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.sendErr != nil {
		return "", g.sendErr
	}
	g.nextID++
	g.sends = append(g.sends, sentMsg{channelID: channelID, content: content})
	return fmt.Sprintf("m%d", g.nextID), nil
}

func (g *fakeGateway) Edit(_ context.Context, channelID, messageID, content string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.edits = append(g.edits, editMsg{channelID: channelID, messageID: messageID, content: content})
	return nil
}

func (g *fakeGateway) History(ctx context.Context, channelID string, fn domain.HistoryFunc) error {
	for _, m := range g.history[channelID] {
		if err := fn(m); err != nil {
			return err
		}
	}
	return nil
}

func (g *fakeGateway) sentContents() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]string, len(g.sends))
	for i, s := range g.sends {
		out[i] = s.content
	}
	return out
}

type fakeSink struct {
	mu      sync.Mutex
	docs    []domain.Document
	outcome domain.WriteOutcome
	err     error
}

func (s *fakeSink) Write(_ context.Context, doc domain.Document) (domain.WriteOutcome, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.WriteOutcome{}, s.err
	}
	s.docs = append(s.docs, doc)
	if s.outcome.StatusCode == 0 {
		return domain.WriteOutcome{StatusCode: 201, Body: `{"result":"created"}`}, nil
	}
	return s.outcome, nil
}

func (s *fakeSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.docs)
}

func message(authorID, body string) domain.Message {
	return domain.Message{
		ID:        "id-" + body,
		Author:    domain.Author{ID: authorID, Name: "user-" + authorID, Tag: "0"},
		Channel:   domain.ChannelRef{ID: "chan-1", Name: "general"},
		Body:      body,
		Timestamp: time.Date(2023, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}

func newTestDispatcher(privileged ...string) (*Dispatcher, *fakeGateway, *fakeSink, *Verbosity) {
	gw := newFakeGateway()
	sink := &fakeSink{}
	verbosity := &Verbosity{}
	logger := testLogger()
	forward := NewForwarder(sink, gw, nil, verbosity, logger)
	d := NewDispatcher(DispatcherConfig{
		Gateway:   gw,
		Router:    NewRouter("!", privileged),
		Forwarder: forward,
		Backfills: NewRunner(gw, forward, logger),
		Verbosity: verbosity,
		Logger:    logger,
	})
	return d, gw, sink, verbosity
}

// --- dispatcher behavior ---

func TestOrdinaryMessageIsForwarded(t *testing.T) {
	d, gw, sink, _ := newTestDispatcher("100")
	d.handle(context.Background(), message("200", "hello there"))

	if sink.count() != 1 {
		t.Fatalf("writes = %d, want 1", sink.count())
	}
	if len(gw.sends) != 0 {
		t.Errorf("no chat traffic expected with verbosity off, got %v", gw.sentContents())
	}
}

func TestSelfAuthoredMessageIsDropped(t *testing.T) {
	d, gw, sink, _ := newTestDispatcher("100")
	msg := message("100", "hello")
	msg.FromSelf = true
	d.handle(context.Background(), msg)

	if sink.count() != 0 {
		t.Errorf("self-authored message was forwarded")
	}
	if len(gw.sends) != 0 {
		t.Errorf("self-authored message produced chat traffic")
	}
}

func TestCommandFromUnprivilegedAuthorIsOrdinary(t *testing.T) {
	d, gw, sink, _ := newTestDispatcher("100")
	d.handle(context.Background(), message("200", "!ingest"))

	if sink.count() != 1 {
		t.Errorf("unprivileged '!ingest' should be forwarded as ordinary traffic, writes = %d", sink.count())
	}
	if len(gw.sends) != 0 {
		t.Errorf("unprivileged command should trigger no replies, got %v", gw.sentContents())
	}
}

func TestVerboseCommandTogglesAndIsConsumed(t *testing.T) {
	d, gw, sink, verbosity := newTestDispatcher("100")
	d.handle(context.Background(), message("100", "!verbose"))

	if !verbosity.Enabled() {
		t.Error("verbosity should be on after one toggle")
	}
	if sink.count() != 0 {
		t.Error("a recognized command must not also be forwarded as a document")
	}
	if got := gw.sentContents(); len(got) != 1 || got[0] != "Verbose toggled to true." {
		t.Errorf("reply = %v", got)
	}

	d.handle(context.Background(), message("100", "!verbose"))
	if verbosity.Enabled() {
		t.Error("two toggles should restore the original value")
	}
}

func TestUnknownCommandReply(t *testing.T) {
	d, gw, sink, _ := newTestDispatcher("100")
	d.handle(context.Background(), message("100", "!bogus extra"))

	if got := gw.sentContents(); len(got) != 1 || got[0] != "Unrecognized command 'bogus'" {
		t.Errorf("reply = %v, want [Unrecognized command 'bogus']", got)
	}
	if sink.count() != 0 {
		t.Error("unknown command attempt must not be forwarded")
	}
}

func TestVerbosityGatesAcknowledgement(t *testing.T) {
	d, gw, sink, verbosity := newTestDispatcher("100")
	ctx := context.Background()

	d.handle(ctx, message("200", "first"))
	if len(gw.sends) != 0 {
		t.Fatalf("no acknowledgement expected while off, got %v", gw.sentContents())
	}

	verbosity.Toggle()
	d.handle(ctx, message("200", "second"))
	if sink.count() != 2 {
		t.Fatalf("writes = %d, want 2 (the write itself is never gated)", sink.count())
	}
	got := gw.sentContents()
	if len(got) != 1 {
		t.Fatalf("acknowledgements = %v, want exactly one", got)
	}
	if !strings.HasPrefix(got[0], "Payload: `") || !strings.Contains(got[0], "201") {
		t.Errorf("acknowledgement = %q, want payload and outcome", got[0])
	}
}

func TestTransportErrorIsNonFatal(t *testing.T) {
	d, gw, sink, verbosity := newTestDispatcher("100")
	sink.err = fmt.Errorf("connection refused")
	verbosity.Toggle()
	ctx := context.Background()

	d.handle(ctx, message("200", "doomed"))
	sink.err = nil
	d.handle(ctx, message("200", "fine"))

	if sink.count() != 1 {
		t.Errorf("the message after a failed write should still be forwarded, writes = %d", sink.count())
	}
	got := gw.sentContents()
	if len(got) != 2 || !strings.HasPrefix(got[0], "Write failed:") {
		t.Errorf("failure notice expected under verbosity, got %v", got)
	}
}

func TestRunConsumesBusUntilClosed(t *testing.T) {
	d, _, sink, _ := newTestDispatcher("100")
	b := bus.New(8, testLogger())
	d.bus = b

	b.Publish(message("200", "one"))
	b.Publish(message("200", "two"))
	b.Close()

	d.Run(context.Background()) // returns once the drained bus closes

	if sink.count() != 2 {
		t.Errorf("writes = %d, want 2", sink.count())
	}
}
