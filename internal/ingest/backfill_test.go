package ingest

import (
	"context"
	"strings"
	"testing"
	"time"

	"scribe/internal/domain"
)

// fakeClock advances by step on every reading, making the progress interval
// check deterministic.
type fakeClock struct {
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func newTestRunner() (*Runner, *fakeGateway, *fakeSink) {
	gw := newFakeGateway()
	sink := &fakeSink{}
	logger := testLogger()
	forward := NewForwarder(sink, gw, nil, &Verbosity{}, logger)
	return NewRunner(gw, forward, logger), gw, sink
}

func TestRunSkipsSelfAuthored(t *testing.T) {
	r, gw, sink := newTestRunner()
	ch := message("x", "").Channel

	a := message("200", "msg A")
	b := message("bot", "msg B")
	b.FromSelf = true
	c := message("201", "msg C")
	gw.history[ch.ID] = []domain.Message{a, b, c}

	count, err := r.run(context.Background(), ch)
	if err != nil {
		t.Fatal(err)
	}
	if count != 2 {
		t.Errorf("count = %d, want 2 (N-K with one bot message)", count)
	}
	if sink.count() != 2 {
		t.Errorf("writes = %d, want 2", sink.count())
	}

	sent := gw.sentContents()
	if len(sent) != 2 {
		t.Fatalf("sends = %v, want status message and summary", sent)
	}
	if sent[0] != "Ingesting messages from general..." {
		t.Errorf("status = %q", sent[0])
	}
	if sent[1] != "Successfully ingested 2 messages from general." {
		t.Errorf("summary = %q", sent[1])
	}
}

func TestRunProgressEditsOnInterval(t *testing.T) {
	r, gw, _ := newTestRunner()
	ch := message("x", "").Channel

	// One clock reading before the loop, one per forwarded message; a 6s
	// step crosses the 10s threshold on every second message.
	r.clock = (&fakeClock{now: time.Unix(0, 0), step: 6 * time.Second}).Now

	var hist []domain.Message
	for i := 0; i < 4; i++ {
		hist = append(hist, message("200", "m"+strings.Repeat("x", i)))
	}
	gw.history[ch.ID] = hist

	if _, err := r.run(context.Background(), ch); err != nil {
		t.Fatal(err)
	}

	if len(gw.edits) != 2 {
		t.Fatalf("edits = %d, want 2", len(gw.edits))
	}
	// All progress edits target the single status message, in place.
	if gw.edits[0].messageID != "m1" || gw.edits[1].messageID != "m1" {
		t.Errorf("edits target %v, want the original status message", gw.edits)
	}
	if !strings.Contains(gw.edits[0].content, "2 so far") {
		t.Errorf("first progress edit = %q, want running count 2", gw.edits[0].content)
	}
	if !strings.Contains(gw.edits[1].content, "4 so far") {
		t.Errorf("second progress edit = %q, want running count 4", gw.edits[1].content)
	}
}

func TestStartRejectsOverlappingRun(t *testing.T) {
	r, gw, _ := newTestRunner()
	ch := message("x", "").Channel

	r.mu.Lock()
	r.active[ch.ID] = struct{}{}
	r.mu.Unlock()

	r.Start(context.Background(), ch)

	sent := gw.sentContents()
	if len(sent) != 1 || sent[0] != "A backfill is already running for general." {
		t.Errorf("sends = %v, want a single rejection notice", sent)
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	r, gw, sink := newTestRunner()
	ch := message("x", "").Channel

	ctx, cancel := context.WithCancel(context.Background())
	gw.history[ch.ID] = []domain.Message{
		message("200", "one"),
		message("200", "two"),
	}

	// Cancel after the first forward by hooking the clock.
	first := true
	r.clock = func() time.Time {
		if first {
			first = false
		} else {
			cancel()
		}
		return time.Unix(0, 0)
	}

	if _, err := r.run(ctx, ch); err == nil {
		t.Fatal("expected a context error")
	}
	if sink.count() != 1 {
		t.Errorf("writes = %d, want 1 before cancellation", sink.count())
	}
}
