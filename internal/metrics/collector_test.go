package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCounterAndGauge(t *testing.T) {
	c := NewMetricsCollector()

	ctr := c.Counter("test_total", "help")
	ctr.Inc()
	ctr.Add(2)
	if ctr.Value() != 3 {
		t.Errorf("counter = %d, want 3", ctr.Value())
	}
	if c.Counter("test_total", "help") != ctr {
		t.Error("same name should return the same counter")
	}

	g := c.Gauge("test_gauge", "help")
	g.Set(5)
	g.Inc()
	g.Dec()
	if g.Value() != 5 {
		t.Errorf("gauge = %d, want 5", g.Value())
	}
}

func TestHandlerExposition(t *testing.T) {
	c := NewMetricsCollector()
	c.Counter("demo_total", "a demo counter").Add(7)
	c.Gauge("demo_active", "a demo gauge").Set(2)

	rec := httptest.NewRecorder()
	c.Handler()(rec, httptest.NewRequest("GET", "/metrics", nil))

	body := rec.Body.String()
	for _, want := range []string{
		"# TYPE demo_total counter",
		"demo_total 7",
		"# TYPE demo_active gauge",
		"demo_active 2",
		"scribe_uptime_seconds",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("exposition missing %q:\n%s", want, body)
		}
	}
	if got := rec.Header().Get("Content-Type"); !strings.HasPrefix(got, "text/plain") {
		t.Errorf("content-type = %q", got)
	}
}
