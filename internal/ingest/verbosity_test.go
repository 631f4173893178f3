package ingest

import (
	"sync"
	"testing"
)

func TestVerbosityDefaultsOff(t *testing.T) {
	var v Verbosity
	if v.Enabled() {
		t.Error("verbosity must default to off")
	}
}

func TestVerbosityDoubleToggle(t *testing.T) {
	var v Verbosity
	if got := v.Toggle(); !got {
		t.Error("first toggle should return true")
	}
	if got := v.Toggle(); got {
		t.Error("second toggle should return false")
	}
	if v.Enabled() {
		t.Error("two toggles must restore the original value")
	}
}

func TestVerbosityConcurrentToggles(t *testing.T) {
	var v Verbosity
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v.Toggle()
		}()
	}
	wg.Wait()
	// An even number of toggles always lands back on false.
	if v.Enabled() {
		t.Error("100 toggles should restore the original value")
	}
}
