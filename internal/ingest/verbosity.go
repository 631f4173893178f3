package ingest

import "sync/atomic"

// Verbosity is the process-wide toggle for echoing write outcomes back into
// chat. It is read on every write path and flipped by the verbose command,
// possibly from a different goroutine than a running backfill, hence atomic.
type Verbosity struct {
	on atomic.Bool
}

// Enabled reports the current state.
func (v *Verbosity) Enabled() bool {
	return v.on.Load()
}

// Toggle flips the flag and returns the new value.
func (v *Verbosity) Toggle() bool {
	for {
		old := v.on.Load()
		if v.on.CompareAndSwap(old, !old) {
			return !old
		}
	}
}
