package pipeline

import "github.com/jonboulle/clockwork"

// clock drives the regeneration schedule. Tests swap in a fake to step
// through runs without waiting.
var clock = clockwork.NewRealClock()

// SetClock swaps the scheduling time source. Pass nil to reset to real time.
func SetClock(c clockwork.Clock) {
	if c == nil {
		clock = clockwork.NewRealClock()
		return
	}
	clock = c
}
