// Package backoff provides the exponential retry-delay policy shared by the
// fetch and dispatch retry loops.
package backoff

import "time"

// Policy computes capped exponential delays: Initial doubled per attempt,
// never exceeding Max.
type Policy struct {
	Initial time.Duration
	Max     time.Duration
}

// Delay returns the wait before retrying after the given 1-based attempt.
func (p Policy) Delay(attempt int) time.Duration {
	d := p.Initial
	for i := 1; i < attempt; i++ {
		d *= 2
	}
	if d > p.Max {
		d = p.Max
	}
	return d
}
