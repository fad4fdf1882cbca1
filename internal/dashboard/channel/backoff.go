package channel

import "time"

// Backoff configures the delay between reconnect attempts.
type Backoff struct {
	MinDelay   time.Duration
	MaxDelay   time.Duration
	Multiplier float64
}

// DefaultBackoff mirrors the dashboard's stock reconnect pacing.
func DefaultBackoff() Backoff {
	return Backoff{MinDelay: time.Second, MaxDelay: 30 * time.Second, Multiplier: 2}
}

type backoff struct {
	cur  time.Duration
	min  time.Duration
	max  time.Duration
	mult float64
}

func newBackoff(b Backoff) *backoff {
	if b.MinDelay <= 0 {
		b.MinDelay = time.Second
	}
	if b.MaxDelay < b.MinDelay {
		b.MaxDelay = b.MinDelay
	}
	if b.Multiplier < 1 {
		b.Multiplier = 2
	}
	return &backoff{cur: b.MinDelay, min: b.MinDelay, max: b.MaxDelay, mult: b.Multiplier}
}

// Next returns the delay to wait now and grows the window up to the cap.
func (b *backoff) Next() time.Duration {
	d := b.cur
	next := time.Duration(float64(b.cur) * b.mult)
	if next > b.max || next < b.cur {
		next = b.max
	}
	b.cur = next
	return d
}

// Reset restarts the window at the minimum delay.
func (b *backoff) Reset() {
	b.cur = b.min
}
