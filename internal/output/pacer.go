package output

import (
	"time"
)

// Pacer spaces calls to Wait at a fixed frame interval. Frames that arrive
// late are not made up for; the schedule restarts from the late frame.
type Pacer struct {
	interval time.Duration
	next     time.Time
	now      func() time.Time
}

// NewPacer creates a pacer for fps frames per second.
func NewPacer(fps int) *Pacer {
	if fps <= 0 {
		fps = DefaultFPS
	}
	return &Pacer{
		interval: time.Second / time.Duration(fps),
		now:      time.Now,
	}
}

// Interval returns the frame interval.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait blocks until the next frame boundary or until stop is closed.
// It returns false if stop fired first.
func (p *Pacer) Wait(stop <-chan struct{}) bool {
	now := p.now()
	if p.next.IsZero() || now.After(p.next) {
		p.next = now.Add(p.interval)
		return !closed(stop)
	}

	timer := time.NewTimer(p.next.Sub(now))
	defer timer.Stop()

	select {
	case <-stop:
		return false
	case <-timer.C:
		p.next = p.next.Add(p.interval)
		return true
	}
}

// Reset forgets the schedule so the next Wait returns immediately.
func (p *Pacer) Reset() {
	p.next = time.Time{}
}

func closed(ch <-chan struct{}) bool {
	if ch == nil {
		return false
	}
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
