package video

import "time"

// Pacer spaces displayed frames at the source rate. The wait before the next
// frame is one frame interval after the previous frame, clamped to at least
// one millisecond and at most one interval.
type Pacer struct {
	interval time.Duration
	last     time.Time
	now      func() time.Time
}

// NewPacer creates a pacer for fps frames per second.
func NewPacer(fps float64) *Pacer {
	return &Pacer{
		interval: time.Duration(float64(time.Second) / fps),
		now:      time.Now,
	}
}

// Interval returns the nominal time between frames.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}

// Wait records a frame and returns how long to wait before the next one.
func (p *Pacer) Wait() time.Duration {
	now := p.now()
	if p.last.IsZero() {
		p.last = now
		return time.Millisecond
	}

	wait := p.last.Add(p.interval).Sub(now)
	if wait < time.Millisecond {
		wait = time.Millisecond
	}
	if wait > p.interval {
		wait = p.interval
	}
	p.last = now
	return wait
}

// WaitMillis is Wait rounded down to whole milliseconds, at least 1, as
// taken by gocv.WaitKey.
func (p *Pacer) WaitMillis() int {
	ms := int(p.Wait() / time.Millisecond)
	if ms < 1 {
		ms = 1
	}
	return ms
}
