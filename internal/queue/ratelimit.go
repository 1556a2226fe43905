package queue

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// windowSafetyMargin pads sliding-window waits so a wakeup landing exactly
// on the boundary does not re-trip the limit.
const windowSafetyMargin = 10 * time.Millisecond

// Throttle gates page fetches with two independent brakes: a fixed minimum
// spacing between consecutive fetches and a sliding-window cap on fetches
// per second. Either brake may be disabled; a nil Throttle is a no-op.
type Throttle struct {
	spacing *rate.Limiter
	window  *slidingWindow
}

// NewThrottle builds a Throttle. delay <= 0 disables fixed spacing and
// maxRPS <= 0 disables the per-second cap.
func NewThrottle(delay time.Duration, maxRPS int) *Throttle {
	t := &Throttle{}
	if delay > 0 {
		t.spacing = rate.NewLimiter(rate.Every(delay), 1)
	}
	if maxRPS > 0 {
		t.window = &slidingWindow{limit: maxRPS, window: time.Second}
	}
	return t
}

// Wait blocks until both brakes admit one fetch or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	if t == nil {
		return nil
	}
	if t.spacing != nil {
		if err := t.spacing.Wait(ctx); err != nil {
			return err
		}
	}
	if t.window != nil {
		if err := t.window.wait(ctx); err != nil {
			return err
		}
	}
	return nil
}

// slidingWindow admits at most limit events per trailing window. A token
// bucket would admit bursts up to its size back to back; the trailing
// window keeps the guarantee strict, so event i and event i+limit are
// always at least one window apart.
type slidingWindow struct {
	limit  int
	window time.Duration

	mu     sync.Mutex
	stamps []time.Time
}

func (w *slidingWindow) wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		now := time.Now()
		w.prune(now)
		if len(w.stamps) < w.limit {
			w.stamps = append(w.stamps, now)
			w.mu.Unlock()
			return nil
		}
		sleep := w.stamps[0].Add(w.window).Sub(now) + windowSafetyMargin
		w.mu.Unlock()

		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func (w *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	i := 0
	for i < len(w.stamps) && !w.stamps[i].After(cutoff) {
		i++
	}
	if i > 0 {
		w.stamps = append(w.stamps[:0], w.stamps[i:]...)
	}
}
