// Package clock provides the blocking delays used by the sampling loop.
package clock

import (
	"context"
	"sync"
	"time"
)

// Sleeper blocks for d or until ctx is done, whichever comes first.
type Sleeper func(ctx context.Context, d time.Duration) error

// Sleep is the wall-clock Sleeper.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Recorder is a Sleeper that returns immediately and remembers every delay.
type Recorder struct {
	mu     sync.Mutex
	delays []time.Duration
}

// Sleep records d. It still honours a cancelled ctx.
func (r *Recorder) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	r.delays = append(r.delays, d)
	r.mu.Unlock()
	return nil
}

// Delays returns a copy of the recorded delays.
func (r *Recorder) Delays() []time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]time.Duration, len(r.delays))
	copy(result, r.delays)
	return result
}

// Count returns how many recorded delays equal d.
func (r *Recorder) Count(d time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, v := range r.delays {
		if v == d {
			n++
		}
	}
	return n
}
