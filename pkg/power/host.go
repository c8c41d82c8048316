package power

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/itohio/soilsense/pkg/clock"
)

var _ Chip = (*HostChip)(nil)

// HostChip simulates the low-power primitives on a host. Deep sleep blocks
// for the armed interval and the next wake is reported as a timer wake. With
// Halt set, deep sleep returns ErrHalted immediately, the way a real chip
// never returns to the caller.
type HostChip struct {
	ctx   context.Context
	sleep clock.Sleeper
	halt  bool

	mu      sync.Mutex
	armedUS uint64
	domains map[Domain]DomainOption
	cause   WakeCause
	slept   []time.Duration
}

// NewHostChip creates a simulated chip whose sleeps end early when ctx is done.
func NewHostChip(ctx context.Context, sleep clock.Sleeper, halt bool) *HostChip {
	if sleep == nil {
		sleep = clock.Sleep
	}
	return &HostChip{
		ctx:     ctx,
		sleep:   sleep,
		halt:    halt,
		domains: make(map[Domain]DomainOption),
		cause:   WakeUndefined,
	}
}

// EnableTimerWakeup arms the wake timer.
func (h *HostChip) EnableTimerWakeup(us uint64) error {
	if us == 0 {
		return errors.New("wake timer must be positive")
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.armedUS = us
	return nil
}

// ConfigureDomain records the sleep state of d.
func (h *HostChip) ConfigureDomain(d Domain, opt DomainOption) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.domains[d] = opt
	return nil
}

// StartDeepSleep sleeps for the armed interval.
func (h *HostChip) StartDeepSleep() error {
	h.mu.Lock()
	us := h.armedUS
	h.armedUS = 0
	h.mu.Unlock()

	if us == 0 {
		return errors.New("no wake source armed")
	}
	return h.enter(us)
}

// DeepSleep sleeps for us microseconds.
func (h *HostChip) DeepSleep(us uint64) error {
	if us == 0 {
		return errors.New("wake timer must be positive")
	}
	return h.enter(us)
}

func (h *HostChip) enter(us uint64) error {
	d := time.Duration(us) * time.Microsecond

	h.mu.Lock()
	h.slept = append(h.slept, d)
	h.mu.Unlock()

	if h.halt {
		return ErrHalted
	}
	if err := h.sleep(h.ctx, d); err != nil {
		return fmt.Errorf("sleep interrupted: %w", err)
	}

	h.mu.Lock()
	h.cause = WakeTimer
	h.mu.Unlock()
	return nil
}

// WakeupCause reports the simulated wake reason.
func (h *HostChip) WakeupCause() WakeCause {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cause
}

// Domain returns the recorded option for d.
func (h *HostChip) Domain(d Domain) (DomainOption, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	opt, ok := h.domains[d]
	return opt, ok
}

// Slept returns the sleep intervals entered so far.
func (h *HostChip) Slept() []time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()

	result := make([]time.Duration, len(h.slept))
	copy(result, h.slept)
	return result
}
