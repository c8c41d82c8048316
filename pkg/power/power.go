// Package power puts the node to sleep between measurement cycles.
//
// Two hardware families are supported. TimerWakeDeepSleep enters deep sleep
// with a single call that never returns on hardware; the chip resets on wake.
// RetainedDomainDeepSleep arms the wake timer, keeps the RTC peripheral domain
// powered and then starts deep sleep. Both honour the same
// SleepUntilNextCycle contract.
package power

import (
	"errors"
	"fmt"
	"time"

	"github.com/itohio/soilsense/pkg/config"
)

// MicrosecondsPerSecond converts the sleep interval for the wake timer.
const MicrosecondsPerSecond = 1000000

// ErrHalted is returned by a Chip whose deep sleep ends the program instead of
// returning to the caller.
var ErrHalted = errors.New("deep sleep halted execution")

// Domain is a power domain that can be kept on during deep sleep.
type Domain int

const (
	RTCPeripherals Domain = iota
)

// DomainOption is the power state of a Domain during deep sleep.
type DomainOption int

const (
	Off DomainOption = iota
	On
)

// WakeCause reports why the chip left deep sleep.
type WakeCause int

const (
	WakeUndefined WakeCause = iota
	WakeAll
	WakeExt0
	WakeExt1
	WakeTimer
	WakeTouchpad
	WakeULP
)

// String returns the human-readable wake reason.
func (c WakeCause) String() string {
	switch c {
	case WakeExt0:
		return "Wakeup caused by external signal using RTC_IO"
	case WakeExt1:
		return "Wakeup caused by external signal using RTC_CNTL"
	case WakeTimer:
		return "Wakeup caused by timer"
	case WakeTouchpad:
		return "Wakeup caused by touchpad"
	case WakeULP:
		return "Wakeup caused by ULP program"
	default:
		return fmt.Sprintf("Wakeup was not caused by deep sleep: %d", int(c))
	}
}

// Chip exposes the low-power primitives of the microcontroller.
type Chip interface {
	EnableTimerWakeup(us uint64) error
	ConfigureDomain(d Domain, opt DomainOption) error
	StartDeepSleep() error
	DeepSleep(us uint64) error
	WakeupCause() WakeCause
}

// Controller sleeps until the next measurement cycle. On hardware a
// successful call does not return; simulated chips return when the
// interval has elapsed.
type Controller interface {
	SleepUntilNextCycle(d time.Duration) error
}

// WakeReporter is implemented by controllers that can explain the last wake.
type WakeReporter interface {
	WakeCause() WakeCause
}

var (
	_ Controller   = (*TimerWakeDeepSleep)(nil)
	_ Controller   = (*RetainedDomainDeepSleep)(nil)
	_ WakeReporter = (*RetainedDomainDeepSleep)(nil)
)

// Microseconds converts d to whole wake-timer microseconds.
func Microseconds(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d / time.Microsecond)
}

// New returns the controller for variant.
func New(variant string, chip Chip) (Controller, error) {
	switch variant {
	case config.VariantTimerWake:
		return &TimerWakeDeepSleep{chip: chip}, nil
	case config.VariantRetainedDomain:
		return &RetainedDomainDeepSleep{chip: chip}, nil
	default:
		return nil, fmt.Errorf("unknown power variant %q", variant)
	}
}

// TimerWakeDeepSleep enters deep sleep with a single timed call.
type TimerWakeDeepSleep struct {
	chip Chip
}

// SleepUntilNextCycle enters deep sleep for d.
func (c *TimerWakeDeepSleep) SleepUntilNextCycle(d time.Duration) error {
	if err := c.chip.DeepSleep(Microseconds(d)); err != nil {
		return fmt.Errorf("deep sleep: %w", err)
	}
	return nil
}

// RetainedDomainDeepSleep arms the wake timer and keeps RTC peripherals
// powered before sleeping.
type RetainedDomainDeepSleep struct {
	chip Chip
}

// SleepUntilNextCycle arms the timer for d, retains the RTC peripheral
// domain and starts deep sleep.
func (c *RetainedDomainDeepSleep) SleepUntilNextCycle(d time.Duration) error {
	if err := c.chip.EnableTimerWakeup(Microseconds(d)); err != nil {
		return fmt.Errorf("enable timer wakeup: %w", err)
	}
	if err := c.chip.ConfigureDomain(RTCPeripherals, On); err != nil {
		return fmt.Errorf("configure rtc peripherals: %w", err)
	}
	if err := c.chip.StartDeepSleep(); err != nil {
		return fmt.Errorf("deep sleep: %w", err)
	}
	return nil
}

// WakeCause reports why the chip last woke up.
func (c *RetainedDomainDeepSleep) WakeCause() WakeCause {
	return c.chip.WakeupCause()
}
