package adc

import (
	"fmt"
	"math"
	"sync"

	"github.com/itohio/soilsense/pkg/config"
)

// Mock simulates the analog front end for testing and development.
type Mock struct {
	cfg *config.MockConfig

	mu        sync.Mutex
	connected bool
	reads     map[Channel]int
}

// NewMock creates a new mocked device instance.
func NewMock(cfg *config.MockConfig) *Mock {
	if cfg == nil {
		cfg = &config.MockConfig{
			Moisture: 500,
			Battery:  787,
			Noise:    0,
		}
	}

	return &Mock{
		cfg:   cfg,
		reads: make(map[Channel]int),
	}
}

// Connect simulates connecting to the device.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return fmt.Errorf("already connected")
	}
	m.connected = true
	return nil
}

// Close stops the mocked device.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.connected = false
	return nil
}

// Read returns the configured value for ch. Moisture reads wander by up to
// Noise counts around the configured value.
func (m *Mock) Read(ch Channel) (uint16, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return 0, ErrNotConnected
	}

	n := m.reads[ch]
	m.reads[ch] = n + 1

	switch ch {
	case Moisture:
		return m.noisy(m.cfg.Moisture, n), nil
	case Battery:
		return m.cfg.Battery, nil
	default:
		return 0, fmt.Errorf("unknown channel %q", byte(ch))
	}
}

// Reads returns how many conversions of ch were requested.
func (m *Mock) Reads(ch Channel) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[ch]
}

// IsConnected returns whether the device is currently connected.
func (m *Mock) IsConnected() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.connected
}

// noisy adds a deterministic zero-mean deviation to base.
func (m *Mock) noisy(base uint16, n int) uint16 {
	if m.cfg.Noise == 0 {
		return base
	}
	v := float64(base) + math.Sin(float64(n)*0.7)*float64(m.cfg.Noise)
	if v < 0 {
		return 0
	}
	return uint16(v)
}
