package adc

import "errors"

// Channel selects an analog input on the node.
type Channel byte

const (
	// Moisture is the soil-moisture probe input.
	Moisture Channel = 'm'
	// Battery is the battery-voltage divider input.
	Battery Channel = 'b'
)

func (c Channel) String() string {
	switch c {
	case Moisture:
		return "moisture"
	case Battery:
		return "battery"
	default:
		return "unknown"
	}
}

// ErrNotConnected is returned when reading from a closed device.
var ErrNotConnected = errors.New("not connected")

// Device defines the interface for analog front ends (real or mocked).
type Device interface {
	Connect() error
	Close() error
	Read(ch Channel) (uint16, error)
	IsConnected() bool
}

// Ensure Serial implements Device.
var _ Device = (*Serial)(nil)

// Ensure Mock implements Device.
var _ Device = (*Mock)(nil)
