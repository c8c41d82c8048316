// Package reading holds the per-cycle measurement record and its wire encoding.
//
// The payload is a flat JSON object with a fixed key order:
//
//	{"device":"Soil_Sensor","humidity":505.0,"BatteryPct":50.11}
//
// Humidity is the raw ADC average, not a percentage.
package reading

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/chewxy/math32"
)

// BufferSize is the largest encoded payload the publisher accepts.
const BufferSize = 256

var (
	// ErrPayloadTooLarge is returned when the encoded reading exceeds BufferSize.
	ErrPayloadTooLarge = errors.New("payload exceeds buffer")
	// ErrNotFinite is returned for NaN or infinite measurements.
	ErrNotFinite = errors.New("measurement is not finite")
)

// Value is a measurement that always encodes with a decimal point.
type Value float32

// MarshalJSON encodes v with the shortest float32 representation, keeping a
// trailing ".0" on whole numbers.
func (v Value) MarshalJSON() ([]byte, error) {
	f := float32(v)
	if math32.IsNaN(f) || math32.IsInf(f, 0) {
		return nil, ErrNotFinite
	}

	b := strconv.AppendFloat(nil, float64(f), 'f', -1, 32)
	for _, c := range b {
		if c == '.' {
			return b, nil
		}
	}
	return append(b, '.', '0'), nil
}

// Reading is one cycle's measurement.
type Reading struct {
	Device     string `json:"device"`
	Humidity   Value  `json:"humidity"`
	BatteryPct Value  `json:"BatteryPct"`
}

// New builds a Reading.
func New(device string, humidity, batteryPct float32) Reading {
	return Reading{
		Device:     device,
		Humidity:   Value(humidity),
		BatteryPct: Value(batteryPct),
	}
}

// Validate reports measurements that cannot be encoded.
func (r Reading) Validate() error {
	if f := float32(r.Humidity); math32.IsNaN(f) || math32.IsInf(f, 0) {
		return fmt.Errorf("humidity: %w", ErrNotFinite)
	}
	if f := float32(r.BatteryPct); math32.IsNaN(f) || math32.IsInf(f, 0) {
		return fmt.Errorf("battery: %w", ErrNotFinite)
	}
	return nil
}

// Encode serializes r compactly into buf and returns the used prefix.
func (r Reading) Encode(buf []byte) ([]byte, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal reading: %w", err)
	}
	if len(data) > len(buf) {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrPayloadTooLarge, len(data), len(buf))
	}

	n := copy(buf, data)
	return buf[:n], nil
}

// Pretty renders r indented for diagnostic output.
func (r Reading) Pretty() (string, error) {
	if err := r.Validate(); err != nil {
		return "", err
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal reading: %w", err)
	}
	return string(data), nil
}
