package sample

import (
	"github.com/chewxy/math32"

	"github.com/itohio/soilsense/pkg/config"
)

// BatteryCalibration converts a raw battery-divider conversion to a charge estimate.
type BatteryCalibration struct {
	Sensitivity float32 // Volts per ADC count
	MinVolts    float32 // Voltage reported as 0%
	MaxVolts    float32 // Voltage reported as 100%
}

// NewBatteryCalibration derives the calibration from configuration.
func NewBatteryCalibration(cfg *config.Config) BatteryCalibration {
	return BatteryCalibration{
		Sensitivity: Sensitivity(cfg.ADC.ReferenceVolts, cfg.ADC.ResolutionBits),
		MinVolts:    cfg.Battery.MinVolts,
		MaxVolts:    cfg.Battery.MaxVolts,
	}
}

// Sensitivity returns volts per ADC count for the given reference and resolution.
// Formula: V_ref / 2^bits
func Sensitivity(referenceVolts float32, bits int) float32 {
	return referenceVolts / float32(uint32(1)<<bits)
}

// Battery converts a raw battery conversion to volts and percent. The percent is
// a plain linear remap and is not clamped: voltages outside the calibration range
// yield values below 0 or above 100.
func Battery(raw uint16, cal BatteryCalibration) (volts, percent float32) {
	volts = float32(raw) * cal.Sensitivity
	percent = Mapf(volts, cal.MinVolts, cal.MaxVolts, 0, 100)
	return volts, percent
}

// Map re-maps x from [inMin, inMax] to [outMin, outMax] using integer arithmetic.
// x is truncated toward zero first and the division truncates, so Map(1, 0, 950, 0, 100) is 0.
func Map(x float32, inMin, inMax, outMin, outMax int32) int32 {
	v := int64(math32.Trunc(x))
	return int32((v-int64(inMin))*int64(outMax-outMin)/int64(inMax-inMin) + int64(outMin))
}

// Mapf re-maps x from [inMin, inMax] to [outMin, outMax] without clamping.
func Mapf(x, inMin, inMax, outMin, outMax float32) float32 {
	a := x - inMin
	b := outMax - outMin
	c := inMax - inMin
	return a*b/c + outMin
}
