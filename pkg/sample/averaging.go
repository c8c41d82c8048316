package sample

import (
	"context"
	"fmt"
	"time"

	"github.com/itohio/soilsense/pkg/adc"
	"github.com/itohio/soilsense/pkg/clock"
)

// Averager sums repeated conversions of one channel and divides the sum by a
// fixed divisor. The divisor is independent of the sample count: the default
// node reads 101 samples and divides by 100.
type Averager struct {
	Device  adc.Device
	Channel adc.Channel
	Samples int
	Divisor float32
	Delay   time.Duration // Pause after every conversion
	Sleep   clock.Sleeper
}

// Average performs Samples conversions and returns sum / Divisor.
// Any failed conversion aborts the average.
func (a *Averager) Average(ctx context.Context) (float32, error) {
	if a.Samples <= 0 {
		return 0, fmt.Errorf("invalid sample count: %d", a.Samples)
	}
	if a.Divisor == 0 {
		return 0, fmt.Errorf("divisor must not be zero")
	}

	sleep := a.Sleep
	if sleep == nil {
		sleep = clock.Sleep
	}

	samples := make([]uint16, 0, a.Samples)
	for i := 0; i < a.Samples; i++ {
		v, err := a.Device.Read(a.Channel)
		if err != nil {
			return 0, fmt.Errorf("sample %d of %s: %w", i, a.Channel, err)
		}
		samples = append(samples, v)

		if err := sleep(ctx, a.Delay); err != nil {
			return 0, err
		}
	}

	return AverageSamples(samples, a.Divisor), nil
}

// AverageSamples divides the sum of samples by divisor.
func AverageSamples(samples []uint16, divisor float32) float32 {
	var sum float32
	for _, s := range samples {
		sum += float32(s)
	}
	return sum / divisor
}
