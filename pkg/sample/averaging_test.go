package sample

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/itohio/soilsense/pkg/adc"
	"github.com/itohio/soilsense/pkg/clock"
	"github.com/itohio/soilsense/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scripted returns a fixed sequence of conversions.
type scripted struct {
	values []uint16
	next   int
	failAt int
}

func (s *scripted) Connect() error    { return nil }
func (s *scripted) Close() error      { return nil }
func (s *scripted) IsConnected() bool { return true }
func (s *scripted) Read(adc.Channel) (uint16, error) {
	if s.failAt > 0 && s.next == s.failAt {
		return 0, errors.New("conversion timeout")
	}
	v := s.values[s.next%len(s.values)]
	s.next++
	return v, nil
}

func TestAverageSamples_DividesByDivisorNotCount(t *testing.T) {
	samples := make([]uint16, 101)
	var sum float32
	for i := range samples {
		samples[i] = uint16(400 + i)
		sum += float32(samples[i])
	}

	got := AverageSamples(samples, 100)
	assert.Equal(t, sum/100, got)
	assert.NotEqual(t, sum/101, got)
}

func TestAverager_ConstantInput(t *testing.T) {
	dev := adc.NewMock(&config.MockConfig{Moisture: 500})
	require.NoError(t, dev.Connect())

	var rec clock.Recorder
	a := &Averager{
		Device:  dev,
		Channel: adc.Moisture,
		Samples: 101,
		Divisor: 100,
		Delay:   time.Millisecond,
		Sleep:   rec.Sleep,
	}

	got, err := a.Average(context.Background())
	require.NoError(t, err)

	// 101 reads of 500 divided by 100.
	assert.Equal(t, float32(505), got)
	assert.Equal(t, 101, dev.Reads(adc.Moisture))
	assert.Equal(t, 101, rec.Count(time.Millisecond))
}

func TestAverager_MatchesPureAverage(t *testing.T) {
	values := []uint16{512, 498, 505, 490, 530}
	dev := &scripted{values: values}

	var rec clock.Recorder
	a := &Averager{Device: dev, Channel: adc.Moisture, Samples: 5, Divisor: 4, Sleep: rec.Sleep}

	got, err := a.Average(context.Background())
	require.NoError(t, err)
	assert.Equal(t, AverageSamples(values, 4), got)
}

func TestAverager_ReadError(t *testing.T) {
	dev := &scripted{values: []uint16{500}, failAt: 7}

	var rec clock.Recorder
	a := &Averager{Device: dev, Channel: adc.Moisture, Samples: 101, Divisor: 100, Sleep: rec.Sleep}

	_, err := a.Average(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sample 7 of moisture")
}

func TestAverager_Cancelled(t *testing.T) {
	dev := &scripted{values: []uint16{500}}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var rec clock.Recorder
	a := &Averager{Device: dev, Channel: adc.Moisture, Samples: 101, Divisor: 100, Sleep: rec.Sleep}

	_, err := a.Average(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAverager_InvalidParameters(t *testing.T) {
	dev := &scripted{values: []uint16{500}}

	_, err := (&Averager{Device: dev, Samples: 0, Divisor: 100}).Average(context.Background())
	assert.Error(t, err)

	_, err = (&Averager{Device: dev, Samples: 10, Divisor: 0}).Average(context.Background())
	assert.Error(t, err)
}
