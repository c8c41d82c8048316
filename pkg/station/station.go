// Package station runs the node's measure, publish and sleep cycle.
//
// A cycle is strictly sequential: bring the network up, make sure the broker
// session is open, average the moisture probe, estimate the battery charge,
// publish one reading and sleep. Every wake is a fresh start; nothing but
// configuration survives from one cycle to the next.
package station

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/itohio/soilsense/pkg/adc"
	"github.com/itohio/soilsense/pkg/broker"
	"github.com/itohio/soilsense/pkg/clock"
	"github.com/itohio/soilsense/pkg/config"
	"github.com/itohio/soilsense/pkg/power"
	"github.com/itohio/soilsense/pkg/reading"
	"github.com/itohio/soilsense/pkg/sample"
	"github.com/itohio/soilsense/pkg/wifi"
)

// Station owns everything a cycle touches.
type Station struct {
	cfg      *config.Config
	device   adc.Device
	link     wifi.Link
	client   broker.Client
	power    power.Controller
	logger   *zap.Logger
	flush    func()
	sleep    clock.Sleeper
	clientID string

	// Per-cycle state, reset by Boot.
	humidity   float32
	batteryPct float32
	lastMsg    time.Time
	buf        [reading.BufferSize]byte
}

// Option customises a Station.
type Option func(*Station)

// WithSleeper replaces the wall-clock delays.
func WithSleeper(s clock.Sleeper) Option {
	return func(st *Station) { st.sleep = s }
}

// WithFlush sets the function that drains diagnostic output before sleep.
func WithFlush(f func()) Option {
	return func(st *Station) { st.flush = f }
}

// New assembles a Station.
func New(cfg *config.Config, device adc.Device, link wifi.Link, client broker.Client, ctrl power.Controller, logger *zap.Logger, opts ...Option) *Station {
	unique := cfg.Broker.ClientIDSuffix == config.ClientIDSuffixUUID
	s := &Station{
		cfg:      cfg,
		device:   device,
		link:     link,
		client:   client,
		power:    ctrl,
		logger:   logger,
		flush:    func() { _ = logger.Sync() },
		sleep:    clock.Sleep,
		clientID: broker.ClientID(cfg.Broker.ClientID, unique),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ClientID returns the identifier used for broker handshakes.
func (s *Station) ClientID() string {
	return s.clientID
}

// Boot prepares a freshly woken node: reports the wake cause when the power
// controller can, waits for the system and the probe to settle, associates
// with the network and points the broker client at the configured server.
func (s *Station) Boot(ctx context.Context) error {
	s.humidity = 0
	s.batteryPct = 0
	s.lastMsg = time.Time{}

	if r, ok := s.power.(power.WakeReporter); ok {
		s.logger.Info(r.WakeCause().String())
	}

	if err := s.sleep(ctx, s.cfg.Sensor.BootDelay); err != nil {
		return err
	}
	s.logger.Info("Soil Humidity Sensor")
	if err := s.sleep(ctx, s.cfg.Sensor.SettleDelay); err != nil {
		return err
	}

	creds := wifi.Credentials{SSID: s.cfg.WiFi.SSID, Passphrase: s.cfg.WiFi.Passphrase}
	if err := wifi.Associate(ctx, s.link, creds, s.cfg.WiFi.RetryDelay, s.sleep, s.logger); err != nil {
		return fmt.Errorf("network bring-up: %w", err)
	}

	s.client.SetServer(s.cfg.Broker.Host, s.cfg.Broker.Port)
	return nil
}

// Measure samples the probe and battery and returns the reading for this
// cycle. Both values are computed before the record is built.
func (s *Station) Measure(ctx context.Context) (reading.Reading, error) {
	avg := &sample.Averager{
		Device:  s.device,
		Channel: adc.Moisture,
		Samples: s.cfg.Sensor.Samples,
		Divisor: s.cfg.Sensor.Divisor,
		Delay:   s.cfg.Sensor.SampleDelay,
		Sleep:   s.sleep,
	}

	humidity, err := avg.Average(ctx)
	if err != nil {
		return reading.Reading{}, fmt.Errorf("humidity: %w", err)
	}
	s.humidity = humidity
	s.logger.Info("Current soil humidity", zap.Float32("humidity", humidity))

	pct := sample.Map(humidity, s.cfg.Sensor.InMin, s.cfg.Sensor.InMax, 0, 100)
	s.logger.Info("Humidity percentage", zap.Int32("percent", pct))

	battery, err := s.batteryPercentage()
	if err != nil {
		return reading.Reading{}, fmt.Errorf("battery: %w", err)
	}
	s.batteryPct = battery

	return reading.New(s.cfg.Device.Name, s.humidity, s.batteryPct), nil
}

func (s *Station) batteryPercentage() (float32, error) {
	raw, err := s.device.Read(adc.Battery)
	if err != nil {
		return 0, err
	}
	s.logger.Info("Raw battery value", zap.Uint16("raw", raw))

	volts, pct := sample.Battery(raw, sample.NewBatteryCalibration(s.cfg))
	s.logger.Info("Voltage", zap.Float32("volts", volts))
	s.logger.Info("Battery percentage", zap.Int("percent", int(pct)))

	return pct, nil
}

// Publish encodes r into the fixed buffer and hands it to the broker. The
// publish is best effort: its outcome is only logged at debug level.
func (s *Station) Publish(r reading.Reading) error {
	if pretty, err := r.Pretty(); err == nil {
		s.logger.Info("Reading\n" + pretty)
	}

	payload, err := r.Encode(s.buf[:])
	if err != nil {
		return fmt.Errorf("encode reading: %w", err)
	}

	ok := s.client.Publish(s.cfg.Broker.Topic, payload)
	s.logger.Debug("publish handed off", zap.String("topic", s.cfg.Broker.Topic), zap.Bool("ok", ok))
	s.lastMsg = time.Now()
	return nil
}

// Sleep drains diagnostics and enters the low-power state until the next cycle.
func (s *Station) Sleep() error {
	s.logger.Info("Sleep ...")
	s.flush()
	return s.power.SleepUntilNextCycle(s.cfg.Power.Sleep)
}

// Cycle runs one measure, publish and sleep pass on a booted node. Nothing
// is published when measuring fails.
func (s *Station) Cycle(ctx context.Context, sleep bool) error {
	if !s.client.Connected() {
		if _, err := broker.Reconnect(ctx, s.client, s.clientID, s.cfg.Broker.RetryDelay, s.sleep, s.logger); err != nil {
			return fmt.Errorf("broker: %w", err)
		}
	}

	r, err := s.Measure(ctx)
	if err != nil {
		return err
	}
	if err := s.Publish(r); err != nil {
		return err
	}

	if !sleep {
		return nil
	}
	return s.Sleep()
}

// RunOnce boots and runs a single cycle.
func (s *Station) RunOnce(ctx context.Context, sleep bool) error {
	if err := s.Boot(ctx); err != nil {
		return err
	}
	return s.Cycle(ctx, sleep)
}

// Run repeats boot and cycle until ctx ends or the power controller halts,
// mirroring a chip that restarts from its entry point on every wake.
func (s *Station) Run(ctx context.Context) error {
	for {
		err := s.RunOnce(ctx, true)
		switch {
		case err == nil:
			// The radio does not survive deep sleep.
			s.client.Disconnect()
		case errors.Is(err, power.ErrHalted):
			return nil
		case ctx.Err() != nil:
			return nil
		default:
			return err
		}
	}
}

// Humidity returns the raw moisture average of the current cycle.
func (s *Station) Humidity() float32 { return s.humidity }

// BatteryPct returns the battery estimate of the current cycle.
func (s *Station) BatteryPct() float32 { return s.batteryPct }

// LastPublish returns when the current cycle handed its reading to the broker.
func (s *Station) LastPublish() time.Time { return s.lastMsg }
