package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	assert.NotNil(t, cfg)
	assert.Equal(t, 500*time.Millisecond, cfg.WiFi.RetryDelay)
	assert.Equal(t, uint16(1883), cfg.Broker.Port)
	assert.Equal(t, "ESP8266Client", cfg.Broker.ClientID)
	assert.Equal(t, "soil/sensor1", cfg.Broker.Topic)
	assert.Equal(t, 5*time.Second, cfg.Broker.RetryDelay)
	assert.Equal(t, "Soil_Sensor", cfg.Device.Name)
	assert.Equal(t, 101, cfg.Sensor.Samples)
	assert.Equal(t, float32(100), cfg.Sensor.Divisor)
	assert.Equal(t, time.Millisecond, cfg.Sensor.SampleDelay)
	assert.Equal(t, int32(0), cfg.Sensor.InMin)
	assert.Equal(t, int32(950), cfg.Sensor.InMax)
	assert.Equal(t, float32(3.3), cfg.ADC.ReferenceVolts)
	assert.Equal(t, 10, cfg.ADC.ResolutionBits)
	assert.Equal(t, float32(1.98), cfg.Battery.MinVolts)
	assert.Equal(t, float32(3.09), cfg.Battery.MaxVolts)
	assert.Equal(t, VariantTimerWake, cfg.Power.Variant)
	assert.Equal(t, 300*time.Second, cfg.Power.Sleep)
	assert.Equal(t, 9600, cfg.Diagnostics.BaudRate)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_FileNotExists(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nonexistent.yaml"))
	require.NoError(t, err)
	assert.NotNil(t, cfg)
	assert.Equal(t, "soil/sensor1", cfg.Broker.Topic)
}

func TestLoad_ValidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	yamlContent := `
wifi:
  ssid: "garden"
  passphrase: "hunter2"
  retry_delay: 250ms

broker:
  host: "192.168.1.10"
  port: 8883
  client_id: "bed-3"
  client_id_suffix: uuid
  topic: "soil/bed3"
  retry_delay: 2s

device:
  name: "Bed_3"

sensor:
  samples: 51
  divisor: 50
  in_min: 100
  in_max: 800

adc:
  reference_volts: 3.0
  resolution_bits: 12

battery:
  min_volts: 3.2
  max_volts: 4.2

power:
  variant: retained_domain
  sleep: 10m
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "garden", cfg.WiFi.SSID)
	assert.Equal(t, "hunter2", cfg.WiFi.Passphrase)
	assert.Equal(t, 250*time.Millisecond, cfg.WiFi.RetryDelay)
	assert.Equal(t, "192.168.1.10", cfg.Broker.Host)
	assert.Equal(t, uint16(8883), cfg.Broker.Port)
	assert.Equal(t, "bed-3", cfg.Broker.ClientID)
	assert.Equal(t, ClientIDSuffixUUID, cfg.Broker.ClientIDSuffix)
	assert.Equal(t, "soil/bed3", cfg.Broker.Topic)
	assert.Equal(t, 2*time.Second, cfg.Broker.RetryDelay)
	assert.Equal(t, "Bed_3", cfg.Device.Name)
	assert.Equal(t, 51, cfg.Sensor.Samples)
	assert.Equal(t, float32(50), cfg.Sensor.Divisor)
	assert.Equal(t, int32(100), cfg.Sensor.InMin)
	assert.Equal(t, int32(800), cfg.Sensor.InMax)
	assert.Equal(t, float32(3.0), cfg.ADC.ReferenceVolts)
	assert.Equal(t, 12, cfg.ADC.ResolutionBits)
	assert.Equal(t, float32(3.2), cfg.Battery.MinVolts)
	assert.Equal(t, float32(4.2), cfg.Battery.MaxVolts)
	assert.Equal(t, VariantRetainedDomain, cfg.Power.Variant)
	assert.Equal(t, 10*time.Minute, cfg.Power.Sleep)
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("invalid: yaml: content: ["), 0600))

	cfg, err := Load(path)
	assert.Error(t, err)
	assert.Nil(t, cfg)
}

func TestLoad_PartialYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("broker:\n  host: \"mqtt.lan\"\n"), 0600))

	cfg, err := Load(path)
	require.NoError(t, err)

	// Should use defaults for missing fields
	assert.Equal(t, "mqtt.lan", cfg.Broker.Host)
	assert.Equal(t, uint16(1883), cfg.Broker.Port)
	assert.Equal(t, 101, cfg.Sensor.Samples)
	assert.Equal(t, float32(1.98), cfg.Battery.MinVolts)
}

func TestLoad_UnknownVariant(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("power:\n  variant: hibernate\n"), 0600))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "hibernate")
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvWiFiPassphrase, "from-env")
	t.Setenv(EnvBrokerHost, "broker.env")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "from-env", cfg.WiFi.Passphrase)
	assert.Equal(t, "broker.env", cfg.Broker.Host)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"flat sensor range", func(c *Config) { c.Sensor.InMax = c.Sensor.InMin }, "in_min"},
		{"flat battery range", func(c *Config) { c.Battery.MaxVolts = c.Battery.MinVolts }, "min_volts"},
		{"zero resolution", func(c *Config) { c.ADC.ResolutionBits = 0 }, "resolution_bits"},
		{"bad suffix", func(c *Config) { c.Broker.ClientIDSuffix = "mac" }, "client_id_suffix"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSave(t *testing.T) {
	cfg := Default()
	cfg.Broker.Host = "10.0.0.2"
	cfg.Power.Sleep = 15 * time.Minute

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, cfg.Save(path))

	// Load it back and verify
	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.2", loaded.Broker.Host)
	assert.Equal(t, 15*time.Minute, loaded.Power.Sleep)
}
