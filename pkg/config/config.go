package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Environment variables that override secrets loaded from the file.
const (
	EnvWiFiPassphrase = "SOILSENSE_WIFI_PASSPHRASE"
	EnvBrokerHost     = "SOILSENSE_BROKER_HOST"
)

// Power variants understood by the power package.
const (
	VariantTimerWake      = "timer_wake"
	VariantRetainedDomain = "retained_domain"
)

// ClientIDSuffixUUID appends a random UUID to the broker client identifier.
const ClientIDSuffixUUID = "uuid"

// Config represents the node configuration.
type Config struct {
	WiFi        WiFiConfig        `yaml:"wifi"`
	Broker      BrokerConfig      `yaml:"broker"`
	Device      DeviceConfig      `yaml:"device"`
	Sensor      SensorConfig      `yaml:"sensor"`
	ADC         ADCConfig         `yaml:"adc"`
	Battery     BatteryConfig     `yaml:"battery"`
	Power       PowerConfig       `yaml:"power"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Mock        MockConfig        `yaml:"mock"`
}

// WiFiConfig contains the wireless network credentials.
type WiFiConfig struct {
	SSID       string        `yaml:"ssid"`
	Passphrase string        `yaml:"passphrase"`
	Interface  string        `yaml:"interface"`   // Host network interface that must be up (empty = any)
	RetryDelay time.Duration `yaml:"retry_delay"` // Delay between association polls
}

// BrokerConfig contains MQTT broker parameters.
type BrokerConfig struct {
	Host           string        `yaml:"host"`
	Port           uint16        `yaml:"port"`
	ClientID       string        `yaml:"client_id"`
	ClientIDSuffix string        `yaml:"client_id_suffix"` // "" or "uuid"
	Topic          string        `yaml:"topic"`
	RetryDelay     time.Duration `yaml:"retry_delay"`
	ConnectTimeout time.Duration `yaml:"connect_timeout"`
}

// DeviceConfig contains the logical device identity used in payloads.
type DeviceConfig struct {
	Name string `yaml:"name"`
}

// SensorConfig contains moisture sampling parameters.
type SensorConfig struct {
	Samples     int           `yaml:"samples"` // Number of reads summed per cycle
	Divisor     float32       `yaml:"divisor"` // Sum is divided by this, not by Samples
	SampleDelay time.Duration `yaml:"sample_delay"`
	InMin       int32         `yaml:"in_min"` // Raw range mapped to 0..100 for display
	InMax       int32         `yaml:"in_max"`
	BootDelay   time.Duration `yaml:"boot_delay"`
	SettleDelay time.Duration `yaml:"settle_delay"`
}

// ADCConfig describes the analog front end.
type ADCConfig struct {
	ReferenceVolts float32 `yaml:"reference_volts"`
	ResolutionBits int     `yaml:"resolution_bits"`
	Port           string  `yaml:"port"` // Serial port of the ADC bridge
	BaudRate       int     `yaml:"baud_rate"`
}

// BatteryConfig is the empirical voltage range mapped to 0..100 percent.
type BatteryConfig struct {
	MinVolts float32 `yaml:"min_volts"`
	MaxVolts float32 `yaml:"max_volts"`
}

// PowerConfig selects the sleep primitive and the wake interval.
type PowerConfig struct {
	Variant string        `yaml:"variant"`
	Sleep   time.Duration `yaml:"sleep"`
}

// DiagnosticsConfig controls human-readable diagnostic output.
type DiagnosticsConfig struct {
	Port     string `yaml:"port"` // Optional serial port mirroring diagnostics
	BaudRate int    `yaml:"baud_rate"`
	Verbose  bool   `yaml:"verbose"`
}

// MockConfig contains mock ADC configuration.
type MockConfig struct {
	Moisture uint16 `yaml:"moisture"` // Raw moisture reading
	Battery  uint16 `yaml:"battery"`  // Raw battery reading
	Noise    uint16 `yaml:"noise"`    // Peak deviation applied to moisture reads
}

// Default returns a default configuration with sensible values.
func Default() *Config {
	return &Config{
		WiFi: WiFiConfig{
			RetryDelay: 500 * time.Millisecond,
		},
		Broker: BrokerConfig{
			Host:           "localhost",
			Port:           1883,
			ClientID:       "ESP8266Client",
			Topic:          "soil/sensor1",
			RetryDelay:     5 * time.Second,
			ConnectTimeout: 15 * time.Second,
		},
		Device: DeviceConfig{
			Name: "Soil_Sensor",
		},
		Sensor: SensorConfig{
			Samples:     101,
			Divisor:     100,
			SampleDelay: time.Millisecond,
			InMin:       0,
			InMax:       950,
			BootDelay:   500 * time.Millisecond,
			SettleDelay: time.Second,
		},
		ADC: ADCConfig{
			ReferenceVolts: 3.3,
			ResolutionBits: 10,
			Port:           "/dev/ttyACM0",
			BaudRate:       115200,
		},
		Battery: BatteryConfig{
			MinVolts: 1.98,
			MaxVolts: 3.09,
		},
		Power: PowerConfig{
			Variant: VariantTimerWake,
			Sleep:   300 * time.Second,
		},
		Diagnostics: DiagnosticsConfig{
			BaudRate: 9600,
		},
		Mock: MockConfig{
			Moisture: 500,
			Battery:  787, // ~2.535V with a 10-bit 3.3V ADC
			Noise:    0,
		},
	}
}

// Load loads configuration from a YAML file. If the file doesn't exist or
// fields are missing, it uses default values.
func Load(filename string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(filename)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.ensureDefaults()
	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save saves the configuration to a YAML file.
func (c *Config) Save(filename string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(filename, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate reports settings that would make the sampling maths meaningless.
func (c *Config) Validate() error {
	if c.Sensor.InMax == c.Sensor.InMin {
		return fmt.Errorf("sensor in_min and in_max must differ")
	}
	if c.Battery.MaxVolts == c.Battery.MinVolts {
		return fmt.Errorf("battery min_volts and max_volts must differ")
	}
	if c.ADC.ResolutionBits <= 0 || c.ADC.ResolutionBits > 16 {
		return fmt.Errorf("adc resolution_bits out of range: %d", c.ADC.ResolutionBits)
	}
	switch c.Power.Variant {
	case VariantTimerWake, VariantRetainedDomain:
	default:
		return fmt.Errorf("unknown power variant %q", c.Power.Variant)
	}
	switch c.Broker.ClientIDSuffix {
	case "", ClientIDSuffixUUID:
	default:
		return fmt.Errorf("unknown client_id_suffix %q", c.Broker.ClientIDSuffix)
	}
	return nil
}

// ensureDefaults ensures that all required fields have default values if missing.
func (c *Config) ensureDefaults() {
	def := Default()

	if c.WiFi.RetryDelay == 0 {
		c.WiFi.RetryDelay = def.WiFi.RetryDelay
	}

	if c.Broker.Host == "" {
		c.Broker.Host = def.Broker.Host
	}
	if c.Broker.Port == 0 {
		c.Broker.Port = def.Broker.Port
	}
	if c.Broker.ClientID == "" {
		c.Broker.ClientID = def.Broker.ClientID
	}
	if c.Broker.Topic == "" {
		c.Broker.Topic = def.Broker.Topic
	}
	if c.Broker.RetryDelay == 0 {
		c.Broker.RetryDelay = def.Broker.RetryDelay
	}
	if c.Broker.ConnectTimeout == 0 {
		c.Broker.ConnectTimeout = def.Broker.ConnectTimeout
	}

	if c.Device.Name == "" {
		c.Device.Name = def.Device.Name
	}

	if c.Sensor.Samples == 0 {
		c.Sensor.Samples = def.Sensor.Samples
	}
	if c.Sensor.Divisor == 0 {
		c.Sensor.Divisor = def.Sensor.Divisor
	}
	if c.Sensor.SampleDelay == 0 {
		c.Sensor.SampleDelay = def.Sensor.SampleDelay
	}
	if c.Sensor.BootDelay == 0 {
		c.Sensor.BootDelay = def.Sensor.BootDelay
	}
	if c.Sensor.SettleDelay == 0 {
		c.Sensor.SettleDelay = def.Sensor.SettleDelay
	}
	if c.Sensor.InMax == 0 && c.Sensor.InMin == 0 {
		c.Sensor.InMin = def.Sensor.InMin
		c.Sensor.InMax = def.Sensor.InMax
	}

	if c.ADC.ReferenceVolts == 0 {
		c.ADC.ReferenceVolts = def.ADC.ReferenceVolts
	}
	if c.ADC.ResolutionBits == 0 {
		c.ADC.ResolutionBits = def.ADC.ResolutionBits
	}
	if c.ADC.Port == "" {
		c.ADC.Port = def.ADC.Port
	}
	if c.ADC.BaudRate == 0 {
		c.ADC.BaudRate = def.ADC.BaudRate
	}

	if c.Battery.MinVolts == 0 && c.Battery.MaxVolts == 0 {
		c.Battery = def.Battery
	}

	if c.Power.Variant == "" {
		c.Power.Variant = def.Power.Variant
	}
	if c.Power.Sleep == 0 {
		c.Power.Sleep = def.Power.Sleep
	}

	if c.Diagnostics.BaudRate == 0 {
		c.Diagnostics.BaudRate = def.Diagnostics.BaudRate
	}
}

// applyEnv overrides secrets from the environment.
func (c *Config) applyEnv() {
	if v := os.Getenv(EnvWiFiPassphrase); v != "" {
		c.WiFi.Passphrase = v
	}
	if v := os.Getenv(EnvBrokerHost); v != "" {
		c.Broker.Host = v
	}
}
