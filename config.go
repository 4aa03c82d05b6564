//go:build !tinygo

package ttgo

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// FileConfig is the provisioning file of a node.
type FileConfig struct {
	Device    Identity        `yaml:"device"`
	Uplink    UplinkConfig    `yaml:"uplink"`
	Radio     RadioConfig     `yaml:"radio"`
	Board     *Board          `yaml:"board"`
	Log       LogConfig       `yaml:"log"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Status    StatusConfig    `yaml:"status"`
}

// UplinkConfig holds the send scheduler settings.
type UplinkConfig struct {
	Interval  time.Duration `yaml:"interval"`
	Port      uint8         `yaml:"port"`
	Confirmed bool          `yaml:"confirmed"`
}

// RadioConfig selects and configures the engine.
type RadioConfig struct {
	ClockErrorPercent uint8           `yaml:"clock_error_percent"`
	Channels          []Channel       `yaml:"channels"`
	Simulate          bool            `yaml:"simulate"`
	Modem             ModemPortConfig `yaml:"modem"`
}

// ModemPortConfig locates the serial modem.
type ModemPortConfig struct {
	Path string `yaml:"path"`
	Baud int    `yaml:"baud"`
}

// LogConfig represents logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // console or json
}

// TelemetryConfig lists the optional event sinks.
type TelemetryConfig struct {
	MQTT MQTTConfig `yaml:"mqtt"`
	NATS NATSConfig `yaml:"nats"`
}

// MQTTConfig represents MQTT sink configuration
type MQTTConfig struct {
	Broker   string `yaml:"broker"` // e.g. tcp://localhost:1883, empty disables the sink
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"` // prefix
}

// NATSConfig represents NATS sink configuration
type NATSConfig struct {
	URL               string        `yaml:"url"` // empty disables the sink
	Subject           string        `yaml:"subject"`
	MaxReconnects     int           `yaml:"max_reconnects"`
	ReconnectInterval time.Duration `yaml:"reconnect_interval"`
}

// StatusConfig represents the status endpoint configuration
type StatusConfig struct {
	Listen string `yaml:"listen"` // empty disables the endpoint
}

// LoadConfig reads a provisioning file, applies environment overrides and
// validates the result.
func LoadConfig(filename string) (*FileConfig, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg FileConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	// Apply environment overrides
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnvOverrides applies environment variable overrides
func (c *FileConfig) applyEnvOverrides() error {
	if v := os.Getenv("TTGO_DEVEUI"); v != "" {
		if err := c.Device.DevEUI.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("TTGO_DEVEUI: %w", err)
		}
	}
	if v := os.Getenv("TTGO_APPEUI"); v != "" {
		if err := c.Device.AppEUI.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("TTGO_APPEUI: %w", err)
		}
	}
	if v := os.Getenv("TTGO_APPKEY"); v != "" {
		if err := c.Device.AppKey.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("TTGO_APPKEY: %w", err)
		}
	}
	if v := os.Getenv("TTGO_MODEM"); v != "" {
		c.Radio.Modem.Path = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.Log.Level = v
	}
	if v := os.Getenv("MQTT_BROKER"); v != "" {
		c.Telemetry.MQTT.Broker = v
	}
	if v := os.Getenv("NATS_URL"); v != "" {
		c.Telemetry.NATS.URL = v
	}
	return nil
}

func (c *FileConfig) setDefaults() {
	if c.Board == nil {
		b := TTGOLoRa32
		c.Board = &b
	}
	if c.Radio.Modem.Baud == 0 {
		c.Radio.Modem.Baud = 57600
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Telemetry.MQTT.Topic == "" {
		c.Telemetry.MQTT.Topic = "ttgo/" + c.Device.DevEUI.String()
	}
	if c.Telemetry.MQTT.ClientID == "" {
		c.Telemetry.MQTT.ClientID = "ttgo-" + c.Device.DevEUI.String()
	}
	if c.Telemetry.NATS.Subject == "" {
		c.Telemetry.NATS.Subject = "ttgo." + c.Device.DevEUI.String()
	}
}

// Validate checks the settings that NewWithHardware cannot.
func (c *FileConfig) Validate() error {
	if !c.Radio.Simulate {
		if err := c.Device.Validate(); err != nil {
			return err
		}
		if c.Radio.Modem.Path == "" {
			return fmt.Errorf("%w: radio.modem.path is required unless radio.simulate is set", ErrPkg)
		}
	}
	if c.Uplink.Port > 223 {
		return fmt.Errorf("%w: uplink.port must be between 1 and 223", ErrPkg)
	}
	if c.Uplink.Interval < 0 {
		return fmt.Errorf("%w: uplink.interval must be positive", ErrPkg)
	}
	if c.Radio.ClockErrorPercent > 100 {
		return fmt.Errorf("%w: radio.clock_error_percent must be between 0 and 100", ErrPkg)
	}
	for _, ch := range c.Radio.Channels {
		if err := ch.Validate(); err != nil {
			return err
		}
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		return fmt.Errorf("%w: unknown log.format %q", ErrPkg, c.Log.Format)
	}
	return nil
}

// NodeConfig returns the node settings. Logger and Sinks are left to the
// caller.
func (c *FileConfig) NodeConfig() Config {
	return Config{
		TxInterval:        c.Uplink.Interval,
		Port:              c.Uplink.Port,
		Confirmed:         c.Uplink.Confirmed,
		ClockErrorPercent: c.Radio.ClockErrorPercent,
		Channels:          c.Radio.Channels,
	}
}

// Identity returns the provisioning of the device.
func (c *FileConfig) Identity() Identity {
	return c.Device
}
