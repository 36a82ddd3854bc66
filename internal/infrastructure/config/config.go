package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration for hamhd. Unlike a typical
// YAML-first service, HAMH's primary configuration surface is
// environment variables (spec §6); an optional YAML file named by
// HAMH_CONFIG_FILE is applied as a base layer beneath them.
type Config struct {
	API           APIConfig           `yaml:"api"`
	Storage       StorageConfig       `yaml:"storage"`
	HomeAssistant HomeAssistantConfig `yaml:"home_assistant"`
	Matter        MatterConfig        `yaml:"matter"`
	InfluxDB      InfluxDBConfig      `yaml:"influxdb"`
	Logging       LoggingConfig       `yaml:"logging"`
}

// APIConfig contains REST server settings.
type APIConfig struct {
	Port int `yaml:"port"`
}

// StorageConfig contains persistent-store and supplement-sink
// locations.
type StorageConfig struct {
	Location         string `yaml:"location"`
	StateHistoryPath string `yaml:"state_history_path"`
}

// HomeAssistantConfig contains the upstream HTTP adapter's connection
// settings, plus the optional MQTT statestream supplement.
type HomeAssistantConfig struct {
	URL         string `yaml:"url"`
	AccessToken string `yaml:"access_token"`
	MQTTHost    string `yaml:"mqtt_host"`
	MQTTPort    int    `yaml:"mqtt_port"`
}

// MatterConfig contains the commissioning identity shared by every
// bridge's runtime.
type MatterConfig struct {
	Passcode      uint32 `yaml:"passcode"`
	Discriminator uint16 `yaml:"discriminator"`
	BonjourSDK    string `yaml:"bonjour_sdk"`
}

// InfluxDBConfig contains the optional operation-metrics sink.
type InfluxDBConfig struct {
	URL    string `yaml:"url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

// LoggingConfig contains structured-logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// defaultConfig returns a Config with the defaults spec §6 names.
func defaultConfig() *Config {
	return &Config{
		API: APIConfig{
			Port: 8482,
		},
		Storage: StorageConfig{
			Location: ".hamh-storage",
		},
		Matter: MatterConfig{
			Passcode:      20202021,
			Discriminator: 3840,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// Load builds a Config from defaults, an optional YAML file (path may
// be empty, in which case the file layer is skipped), and environment
// variable overrides, in that precedence order.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// applyEnvOverrides applies the HAMH_* environment variables spec §6
// and its SPEC_FULL.md expansion define. Every variable is optional;
// absence leaves the existing (default or file) value untouched, and
// for the supplement variables (MQTT, InfluxDB, state history) absence
// disables the corresponding feature rather than erroring.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("HAMH_API_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.API.Port = p
		}
	}
	if v := os.Getenv("HAMH_STORAGE_LOCATION"); v != "" {
		cfg.Storage.Location = v
	}
	if v := os.Getenv("HAMH_STATE_HISTORY_PATH"); v != "" {
		cfg.Storage.StateHistoryPath = v
	}

	if v := os.Getenv("HAMH_HOME_ASSISTANT_URL"); v != "" {
		cfg.HomeAssistant.URL = v
	}
	if v := os.Getenv("HAMH_HOME_ASSISTANT_ACCESS_TOKEN"); v != "" {
		cfg.HomeAssistant.AccessToken = v
	}
	if v := os.Getenv("HAMH_HOME_ASSISTANT_MQTT_HOST"); v != "" {
		cfg.HomeAssistant.MQTTHost = v
	}
	if v := os.Getenv("HAMH_HOME_ASSISTANT_MQTT_PORT"); v != "" {
		if p, err := strconv.Atoi(v); err == nil {
			cfg.HomeAssistant.MQTTPort = p
		}
	}

	if v := os.Getenv("HAMH_MATTER_PASSCODE"); v != "" {
		if p, err := strconv.ParseUint(v, 10, 32); err == nil {
			cfg.Matter.Passcode = uint32(p)
		}
	}
	if v := os.Getenv("HAMH_MATTER_DISCRIMINATOR"); v != "" {
		if d, err := strconv.ParseUint(v, 10, 16); err == nil {
			cfg.Matter.Discriminator = uint16(d)
		}
	}
	if v := os.Getenv("HAMH_BONJOUR_SDK"); v != "" {
		cfg.Matter.BonjourSDK = v
	}

	if v := os.Getenv("HAMH_INFLUXDB_URL"); v != "" {
		cfg.InfluxDB.URL = v
	}
	if v := os.Getenv("HAMH_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}
	if v := os.Getenv("HAMH_INFLUXDB_ORG"); v != "" {
		cfg.InfluxDB.Org = v
	}
	if v := os.Getenv("HAMH_INFLUXDB_BUCKET"); v != "" {
		cfg.InfluxDB.Bucket = v
	}
}

// Validate checks the configuration for the handful of values that
// must be sane before hamhd can start.
func (c *Config) Validate() error {
	var errs []string

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}
	if c.Storage.Location == "" {
		errs = append(errs, "storage.location is required")
	}
	if c.Matter.Discriminator > 0x0FFF {
		errs = append(errs, "matter.discriminator must fit in 12 bits")
	}

	// The InfluxDB and MQTT supplements are optional as a unit — either
	// fully configured or fully absent, never half.
	if c.InfluxDB.URL != "" && (c.InfluxDB.Org == "" || c.InfluxDB.Bucket == "") {
		errs = append(errs, "influxdb.url is set but influxdb.org or influxdb.bucket is missing")
	}
	if c.HomeAssistant.MQTTHost != "" && c.HomeAssistant.MQTTPort == 0 {
		errs = append(errs, "home_assistant.mqtt_host is set but home_assistant.mqtt_port is missing")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}
	return nil
}

// InfluxDBEnabled reports whether the optional operation-metrics sink
// is configured.
func (c *Config) InfluxDBEnabled() bool {
	return c.InfluxDB.URL != ""
}

// MQTTStatestreamEnabled reports whether the optional MQTT statestream
// supplement is configured.
func (c *Config) MQTTStatestreamEnabled() bool {
	return c.HomeAssistant.MQTTHost != ""
}

// StateHistoryEnabled reports whether the optional sqlite device-state
// history sink is configured.
func (c *Config) StateHistoryEnabled() bool {
	return c.Storage.StateHistoryPath != ""
}
