package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Serial     SerialConfig     `mapstructure:"serial"`
	Transfer   TransferConfig   `mapstructure:"transfer"`
	Codeplug   CodeplugConfig   `mapstructure:"codeplug"`
	Database   DatabaseConfig   `mapstructure:"database"`
	RadioID    RadioIDConfig    `mapstructure:"radioid"`
	CallsignDB CallsignDBConfig `mapstructure:"callsigndb"`
	Web        WebConfig        `mapstructure:"web"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	File   string `mapstructure:"file"`
}

// SerialConfig describes the programming cable. An empty port selects the
// first USB adapter matching vid/pid.
type SerialConfig struct {
	Port        string        `mapstructure:"port"`
	BaudRate    int           `mapstructure:"baud_rate"`
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	VID         string        `mapstructure:"vid"`
	PID         string        `mapstructure:"pid"`
}

// TransferConfig holds device transfer settings
type TransferConfig struct {
	// ImageSize is the number of bytes read from and written to the radio
	ImageSize int `mapstructure:"image_size"`
	// Timeout bounds every read from the device
	Timeout time.Duration `mapstructure:"timeout"`
	// Update reads the radio before writing so unknown bytes survive
	Update bool `mapstructure:"update"`
}

// CodeplugConfig holds codec defaults
type CodeplugConfig struct {
	Family        string `mapstructure:"family"`
	AutoTimestamp bool   `mapstructure:"auto_timestamp"`
}

// DatabaseConfig holds the sqlite archive location
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// RadioIDConfig controls the DMR user database sync
type RadioIDConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	URL          string        `mapstructure:"url"`
	SyncInterval time.Duration `mapstructure:"sync_interval"`
}

// CallsignDBConfig controls the call-sign database image
type CallsignDBConfig struct {
	// Limit caps the number of entries; 0 means the format maximum
	Limit int `mapstructure:"limit"`
	// Near sorts by distance to this ID before truncating
	Near uint32 `mapstructure:"near"`
}

// WebConfig holds web dashboard configuration
type WebConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled    bool             `mapstructure:"enabled"`
	Prometheus PrometheusConfig `mapstructure:"prometheus"`
}

// PrometheusConfig holds Prometheus metrics configuration
type PrometheusConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Port    int    `mapstructure:"port"`
	Path    string `mapstructure:"path"`
}

// Load loads configuration from file and environment variables
func Load(configFile string) (*Config, error) {
	setDefaults()

	if configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath("/etc/codeplug-nexus")
	}

	// CODEPLUG_SERIAL_PORT overrides serial.port and so on
	viper.SetEnvPrefix("CODEPLUG")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found is OK, use defaults
		} else if os.IsNotExist(err) {
			// File explicitly specified but doesn't exist - that's also OK
		} else {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "text")

	viper.SetDefault("serial.port", "")
	viper.SetDefault("serial.baud_rate", 9600)
	viper.SetDefault("serial.read_timeout", 100*time.Millisecond)
	viper.SetDefault("serial.vid", "067B")
	viper.SetDefault("serial.pid", "2303")

	viper.SetDefault("transfer.image_size", 0x40000)
	viper.SetDefault("transfer.timeout", time.Second)
	viper.SetDefault("transfer.update", true)

	viper.SetDefault("codeplug.family", "")
	viper.SetDefault("codeplug.auto_timestamp", true)

	viper.SetDefault("database.path", "codeplug-nexus.db")

	viper.SetDefault("radioid.enabled", false)
	viper.SetDefault("radioid.url", "https://radioid.net/static/user.csv")
	viper.SetDefault("radioid.sync_interval", 24*time.Hour)

	viper.SetDefault("callsigndb.limit", 0)
	viper.SetDefault("callsigndb.near", 0)

	viper.SetDefault("web.enabled", true)
	viper.SetDefault("web.host", "127.0.0.1")
	viper.SetDefault("web.port", 8080)

	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.prometheus.enabled", true)
	viper.SetDefault("metrics.prometheus.port", 9090)
	viper.SetDefault("metrics.prometheus.path", "/metrics")
}
