package config

import (
	"fmt"
	"strings"

	"github.com/dbehnke/codeplug-nexus/pkg/callsigndb"
	"github.com/dbehnke/codeplug-nexus/pkg/families"
	"github.com/dbehnke/codeplug-nexus/pkg/transfer/kydera"
)

// validate validates the configuration
func validate(cfg *Config) error {
	switch strings.ToLower(cfg.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error")
	}
	if cfg.Logging.Format != "" && cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be text or json")
	}

	if cfg.Serial.BaudRate < 0 {
		return fmt.Errorf("serial.baud_rate must not be negative")
	}
	if cfg.Serial.ReadTimeout < 0 {
		return fmt.Errorf("serial.read_timeout must not be negative")
	}

	if cfg.Transfer.ImageSize <= 0 || cfg.Transfer.ImageSize%kydera.BlockSize != 0 {
		return fmt.Errorf("transfer.image_size must be a positive multiple of %d", kydera.BlockSize)
	}

	if cfg.Codeplug.Family != "" {
		if _, err := families.Lookup(cfg.Codeplug.Family); err != nil {
			return fmt.Errorf("codeplug.family: %w", err)
		}
	}

	if cfg.RadioID.Enabled {
		if cfg.RadioID.URL == "" {
			return fmt.Errorf("radioid.url is required when radioid is enabled")
		}
		if cfg.RadioID.SyncInterval <= 0 {
			return fmt.Errorf("radioid.sync_interval must be positive")
		}
	}

	if cfg.CallsignDB.Limit < 0 || cfg.CallsignDB.Limit > callsigndb.MaxEntries {
		return fmt.Errorf("callsigndb.limit must be between 0 and %d", callsigndb.MaxEntries)
	}

	if cfg.Web.Enabled {
		if cfg.Web.Port <= 0 || cfg.Web.Port > 65535 {
			return fmt.Errorf("web.port must be between 1 and 65535")
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Prometheus.Enabled {
		if cfg.Metrics.Prometheus.Port <= 0 || cfg.Metrics.Prometheus.Port > 65535 {
			return fmt.Errorf("metrics.prometheus.port must be between 1 and 65535")
		}
		if !strings.HasPrefix(cfg.Metrics.Prometheus.Path, "/") {
			return fmt.Errorf("metrics.prometheus.path must start with /")
		}
	}

	return nil
}
