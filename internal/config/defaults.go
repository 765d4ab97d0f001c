package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default values shared with code that runs without a loaded config.
const (
	DefaultPort            = 18790
	DefaultHighlightBorder = "2px solid #0055ff"
	DefaultRuntimeTimeout  = 5 * time.Second
	DefaultIdleTimeout     = 30 * time.Minute
	DefaultReapSchedule    = "@every 1m"
)

// SetDefaults 设置所有配置项的默认值
func SetDefaults() {
	// Gateway
	viper.SetDefault("gateway.port", DefaultPort)
	viper.SetDefault("gateway.host", "127.0.0.1")

	// Log
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "console")
	viper.SetDefault("log.file", "")

	// Storage
	viper.SetDefault("storage.driver", "sqlite")
	viper.SetDefault("storage.path", "~/.vellum/data.db")

	// Runtime
	viper.SetDefault("runtime.script", "")
	viper.SetDefault("runtime.timeout", DefaultRuntimeTimeout)

	// Preview
	viper.SetDefault("preview.highlight_border", DefaultHighlightBorder)
	viper.SetDefault("preview.idle_timeout", DefaultIdleTimeout)
	viper.SetDefault("preview.reap_schedule", DefaultReapSchedule)
	viper.SetDefault("preview.frame_dir", "")
}
