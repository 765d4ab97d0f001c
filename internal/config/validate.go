package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ScheduleParser parses preview.reap_schedule. Seconds are optional, so both
// five and six field expressions are accepted, as are descriptors such as
// "@every 1m". The session reaper schedules with the same parser.
var ScheduleParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// Storage drivers understood by the server.
var storageDrivers = map[string]bool{"": true, "sqlite": true, "memory": true, "none": true}

var logFormats = map[string]bool{"": true, "console": true, "json": true, "auto": true}

// Validate reports every problem in cfg at once.
func Validate(cfg *Config) error {
	var errs []error

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		errs = append(errs, fmt.Errorf("gateway.port %d out of range", cfg.Gateway.Port))
	}
	if !logFormats[strings.ToLower(cfg.Log.Format)] {
		errs = append(errs, fmt.Errorf("log.format %q: want console, json or auto", cfg.Log.Format))
	}
	if !storageDrivers[cfg.Storage.Driver] {
		errs = append(errs, fmt.Errorf("storage.driver %q: want sqlite, memory or none", cfg.Storage.Driver))
	}
	if cfg.Runtime.Timeout < 0 {
		errs = append(errs, fmt.Errorf("runtime.timeout %s is negative", cfg.Runtime.Timeout))
	}
	if cfg.Preview.IdleTimeout < 0 {
		errs = append(errs, fmt.Errorf("preview.idle_timeout %s is negative", cfg.Preview.IdleTimeout))
	}
	if strings.ContainsAny(cfg.Preview.HighlightBorder, ";{}") {
		errs = append(errs, fmt.Errorf("preview.highlight_border %q must be a single declaration value", cfg.Preview.HighlightBorder))
	}
	if s := cfg.Preview.ReapSchedule; s != "" {
		if _, err := ScheduleParser.Parse(s); err != nil {
			errs = append(errs, fmt.Errorf("preview.reap_schedule %q: %w", s, err))
		}
	}

	return errors.Join(errs...)
}
