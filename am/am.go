// Package am is maestro's configuration layer.
//
// Configuration is read once at process start into an explicit *Config and
// passed to each component. Files are TOML (am.toml), merged in precedence
// order system < user < project < MAESTRO_* environment variables.
package am

import "time"

// Config is the root configuration.
type Config struct {
	Database    DatabaseConfig        `mapstructure:"database" toml:"database"`
	Observatory ObservatoryConfig     `mapstructure:"observatory" toml:"observatory"`
	DbOps       DbOpsConfig           `mapstructure:"dbops" toml:"dbops"`
	Scheduler   SchedulerConfig       `mapstructure:"scheduler" toml:"scheduler"`
	Types       map[string]TypeConfig `mapstructure:"types" toml:"types"`
}

// DatabaseConfig locates the candidate store.
type DatabaseConfig struct {
	Path string `mapstructure:"path" toml:"path"`
}

// ObservatoryConfig describes the site used for every astronomical calculation.
type ObservatoryConfig struct {
	Name      string  `mapstructure:"name" toml:"name"`
	Latitude  float64 `mapstructure:"latitude" toml:"latitude"`   // degrees, north positive
	Longitude float64 `mapstructure:"longitude" toml:"longitude"` // degrees, east positive
	Elevation float64 `mapstructure:"elevation" toml:"elevation"` // meters

	// SunsetAltitude is the sun altitude (degrees) that opens the night.
	SunsetAltitude float64 `mapstructure:"sunset_altitude" toml:"sunset_altitude"`

	// HorizonBox is a JSON file of declination bands and hour-angle limits.
	// Empty uses the built-in box.
	HorizonBox string `mapstructure:"horizon_box" toml:"horizon_box"`
}

// DbOpsConfig tunes the job queue processor.
type DbOpsConfig struct {
	PollIntervalMS int     `mapstructure:"poll_interval_ms" toml:"poll_interval_ms"`
	DefaultRetries int     `mapstructure:"default_retries" toml:"default_retries"`
	CommandBuffer  int     `mapstructure:"command_buffer" toml:"command_buffer"`
	Author         string  `mapstructure:"author" toml:"author"`
	WebSocketAddr  string  `mapstructure:"websocket_addr" toml:"websocket_addr"` // empty disables
	MetricsAddr    string  `mapstructure:"metrics_addr" toml:"metrics_addr"`     // empty disables
	RatePerSecond  float64 `mapstructure:"rate_per_second" toml:"rate_per_second"`
	Journal        bool    `mapstructure:"journal" toml:"journal"`
}

// PollInterval returns the dispatch tick as a duration.
func (c DbOpsConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// SchedulerConfig tunes the schedule builder.
type SchedulerConfig struct {
	ResolutionMinutes int    `mapstructure:"resolution_minutes" toml:"resolution_minutes"`
	FocusMinutes      int    `mapstructure:"focus_minutes" toml:"focus_minutes"`
	OutputDir         string `mapstructure:"output_dir" toml:"output_dir"`
	OutputFormat      string `mapstructure:"output_format" toml:"output_format"` // txt, json or yaml
	NightlyCron       string `mapstructure:"nightly_cron" toml:"nightly_cron"`   // empty disables
	ModulesDir        string `mapstructure:"modules_dir" toml:"modules_dir"`
}

// TypeConfig holds the per-candidate-type tunables.
type TypeConfig struct {
	Active                  bool    `mapstructure:"active" toml:"active"`
	NumObs                  int     `mapstructure:"num_obs" toml:"num_obs"`
	MinMinutesBetweenObs    int     `mapstructure:"min_minutes_between_obs" toml:"min_minutes_between_obs"`
	MaxMinutesWithoutFocus  int     `mapstructure:"max_minutes_without_focus" toml:"max_minutes_without_focus"`
	DowntimeMinutesAfterObs int     `mapstructure:"downtime_minutes_after_obs" toml:"downtime_minutes_after_obs"`
	MinHoursVisible         float64 `mapstructure:"min_hours_visible" toml:"min_hours_visible"`
	Bin2Fits                bool    `mapstructure:"bin2fits" toml:"bin2fits"`
	PriorityOffset          int     `mapstructure:"priority_offset" toml:"priority_offset"`
}

// TypeTunables returns the tunables for a type, falling back to defaults
// when the type has no section.
func (c *Config) TypeTunables(name string) TypeConfig {
	if tc, ok := c.Types[name]; ok {
		return tc
	}
	for key, tc := range c.Types {
		if typeKey(key) == typeKey(name) {
			return tc
		}
	}
	return DefaultTypeConfig()
}

// DefaultTypeConfig is used for types without a [types.<Name>] section.
func DefaultTypeConfig() TypeConfig {
	return TypeConfig{
		Active:                  true,
		NumObs:                  1,
		MinMinutesBetweenObs:    0,
		MaxMinutesWithoutFocus:  60,
		DowntimeMinutesAfterObs: 0,
		MinHoursVisible:         0.1,
	}
}
