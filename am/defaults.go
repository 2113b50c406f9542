package am

import (
	"os"
	"strings"

	"github.com/spf13/viper"
)

// DefaultDirPermissions is used for ~/.maestro and output directories.
const DefaultDirPermissions = 0750

// TMO defaults.
const (
	DefaultObservatoryName = "TMO"
	DefaultLatitude        = 34.36
	DefaultLongitude       = -117.63
	DefaultElevation       = 2286.0
	DefaultSunsetAltitude  = -10.0
)

// SetDefaults configures default values for all configuration options
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "candidates.db")

	v.SetDefault("observatory.name", DefaultObservatoryName)
	v.SetDefault("observatory.latitude", DefaultLatitude)
	v.SetDefault("observatory.longitude", DefaultLongitude)
	v.SetDefault("observatory.elevation", DefaultElevation)
	v.SetDefault("observatory.sunset_altitude", DefaultSunsetAltitude)
	v.SetDefault("observatory.horizon_box", "")

	v.SetDefault("dbops.poll_interval_ms", 100)
	v.SetDefault("dbops.default_retries", 3)
	v.SetDefault("dbops.command_buffer", 16)
	v.SetDefault("dbops.author", "DbOps")
	v.SetDefault("dbops.websocket_addr", "")
	v.SetDefault("dbops.metrics_addr", "")
	v.SetDefault("dbops.rate_per_second", 10.0)
	v.SetDefault("dbops.journal", true)

	v.SetDefault("scheduler.resolution_minutes", 1)
	v.SetDefault("scheduler.focus_minutes", 5)
	v.SetDefault("scheduler.output_dir", ".")
	v.SetDefault("scheduler.output_format", "txt")
	v.SetDefault("scheduler.nightly_cron", "")
	v.SetDefault("scheduler.modules_dir", "")
}

// typeKey normalizes a type name the way viper normalizes map keys.
func typeKey(name string) string {
	return strings.ToLower(name)
}

// userConfigDir returns ~/.maestro, or "" when there is no home directory.
func userConfigDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return home + string(os.PathSeparator) + ".maestro"
}
