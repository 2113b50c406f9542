package am

import (
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/viper"
	"github.com/teranos/maestro/errors"
)

var (
	globalConfig  *Config
	viperInstance *viper.Viper
	loadedFrom    string
	loadMu        sync.Mutex
)

// Load reads the configuration from the standard locations. The result is
// cached until Reset.
func Load() (*Config, error) {
	loadMu.Lock()
	defer loadMu.Unlock()
	if globalConfig != nil {
		return globalConfig, nil
	}

	cfg, err := LoadWithViper(initViper())
	if err != nil {
		return nil, err
	}
	globalConfig = cfg
	return globalConfig, nil
}

// LoadWithViper unmarshals and validates configuration from a provided Viper instance
func LoadWithViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal config")
	}
	applyTypeDefaults(v, &config)
	if err := config.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid config")
	}
	return &config, nil
}

// LoadFromFile loads configuration from a specific file path, ignoring the
// environment and the standard search locations.
func LoadFromFile(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("toml")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.Wrapf(err, "failed to read config file %s", configPath)
	}
	cfg, err := LoadWithViper(v)
	if err != nil {
		return nil, errors.WithDetailf(err, "config file: %s", configPath)
	}
	return cfg, nil
}

// Reset clears the cached configuration
func Reset() {
	loadMu.Lock()
	defer loadMu.Unlock()
	globalConfig = nil
	viperInstance = nil
	loadedFrom = ""
}

// ConfigPath returns the highest-precedence file the last Load merged, or "".
func ConfigPath() string {
	loadMu.Lock()
	defer loadMu.Unlock()
	return loadedFrom
}

func initViper() *viper.Viper {
	if viperInstance != nil {
		return viperInstance
	}

	v := viper.New()
	v.SetEnvPrefix("MAESTRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)
	loadedFrom = mergeConfigFiles(v)

	viperInstance = v
	return v
}

// findProjectConfig walks up from the working directory looking for am.toml.
func findProjectConfig() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, "am.toml")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// mergeConfigFiles merges system, user and project files in that order and
// returns the last one merged.
func mergeConfigFiles(v *viper.Viper) string {
	configPaths := []string{"/etc/maestro/am.toml"}
	if userDir := userConfigDir(); userDir != "" {
		configPaths = append(configPaths, filepath.Join(userDir, "am.toml"))
	}
	if project := findProjectConfig(); project != "" {
		configPaths = append(configPaths, project)
	}

	var last string
	for _, configPath := range configPaths {
		if _, err := os.Stat(configPath); err != nil {
			continue
		}
		tempViper := viper.New()
		tempViper.SetConfigFile(configPath)
		tempViper.SetConfigType("toml")
		if err := tempViper.ReadInConfig(); err != nil {
			continue
		}
		if err := v.MergeConfigMap(tempViper.AllSettings()); err != nil {
			continue
		}
		last = configPath
	}
	return last
}

// GetViper returns the Viper instance for ad-hoc key access (am show).
func GetViper() *viper.Viper {
	loadMu.Lock()
	defer loadMu.Unlock()
	return initViper()
}

// Default returns the built-in configuration with no files or environment applied.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	cfg, err := LoadWithViper(v)
	if err != nil {
		panic(errors.Wrap(err, "built-in defaults are invalid"))
	}
	return cfg
}

// applyTypeDefaults fills keys a [types.<Name>] section leaves out, since a
// partial section would otherwise zero them.
func applyTypeDefaults(v *viper.Viper, config *Config) {
	d := DefaultTypeConfig()
	for name, tc := range config.Types {
		prefix := "types." + name + "."
		unset := func(key string) bool { return !v.IsSet(prefix + key) }
		if unset("active") {
			tc.Active = d.Active
		}
		if unset("num_obs") {
			tc.NumObs = d.NumObs
		}
		if unset("max_minutes_without_focus") {
			tc.MaxMinutesWithoutFocus = d.MaxMinutesWithoutFocus
		}
		if unset("min_hours_visible") {
			tc.MinHoursVisible = d.MinHoursVisible
		}
		config.Types[name] = tc
	}
}
