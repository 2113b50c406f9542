package am

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/viper"
)

func TestLoad_Defaults(t *testing.T) {
	v := viper.New()
	SetDefaults(v)

	cfg, err := LoadWithViper(v)
	if err != nil {
		t.Fatalf("LoadWithViper() failed: %v", err)
	}

	if cfg.Database.Path != "candidates.db" {
		t.Errorf("expected default database path 'candidates.db', got %q", cfg.Database.Path)
	}
	if cfg.Observatory.Name != "TMO" || cfg.Observatory.Latitude != 34.36 || cfg.Observatory.Longitude != -117.63 {
		t.Errorf("expected TMO site defaults, got %+v", cfg.Observatory)
	}
	if cfg.DbOps.PollInterval() != 100*time.Millisecond {
		t.Errorf("expected 100ms poll interval, got %v", cfg.DbOps.PollInterval())
	}
	if cfg.DbOps.DefaultRetries != 3 {
		t.Errorf("expected 3 default retries, got %d", cfg.DbOps.DefaultRetries)
	}
	if cfg.Scheduler.OutputFormat != "txt" {
		t.Errorf("expected txt output, got %q", cfg.Scheduler.OutputFormat)
	}
}

func TestLoadFromFile_TypeSections(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "am.toml")
	content := `
[observatory]
latitude = 19.82
longitude = -155.47

[types.UserFixed]
active = true
num_obs = 2
min_minutes_between_obs = 30
downtime_minutes_after_obs = 2
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if cfg.Observatory.Latitude != 19.82 {
		t.Errorf("expected latitude override, got %f", cfg.Observatory.Latitude)
	}

	uf := cfg.TypeTunables("UserFixed")
	if uf.NumObs != 2 || uf.MinMinutesBetweenObs != 30 || uf.DowntimeMinutesAfterObs != 2 {
		t.Errorf("unexpected UserFixed tunables: %+v", uf)
	}
	if !uf.Active || uf.MaxMinutesWithoutFocus != 60 || uf.MinHoursVisible != 0.1 {
		t.Errorf("keys missing from the section should keep defaults: %+v", uf)
	}

	other := cfg.TypeTunables("Astrophotography")
	if other != DefaultTypeConfig() {
		t.Errorf("expected defaults for unknown type, got %+v", other)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults are valid", func(*Config) {}, ""},
		{"latitude out of range", func(c *Config) { c.Observatory.Latitude = 91 }, "observatory.latitude"},
		{"zero poll interval", func(c *Config) { c.DbOps.PollIntervalMS = 0 }, "dbops.poll_interval_ms"},
		{"negative retries", func(c *Config) { c.DbOps.DefaultRetries = -1 }, "dbops.default_retries"},
		{"zero retries is valid", func(c *Config) { c.DbOps.DefaultRetries = 0 }, ""},
		{"unknown output format", func(c *Config) { c.Scheduler.OutputFormat = "xml" }, "output_format"},
		{"bad cron", func(c *Config) { c.Scheduler.NightlyCron = "every night" }, "nightly_cron"},
		{"good cron", func(c *Config) { c.Scheduler.NightlyCron = "0 1 * * *" }, ""},
		{"negative num_obs", func(c *Config) {
			c.Types = map[string]TypeConfig{"UserFixed": {NumObs: -1}}
		}, "num_obs"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestUpdateTypeActive(t *testing.T) {
	path := filepath.Join(t.TempDir(), "am.toml")
	if err := os.WriteFile(path, []byte("[database]\npath = \"x.db\"\n"), 0644); err != nil {
		t.Fatal(err)
	}

	if err := UpdateTypeActive(path, "UserFixed", false); err != nil {
		t.Fatalf("UpdateTypeActive() failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]interface{}
	if err := toml.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	types := raw["types"].(map[string]interface{})
	if types["UserFixed"].(map[string]interface{})["active"] != false {
		t.Errorf("expected UserFixed.active = false, got %v", types["UserFixed"])
	}
	if raw["database"].(map[string]interface{})["path"] != "x.db" {
		t.Error("existing keys must survive a rewrite")
	}
	if _, err := os.Stat(path + ".back1"); err != nil {
		t.Errorf("expected backup file: %v", err)
	}
}

func TestSetValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "am.toml")
	if err := SetValue(path, "dbops.default_retries", 5); err != nil {
		t.Fatalf("SetValue() failed: %v", err)
	}
	cfg, err := LoadFromFile(path)
	if err != nil {
		t.Fatalf("LoadFromFile() failed: %v", err)
	}
	if cfg.DbOps.DefaultRetries != 5 {
		t.Errorf("expected default_retries 5, got %d", cfg.DbOps.DefaultRetries)
	}

	if err := SetValue(path, "", 1); err == nil {
		t.Error("expected error for empty key")
	}
}

func TestIsBackupFile(t *testing.T) {
	if !isBackupFile("/etc/maestro/am.toml.back2") {
		t.Error("am.toml.back2 should be a backup")
	}
	if isBackupFile("/etc/maestro/am.toml") {
		t.Error("am.toml is not a backup")
	}
}
