package am

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/teranos/maestro/errors"
)

const backupCount = 3

// createBackup rotates .back1 through .back3 before a config file is rewritten.
func createBackup(configPath string) error {
	content, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return errors.Wrap(err, "failed to read config for backup")
	}

	for i := backupCount; i > 1; i-- {
		older := backupName(configPath, i)
		newer := backupName(configPath, i-1)
		if _, err := os.Stat(newer); err == nil {
			if err := os.Rename(newer, older); err != nil {
				return errors.Wrapf(err, "failed to rotate %s", newer)
			}
		}
	}

	if err := os.WriteFile(backupName(configPath, 1), content, 0644); err != nil {
		return errors.Wrap(err, "failed to create .back1")
	}
	return nil
}

func backupName(configPath string, n int) string {
	return fmt.Sprintf("%s.back%d", configPath, n)
}

// loadRaw reads a TOML file into a generic map, or returns an empty map when
// the file does not exist yet.
func loadRaw(configPath string) (map[string]interface{}, error) {
	config := make(map[string]interface{})
	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		return config, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to read %s", configPath)
	}
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", configPath)
	}
	return config, nil
}

func saveRaw(config map[string]interface{}, configPath string) error {
	if err := os.MkdirAll(filepath.Dir(configPath), DefaultDirPermissions); err != nil {
		return errors.Wrap(err, "failed to create config directory")
	}
	if err := createBackup(configPath); err != nil {
		return errors.Wrap(err, "failed to create backup")
	}

	data, err := toml.Marshal(config)
	if err != nil {
		return errors.Wrap(err, "failed to marshal config")
	}

	globalWatcherMu.Lock()
	if globalWatcher != nil {
		globalWatcher.MarkOwnWrite()
	}
	globalWatcherMu.Unlock()

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return errors.Wrapf(err, "failed to write %s", configPath)
	}
	return nil
}

func section(config map[string]interface{}, key string) map[string]interface{} {
	if existing, ok := config[key].(map[string]interface{}); ok {
		return existing
	}
	created := make(map[string]interface{})
	config[key] = created
	return created
}

// SetValue writes one dotted key ("dbops.default_retries") into configPath.
func SetValue(configPath, key string, value interface{}) error {
	config, err := loadRaw(configPath)
	if err != nil {
		return err
	}
	parts := splitKey(key)
	if len(parts) == 0 {
		return errors.Newf("empty config key")
	}
	current := config
	for _, part := range parts[:len(parts)-1] {
		current = section(current, part)
	}
	current[parts[len(parts)-1]] = value
	return saveRaw(config, configPath)
}

// UpdateTypeActive persists types.<name>.active into configPath.
func UpdateTypeActive(configPath, typeName string, active bool) error {
	config, err := loadRaw(configPath)
	if err != nil {
		return err
	}
	section(section(config, "types"), typeName)["active"] = active
	return saveRaw(config, configPath)
}

func splitKey(key string) []string {
	return strings.FieldsFunc(key, func(r rune) bool { return r == '.' })
}
