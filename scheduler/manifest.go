package scheduler

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"

	"github.com/BurntSushi/toml"
	"github.com/tidwall/jsonc"

	"github.com/teranos/maestro/errors"
)

// Manifest file names looked up in each module directory, in order.
const (
	ManifestTOML = "module.toml"
	ManifestJSON = "module.json"
)

// Manifest describes a type module found under modules_dir/<Type>/.
type Manifest struct {
	// Name is the module identifier; defaults to the directory name.
	Name string `toml:"name" json:"name"`

	// Type is the candidate type tag the module configures; defaults to Name.
	Type string `toml:"type" json:"type"`

	Description string `toml:"description" json:"description"`
	Author      string `toml:"author" json:"author"`
	Version     string `toml:"version" json:"version"`

	// MaestroVersion is a semver constraint on the running binary.
	MaestroVersion string `toml:"maestro_version" json:"maestro_version"`

	// Settings are type-specific constants handed to Configurable types.
	Settings map[string]interface{} `toml:"settings" json:"settings"`

	Dir string `toml:"-" json:"-"`
}

// Metadata converts the manifest for registry use.
func (m Manifest) Metadata() Metadata {
	return Metadata{
		Name:           m.Name,
		Description:    m.Description,
		Author:         m.Author,
		Version:        m.Version,
		MaestroVersion: m.MaestroVersion,
		Dir:            m.Dir,
	}
}

// LoadManifest reads the manifest in dir. module.toml wins over module.json;
// the JSON form may carry comments.
func LoadManifest(dir string) (Manifest, error) {
	var m Manifest
	tomlPath := filepath.Join(dir, ManifestTOML)
	jsonPath := filepath.Join(dir, ManifestJSON)

	switch {
	case fileExists(tomlPath):
		if _, err := toml.DecodeFile(tomlPath, &m); err != nil {
			return Manifest{}, errors.Wrapf(err, "parse %s", tomlPath)
		}
	case fileExists(jsonPath):
		data, err := os.ReadFile(jsonPath)
		if err != nil {
			return Manifest{}, errors.Wrapf(err, "read %s", jsonPath)
		}
		if err := json.Unmarshal(jsonc.ToJSON(data), &m); err != nil {
			return Manifest{}, errors.Wrapf(err, "parse %s", jsonPath)
		}
	default:
		return Manifest{}, errors.NewNotFoundError("no module manifest in %s", dir)
	}

	if m.Name == "" {
		m.Name = filepath.Base(dir)
	}
	if m.Type == "" {
		m.Type = m.Name
	}
	m.Dir = dir
	return m, nil
}

// DiscoverManifests loads every module directory under root, sorted by
// name. A missing root yields no manifests; directories without a manifest
// are skipped.
func DiscoverManifests(root string) ([]Manifest, error) {
	if root == "" {
		return nil, nil
	}
	entries, err := os.ReadDir(root)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "read modules dir %s", root)
	}

	var out []Manifest
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		m, err := LoadManifest(filepath.Join(root, entry.Name()))
		if errors.Is(err, errors.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
