package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/janekbaraniewski/aggscope/internal/core"
	"github.com/janekbaraniewski/aggscope/internal/datasource"
)

type InspectorConfig struct {
	PinFilters bool `json:"pin_filters"`
	ShowRaw    bool `json:"show_raw"`
	LiveReload bool `json:"live_reload"`
}

// FieldConfig adjusts how one table's columns are exposed.
type FieldConfig struct {
	NonFilterable []string                              `json:"non_filterable,omitempty"`
	Formats       map[string]core.SerializedFieldFormat `json:"formats,omitempty"`
}

type Config struct {
	Theme     string                 `json:"theme"`
	Locale    string                 `json:"locale"`
	Database  string                 `json:"database"`
	Inspector InspectorConfig        `json:"inspector"`
	Fields    map[string]FieldConfig `json:"fields,omitempty"`
}

func DefaultConfig() Config {
	return Config{
		Theme:    "Catppuccin Mocha",
		Locale:   "en",
		Database: filepath.Join(ConfigDir(), "aggscope.db"),
	}
}

func ConfigDir() string {
	if runtime.GOOS == "windows" {
		return filepath.Join(os.Getenv("APPDATA"), "aggscope")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "aggscope")
}

func ConfigPath() string {
	return filepath.Join(ConfigDir(), "settings.json")
}

// PinnedFiltersPath is where pinned filters persist between sessions.
func PinnedFiltersPath() string {
	return filepath.Join(ConfigDir(), "pinned_filters.json")
}

func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

func LoadFrom(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("reading config: %w", err)
	}

	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("parsing config %s: %w", path, err)
	}

	if cfg.Theme == "" {
		cfg.Theme = DefaultConfig().Theme
	}
	if cfg.Locale == "" {
		cfg.Locale = DefaultConfig().Locale
	}
	if cfg.Database == "" {
		cfg.Database = DefaultConfig().Database
	}

	return cfg, nil
}

// Overrides converts the per-table field settings into datasource overrides.
func (c Config) Overrides() map[string]map[string]datasource.FieldOverride {
	out := make(map[string]map[string]datasource.FieldOverride, len(c.Fields))
	for table, fc := range c.Fields {
		fields := make(map[string]datasource.FieldOverride)
		for name, format := range fc.Formats {
			fields[name] = datasource.FieldOverride{Format: format}
		}
		for _, name := range fc.NonFilterable {
			o := fields[name]
			o.NonFilterable = true
			fields[name] = o
		}
		out[table] = fields
	}
	return out
}

// saveMu guards read-modify-write cycles on the config file.
var saveMu sync.Mutex

func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

func SaveTo(path string, cfg Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// SaveTheme persists a theme name into the config file (read-modify-write).
func SaveTheme(theme string) error {
	return SaveThemeTo(ConfigPath(), theme)
}

func SaveThemeTo(path string, theme string) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	cfg, err := LoadFrom(path)
	if err != nil {
		cfg = DefaultConfig()
	}
	cfg.Theme = theme
	return SaveTo(path, cfg)
}

// SaveInspector persists the inspector toggles into the config file (read-modify-write).
func SaveInspector(inspector InspectorConfig) error {
	return SaveInspectorTo(ConfigPath(), inspector)
}

func SaveInspectorTo(path string, inspector InspectorConfig) error {
	saveMu.Lock()
	defer saveMu.Unlock()

	cfg, err := LoadFrom(path)
	if err != nil {
		cfg = DefaultConfig()
	}
	cfg.Inspector = inspector
	return SaveTo(path, cfg)
}
