// Package host assembles a complete embeddable Gatekeep instance:
// configuration, persistence, the model pipeline, and the filter
// surface the embedding application calls.
package host

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/gatekeep-net/gatekeep/internal/domain"
)

// Config holds all host configuration.
type Config struct {
	Sources SourcesConfig `toml:"sources"`
	Filter  FilterConfig  `toml:"filter"`
	Cache   CacheConfig   `toml:"cache"`
	Logging LoggingConfig `toml:"logging"`
}

// SourcesConfig selects where manifests and models come from.
type SourcesConfig struct {
	LocalOverride string `toml:"local_override"`
	Repo          string `toml:"repo"`
	ReleaseTag    string `toml:"release_tag"`
	AssetName     string `toml:"asset_name"`
	ManifestURL   string `toml:"manifest_url"`
	UseReleases   bool   `toml:"use_releases"`
}

// FilterConfig tunes the moderation surface.
type FilterConfig struct {
	ReportFlagged   bool    `toml:"report_flagged"`
	ReportThreshold float64 `toml:"report_threshold"`
}

// CacheConfig controls artifact storage.
type CacheConfig struct {
	Dir string `toml:"dir"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level     string `toml:"level"`
	File      string `toml:"file"`
	MaxSizeMB int    `toml:"max_size_mb"`
	MaxFiles  int    `toml:"max_files"`
}

// DefaultConfig returns a sensible default configuration.
func DefaultConfig() Config {
	homeDir := gatekeepHome()
	return Config{
		Sources: SourcesConfig{
			AssetName:   "manifest.json",
			UseReleases: true,
		},
		Filter: FilterConfig{
			ReportFlagged:   true,
			ReportThreshold: 0.75,
		},
		Cache: CacheConfig{
			Dir: filepath.Join(homeDir, "cache"),
		},
		Logging: LoggingConfig{
			Level:     "info",
			File:      filepath.Join(homeDir, "gatekeep.log"),
			MaxSizeMB: 50,
			MaxFiles:  5,
		},
	}
}

// SourceConfig maps the TOML sources section onto the pipeline's view.
func (c Config) SourceConfig() domain.SourceConfig {
	return domain.SourceConfig{
		LocalOverride: c.Sources.LocalOverride,
		Repo:          c.Sources.Repo,
		ReleaseTag:    c.Sources.ReleaseTag,
		AssetName:     c.Sources.AssetName,
		ManifestURL:   c.Sources.ManifestURL,
		UseReleases:   c.Sources.UseReleases,
	}
}

// LoadConfig reads config from ~/.gatekeep/config.toml, falling back to
// defaults.
func LoadConfig() (Config, error) {
	cfg := DefaultConfig()
	path := filepath.Join(gatekeepHome(), "config.toml")

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil // No config file yet — use defaults
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

// SaveConfig writes the config to ~/.gatekeep/config.toml.
func SaveConfig(cfg Config) error {
	path := filepath.Join(gatekeepHome(), "config.toml")
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// gatekeepHome returns the Gatekeep data directory.
func gatekeepHome() string {
	if env := os.Getenv("GATEKEEP_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".gatekeep")
}

// Home is exported for use by other packages.
func Home() string {
	return gatekeepHome()
}
