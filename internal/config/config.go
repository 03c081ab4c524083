package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
)

// Config holds all session-intel configuration.
type Config struct {
	StateDir       string `toml:"state_dir"`       // database, reviews, archives
	TranscriptsDir string `toml:"transcripts_dir"` // root of per-project transcript dirs

	LLM     LLMConfig     `toml:"llm"`
	Archive ArchiveConfig `toml:"archive"`
}

// LLMConfig controls the optional LLM refinement of extracted signals.
type LLMConfig struct {
	Enabled        bool   `toml:"enabled"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
	Model          string `toml:"model"`
	APIKeyEnv      string `toml:"api_key_env"`
	BaseURL        string `toml:"base_url"`
}

// ArchiveConfig controls raw transcript archiving after ingest.
type ArchiveConfig struct {
	Enabled bool `toml:"enabled"`
}

// DefaultConfig returns config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		StateDir:       "~/.session-intel",
		TranscriptsDir: "~/.claude/projects",
		LLM: LLMConfig{
			Enabled:        false,
			TimeoutSeconds: 120,
			Model:          "claude-haiku-4-5",
			APIKeyEnv:      "ANTHROPIC_API_KEY",
			BaseURL:        "https://api.anthropic.com/v1",
		},
		Archive: ArchiveConfig{
			Enabled: false,
		},
	}
}

// Load reads config from the standard path, falling back to defaults.
func Load() (Config, error) {
	cfg := DefaultConfig()

	for _, p := range configPaths() {
		if _, err := os.Stat(p); err == nil {
			if _, err := toml.DecodeFile(p, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", p, err)
			}
			break
		}
	}

	cfg.StateDir = expandHome(cfg.StateDir)
	cfg.TranscriptsDir = expandHome(cfg.TranscriptsDir)

	return cfg, nil
}

func configPaths() []string {
	var paths []string

	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		paths = append(paths, filepath.Join(xdg, "session-intel", "config.toml"))
	}

	home, _ := os.UserHomeDir()
	if home != "" {
		paths = append(paths, filepath.Join(home, ".config", "session-intel", "config.toml"))
	}

	return paths
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[2:])
}

// DBPath returns the session database path inside the state dir.
func (c Config) DBPath() string {
	return filepath.Join(c.StateDir, "sessions.db")
}

// ReviewsDir returns the directory for generated analysis reports.
func (c Config) ReviewsDir() string {
	return filepath.Join(c.StateDir, "reviews")
}

// ArchiveDir returns the directory for compressed raw transcripts.
func (c Config) ArchiveDir() string {
	return filepath.Join(c.StateDir, "archive")
}
