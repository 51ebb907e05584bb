// Package config loads and validates texbuilder configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"git.home.luguber.info/inful/texbuilder/internal/logfields"
)

// Config represents the application configuration
type Config struct {
	Corpus    CorpusConfig    `yaml:"corpus"`
	Output    OutputConfig    `yaml:"output"`
	Build     BuildConfig     `yaml:"build"`
	Wordcount WordcountConfig `yaml:"wordcount"`
	Commit    CommitConfig    `yaml:"commit"`
	History   HistoryConfig   `yaml:"history"`
	Watch     WatchConfig     `yaml:"watch"`
}

// CorpusConfig describes the source tree and how to compile it.
type CorpusConfig struct {
	Root     string `yaml:"root"`
	Compiler string `yaml:"compiler"`
	Biber    bool   `yaml:"biber"`
}

// OutputConfig controls where artifacts land and how many are kept.
type OutputConfig struct {
	Directory string `yaml:"directory"`
	MaxDrafts int    `yaml:"max_drafts"`
	Extension string `yaml:"extension"`
}

// BuildConfig tunes the build pipeline itself.
type BuildConfig struct {
	Concurrency  int      `yaml:"concurrency"`
	ExcludeFiles []string `yaml:"exclude_files,omitempty"`
	WorkDir      string   `yaml:"work_dir,omitempty"`
}

// WordcountConfig lists the documents whose word-count counter macros are
// rewritten after a build.
type WordcountConfig struct {
	Files []string `yaml:"files,omitempty"`
	Macro string   `yaml:"macro"`
}

// CommitConfig controls the post-build git commit.
type CommitConfig struct {
	Enabled bool   `yaml:"enabled"`
	Message string `yaml:"message"`
	Author  string `yaml:"author"`
	Email   string `yaml:"email"`
}

// HistoryConfig locates the run history database. An empty path disables
// history recording.
type HistoryConfig struct {
	Path string `yaml:"path,omitempty"`
}

// WatchConfig configures daemon mode.
type WatchConfig struct {
	Debounce    string `yaml:"debounce"`
	Schedule    string `yaml:"schedule,omitempty"`
	MetricsAddr string `yaml:"metrics_addr,omitempty"`
	NATSURL     string `yaml:"nats_url,omitempty"`
	NATSSubject string `yaml:"nats_subject"`
}

// Default returns the configuration used when no file overrides a value.
func Default() *Config {
	return &Config{
		Corpus: CorpusConfig{
			Root:     ".",
			Compiler: "pdflatex",
			Biber:    true,
		},
		Output: OutputConfig{
			Directory: "drafts",
			MaxDrafts: 3,
			Extension: "pdf",
		},
		Build: BuildConfig{
			Concurrency: 2,
		},
		Wordcount: WordcountConfig{
			Macro: "wordcount",
		},
		Commit: CommitConfig{
			Message: "Draft build",
			Author:  "texbuilder",
			Email:   "texbuilder@localhost",
		},
		Watch: WatchConfig{
			Debounce:    "400ms",
			NATSSubject: "texbuilder.runs",
		},
	}
}

// Load loads configuration from the specified file. Defaults are applied
// first so the file only needs to state what differs, and environment
// variable references in the file content are expanded.
func Load(configPath string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: configuration file not found: %s", ErrInvalid, configPath)
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("%w: read config file: %v", ErrInvalid, err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config: %v", ErrInvalid, err)
	}

	cfg.Output.Extension = strings.TrimPrefix(cfg.Output.Extension, ".")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault behaves like Load but falls back to the defaults when the
// file does not exist, so a fresh corpus builds without any setup.
func LoadOrDefault(configPath string) (*Config, error) {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		slog.Debug("no configuration file found, using defaults", logfields.Path(configPath))
		cfg := Default()
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}
	return Load(configPath)
}

// DebounceDuration returns the parsed watch debounce interval, falling back
// to the default when unset.
func (c *Config) DebounceDuration() time.Duration {
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil || d <= 0 {
		return 400 * time.Millisecond
	}
	return d
}
