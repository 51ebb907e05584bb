package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Init creates a new configuration file with example content
func Init(configPath string, force bool) error {
	if _, err := os.Stat(configPath); err == nil && !force {
		return fmt.Errorf("configuration file already exists: %s (use --force to overwrite)", configPath)
	}

	exampleConfig := Config{
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
			Concurrency:  2,
			ExcludeFiles: []string{"scratch.tex", "notes/ideas.tex"},
		},
		Wordcount: WordcountConfig{
			Files: []string{"thesis.tex"},
			Macro: "wordcount",
		},
		Commit: CommitConfig{
			Enabled: true,
			Message: "Draft build",
			Author:  "texbuilder",
			Email:   "texbuilder@localhost",
		},
		History: HistoryConfig{
			Path: ".texbuilder/history.db",
		},
		Watch: WatchConfig{
			Debounce:    "400ms",
			Schedule:    "0 6 * * *",
			MetricsAddr: ":9090",
			NATSURL:     "${TEXBUILDER_NATS_URL}",
			NATSSubject: "texbuilder.runs",
		},
	}

	data, err := yaml.Marshal(&exampleConfig)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
