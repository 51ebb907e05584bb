package config

import (
	"errors"
	"fmt"
	"time"

	"git.home.luguber.info/inful/texbuilder/internal/texpath"
	"git.home.luguber.info/inful/texbuilder/internal/wordcount"
)

// ErrInvalid wraps every configuration failure so callers can map the whole
// class to one exit status.
var ErrInvalid = errors.New("invalid configuration")

// Validate checks the configuration for values the build cannot work with.
func (c *Config) Validate() error {
	if c.Corpus.Root == "" {
		return fmt.Errorf("%w: corpus root must not be empty", ErrInvalid)
	}
	if c.Corpus.Compiler == "" {
		return fmt.Errorf("%w: corpus compiler must not be empty", ErrInvalid)
	}
	if c.Output.Directory == "" {
		return fmt.Errorf("%w: output directory must not be empty", ErrInvalid)
	}
	if c.Output.Extension == "" {
		return fmt.Errorf("%w: output extension must not be empty", ErrInvalid)
	}
	if c.Output.MaxDrafts < 1 {
		return fmt.Errorf("%w: output max_drafts must be at least 1, got %d", ErrInvalid, c.Output.MaxDrafts)
	}
	if c.Build.Concurrency < 1 {
		return fmt.Errorf("%w: build concurrency must be at least 1, got %d", ErrInvalid, c.Build.Concurrency)
	}

	for _, raw := range c.Build.ExcludeFiles {
		if _, err := texpath.NormalizeWithError(raw); err != nil {
			return fmt.Errorf("%w: exclude entry %q: %v", ErrInvalid, raw, err)
		}
	}
	for _, raw := range c.Wordcount.Files {
		if _, err := texpath.NormalizeWithError(raw); err != nil {
			return fmt.Errorf("%w: wordcount entry %q: %v", ErrInvalid, raw, err)
		}
	}
	if len(c.Wordcount.Files) > 0 && !wordcount.ValidMacroName(c.Wordcount.Macro) {
		return fmt.Errorf("%w: wordcount macro %q is not a valid control sequence name", ErrInvalid, c.Wordcount.Macro)
	}

	if c.Commit.Enabled {
		if c.Commit.Message == "" {
			return fmt.Errorf("%w: commit message must not be empty", ErrInvalid)
		}
		if c.Commit.Author == "" || c.Commit.Email == "" {
			return fmt.Errorf("%w: commit author and email must not be empty", ErrInvalid)
		}
	}

	if c.Watch.Debounce != "" {
		if _, err := time.ParseDuration(c.Watch.Debounce); err != nil {
			return fmt.Errorf("%w: watch debounce %q: %v", ErrInvalid, c.Watch.Debounce, err)
		}
	}
	if c.Watch.NATSURL != "" && c.Watch.NATSSubject == "" {
		return fmt.Errorf("%w: watch nats_subject must not be empty when nats_url is set", ErrInvalid)
	}

	return nil
}
