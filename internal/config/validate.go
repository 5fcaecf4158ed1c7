package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/forPelevin/redub/internal/domain/composition"
	"github.com/forPelevin/redub/internal/ports/adapters/openrouter"
)

const maxConcurrency = 16

// Validate ensures the configuration is usable. Missing API keys are not
// errors here; commands that need a key report it when they run.
func (c *Config) Validate() error {
	if err := c.validateCleaner(); err != nil {
		return err
	}
	if err := c.validateSynthesis(); err != nil {
		return err
	}
	if err := c.validateOverlay(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCleaner() error {
	switch c.Cleaner.Provider {
	case ProviderOpenRouter:
		if err := openrouter.ValidateBaseURL(c.Cleaner.BaseURL, c.Cleaner.AllowedHosts); err != nil {
			return fmt.Errorf("cleaner.base_url: %w", err)
		}
	case ProviderOpenAI, ProviderNone:
	default:
		return fmt.Errorf("cleaner.provider: unsupported value %q (want openrouter, openai or none)", c.Cleaner.Provider)
	}
	return nil
}

func (c *Config) validateSynthesis() error {
	if c.Synthesis.Concurrency > maxConcurrency {
		return fmt.Errorf("synthesis.concurrency must be between 1 and %d", maxConcurrency)
	}
	return nil
}

func (c *Config) validateOverlay() error {
	positions := []string{composition.PositionBottomRight, composition.PositionBottomLeft, composition.PositionTopRight, composition.PositionTopLeft}
	if !slices.Contains(positions, c.Overlay.Position) {
		return fmt.Errorf("overlay.position: unsupported value %q", c.Overlay.Position)
	}
	sizes := []string{composition.SizeSmall, composition.SizeMedium, composition.SizeLarge}
	if !slices.Contains(sizes, c.Overlay.Size) {
		return fmt.Errorf("overlay.size: unsupported value %q", c.Overlay.Size)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Format {
	case "auto", "console", "json":
	default:
		return fmt.Errorf("logging.format: unsupported value %q", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
	return nil
}

// RequireSynthesisKey reports a missing speech synthesis key.
func (c *Config) RequireSynthesisKey() error {
	if c.Synthesis.APIKey == "" {
		path, err := DefaultConfigPath()
		if err != nil {
			path = "~/.config/redub/config.toml"
		}
		return errors.New("synthesis.api_key is required. Set OPENAI_API_KEY or edit " + path + " (create with 'redub config init')")
	}
	return nil
}
