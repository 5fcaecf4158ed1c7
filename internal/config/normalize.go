package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	c.applyEnv()
	if err := c.normalizePaths(); err != nil {
		return err
	}
	if err := c.normalizeWhisper(); err != nil {
		return err
	}
	c.normalizeFFmpeg()
	c.normalizeCleaner()
	c.normalizeSynthesis()
	c.normalizeLogging()
	return nil
}

// applyEnv lets secrets and endpoints come from the environment. Variables
// that are set win over the file.
func (c *Config) applyEnv() {
	if v, ok := lookupEnv("REDUB_DATA_DIR"); ok {
		c.Paths.DataDir = v
	}
	if v, ok := lookupEnv("OPENROUTER_API_KEY"); ok && c.Cleaner.Provider != ProviderOpenAI {
		c.Cleaner.APIKey = v
	}
	if v, ok := lookupEnv("OPENROUTER_BASE_URL"); ok && c.Cleaner.Provider != ProviderOpenAI {
		c.Cleaner.BaseURL = v
	}
	if v, ok := lookupEnv("OPENROUTER_MODEL"); ok && c.Cleaner.Provider != ProviderOpenAI {
		c.Cleaner.Model = v
	}
	if v, ok := lookupEnv("OPENROUTER_ALLOWED_HOSTS"); ok {
		c.Cleaner.AllowedHosts = splitList(v)
	}
	if v, ok := lookupEnv("OPENAI_API_KEY"); ok {
		c.Synthesis.APIKey = v
		if c.Cleaner.Provider == ProviderOpenAI && c.Cleaner.APIKey == "" {
			c.Cleaner.APIKey = v
		}
	}
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = defaultDataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}
	fill := func(field *string, name, fallback string) error {
		if strings.TrimSpace(*field) == "" {
			*field = filepath.Join(c.Paths.DataDir, fallback)
		}
		v, err := expandPath(*field)
		if err != nil {
			return fmt.Errorf("paths.%s: %w", name, err)
		}
		*field = v
		return nil
	}
	if err := fill(&c.Paths.Database, "database", "redub.db"); err != nil {
		return err
	}
	if err := fill(&c.Paths.BlobDir, "blob_dir", "blobs"); err != nil {
		return err
	}
	if err := fill(&c.Paths.WorkDir, "work_dir", "work"); err != nil {
		return err
	}
	return fill(&c.Paths.LockDir, "lock_dir", "locks")
}

func (c *Config) normalizeWhisper() error {
	c.Whisper.Binary = strings.TrimSpace(c.Whisper.Binary)
	if c.Whisper.Binary == "" {
		c.Whisper.Binary = defaultWhisperBin
	}
	if strings.TrimSpace(c.Whisper.Language) == "" {
		c.Whisper.Language = "auto"
	}
	if strings.TrimSpace(c.Whisper.Model) == "" {
		c.Whisper.Model = defaultWhisperModel
	}
	model, err := expandPath(c.Whisper.Model)
	if err != nil {
		return fmt.Errorf("whisper.model: %w", err)
	}
	c.Whisper.Model = model
	return nil
}

func (c *Config) normalizeFFmpeg() {
	if strings.TrimSpace(c.FFmpeg.Binary) == "" {
		c.FFmpeg.Binary = defaultFFmpeg
	}
	if strings.TrimSpace(c.FFmpeg.ProbeBinary) == "" {
		c.FFmpeg.ProbeBinary = defaultFFprobe
	}
	positive(&c.FFmpeg.AudioTimeout, defaultAudioTimeout)
	positive(&c.FFmpeg.ComposeTimeout, defaultComposeTimeout)
	positive(&c.FFmpeg.ProbeTimeout, defaultProbeTimeout)
	positive(&c.FFmpeg.DecodeTimeout, defaultDecodeTimeout)
}

func (c *Config) normalizeCleaner() {
	c.Cleaner.Provider = strings.ToLower(strings.TrimSpace(c.Cleaner.Provider))
	if c.Cleaner.Provider == "" {
		c.Cleaner.Provider = ProviderOpenRouter
	}
	c.Cleaner.APIKey = strings.TrimSpace(c.Cleaner.APIKey)
	c.Cleaner.BaseURL = strings.TrimSpace(c.Cleaner.BaseURL)
	c.Cleaner.Model = strings.TrimSpace(c.Cleaner.Model)
	if c.Cleaner.Provider == ProviderOpenRouter {
		if c.Cleaner.BaseURL == "" {
			c.Cleaner.BaseURL = defaultOpenRouterURL
		}
		if c.Cleaner.Model == "" {
			c.Cleaner.Model = defaultCleanerModel
		}
	}
}

func (c *Config) normalizeSynthesis() {
	c.Synthesis.APIKey = strings.TrimSpace(c.Synthesis.APIKey)
	c.Synthesis.BaseURL = strings.TrimSpace(c.Synthesis.BaseURL)
	if strings.TrimSpace(c.Synthesis.Model) == "" {
		c.Synthesis.Model = defaultSpeechModel
	}
	c.Synthesis.Voice = strings.ToLower(strings.TrimSpace(c.Synthesis.Voice))
	if c.Synthesis.Voice == "" {
		c.Synthesis.Voice = defaultVoice
	}
	positive(&c.Synthesis.Concurrency, defaultConcurrency)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = "auto"
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.File != "" {
		if v, err := expandPath(c.Logging.File); err == nil {
			c.Logging.File = v
		}
	}
}

func positive(v *int, fallback int) {
	if *v <= 0 {
		*v = fallback
	}
}

func lookupEnv(key string) (string, bool) {
	v, ok := os.LookupEnv(key)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
