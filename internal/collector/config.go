package collector

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/jimmyyuzhiqiu/SWIFT-Data-Collection/internal/extractor"
)

// Config controls which files a batch picks up and how they are processed
type Config struct {
	// SkipKeywords excludes files whose name contains any keyword (case-insensitive)
	SkipKeywords []string `json:"skip_keywords" yaml:"skip_keywords" mapstructure:"skip_keywords"`
	// Extensions lists accepted file extensions including the dot
	Extensions []string `json:"extensions" yaml:"extensions" mapstructure:"extensions"`
	// Workers bounds concurrent extraction; 1 processes files sequentially
	Workers int `json:"workers" yaml:"workers" mapstructure:"workers"`

	ProgressInterval time.Duration `json:"progress_interval" yaml:"progress_interval" mapstructure:"progress_interval"`

	Tags extractor.TagConfig `json:"tags" yaml:"tags" mapstructure:"tags"`
}

// DefaultConfig returns the standard batch configuration
func DefaultConfig() *Config {
	return &Config{
		SkipKeywords:     []string{"FFD", "MT199"},
		Extensions:       []string{".msg"},
		Workers:          4,
		ProgressInterval: 2 * time.Second,
		Tags:             extractor.DefaultTagConfig(),
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive, got %d", c.Workers)
	}

	if len(c.Extensions) == 0 {
		return fmt.Errorf("at least one file extension is required")
	}
	for _, ext := range c.Extensions {
		if !strings.HasPrefix(ext, ".") || len(ext) < 2 {
			return fmt.Errorf("extension %q must start with a dot", ext)
		}
	}

	for _, kw := range c.SkipKeywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("skip keywords cannot be blank")
		}
	}

	if c.ProgressInterval < 0 {
		return fmt.Errorf("progress interval cannot be negative, got %s", c.ProgressInterval)
	}

	return c.Tags.Validate()
}

func (c *Config) accepts(name string) bool {
	ext := filepath.Ext(name)
	if ext == "" {
		return false
	}
	for _, allowed := range c.Extensions {
		if strings.EqualFold(allowed, ext) {
			return true
		}
	}
	return false
}

func (c *Config) skipped(name string) (string, bool) {
	upper := strings.ToUpper(name)
	for _, kw := range c.SkipKeywords {
		if strings.Contains(upper, strings.ToUpper(kw)) {
			return kw, true
		}
	}
	return "", false
}
