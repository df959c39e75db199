package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Load reads a YAML config file and merges it over Default().
func Load(path string) (RunConfig, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadPages reads a standalone pages file. The file may hold either a bare
// list of page specs or a document with a top-level "pages" key.
func LoadPages(path string) ([]PageSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pages: %w", err)
	}

	var pages []PageSpec
	if err := yaml.Unmarshal(data, &pages); err == nil && len(pages) > 0 {
		return pages, nil
	}

	var doc struct {
		Pages []PageSpec `yaml:"pages"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse pages %s: %w", path, err)
	}
	return doc.Pages, nil
}

// Validate reports the first fatal-to-suite configuration problem.
func Validate(cfg RunConfig) error {
	if cfg.AppPath == "" {
		return fmt.Errorf("app_path is required")
	}
	if len(cfg.Pages) == 0 {
		return fmt.Errorf("page list is empty")
	}
	seen := make(map[string]bool, len(cfg.Pages))
	for i, p := range cfg.Pages {
		if p.Name == "" {
			return fmt.Errorf("page %d: name is required", i)
		}
		if p.Selector == "" {
			return fmt.Errorf("page %q: selector is required", p.Name)
		}
		if seen[p.Name] {
			return fmt.Errorf("page %q: duplicate name", p.Name)
		}
		seen[p.Name] = true
	}
	if cfg.MaxConcurrency < 1 {
		return fmt.Errorf("max_concurrency must be at least 1, got %d", cfg.MaxConcurrency)
	}
	if cfg.RetryAttempts < 1 {
		return fmt.Errorf("retry_attempts must be at least 1, got %d", cfg.RetryAttempts)
	}
	for _, z := range cfg.ZoomLevels {
		if z <= 0 {
			return fmt.Errorf("zoom level %v is not positive", z)
		}
	}
	return nil
}
