package config

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/rawbytes"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "MESHFLOW_"

const maxConfigFileSize = 1024 * 1024

const defaultYAML = `
executor:
  max_steps: 10
  timeout: 2m
engine:
  max_steps: 20
  timeout: 10m
loop:
  max_iterations: 10
  total_timeout: 30m
gateway:
  provider: openai
  rate_limit: 0
  burst: 1
log:
  level: info
  format: text
  backend: slog
`

// Default returns the built-in configuration.
func Default() *Config {
	cfg, err := load(nil)
	if err != nil {
		panic(fmt.Sprintf("config: invalid defaults: %v", err))
	}
	return cfg
}

// Load reads configuration with the following precedence (highest first):
//  1. MESHFLOW_ environment variables
//  2. the YAML file at path (skipped when path is empty)
//  3. built-in defaults
//
// Environment keys map to dotted paths by splitting on the first underscore
// after the prefix:
//
//	MESHFLOW_EXECUTOR_MAX_STEPS -> executor.max_steps
//	MESHFLOW_GATEWAY_RATE_LIMIT -> gateway.rate_limit
func Load(path string) (*Config, error) {
	if path == "" {
		return load(nil)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	return Read(f)
}

// Read is Load over an already opened YAML document.
func Read(r io.Reader) (*Config, error) {
	content, err := io.ReadAll(io.LimitReader(r, maxConfigFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if len(content) > maxConfigFileSize {
		return nil, fmt.Errorf("config exceeds %d bytes", maxConfigFileSize)
	}
	return load(content)
}

func load(content []byte) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(rawbytes.Provider([]byte(defaultYAML)), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if len(content) > 0 {
		if err := k.Load(rawbytes.Provider(content), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// envKey maps MESHFLOW_SECTION_FIELD_NAME to section.field_name.
func envKey(s string) string {
	lower := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	section, field, ok := strings.Cut(lower, "_")
	if !ok {
		return lower
	}
	return section + "." + field
}
