package llmstream

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ProviderConfig configures one provider entry in a config file. Values run
// through os.ExpandEnv, so API keys are normally written as "${OPENAI_API_KEY}".
type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
}

// Config is the client configuration file shape.
//
//	default_provider: openai
//	providers:
//	  openai:
//	    api_key: ${OPENAI_API_KEY}
//	    model: gpt-4o-mini
//	  ollama:
//	    base_url: http://localhost:11434
//	    model: llama3.2
type Config struct {
	DefaultProvider ProviderID                    `yaml:"default_provider"`
	Providers       map[ProviderID]ProviderConfig `yaml:"providers"`
}

// LoadConfig reads and expands a YAML config file.
func LoadConfig(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("llmstream: read config: %w", err)
	}
	return ParseConfig(raw)
}

// ParseConfig decodes YAML config bytes, expanding ${VAR} references from
// the environment.
func ParseConfig(raw []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("llmstream: parse config: %w", err)
	}
	for id, pc := range cfg.Providers {
		pc.APIKey = os.ExpandEnv(pc.APIKey)
		pc.BaseURL = os.ExpandEnv(pc.BaseURL)
		cfg.Providers[id] = pc
	}
	return &cfg, nil
}

// Provider returns the config entry for id, or a zero entry if absent.
func (c *Config) Provider(id ProviderID) ProviderConfig {
	if c == nil || c.Providers == nil {
		return ProviderConfig{}
	}
	return c.Providers[id]
}
