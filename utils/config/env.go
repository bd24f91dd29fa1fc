package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultModel is used when neither the request nor the config names a model
	DefaultModel = "gemini-2.0-flash"
	// DefaultMaxRetries is the number of additional attempts after the first
	DefaultMaxRetries = 2
	// DefaultInitialDelay is the first backoff delay between attempts
	DefaultInitialDelay = time.Second
)

// EnvConfig represents the complete application configuration
type EnvConfig struct {
	GeminiAPIKey string        `yaml:"gemini_api_key,omitempty"`
	OpenAIAPIKey string        `yaml:"openai_api_key,omitempty"`
	DefaultModel string        `yaml:"default_model,omitempty"`
	Models       []string      `yaml:"models,omitempty"`
	MaxRetries   *int          `yaml:"max_retries,omitempty"`
	InitialDelay time.Duration `yaml:"initial_delay,omitempty"`
	PreviewRows  int           `yaml:"preview_rows,omitempty"`
	Server       *ServerConfig `yaml:"server,omitempty"`
}

// GetEnvPath returns the configuration file path from NBGEN_CONFIG or the default
func GetEnvPath() string {
	if envPath := os.Getenv("NBGEN_CONFIG"); envPath != "" {
		DebugLog("Using configuration file from NBGEN_CONFIG: %s", envPath)
		return envPath
	}
	DebugLog("Using default configuration file: nbgen.yaml")
	return "nbgen.yaml"
}

// NewEnvConfig returns a configuration populated with defaults
func NewEnvConfig() *EnvConfig {
	retries := DefaultMaxRetries
	return &EnvConfig{
		DefaultModel: DefaultModel,
		Models:       []string{"gemini-2.0-flash", "gemini-2.5-pro-experimental-03-25"},
		MaxRetries:   &retries,
		InitialDelay: DefaultInitialDelay,
	}
}

// LoadEnvConfig loads the configuration file at path. A missing file yields
// the defaults. API keys from GEMINI_API_KEY and OPENAI_API_KEY take
// precedence over the file.
func LoadEnvConfig(path string) (*EnvConfig, error) {
	DebugLog("Attempting to load configuration from: %s", path)

	cfg := NewEnvConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		DebugLog("Configuration file %s not found, using defaults", path)
	case err != nil:
		return nil, fmt.Errorf("error reading config file: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			DebugLog("Error parsing configuration file: %v", err)
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.fillDefaults()

	DebugLog("Successfully loaded configuration")
	return cfg, nil
}

// SaveEnvConfig saves the configuration to path
func SaveEnvConfig(path string, cfg *EnvConfig) error {
	DebugLog("Attempting to save configuration to: %s", path)

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	DebugLog("Successfully saved configuration")
	return nil
}

func (c *EnvConfig) applyEnv() {
	if key := os.Getenv("GEMINI_API_KEY"); key != "" {
		VerboseLog("Gemini API key loaded from environment")
		c.GeminiAPIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		VerboseLog("OpenAI API key loaded from environment")
		c.OpenAIAPIKey = key
	}
}

func (c *EnvConfig) fillDefaults() {
	if c.DefaultModel == "" {
		c.DefaultModel = DefaultModel
	}
	if c.MaxRetries == nil {
		retries := DefaultMaxRetries
		c.MaxRetries = &retries
	}
	if c.InitialDelay <= 0 {
		c.InitialDelay = DefaultInitialDelay
	}
	if len(c.Models) == 0 {
		c.Models = []string{c.DefaultModel}
	}
}

// Retries returns the configured retry budget
func (c *EnvConfig) Retries() int {
	if c.MaxRetries == nil || *c.MaxRetries < 0 {
		return DefaultMaxRetries
	}
	return *c.MaxRetries
}

// APIKeyFor returns the API key for the provider serving modelName
func (c *EnvConfig) APIKeyFor(modelName string) string {
	if IsOpenAIModel(modelName) {
		return c.OpenAIAPIKey
	}
	return c.GeminiAPIKey
}

// IsOpenAIModel reports whether modelName belongs to the OpenAI family
func IsOpenAIModel(modelName string) bool {
	modelName = strings.ToLower(modelName)
	for _, prefix := range []string{"gpt-", "o1", "o3", "o4"} {
		if strings.HasPrefix(modelName, prefix) {
			return true
		}
	}
	return false
}

// GetServerConfig returns the server configuration, creating defaults if unset
func (c *EnvConfig) GetServerConfig() *ServerConfig {
	if c.Server == nil {
		c.Server = DefaultServerConfig()
	}
	return c.Server
}

// UpdateServerConfig replaces the server configuration
func (c *EnvConfig) UpdateServerConfig(serverConfig ServerConfig) {
	c.Server = &serverConfig
}

// GenerateBearerToken creates a random token for server authentication
func GenerateBearerToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("error generating random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
