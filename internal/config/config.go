// Package config loads the API credential from the environment and
// optional settings from flags or a YAML file.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/rj-price/gemini-api/internal/gemini"
)

// EnvAPIKey is the environment variable holding the API credential.
// The value is a secret: it is passed to the client handle and nowhere
// else — never logged, never written to disk.
const EnvAPIKey = "GOOGLE_API_KEY"

// MissingCredentialError reports an absent or empty API credential.
// Fatal at startup: nothing useful can run without it.
type MissingCredentialError struct {
	Var string
}

func (e *MissingCredentialError) Error() string {
	return fmt.Sprintf("API key not found. Set the %s environment variable.", e.Var)
}

// ConfigurationError reports a configuration source that could not be
// read or parsed. Fatal at startup.
type ConfigurationError struct {
	Path string
	Err  error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("invalid configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// LoadCredential reads the API credential from the environment.
// It performs no network I/O; the remote service validates the key on
// first use. A present, non-empty value is returned exactly as set.
func LoadCredential() (string, error) {
	key, ok := os.LookupEnv(EnvAPIKey)
	if !ok || key == "" {
		return "", &MissingCredentialError{Var: EnvAPIKey}
	}
	return key, nil
}

// Config holds the non-secret application settings.
type Config struct {
	Model             string `yaml:"model"`
	SystemInstruction string `yaml:"system_instruction"`
	CacheEnabled      bool   `yaml:"cache_enabled"`
	CachePath         string `yaml:"cache_path"`
	LogDir            string `yaml:"log_dir"`
	Debug             bool   `yaml:"debug"`
}

// Default returns the settings both walkthrough commands start from.
func Default() Config {
	return Config{
		Model:     gemini.DefaultModel,
		CachePath: "gemini-cache.db",
		LogDir:    "logs",
	}
}

// LoadFile overlays settings from a YAML file onto cfg. An unreadable or
// unparseable file is a startup-fatal ConfigurationError wrapping the
// cause.
func LoadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &ConfigurationError{Path: path, Err: err}
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return &ConfigurationError{Path: path, Err: err}
	}
	return nil
}
