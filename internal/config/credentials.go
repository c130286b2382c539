package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

// Credentials holds the provider API keys. Each key is optional; a missing
// key disables only the provider that needs it.
type Credentials struct {
	OpenRouterKey string `env:"OPENROUTER_KEY"`
	GroqKey       string `env:"GROQ_KEY"`
	GeminiKey     string `env:"GEMINI_KEY"`
	AssemblyAIKey string `env:"ASSEMBLYAI_API_KEY"`
}

// LoadCredentials reads keys from the process environment. When envFile
// exists its entries are exported into the environment first.
func LoadCredentials(envFile string) (*Credentials, error) {
	var creds Credentials

	if envFile != "" {
		if _, err := os.Stat(envFile); err == nil {
			if err := cleanenv.ReadConfig(envFile, &creds); err != nil {
				return nil, fmt.Errorf("failed to read credentials from %s: %w", envFile, err)
			}
			return &creds, nil
		} else if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to stat %s: %w", envFile, err)
		}
	}

	if err := cleanenv.ReadEnv(&creds); err != nil {
		return nil, fmt.Errorf("failed to read credentials from environment: %w", err)
	}

	return &creds, nil
}

// ForProvider returns the key for a fallback chain provider by name.
func (c *Credentials) ForProvider(name string) string {
	switch name {
	case "openrouter":
		return c.OpenRouterKey
	case "groq":
		return c.GroqKey
	case "gemini":
		return c.GeminiKey
	case "assemblyai":
		return c.AssemblyAIKey
	default:
		return ""
	}
}

// Missing lists the environment variable names that are unset
func (c *Credentials) Missing() []string {
	var missing []string
	if c.OpenRouterKey == "" {
		missing = append(missing, "OPENROUTER_KEY")
	}
	if c.GroqKey == "" {
		missing = append(missing, "GROQ_KEY")
	}
	if c.GeminiKey == "" {
		missing = append(missing, "GEMINI_KEY")
	}
	if c.AssemblyAIKey == "" {
		missing = append(missing, "ASSEMBLYAI_API_KEY")
	}
	return missing
}
