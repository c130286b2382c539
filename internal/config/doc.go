// Package config provides configuration loading and validation for the speech assistant.
// It handles YAML-based settings layered over built-in defaults, and provider
// credentials read from the environment or a .env file.
package config
