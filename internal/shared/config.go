package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// Config represents the application configuration.
//
// Values are loaded from a TOML file and then overridden by environment
// variables, so deployments can run from env alone. A .env file in the working
// directory is loaded first when present.
type Config struct {
	Spotify  SpotifyConfig  `toml:"spotify"`
	Database DatabaseConfig `toml:"database"`
	Server   ServerConfig   `toml:"server"`
	Session  SessionConfig  `toml:"session"`
}

// SpotifyConfig contains Spotify API credentials.
type SpotifyConfig struct {
	ClientID     string `toml:"client_id" env:"SPOTIFY_CLIENT_ID"`
	ClientSecret string `toml:"client_secret" env:"SPOTIFY_CLIENT_SECRET"`
	Scope        string `toml:"scope" env:"SPOTIFY_CLIENT_SCOPE"`
	RedirectURI  string `toml:"redirect_uri" env:"SPOTIFY_CLIENT_REDIRECT_URI"`
}

// DatabaseConfig contains database connection settings.
type DatabaseConfig struct {
	Path         string `toml:"path" env:"DATABASE_PATH"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host string `toml:"host" env:"HOST"`
	Port int    `toml:"port" env:"PORT"`
}

// SessionConfig contains cookie session settings.
type SessionConfig struct {
	Secret string `toml:"secret" env:"SESSION_SECRET"`
}

// LoadConfig reads a TOML configuration file from the specified path and
// applies environment variable overrides.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMissingConfig, err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	if err := applyEnv(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// DefaultConfig returns a Config built from the embedded example config with
// environment variable overrides applied.
func DefaultConfig() *Config {
	var config Config
	if err := toml.Unmarshal(exampleConf, &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	if err := applyEnv(&config); err != nil {
		panic(fmt.Sprintf("failed to apply environment overrides: %v", err))
	}
	return &config
}

// applyEnv loads a .env file when present and overrides config fields from the
// process environment.
func applyEnv(config *Config) error {
	_ = godotenv.Load()

	if err := env.Parse(config); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	return nil
}

// CreateConfigFile creates a config.toml file at the specified path using the embedded example config.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
