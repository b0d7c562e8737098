package shared

import (
	_ "embed"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

//go:embed config.example.toml
var exampleConf []byte

// Config is the application configuration, read from a TOML file or from the
// embedded default.
type Config struct {
	Credentials CredentialsConfig `toml:"credentials"`
	Session     SessionConfig     `toml:"session"`
	Database    DatabaseConfig    `toml:"database"`
	Server      ServerConfig      `toml:"server"`
	Generation  GenerationConfig  `toml:"generation"`
}

// CredentialsConfig contains provider-specific credentials.
type CredentialsConfig struct {
	Spotify SpotifyConfig `toml:"spotify"`
}

// SpotifyConfig contains the Spotify application registration.
//
// The authorization-code-with-PKCE flow is for public clients, so there is
// deliberately no client secret here.
type SpotifyConfig struct {
	ClientID    string   `toml:"client_id"`
	RedirectURI string   `toml:"redirect_uri"`
	Scopes      []string `toml:"scopes"`
}

// SessionConfig contains session persistence settings.
type SessionConfig struct {
	// CachePath is where the credential survives between CLI invocations.
	// Empty disables persistence and the session lives in memory only.
	CachePath string `toml:"cache_path"`
}

// DatabaseConfig holds the sqlite path and connection pool limits.
type DatabaseConfig struct {
	Path         string `toml:"path"`
	MaxOpenConns int    `toml:"max_open_conns"`
	MaxIdleConns int    `toml:"max_idle_conns"`
}

// ServerConfig contains HTTP server settings for the generation API and the
// OAuth callback listener.
type ServerConfig struct {
	Host string `toml:"host"`
	Port int    `toml:"port"`
}

// Addr returns the host:port address the server binds to.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// GenerationConfig contains defaults for playlist generation runs.
type GenerationConfig struct {
	// APIURL is the base URL of the generation endpoint the stream client
	// connects to. Defaults to the local server address.
	APIURL      string  `toml:"api_url"`
	Length      int     `toml:"length"`
	ScoreCutoff float64 `toml:"score_cutoff"`
	Policy      string  `toml:"policy"`
	Neighbors   int     `toml:"neighbors"`
}

// LoadConfig parses the TOML configuration file at the given path.
func LoadConfig(path string) (*Config, error) {
	var config Config
	if _, err := toml.DecodeFile(path, &config); err != nil {
		return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
	}
	return &config, nil
}

// DefaultConfig returns the configuration baked into the binary, parsed from
// the embedded example file.
func DefaultConfig() *Config {
	var config Config
	if _, err := toml.Decode(string(exampleConf), &config); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	return &config
}

// CreateConfigFile writes the example config to the given path for the user
// to edit. Refuses to clobber an existing file.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}

	if err := os.WriteFile(path, exampleConf, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
