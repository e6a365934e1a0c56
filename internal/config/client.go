package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// ClientConfig configures the command line client.
type ClientConfig struct {
	APIURL string
	// Home holds the token and the local onboarding session.
	Home     string
	Token    string
	LogLevel string
}

func LoadClientConfig() (*ClientConfig, error) {
	_ = godotenv.Load()

	home := getEnv("CHOIR_HOME", "")
	if home == "" {
		configDir := os.Getenv("XDG_CONFIG_HOME")
		if configDir == "" {
			userHome, err := os.UserHomeDir()
			if err != nil {
				return nil, fmt.Errorf("locate config dir: %w", err)
			}
			configDir = filepath.Join(userHome, ".config")
		}
		home = filepath.Join(configDir, "choir")
	}

	cfg := &ClientConfig{
		APIURL:   strings.TrimRight(getEnv("CHOIR_API_URL", "http://localhost:8080"), "/"),
		Home:     home,
		Token:    strings.TrimSpace(getEnv("CHOIR_TOKEN", "")),
		LogLevel: getEnv("LOG_LEVEL", "warn"),
	}
	if cfg.Token == "" {
		if data, err := os.ReadFile(cfg.TokenPath()); err == nil {
			cfg.Token = strings.TrimSpace(string(data))
		}
	}
	return cfg, nil
}

func (c *ClientConfig) TokenPath() string   { return filepath.Join(c.Home, "token") }
func (c *ClientConfig) SessionPath() string { return filepath.Join(c.Home, "session.json") }

// SaveToken stores token for later runs, readable only by the current user.
func (c *ClientConfig) SaveToken(token string) error {
	if err := os.MkdirAll(c.Home, 0o700); err != nil {
		return fmt.Errorf("create %s: %w", c.Home, err)
	}
	if err := os.WriteFile(c.TokenPath(), []byte(token+"\n"), 0o600); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	c.Token = token
	return nil
}

func (c *ClientConfig) ClearToken() error {
	c.Token = ""
	if err := os.Remove(c.TokenPath()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove token: %w", err)
	}
	return nil
}
