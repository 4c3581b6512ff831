package core

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	StoreDriverMemory   = "memory"
	StoreDriverSQLite   = "sqlite3"
	StoreDriverPostgres = "postgres"
)

type AuthConfig struct {
	TokenURL     string `koanf:"token_url" mapstructure:"token_url"`
	SignInURL    string `koanf:"sign_in_url" mapstructure:"sign_in_url"`
	SupportURL   string `koanf:"support_url" mapstructure:"support_url"`
	AuthorizeURL string `koanf:"authorize_url" mapstructure:"authorize_url"`
}

type StoreConfig struct {
	Driver    string        `koanf:"driver" mapstructure:"driver"`
	DSN       string        `koanf:"dsn" mapstructure:"dsn"`
	KeyPrefix string        `koanf:"key_prefix" mapstructure:"key_prefix"`
	CacheTTL  time.Duration `koanf:"cache_ttl" mapstructure:"cache_ttl"`
}

type TransportConfig struct {
	Timeout              time.Duration `koanf:"timeout" mapstructure:"timeout"`
	MaxResponseBodyBytes int64         `koanf:"max_response_body_bytes" mapstructure:"max_response_body_bytes"`
}

type CryptoConfig struct {
	SharedSecret       string `koanf:"shared_secret" mapstructure:"shared_secret"`
	RecipientPublicKey string `koanf:"recipient_public_key" mapstructure:"recipient_public_key"`
}

type Config struct {
	ServiceName string          `koanf:"service_name" mapstructure:"service_name"`
	BaseURL     string          `koanf:"base_url" mapstructure:"base_url"`
	Auth        AuthConfig      `koanf:"auth" mapstructure:"auth"`
	Store       StoreConfig     `koanf:"store" mapstructure:"store"`
	Transport   TransportConfig `koanf:"transport" mapstructure:"transport"`
	Crypto      CryptoConfig    `koanf:"crypto" mapstructure:"crypto"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "vault",
		Store: StoreConfig{
			Driver:    StoreDriverMemory,
			KeyPrefix: "",
		},
		Transport: TransportConfig{
			Timeout:              30 * time.Second,
			MaxResponseBodyBytes: 10 << 20,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	for name, value := range map[string]string{
		"base_url":           c.BaseURL,
		"auth.token_url":     c.Auth.TokenURL,
		"auth.sign_in_url":   c.Auth.SignInURL,
		"auth.support_url":   c.Auth.SupportURL,
		"auth.authorize_url": c.Auth.AuthorizeURL,
	} {
		if err := validateOptionalURL(name, value); err != nil {
			return err
		}
	}
	switch strings.ToLower(strings.TrimSpace(c.Store.Driver)) {
	case "", StoreDriverMemory:
	case StoreDriverSQLite, StoreDriverPostgres:
		if strings.TrimSpace(c.Store.DSN) == "" {
			return fmt.Errorf("core: store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("core: store.driver %q is invalid", c.Store.Driver)
	}
	if c.Store.CacheTTL < 0 {
		return fmt.Errorf("core: store.cache_ttl must not be negative")
	}
	if c.Transport.Timeout < 0 {
		return fmt.Errorf("core: transport.timeout must not be negative")
	}
	return nil
}

// TokenEndpoint defaults to <base_url>/oauth/token when auth.token_url is unset.
func (c Config) TokenEndpoint() string {
	if value := strings.TrimSpace(c.Auth.TokenURL); value != "" {
		return value
	}
	return joinURL(c.BaseURL, "oauth/token")
}

func (c Config) SignInEndpoint() string {
	if value := strings.TrimSpace(c.Auth.SignInURL); value != "" {
		return value
	}
	return joinURL(c.BaseURL, "oidc/signin")
}

func validateOptionalURL(name string, value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parsed, err := url.Parse(value)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("core: %s %q is invalid", name, value)
	}
	return nil
}

func joinURL(base string, path string) string {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		return ""
	}
	return base + "/" + strings.TrimLeft(path, "/")
}
