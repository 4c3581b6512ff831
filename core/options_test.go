package core

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestGoOptionsResolver_RuntimeOverridesLoadedAndDefaults(t *testing.T) {
	defaults := DefaultConfig()
	loaded := Config{
		BaseURL: "https://vault.example.com",
		Auth:    AuthConfig{TokenURL: "https://auth.example.com/token"},
	}
	runtime := Config{
		BaseURL:   "https://eu.vault.example.com",
		Transport: TransportConfig{Timeout: 5 * time.Second},
	}

	resolved, err := GoOptionsResolver{}.Resolve(defaults, loaded, runtime)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.ServiceName != "vault" {
		t.Fatalf("expected default service name, got %q", resolved.ServiceName)
	}
	if resolved.BaseURL != "https://eu.vault.example.com" {
		t.Fatalf("expected runtime base url, got %q", resolved.BaseURL)
	}
	if resolved.Auth.TokenURL != "https://auth.example.com/token" {
		t.Fatalf("expected loaded token url, got %q", resolved.Auth.TokenURL)
	}
	if resolved.Transport.Timeout != 5*time.Second {
		t.Fatalf("expected runtime timeout, got %s", resolved.Transport.Timeout)
	}
	if resolved.Store.Driver != StoreDriverMemory {
		t.Fatalf("expected default memory driver, got %q", resolved.Store.Driver)
	}
}

func TestCfgxConfigProvider_LoadsRawValues(t *testing.T) {
	provider := NewCfgxConfigProvider(StaticRawConfigLoader{Values: map[string]any{
		"base_url": "https://vault.example.com",
		"auth": map[string]any{
			"token_url": "https://vault.example.com/oauth/token",
		},
	}})
	cfg, err := provider.Load(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BaseURL != "https://vault.example.com" {
		t.Fatalf("expected base url from raw config, got %q", cfg.BaseURL)
	}
	if cfg.Auth.TokenURL != "https://vault.example.com/oauth/token" {
		t.Fatalf("expected token url from raw config, got %q", cfg.Auth.TokenURL)
	}
	if cfg.ServiceName != "vault" {
		t.Fatalf("expected defaults to survive, got %q", cfg.ServiceName)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Store.Driver = StoreDriverSQLite
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "store.dsn") {
		t.Fatalf("expected dsn validation error, got %v", err)
	}

	cfg = DefaultConfig()
	cfg.BaseURL = "not a url"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected base url validation error")
	}

	cfg = DefaultConfig()
	cfg.Store.Driver = "redis"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unsupported driver error")
	}
}

func TestConfigEndpoints_DefaultFromBaseURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BaseURL = "https://vault.example.com/"
	if got := cfg.TokenEndpoint(); got != "https://vault.example.com/oauth/token" {
		t.Fatalf("unexpected token endpoint %q", got)
	}
	if got := cfg.SignInEndpoint(); got != "https://vault.example.com/oidc/signin" {
		t.Fatalf("unexpected sign-in endpoint %q", got)
	}
	cfg.Auth.TokenURL = "https://auth.example.com/token"
	if got := cfg.TokenEndpoint(); got != "https://auth.example.com/token" {
		t.Fatalf("expected explicit token url, got %q", got)
	}
}
