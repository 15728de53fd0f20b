package config

import (
	"strings"
	"testing"
)

func validConfig() *Config {
	return &Config{
		OrderAPIURL:          "https://shop.example.com/shop-api",
		OrderAPIChannelToken: "channel-token",
		StripeSecretKey:      "sk_test_123",
		StripeWebhookSecret:  "whsec_123",
		DatabaseURL:          "postgres://localhost:5432/hvacdirect",
		CacheProvider:        "memory",
		SessionStoreProvider: "memory",
		SessionSigningKey:    strings.Repeat("k", 32),
		LogFormat:            "text",
		Port:                 "8080",
	}
}

func TestValidateConfig(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr bool
	}{
		{
			name:   "valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "missing order api url",
			mutate:  func(cfg *Config) { cfg.OrderAPIURL = "" },
			wantErr: true,
		},
		{
			name:    "order api url must be https outside local",
			mutate:  func(cfg *Config) { cfg.OrderAPIURL = "http://shop.example.com/shop-api" },
			wantErr: true,
		},
		{
			name:   "http order api url allowed on localhost",
			mutate: func(cfg *Config) { cfg.OrderAPIURL = "http://localhost:3000/shop-api" },
		},
		{
			name:    "missing stripe secret key",
			mutate:  func(cfg *Config) { cfg.StripeSecretKey = "" },
			wantErr: true,
		},
		{
			name:    "short session signing key",
			mutate:  func(cfg *Config) { cfg.SessionSigningKey = "too-short" },
			wantErr: true,
		},
		{
			name:    "unknown cache provider",
			mutate:  func(cfg *Config) { cfg.CacheProvider = "memcached" },
			wantErr: true,
		},
		{
			name: "redis cache requires connection string",
			mutate: func(cfg *Config) {
				cfg.CacheProvider = "redis"
				cfg.RedisConnectionString = ""
			},
			wantErr: true,
		},
		{
			name: "redis cache with connection string",
			mutate: func(cfg *Config) {
				cfg.CacheProvider = "redis"
				cfg.RedisConnectionString = "redis://localhost:6379/0"
			},
		},
		{
			name:    "resend key without from address",
			mutate:  func(cfg *Config) { cfg.ResendAPIKey = "re_123" },
			wantErr: true,
		},
		{
			name:    "from address without resend key",
			mutate:  func(cfg *Config) { cfg.EmailFrom = "orders@example.com" },
			wantErr: true,
		},
		{
			name: "resend key and from address together",
			mutate: func(cfg *Config) {
				cfg.ResendAPIKey = "re_123"
				cfg.EmailFrom = "orders@example.com"
			},
		},
		{
			name:    "invalid from address",
			mutate:  func(cfg *Config) { cfg.ResendAPIKey = "re_123"; cfg.EmailFrom = "not-an-email" },
			wantErr: true,
		},
		{
			name:    "base url must be https outside local",
			mutate:  func(cfg *Config) { cfg.BaseURL = "http://shop.example.com" },
			wantErr: true,
		},
		{
			name:   "http base url allowed on localhost",
			mutate: func(cfg *Config) { cfg.BaseURL = "http://localhost:8080" },
		},
		{
			name:    "unknown log format",
			mutate:  func(cfg *Config) { cfg.LogFormat = "logfmt" },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := validConfig()
			tt.mutate(cfg)

			err := cfg.validate()
			if tt.wantErr && err == nil {
				t.Fatalf("expected validation error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected validation error: %v", err)
			}
		})
	}
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("ORDER_API_URL", "https://shop.example.com/shop-api")
	t.Setenv("STRIPE_SECRET_KEY", "sk_test_123")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_123")
	t.Setenv("DATABASE_URL", "postgres://localhost:5432/hvacdirect")
	t.Setenv("SESSION_SIGNING_KEY", strings.Repeat("k", 32))

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.CacheProvider != "memory" || cfg.SessionStoreProvider != "memory" {
		t.Fatalf("expected memory defaults, got %s/%s", cfg.CacheProvider, cfg.SessionStoreProvider)
	}
	if cfg.LogFormat != "text" {
		t.Fatalf("expected text log format default, got %s", cfg.LogFormat)
	}
}
