package stripe

import (
	"context"
	"testing"

	"github.com/angelmondragon/marketplace-backend/pkg/config"
)

func TestNewClientValidatesConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  config.StripeConfig
		ok   bool
	}{
		{name: "test key", cfg: config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1", Env: "test"}, ok: true},
		{name: "restricted live key", cfg: config.StripeConfig{APIKey: "rk_live_123", Secret: "whsec_1", Env: "LIVE"}, ok: true},
		{name: "missing key", cfg: config.StripeConfig{Secret: "whsec_1"}},
		{name: "missing secret", cfg: config.StripeConfig{APIKey: "sk_test_123"}},
		{name: "live key in test env", cfg: config.StripeConfig{APIKey: "sk_live_123", Secret: "whsec_1", Env: "test"}},
		{name: "unknown env", cfg: config.StripeConfig{APIKey: "sk_test_123", Secret: "whsec_1", Env: "staging"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client, err := NewClient(context.Background(), tc.cfg, nil)
			if tc.ok {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if client.API() == nil || client.API().V1CheckoutSessions == nil {
					t.Fatalf("expected api client with checkout sessions service")
				}
				if client.SigningSecret() != "whsec_1" {
					t.Fatalf("signing secret not preserved")
				}
				if env := client.Environment(); env != "test" && env != "live" {
					t.Fatalf("unexpected environment %q", env)
				}
				return
			}
			if err == nil {
				t.Fatal("expected config error")
			}
		})
	}
}

func TestNilClientAccessors(t *testing.T) {
	var client *Client
	if client.Environment() != "" || client.SigningSecret() != "" || client.API() != nil {
		t.Fatal("nil client accessors should return zero values")
	}
}
