package config

import (
	"os"
	"testing"
	"time"
)

const (
	testSecretA = "0123456789abcdef0123456789abcdef:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
	testSecretB = "fedcba9876543210fedcba9876543210:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"
)

func clearSecrets() {
	os.Unsetenv("SIREN_HMAC_SECRET")
	os.Unsetenv("SIREN_HMAC_SECRET_1")
	os.Unsetenv("SIREN_HMAC_SECRET_2")
}

func TestHMACSecrets(t *testing.T) {
	clearSecrets()

	t.Run("single secret", func(t *testing.T) {
		t.Setenv("SIREN_HMAC_SECRET", testSecretA)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 1 {
			t.Errorf("expected 1 secret, got %d", len(secrets))
		}
		if _, ok := secrets["0123456789abcdef0123456789abcdef"]; !ok {
			t.Errorf("secret_id not found in map")
		}
	})

	t.Run("multiple numbered secrets", func(t *testing.T) {
		t.Setenv("SIREN_HMAC_SECRET_1", testSecretA)
		t.Setenv("SIREN_HMAC_SECRET_2", testSecretB)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 2 {
			t.Errorf("expected 2 secrets, got %d", len(secrets))
		}
	})

	t.Run("numbering stops at first gap", func(t *testing.T) {
		t.Setenv("SIREN_HMAC_SECRET_2", testSecretB)

		secrets, err := HMACSecrets()
		if err != nil {
			t.Fatalf("HMACSecrets failed: %v", err)
		}
		if len(secrets) != 0 {
			t.Errorf("expected 0 secrets without SIREN_HMAC_SECRET_1, got %d", len(secrets))
		}
	})

	errorCases := []struct {
		name string
		env  map[string]string
	}{
		{"invalid format", map[string]string{"SIREN_HMAC_SECRET": "invalid_format"}},
		{"invalid secret_id length", map[string]string{"SIREN_HMAC_SECRET": "short:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"}},
		{"non-hex secret_id", map[string]string{"SIREN_HMAC_SECRET": "0123456789abcdefGHIJKLMNOPQRSTUV:dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w"}},
		{"duplicate secret_id in numbered secrets", map[string]string{
			"SIREN_HMAC_SECRET_1": testSecretA,
			"SIREN_HMAC_SECRET_2": "0123456789abcdef0123456789abcdef:YW5vdGhlcnNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w",
		}},
		{"duplicate secret_id between single and numbered", map[string]string{
			"SIREN_HMAC_SECRET":   testSecretA,
			"SIREN_HMAC_SECRET_1": testSecretA,
		}},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := HMACSecrets(); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.HTTP.Addr() != "0.0.0.0:8080" {
			t.Errorf("expected http addr 0.0.0.0:8080, got %s", cfg.HTTP.Addr())
		}
		if cfg.GRPC.Port != 50051 || !cfg.GRPC.Enabled() {
			t.Errorf("expected enabled grpc on 50051, got %d", cfg.GRPC.Port)
		}
		if cfg.HTTP.ReadTimeout != 10*time.Second || cfg.HTTP.WriteTimeout != 30*time.Second {
			t.Errorf("unexpected http timeouts %v/%v", cfg.HTTP.ReadTimeout, cfg.HTTP.WriteTimeout)
		}
		if cfg.GRPC.RequestTimeout != 30*time.Second {
			t.Errorf("expected grpc timeout 30s, got %v", cfg.GRPC.RequestTimeout)
		}
		if cfg.Database.URL != "sqlite://./data/siren.db" {
			t.Errorf("unexpected database url %s", cfg.Database.URL)
		}
		if cfg.Siren.MaxDepth != 32 || cfg.Siren.InheritClassSuppression {
			t.Errorf("unexpected siren config %+v", cfg.Siren)
		}
		if cfg.RequireAuth {
			t.Errorf("expected require_auth false by default")
		}
	})

	t.Run("environment override", func(t *testing.T) {
		t.Setenv("SIREN_HTTP_PORT", "9999")
		t.Setenv("SIREN_HTTP_HOST", "127.0.0.1")
		t.Setenv("SIREN_GRPC_PORT", "0")
		t.Setenv("SIREN_SIREN_MAX_DEPTH", "4")

		cfg, err := LoadConfig("")
		if err != nil {
			t.Fatalf("LoadConfig failed: %v", err)
		}
		if cfg.HTTP.Port != 9999 || cfg.HTTP.Host != "127.0.0.1" {
			t.Errorf("expected 127.0.0.1:9999, got %s", cfg.HTTP.Addr())
		}
		if cfg.GRPC.Enabled() {
			t.Errorf("expected grpc disabled by port 0")
		}
		if cfg.Siren.MaxDepth != 4 {
			t.Errorf("expected max depth 4, got %d", cfg.Siren.MaxDepth)
		}
	})

	invalid := []struct {
		name string
		key  string
		val  string
	}{
		{"http port range", "SIREN_HTTP_PORT", "70000"},
		{"negative grpc port", "SIREN_GRPC_PORT", "-1"},
		{"shared port", "SIREN_GRPC_PORT", "8080"},
		{"zero timeout", "SIREN_HTTP_READ_TIMEOUT", "0s"},
		{"zero depth", "SIREN_SIREN_MAX_DEPTH", "0"},
	}
	for _, tc := range invalid {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			if _, err := LoadConfig(""); err == nil {
				t.Errorf("expected error for %s=%s", tc.key, tc.val)
			}
		})
	}
}

func TestParseHMACSecret(t *testing.T) {
	t.Run("valid base64", func(t *testing.T) {
		secret, err := ParseHMACSecret("dGVzdHNlY3JldDEyMzQ1Njc4OTBhYmNkZWZnaGlqa2xtbm9w")
		if err != nil {
			t.Fatalf("ParseHMACSecret failed: %v", err)
		}
		if len(secret) < 32 {
			t.Errorf("secret too short: %d bytes", len(secret))
		}
	})

	t.Run("invalid base64", func(t *testing.T) {
		if _, err := ParseHMACSecret("not-valid-base64!!!"); err == nil {
			t.Error("expected error for invalid base64")
		}
	})

	t.Run("secret too short", func(t *testing.T) {
		if _, err := ParseHMACSecret("c2hvcnQ="); err == nil { // "short"
			t.Error("expected error for secret < 32 bytes")
		}
	})
}

func TestParseHMACSecretWithID(t *testing.T) {
	t.Run("valid format", func(t *testing.T) {
		secretID, secret, err := ParseHMACSecretWithID(testSecretA)
		if err != nil {
			t.Fatalf("ParseHMACSecretWithID failed: %v", err)
		}
		if secretID != "0123456789abcdef0123456789abcdef" {
			t.Errorf("unexpected secret_id: %s", secretID)
		}
		if len(secret) == 0 {
			t.Error("secret should not be empty")
		}
	})

	t.Run("missing colon", func(t *testing.T) {
		if _, _, err := ParseHMACSecretWithID("0123456789abcdef0123456789abcdef"); err == nil {
			t.Error("expected error for missing colon")
		}
	})

	t.Run("short secret after id", func(t *testing.T) {
		if _, _, err := ParseHMACSecretWithID("0123456789abcdef0123456789abcdef:c2hvcnQ="); err == nil {
			t.Error("expected error for secret < 32 bytes")
		}
	})
}
