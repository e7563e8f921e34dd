package internal

import (
	"strings"
	"testing"
	"time"
)

func TestAuthConfig_DisabledMode(t *testing.T) {
	cfg := AuthConfig{Mode: "disabled", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("disabled mode should pass: %v", err)
	}
	if cfg.AuthEnabled() {
		t.Error("disabled mode should not be enabled")
	}
}

func TestAuthConfig_EmptyModeDefaultsDisabled(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty mode should default to disabled: %v", err)
	}
	if cfg.Mode != AuthModeDisabled {
		t.Errorf("mode = %q, want %q", cfg.Mode, AuthModeDisabled)
	}
}

func TestAuthConfig_TokenModeValid(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: "mysecret"}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("token mode with token should pass: %v", err)
	}
	if !cfg.AuthEnabled() {
		t.Error("token mode should be enabled")
	}
}

func TestAuthConfig_TokenModeEmptyToken(t *testing.T) {
	cfg := AuthConfig{Mode: "token", Token: ""}
	err := cfg.Validate()
	if err == nil {
		t.Fatal("token mode with empty token should fail")
	}
	if !strings.Contains(err.Error(), "token is empty") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestAuthConfig_InvalidMode(t *testing.T) {
	cfg := AuthConfig{Mode: "magic", Token: "x"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid mode should fail validation")
	}
}

func TestVaultConfig_RequiresRootDir(t *testing.T) {
	cfg := VaultConfig{Path: "./vault"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("missing root_dir should fail validation")
	}
}

func TestOracleConfig_Optional(t *testing.T) {
	cfg := OracleConfig{}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("empty oracle config should pass: %v", err)
	}
	if cfg.Enabled() {
		t.Error("empty URL should not enable the oracle")
	}
}

func TestOracleConfig_InvalidURL(t *testing.T) {
	cfg := OracleConfig{URL: "::not-a-url::"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("invalid URL should fail validation")
	}
}

func TestOracleConfig_Enabled(t *testing.T) {
	cfg := OracleConfig{URL: "http://localhost:9999/decide", Timeout: 5 * time.Second}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("valid oracle config should pass: %v", err)
	}
	if !cfg.Enabled() {
		t.Error("non-empty URL should enable the oracle")
	}
}

func TestFullConfig_Defaults(t *testing.T) {
	cfg := NewDefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Vault.RootDir != "Knowledge" {
		t.Errorf("default root_dir = %q", cfg.Vault.RootDir)
	}
	if cfg.App.HTTP.Address() != ":8080" {
		t.Errorf("default address = %q", cfg.App.HTTP.Address())
	}
}

func TestFullConfig_AuthValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	cfg.Auth.Token = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("Config.Validate must surface auth errors")
	}
}
