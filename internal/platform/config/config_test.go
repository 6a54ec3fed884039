package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Fatalf("unexpected read timeout %s", cfg.Server.ReadTimeout)
	}
	if cfg.Contact.ToEmail != "info@castellomongivetto.com" {
		t.Fatalf("unexpected default recipient %s", cfg.Contact.ToEmail)
	}
	if cfg.Contact.ResendBaseURL != "https://api.resend.com/emails" {
		t.Fatalf("unexpected resend url %s", cfg.Contact.ResendBaseURL)
	}
	if cfg.Contact.ResendAPIKey != "" {
		t.Fatalf("api key should default empty, got %q", cfg.Contact.ResendAPIKey)
	}
	if !cfg.AntiSpam.WatchRules {
		t.Fatal("rules watching should default on")
	}
}

func TestLoadEnvMapOverrides(t *testing.T) {
	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"CONTACT_SERVER_PORT":          "9090",
		"CONTACT_SERVER_READ_TIMEOUT":  "5s",
		"RESEND_API_KEY":               "re_test_key",
		"CONTACT_FROM_EMAIL":           "noreply@castellomongivetto.com",
		"CONTACT_TO_EMAIL":             "owner@castellomongivetto.com",
		"CONTACT_ANTISPAM_WATCH_RULES": "off",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "9090" {
		t.Fatalf("expected port 9090, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 5*time.Second {
		t.Fatalf("expected 5s read timeout, got %s", cfg.Server.ReadTimeout)
	}
	if cfg.Contact.ResendAPIKey != "re_test_key" {
		t.Fatalf("unexpected api key %q", cfg.Contact.ResendAPIKey)
	}
	if cfg.Contact.ToEmail != "owner@castellomongivetto.com" {
		t.Fatalf("unexpected recipient %s", cfg.Contact.ToEmail)
	}
	if cfg.AntiSpam.WatchRules {
		t.Fatal("expected rules watching disabled")
	}
}

func TestLoadDotEnvFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	contents := "# local overrides\nexport CONTACT_SERVER_PORT=3000\nCONTACT_FROM_EMAIL=\"form@castellomongivetto.com\"\n"
	if err := os.WriteFile(envFile, []byte(contents), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	cfg, err := Load(WithoutSystemEnv(), WithEnvFile(envFile))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != "3000" {
		t.Fatalf("expected port from .env, got %s", cfg.Server.Port)
	}
	if cfg.Contact.FromEmail != "form@castellomongivetto.com" {
		t.Fatalf("expected quoted value unwrapped, got %q", cfg.Contact.FromEmail)
	}
}

func TestLoadValidatesRequiredFields(t *testing.T) {
	_, err := Load(WithoutSystemEnv(), WithEnvFile(""), WithEnvMap(map[string]string{
		"CONTACT_TO_EMAIL": " ",
	}))
	if err == nil {
		t.Fatal("expected validation error")
	}
	var validation *ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	found := false
	for _, field := range validation.Fields() {
		if field == "Contact.ToEmail" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected Contact.ToEmail in %v", validation.Fields())
	}
}
