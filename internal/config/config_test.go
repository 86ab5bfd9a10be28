package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadWithDefaults(t *testing.T) {
	cfg, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("expected default port 8080, got %s", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 15*time.Second {
		t.Errorf("unexpected read timeout: %s", cfg.Server.ReadTimeout)
	}
	if cfg.Site.Environment != "local" || cfg.Site.Production() {
		t.Errorf("expected local environment, got %s", cfg.Site.Environment)
	}
	if cfg.Site.DefaultLang != "de" {
		t.Errorf("expected default language de, got %s", cfg.Site.DefaultLang)
	}
	if cfg.Forms.ScriptSrc != defaultScriptSrc || cfg.Forms.ScriptGlobal != defaultScriptGlobal {
		t.Errorf("unexpected forms defaults: %+v", cfg.Forms)
	}
	if cfg.Downloads.PendingMaxAge != 10*time.Minute {
		t.Errorf("unexpected pending max age: %s", cfg.Downloads.PendingMaxAge)
	}
	if cfg.Session.Secure {
		t.Errorf("expected insecure cookies outside prod")
	}
	if cfg.Analytics.Topic != "" {
		t.Errorf("expected analytics forwarding disabled, got topic %q", cfg.Analytics.Topic)
	}
}

func TestLoadWithOverridesAndSecrets(t *testing.T) {
	env := map[string]string{
		"PORT":                          "9090",
		"SITE_ENV":                      "PROD",
		"SITE_BASE_URL":                 "https://www.example.com/",
		"SITE_CONTENT_CACHE_TTL":        "1m",
		"SITE_FORMS_PORTAL_ID":          "25144216",
		"SITE_FORMS_CONTACT_FORM_ID":    "c0ffee",
		"SITE_ANALYTICS_TOPIC":          "site-events",
		"GOOGLE_CLOUD_PROJECT":          "ff-prod",
		"SITE_SESSION_SIGNING_KEY":      "sm://session-key",
		"SITE_DOWNLOADS_SIGNER_KEY":     "secret://downloads-signer?version=3",
		"SITE_DOWNLOADS_SIGNED_URL_TTL": "not-a-duration",
	}
	var refs []string
	resolver := SecretResolverFunc(func(_ context.Context, ref string) (string, error) {
		refs = append(refs, ref)
		return "resolved:" + ref, nil
	})

	cfg, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""), WithSecretResolver(resolver))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Server.Port != "9090" {
		t.Errorf("expected port 9090, got %s", cfg.Server.Port)
	}
	if !cfg.Site.Production() {
		t.Errorf("expected prod environment, got %s", cfg.Site.Environment)
	}
	if cfg.Site.BaseURL != "https://www.example.com" {
		t.Errorf("expected trimmed base url, got %s", cfg.Site.BaseURL)
	}
	if !cfg.Session.Secure {
		t.Errorf("expected secure cookies in prod")
	}
	if cfg.Session.SigningKey != "resolved:secret://session-key" {
		t.Errorf("unexpected signing key %q", cfg.Session.SigningKey)
	}
	if cfg.Downloads.SignerKey != "resolved:secret://downloads-signer?version=3" {
		t.Errorf("unexpected signer key %q", cfg.Downloads.SignerKey)
	}
	if cfg.Downloads.SignedURLTTL != defaultSignedURLTTL {
		t.Errorf("expected invalid duration to fall back, got %s", cfg.Downloads.SignedURLTTL)
	}
	if cfg.Analytics.ProjectID != "ff-prod" {
		t.Errorf("expected project from GOOGLE_CLOUD_PROJECT, got %s", cfg.Analytics.ProjectID)
	}
	if len(refs) != 2 {
		t.Errorf("expected two secret lookups, got %v", refs)
	}
}

func TestLoadValidation(t *testing.T) {
	env := map[string]string{
		"SITE_ENV":          "prod",
		"SITE_BASE_URL":     "not a url",
		"SITE_DEFAULT_LANG": "fr",
	}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var vErr *ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := map[string]bool{"Site.BaseURL": true, "Site.DefaultLang": true, "Session.SigningKey": true}
	for _, f := range vErr.Fields() {
		delete(want, f)
	}
	if len(want) != 0 {
		t.Fatalf("missing validation fields %v in %v", want, vErr.Fields())
	}
}

func TestLoadSecretWithoutResolver(t *testing.T) {
	env := map[string]string{"SITE_SESSION_SIGNING_KEY": "sm://session-key"}
	_, err := Load(context.Background(), WithEnvMap(env), WithoutSystemEnv(), WithEnvFile(""))
	var sErr *SecretError
	if !errors.As(err, &sErr) {
		t.Fatalf("expected SecretError, got %v", err)
	}
	if sErr.Ref != "secret://session-key" {
		t.Errorf("expected normalised ref, got %s", sErr.Ref)
	}
	if !errors.Is(err, errSecretResolverNotConfigured) {
		t.Errorf("expected unwrap to resolver error")
	}
}

func TestLoadRequiredSecrets(t *testing.T) {
	_, err := Load(context.Background(), WithEnvMap(map[string]string{}), WithoutSystemEnv(), WithEnvFile(""),
		WithRequiredSecrets("Session.SigningKey"))
	var mErr *MissingSecretsError
	if !errors.As(err, &mErr) {
		t.Fatalf("expected MissingSecretsError, got %v", err)
	}
	if names := mErr.Names(); len(names) != 1 || names[0] != "Session.SigningKey" {
		t.Fatalf("unexpected names %v", names)
	}
	if got := mErr.Error(); got == "" || strings.Contains(got, "Session.SigningKey") {
		t.Fatalf("expected redacted error, got %q", got)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	content := "# local\nexport SITE_NAME=\"From Dotenv\"\nSITE_DEFAULT_LANG=en\nSITE_CONTENT_DIR=/srv/content\n"
	if err := os.WriteFile(envFile, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}
	t.Setenv("SITE_DEFAULT_LANG", "de")

	cfg, err := Load(context.Background(), WithEnvFile(envFile), WithEnvMap(map[string]string{"SITE_CONTENT_DIR": "/override"}))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Site.Name != "From Dotenv" {
		t.Errorf("expected dotenv value, got %q", cfg.Site.Name)
	}
	if cfg.Site.DefaultLang != "de" {
		t.Errorf("expected OS env to beat dotenv, got %q", cfg.Site.DefaultLang)
	}
	if cfg.Content.Dir != "/override" {
		t.Errorf("expected env map to win, got %q", cfg.Content.Dir)
	}
}
