// Package config loads the site configuration from defaults, a .env file,
// the process environment and Secret Manager references.
package config

import (
	"bufio"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const (
	defaultEnvFile         = ".env"
	defaultPort            = "8080"
	defaultReadTimeout     = 15 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultShutdownTimeout = 10 * time.Second
	defaultEnvironment     = "local"
	defaultBaseURL         = "http://localhost:8080"
	defaultSiteName        = "Finite Field"
	defaultLang            = "de"
	defaultContentTTL      = 5 * time.Minute
	defaultStatusTTL       = 30 * time.Second
	defaultScriptSrc       = "https://js-eu1.hsforms.net/forms/embed/v2.js"
	defaultScriptGlobal    = "hbspt.forms"
	defaultFormsRegion     = "eu1"
	defaultSignedURLTTL    = 15 * time.Minute
	defaultPendingMaxAge   = 10 * time.Minute
	defaultSessionCookie   = "FF_SITE_SESSION"
)

// Config captures all runtime configuration organised by concern.
type Config struct {
	Server    ServerConfig
	Site      SiteConfig
	Content   ContentConfig
	Forms     FormsConfig
	Analytics AnalyticsConfig
	Downloads DownloadsConfig
	Session   SessionConfig
	Status    StatusConfig
}

// ServerConfig configures HTTP server parameters.
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
}

// SiteConfig describes the public site and where its static inputs live.
type SiteConfig struct {
	Environment  string
	BaseURL      string
	Name         string
	DefaultLang  string
	TemplatesDir string
	LocalesDir   string
	AssetsDir    string
}

// Production reports whether the site runs in the prod environment.
func (s SiteConfig) Production() bool { return s.Environment == "prod" }

// ContentConfig points at the structured content sources.
type ContentConfig struct {
	Dir       string
	RemoteURL string
	CacheTTL  time.Duration
}

// FormsConfig identifies the hosted form provider and the forms per page.
type FormsConfig struct {
	ScriptSrc      string
	ScriptGlobal   string
	Region         string
	PortalID       string
	ContactFormID  string
	DownloadFormID string
	EventFormID    string
}

// AnalyticsConfig controls downstream event forwarding.
type AnalyticsConfig struct {
	ProjectID      string
	Topic          string
	GTMContainerID string
}

// DownloadsConfig controls gated file delivery.
type DownloadsConfig struct {
	SignerEmail   string
	SignerKey     string
	SignedURLTTL  time.Duration
	PendingMaxAge time.Duration
}

// SessionConfig configures the signed session cookie.
type SessionConfig struct {
	CookieName string
	SigningKey string
	Secure     bool
}

// StatusConfig configures the maintenance status source.
type StatusConfig struct {
	URL         string
	Maintenance bool
	CacheTTL    time.Duration
}

// SecretResolver resolves references to external secrets (e.g. Secret Manager URIs).
type SecretResolver interface {
	ResolveSecret(ctx context.Context, ref string) (string, error)
}

// SecretResolverFunc adapts ordinary functions to SecretResolver.
type SecretResolverFunc func(context.Context, string) (string, error)

// ResolveSecret resolves the secret using the wrapped function.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, ref string) (string, error) {
	return f(ctx, ref)
}

// ValidationError is returned when required configuration fields are missing or invalid.
type ValidationError struct {
	fields []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("config validation failed: missing or invalid fields [%s]", strings.Join(e.fields, ", "))
}

// Fields returns a copy of the missing/invalid field list.
func (e *ValidationError) Fields() []string {
	out := make([]string, len(e.fields))
	copy(out, e.fields)
	return out
}

// SecretError describes failures while resolving a secret reference.
type SecretError struct {
	Ref string
	Err error
}

// Error implements the error interface.
func (e *SecretError) Error() string {
	return fmt.Sprintf("secret resolution failed for ref %q: %v", e.Ref, e.Err)
}

// Unwrap exposes the underlying error.
func (e *SecretError) Unwrap() error { return e.Err }

// MissingSecretsError indicates that one or more required secrets resolved empty.
type MissingSecretsError struct {
	names []string
}

// Error implements the error interface. Names are redacted.
func (e *MissingSecretsError) Error() string {
	redacted := make([]string, 0, len(e.names))
	for _, n := range e.names {
		redacted = append(redacted, redactSecretName(n))
	}
	sort.Strings(redacted)
	return fmt.Sprintf("missing required secrets [%s]", strings.Join(redacted, ", "))
}

// Names returns the missing secret field names.
func (e *MissingSecretsError) Names() []string {
	out := append([]string(nil), e.names...)
	sort.Strings(out)
	return out
}

var errSecretResolverNotConfigured = errors.New("secret resolver not configured")

// Option customises Load behaviour.
type Option func(*loaderOptions)

type loaderOptions struct {
	envFile         string
	envMap          map[string]string
	useSystemEnv    bool
	secret          SecretResolver
	requiredSecrets []string
}

// WithEnvFile overrides the .env file path used for local overrides.
func WithEnvFile(path string) Option {
	return func(o *loaderOptions) {
		o.envFile = path
	}
}

// WithEnvMap injects an explicit key/value map for environment lookups. Values in the map
// take precedence over system environment variables.
func WithEnvMap(values map[string]string) Option {
	return func(o *loaderOptions) {
		o.envMap = values
	}
}

// WithoutSystemEnv disables reading from os.Getenv, relying only on provided maps and .env files.
func WithoutSystemEnv() Option {
	return func(o *loaderOptions) {
		o.useSystemEnv = false
	}
}

// WithSecretResolver sets the resolver used for secret:// and sm:// references.
func WithSecretResolver(resolver SecretResolver) Option {
	return func(o *loaderOptions) {
		o.secret = resolver
	}
}

// WithRequiredSecrets marks secret fields (e.g. "Session.SigningKey") as mandatory.
func WithRequiredSecrets(names ...string) Option {
	return func(o *loaderOptions) {
		o.requiredSecrets = append(o.requiredSecrets, names...)
	}
}

// Load assembles the site configuration. Precedence is defaults < .env <
// OS environment < WithEnvMap.
func Load(ctx context.Context, opts ...Option) (Config, error) {
	options := loaderOptions{
		envFile:      defaultEnvFile,
		useSystemEnv: true,
	}
	for _, opt := range opts {
		opt(&options)
	}

	dotEnvValues, err := loadDotEnv(options.envFile)
	if err != nil {
		return Config{}, err
	}

	lookup := func(key string) (string, bool) {
		if options.envMap != nil {
			if value, ok := options.envMap[key]; ok {
				return value, true
			}
		}
		if options.useSystemEnv {
			if value, ok := os.LookupEnv(key); ok {
				return value, true
			}
		}
		if dotEnvValues != nil {
			if value, ok := dotEnvValues[key]; ok {
				return value, true
			}
		}
		return "", false
	}

	env := strings.ToLower(stringWithDefault(lookup, "SITE_ENV", defaultEnvironment))
	cfg := Config{
		Server: ServerConfig{
			Port:            stringWithDefault(lookup, "PORT", stringWithDefault(lookup, "SITE_SERVER_PORT", defaultPort)),
			ReadTimeout:     durationWithDefault(lookup, "SITE_SERVER_READ_TIMEOUT", defaultReadTimeout),
			WriteTimeout:    durationWithDefault(lookup, "SITE_SERVER_WRITE_TIMEOUT", defaultWriteTimeout),
			IdleTimeout:     durationWithDefault(lookup, "SITE_SERVER_IDLE_TIMEOUT", defaultIdleTimeout),
			ShutdownTimeout: durationWithDefault(lookup, "SITE_SERVER_SHUTDOWN_TIMEOUT", defaultShutdownTimeout),
		},
		Site: SiteConfig{
			Environment:  env,
			BaseURL:      strings.TrimRight(stringWithDefault(lookup, "SITE_BASE_URL", defaultBaseURL), "/"),
			Name:         stringWithDefault(lookup, "SITE_NAME", defaultSiteName),
			DefaultLang:  strings.ToLower(stringWithDefault(lookup, "SITE_DEFAULT_LANG", defaultLang)),
			TemplatesDir: stringWithDefault(lookup, "SITE_TEMPLATES_DIR", "templates"),
			LocalesDir:   stringWithDefault(lookup, "SITE_LOCALES_DIR", "locales"),
			AssetsDir:    stringWithDefault(lookup, "SITE_ASSETS_DIR", "public/assets"),
		},
		Content: ContentConfig{
			Dir:       stringWithDefault(lookup, "SITE_CONTENT_DIR", "content"),
			RemoteURL: stringWithDefault(lookup, "SITE_CONTENT_REMOTE_URL", ""),
			CacheTTL:  durationWithDefault(lookup, "SITE_CONTENT_CACHE_TTL", defaultContentTTL),
		},
		Forms: FormsConfig{
			ScriptSrc:      stringWithDefault(lookup, "SITE_FORMS_SCRIPT_SRC", defaultScriptSrc),
			ScriptGlobal:   stringWithDefault(lookup, "SITE_FORMS_SCRIPT_GLOBAL", defaultScriptGlobal),
			Region:         stringWithDefault(lookup, "SITE_FORMS_REGION", defaultFormsRegion),
			PortalID:       stringWithDefault(lookup, "SITE_FORMS_PORTAL_ID", ""),
			ContactFormID:  stringWithDefault(lookup, "SITE_FORMS_CONTACT_FORM_ID", ""),
			DownloadFormID: stringWithDefault(lookup, "SITE_FORMS_DOWNLOAD_FORM_ID", ""),
			EventFormID:    stringWithDefault(lookup, "SITE_FORMS_EVENT_FORM_ID", ""),
		},
		Analytics: AnalyticsConfig{
			ProjectID:      stringWithDefault(lookup, "SITE_ANALYTICS_PROJECT_ID", stringWithDefault(lookup, "GOOGLE_CLOUD_PROJECT", "")),
			Topic:          stringWithDefault(lookup, "SITE_ANALYTICS_TOPIC", ""),
			GTMContainerID: stringWithDefault(lookup, "SITE_ANALYTICS_GTM_ID", ""),
		},
		Downloads: DownloadsConfig{
			SignerEmail:   stringWithDefault(lookup, "SITE_DOWNLOADS_SIGNER_EMAIL", ""),
			SignerKey:     stringWithDefault(lookup, "SITE_DOWNLOADS_SIGNER_KEY", ""),
			SignedURLTTL:  durationWithDefault(lookup, "SITE_DOWNLOADS_SIGNED_URL_TTL", defaultSignedURLTTL),
			PendingMaxAge: durationWithDefault(lookup, "SITE_DOWNLOADS_PENDING_MAX_AGE", defaultPendingMaxAge),
		},
		Session: SessionConfig{
			CookieName: stringWithDefault(lookup, "SITE_SESSION_COOKIE", defaultSessionCookie),
			SigningKey: stringWithDefault(lookup, "SITE_SESSION_SIGNING_KEY", ""),
			Secure:     boolWithDefault(lookup, "SITE_SESSION_SECURE", env == "prod"),
		},
		Status: StatusConfig{
			URL:         stringWithDefault(lookup, "SITE_STATUS_URL", ""),
			Maintenance: boolWithDefault(lookup, "SITE_MAINTENANCE", false),
			CacheTTL:    durationWithDefault(lookup, "SITE_STATUS_CACHE_TTL", defaultStatusTTL),
		},
	}

	resolved := make(map[string]string)
	secretFields := []struct {
		name  string
		field *string
	}{
		{"Session.SigningKey", &cfg.Session.SigningKey},
		{"Downloads.SignerKey", &cfg.Downloads.SignerKey},
	}
	for _, target := range secretFields {
		value, err := resolveSecret(ctx, *target.field, options.secret)
		if err != nil {
			return Config{}, err
		}
		*target.field = value
		resolved[target.name] = strings.TrimSpace(value)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	var missing []string
	for _, name := range options.requiredSecrets {
		name = strings.TrimSpace(name)
		if name != "" && resolved[name] == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return Config{}, &MissingSecretsError{names: missing}
	}
	return cfg, nil
}

func resolveSecret(ctx context.Context, value string, resolver SecretResolver) (string, error) {
	if value == "" || !isSecretReference(value) {
		return value, nil
	}
	normalized := normalizeSecretReference(value)
	if resolver == nil {
		return "", &SecretError{Ref: normalized, Err: errSecretResolverNotConfigured}
	}
	secret, err := resolver.ResolveSecret(ctx, normalized)
	if err != nil {
		return "", &SecretError{Ref: normalized, Err: err}
	}
	return secret, nil
}

func validateConfig(cfg Config) error {
	var missing []string

	if cfg.Server.Port == "" {
		missing = append(missing, "Server.Port")
	}
	if u, err := url.Parse(cfg.Site.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		missing = append(missing, "Site.BaseURL")
	}
	if cfg.Site.DefaultLang != "de" && cfg.Site.DefaultLang != "en" {
		missing = append(missing, "Site.DefaultLang")
	}
	if cfg.Content.CacheTTL < 0 {
		missing = append(missing, "Content.CacheTTL")
	}
	if cfg.Downloads.PendingMaxAge <= 0 {
		missing = append(missing, "Downloads.PendingMaxAge")
	}
	if cfg.Site.Production() && cfg.Session.SigningKey == "" {
		missing = append(missing, "Session.SigningKey")
	}
	if cfg.Forms.ScriptSrc == "" {
		missing = append(missing, "Forms.ScriptSrc")
	}

	if len(missing) > 0 {
		return &ValidationError{fields: missing}
	}
	return nil
}

func isSecretReference(value string) bool {
	trimmed := strings.TrimSpace(value)
	return strings.HasPrefix(trimmed, "secret://") || strings.HasPrefix(trimmed, "sm://")
}

func normalizeSecretReference(value string) string {
	trimmed := strings.TrimSpace(value)
	if strings.HasPrefix(trimmed, "sm://") {
		return "secret://" + strings.TrimPrefix(trimmed, "sm://")
	}
	return trimmed
}

func redactSecretName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:8])
}

func loadDotEnv(path string) (map[string]string, error) {
	if path == "" {
		return nil, nil
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		absPath = path
	}

	file, err := os.Open(absPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("config: unable to read %s: %w", absPath, err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	values := make(map[string]string)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		line = strings.TrimSpace(strings.TrimPrefix(line, "export "))
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		values[key] = strings.Trim(strings.TrimSpace(value), "\"'")
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("config: failed parsing %s: %w", absPath, err)
	}
	return values, nil
}

func stringWithDefault(lookup func(string) (string, bool), key, fallback string) string {
	if value, ok := lookup(key); ok && value != "" {
		return value
	}
	return fallback
}

func durationWithDefault(lookup func(string) (string, bool), key string, fallback time.Duration) time.Duration {
	if value, ok := lookup(key); ok && value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func boolWithDefault(lookup func(string) (string, bool), key string, fallback bool) bool {
	if value, ok := lookup(key); ok && value != "" {
		switch strings.ToLower(value) {
		case "true", "1", "yes", "on":
			return true
		case "false", "0", "no", "off":
			return false
		}
	}
	return fallback
}
