package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"plsync/internal/entity"
)

// ErrMissingCredentials is fatal: there is no degraded mode without login
// credentials and a write key.
var ErrMissingCredentials = errors.New("PL_USERNAME, PL_PASSWORD and PL_API_KEY must be set")

const (
	defaultLoginURL   = "https://app.projectionlab.com/login"
	defaultPageSettle = 10 * time.Second
)

// Config is the run configuration read once from the environment.
type Config struct {
	Username     string
	Password     entity.Secret
	APIKey       entity.Secret // the planner's write key
	MFAKey       entity.Secret // normalized base32 TOTP secret, optional
	LoginURL     string
	PageSettle   time.Duration
	ValidateOnly bool // load and check configuration, no network or browser
	DoUpdate     bool // gates the whole write phase
}

// FromEnv loads and validates configuration from environment variables.
func FromEnv() (Config, error) {
	cfg := Config{
		Username:     os.Getenv("PL_USERNAME"),
		Password:     entity.NewSecret(os.Getenv("PL_PASSWORD")),
		APIKey:       entity.NewSecret(os.Getenv("PL_API_KEY")),
		MFAKey:       entity.NewSecret(NormalizeMFAKey(os.Getenv("PL_MFA_KEY"))),
		LoginURL:     envOr("PL_URL", defaultLoginURL),
		PageSettle:   defaultPageSettle,
		ValidateOnly: envBool("VALIDATE_ONLY", false),
		DoUpdate:     envBool("UPDATE_PROJECTIONLAB", true),
	}

	if v := os.Getenv("PL_TIME_DELAY"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil || secs < 0 {
			return Config{}, errors.Errorf("invalid PL_TIME_DELAY %q, want seconds", v)
		}
		cfg.PageSettle = time.Duration(secs) * time.Second
	}

	if cfg.Username == "" || cfg.Password.IsZero() || cfg.APIKey.IsZero() {
		return Config{}, ErrMissingCredentials
	}

	return cfg, nil
}

// NormalizeMFAKey strips separators and quotes from a base32 TOTP shared
// secret and upper-cases it, the form code generation expects.
func NormalizeMFAKey(raw string) string {
	r := strings.NewReplacer(" ", "", "-", "", `"`, "", "'", "")
	return strings.ToUpper(r.Replace(raw))
}

// Fields returns the configuration as redacted structured log fields.
func (c Config) Fields() []zap.Field {
	return []zap.Field{
		zap.String("username", c.Username),
		zap.Stringer("password", c.Password),
		zap.Stringer("api_key", c.APIKey),
		zap.Stringer("mfa_key", c.MFAKey),
		zap.String("url", c.LoginURL),
		zap.Duration("page_settle", c.PageSettle),
		zap.Bool("validate_only", c.ValidateOnly),
		zap.Bool("do_update", c.DoUpdate),
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	v := strings.ToLower(os.Getenv(key))
	if v == "" {
		return fallback
	}
	return v == "true" || v == "1" || v == "yes"
}
