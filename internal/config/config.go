package config // package config loads application configuration from environment variables

import (
	"log"
	"net/http"
	"os"
	"strconv"
	"time"
)

// Config holds all runtime configuration. The three token secrets are
// deliberately separate variables so a leaked activation secret cannot
// forge access or refresh tokens. Everything here is loaded once at
// startup and read-only afterwards.
type Config struct {
	Env  string // application environment (e.g. "dev", "prod")
	Port string // HTTP port to listen on

	DBUser string
	DBPass string // optional
	DBHost string
	DBPort string
	DBName string

	ActivationSecret string // signs pending-registration tokens
	AccessSecret     string // signs access tokens
	RefreshSecret    string // signs refresh tokens

	ActivationTTL time.Duration // activation token lifetime
	AccessTTL     time.Duration // access token lifetime
	RefreshTTL    time.Duration // refresh token lifetime
	SessionTTL    time.Duration // live-session lifetime, reset on refresh

	BcryptCost     int    // bcrypt cost for password hashing
	CookieSecure   bool   // Secure flag on auth cookies
	CookieSameSite string // lax | strict | none
	SocialVerified bool   // whether social signups start verified
}

// Load reads configuration from the environment. Required variables
// are enforced by must(); token lifetimes fall back to the documented
// defaults (activation 5m, access 5m, refresh 3d, session 7d).
func Load() Config {
	env := must("APP_ENV")
	return Config{
		Env:    env,
		Port:   must("APP_PORT"),
		DBUser: must("DB_USER"),
		DBPass: os.Getenv("DB_PASS"),
		DBHost: must("DB_HOST"),
		DBPort: must("DB_PORT"),
		DBName: must("DB_NAME"),

		ActivationSecret: must("ACTIVATION_SECRET"),
		AccessSecret:     must("ACCESS_TOKEN_SECRET"),
		RefreshSecret:    must("REFRESH_TOKEN_SECRET"),

		ActivationTTL: time.Duration(envInt("ACTIVATION_TOKEN_TTL_MIN", 5)) * time.Minute,
		AccessTTL:     time.Duration(envInt("ACCESS_TOKEN_TTL_MIN", 5)) * time.Minute,
		RefreshTTL:    time.Duration(envInt("REFRESH_TOKEN_TTL_DAYS", 3)) * 24 * time.Hour,
		SessionTTL:    time.Duration(envInt("SESSION_TTL_DAYS", 7)) * 24 * time.Hour,

		BcryptCost:     envInt("BCRYPT_COST", 10),
		CookieSecure:   envBool("COOKIE_SECURE", env == "prod"),
		CookieSameSite: envStr("COOKIE_SAMESITE", "lax"),
		SocialVerified: envBool("SOCIAL_VERIFIED", true),
	}
}

// SameSiteMode maps the configured cookie policy onto net/http's enum.
func (c Config) SameSiteMode() http.SameSite {
	switch c.CookieSameSite {
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteLaxMode
	}
}

// must retrieves the value of a required environment variable. If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

func envStr(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func envBool(k string, d bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	switch v {
	case "1", "true", "TRUE", "True", "yes", "YES", "on", "ON":
		return true
	case "0", "false", "FALSE", "False", "no", "NO", "off", "OFF":
		return false
	}
	return d
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}
