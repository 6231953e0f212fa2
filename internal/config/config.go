// Package config reads process settings from the environment, after loading
// an optional .env file.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	ProviderJitsi = "jitsi"
	ProviderZoom  = "zoom"
)

type Config struct {
	Env      string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	HTTPPort string
	GRPCPort string

	FrontendOrigin string
	ClinicTimezone *time.Location

	MeetingProvider string
	JitsiBaseURL    string

	Provider Provider

	WebhookSecret  string
	StateSecret    string
	AdminAllowlist []string

	Mail Mail

	RateLimitRPS   float64
	RateLimitBurst int
	MaxRequests    int
}

// Provider holds the OAuth client of the external meeting provider.
type Provider struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	AuthURL      string
	TokenURL     string
	APIBaseURL   string
}

type Mail struct {
	APIKey      string
	BaseURL     string
	SenderEmail string
	SenderName  string
}

// Load reads the environment. files are optional .env paths; a missing file
// is not an error.
func Load(files ...string) (*Config, error) {
	_ = godotenv.Load(files...)

	c := &Config{
		Env:      env("APP_ENV", "development"),
		LogLevel: env("LOG_LEVEL", "info"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		HTTPPort: env("PORT", "8080"),
		GRPCPort: env("GRPC_PORT", "50051"),

		FrontendOrigin:  env("FRONTEND_ORIGIN", "http://localhost:5173"),
		MeetingProvider: strings.ToLower(env("MEETING_PROVIDER", ProviderJitsi)),
		JitsiBaseURL:    strings.TrimRight(env("JITSI_BASE_URL", "https://meet.jit.si"), "/"),

		Provider: Provider{
			ClientID:     os.Getenv("PROVIDER_CLIENT_ID"),
			ClientSecret: os.Getenv("PROVIDER_CLIENT_SECRET"),
			RedirectURI:  os.Getenv("REDIRECT_URI"),
			AuthURL:      env("PROVIDER_AUTH_URL", "https://zoom.us/oauth/authorize"),
			TokenURL:     env("PROVIDER_TOKEN_URL", "https://zoom.us/oauth/token"),
			APIBaseURL:   strings.TrimRight(env("PROVIDER_API_BASE_URL", "https://api.zoom.us/v2"), "/"),
		},

		WebhookSecret:  os.Getenv("WEBHOOK_SECRET"),
		StateSecret:    os.Getenv("STATE_SECRET"),
		AdminAllowlist: splitList(os.Getenv("ADMIN_ALLOWLIST")),

		Mail: Mail{
			APIKey:      os.Getenv("BREVO_API_KEY"),
			BaseURL:     strings.TrimRight(env("BREVO_BASE_URL", "https://api.brevo.com"), "/"),
			SenderEmail: env("MAIL_SENDER_EMAIL", "no-reply@localhost"),
			SenderName:  env("MAIL_SENDER_NAME", "Appointments"),
		},
	}

	var err error
	if c.ClinicTimezone, err = time.LoadLocation(env("CLINIC_TIMEZONE", "UTC")); err != nil {
		return nil, fmt.Errorf("CLINIC_TIMEZONE: %w", err)
	}
	if c.RateLimitRPS, err = strconv.ParseFloat(env("RATE_LIMIT_RPS", "5"), 64); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_RPS: %w", err)
	}
	if c.RateLimitBurst, err = strconv.Atoi(env("RATE_LIMIT_BURST", "10")); err != nil {
		return nil, fmt.Errorf("RATE_LIMIT_BURST: %w", err)
	}
	if c.MaxRequests, err = strconv.Atoi(env("MAX_REQUESTS_PER_SECOND", "50")); err != nil {
		return nil, fmt.Errorf("MAX_REQUESTS_PER_SECOND: %w", err)
	}

	return c, c.validate()
}

func (c *Config) validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.WebhookSecret == "" {
		errs = append(errs, errors.New("WEBHOOK_SECRET is required"))
	}
	if c.StateSecret == "" {
		errs = append(errs, errors.New("STATE_SECRET is required"))
	}
	switch c.MeetingProvider {
	case ProviderJitsi:
	case ProviderZoom:
		if c.Provider.ClientID == "" || c.Provider.ClientSecret == "" {
			errs = append(errs, errors.New("PROVIDER_CLIENT_ID and PROVIDER_CLIENT_SECRET are required for the zoom provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("MEETING_PROVIDER %q is not supported", c.MeetingProvider))
	}
	return errors.Join(errs...)
}

// IsAdmin reports whether email is on the admin allowlist.
func (c *Config) IsAdmin(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, a := range c.AdminAllowlist {
		if a == email {
			return true
		}
	}
	return false
}

func env(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
