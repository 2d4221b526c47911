package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultStateSecret = "change-me-in-production"

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	OAuth      OAuthConfig
	Session    SessionConfig
	Encryption EncryptionConfig
	RateLimit  RateLimitConfig
	Backfill   BackfillConfig
	Worker     WorkerConfig
}

type ServerConfig struct {
	Host           string
	Port           int
	Env            string
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
}

// OAuthConfig holds the GitHub application credentials and the signing
// secret for the state parameter.
type OAuthConfig struct {
	GitHubClientID     string
	GitHubClientSecret string
	RedirectBaseURL    string
	StateSecret        string
	StateTTLMinutes    int
}

type SessionConfig struct {
	CookieName   string
	TTLHours     int
	SecureCookie bool
}

type EncryptionConfig struct {
	Key string
}

type RateLimitConfig struct {
	Requests      int
	WindowSeconds int
}

// BackfillConfig controls the college backfill that follows a first sign-in.
type BackfillConfig struct {
	DelayMillis int
	MaxRetry    int
}

// WorkerConfig is read by the task worker only. A zero MetricsPort
// disables its metrics listener.
type WorkerConfig struct {
	Concurrency int
	MetricsPort int
}

func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// URL returns the connection string in URL form, as golang-migrate expects.
func (d *DatabaseConfig) URL() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: "sslmode=" + url.QueryEscape(d.SSLMode),
	}
	return u.String()
}

func (r *RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

func (o *OAuthConfig) StateTTL() time.Duration {
	return time.Duration(o.StateTTLMinutes) * time.Minute
}

// CallbackURL returns the provider redirect URL registered with GitHub.
func (o *OAuthConfig) CallbackURL(provider string) string {
	return strings.TrimRight(o.RedirectBaseURL, "/") + "/auth/callback/" + provider
}

func (s *SessionConfig) TTL() time.Duration {
	return time.Duration(s.TTLHours) * time.Hour
}

func (b *BackfillConfig) Delay() time.Duration {
	return time.Duration(b.DelayMillis) * time.Millisecond
}

func (s *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

func (s *ServerConfig) IsDevelopment() bool {
	return s.Env == "development"
}

func Load() (*Config, error) {
	v := viper.New()

	v.SetDefault("SERVER_HOST", "0.0.0.0")
	v.SetDefault("SERVER_PORT", 8080)
	v.SetDefault("SERVER_ENV", "development")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "")
	v.SetDefault("DATABASE_HOST", "localhost")
	v.SetDefault("DATABASE_PORT", 5432)
	v.SetDefault("DATABASE_USER", "clubhub")
	v.SetDefault("DATABASE_PASSWORD", "clubhub_secret")
	v.SetDefault("DATABASE_NAME", "clubhub")
	v.SetDefault("DATABASE_SSLMODE", "disable")
	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("GITHUB_CLIENT_ID", "")
	v.SetDefault("GITHUB_CLIENT_SECRET", "")
	v.SetDefault("OAUTH_REDIRECT_BASE_URL", "http://localhost:8080")
	v.SetDefault("STATE_SECRET", defaultStateSecret)
	v.SetDefault("STATE_TTL_MINUTES", 10)
	v.SetDefault("SESSION_COOKIE_NAME", "clubhub_session")
	v.SetDefault("SESSION_TTL_HOURS", 24*30)
	v.SetDefault("SESSION_COOKIE_SECURE", false)
	v.SetDefault("RATE_LIMIT_REQUESTS", 100)
	v.SetDefault("RATE_LIMIT_WINDOW_SECONDS", 60)
	v.SetDefault("BACKFILL_DELAY_MS", 100)
	v.SetDefault("BACKFILL_MAX_RETRY", 5)
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("WORKER_METRICS_PORT", 9091)

	// Load from .env file if present
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
	}

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		Server: ServerConfig{
			Host:           v.GetString("SERVER_HOST"),
			Port:           v.GetInt("SERVER_PORT"),
			Env:            v.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     v.GetString("DATABASE_HOST"),
			Port:     v.GetInt("DATABASE_PORT"),
			User:     v.GetString("DATABASE_USER"),
			Password: v.GetString("DATABASE_PASSWORD"),
			Name:     v.GetString("DATABASE_NAME"),
			SSLMode:  v.GetString("DATABASE_SSLMODE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetInt("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
		},
		OAuth: OAuthConfig{
			GitHubClientID:     v.GetString("GITHUB_CLIENT_ID"),
			GitHubClientSecret: v.GetString("GITHUB_CLIENT_SECRET"),
			RedirectBaseURL:    v.GetString("OAUTH_REDIRECT_BASE_URL"),
			StateSecret:        v.GetString("STATE_SECRET"),
			StateTTLMinutes:    v.GetInt("STATE_TTL_MINUTES"),
		},
		Session: SessionConfig{
			CookieName:   v.GetString("SESSION_COOKIE_NAME"),
			TTLHours:     v.GetInt("SESSION_TTL_HOURS"),
			SecureCookie: v.GetBool("SESSION_COOKIE_SECURE"),
		},
		Encryption: EncryptionConfig{
			Key: v.GetString("ENCRYPTION_KEY"),
		},
		RateLimit: RateLimitConfig{
			Requests:      v.GetInt("RATE_LIMIT_REQUESTS"),
			WindowSeconds: v.GetInt("RATE_LIMIT_WINDOW_SECONDS"),
		},
		Backfill: BackfillConfig{
			DelayMillis: v.GetInt("BACKFILL_DELAY_MS"),
			MaxRetry:    v.GetInt("BACKFILL_MAX_RETRY"),
		},
		Worker: WorkerConfig{
			Concurrency: v.GetInt("WORKER_CONCURRENCY"),
			MetricsPort: v.GetInt("WORKER_METRICS_PORT"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings that are unsafe or unusable.
func (c *Config) Validate() error {
	if c.Session.CookieName == "" {
		return errors.New("config: SESSION_COOKIE_NAME must be set")
	}
	if c.Session.TTLHours <= 0 {
		return errors.New("config: SESSION_TTL_HOURS must be positive")
	}
	if c.OAuth.StateTTLMinutes <= 0 {
		return errors.New("config: STATE_TTL_MINUTES must be positive")
	}
	if c.Backfill.MaxRetry < 0 {
		return errors.New("config: BACKFILL_MAX_RETRY must not be negative")
	}
	if c.Server.Env == "production" {
		if c.OAuth.StateSecret == "" || c.OAuth.StateSecret == defaultStateSecret {
			return errors.New("config: STATE_SECRET must be changed when SERVER_ENV=production")
		}
		if c.Encryption.Key == "" {
			return errors.New("config: ENCRYPTION_KEY must be set when SERVER_ENV=production")
		}
	}
	return nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
