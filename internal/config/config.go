package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/AdamBeresnev/championship-draw/internal/logo"
	"github.com/AdamBeresnev/championship-draw/internal/service"
	"github.com/AdamBeresnev/championship-draw/internal/store"
	"github.com/joho/godotenv"
)

type Config struct {
	DatabasePath string
	ServerAddr   string
	LogLevel     slog.Level

	// How often the storage watcher checks for writes from other processes
	PollInterval time.Duration
	RevealHold   time.Duration
	RevealExit   time.Duration

	AdminEmails     []string
	AllowGuestAdmin bool
	SessionLifetime time.Duration
	OAuth           OAuthConfig

	CORSOrigins  []string
	LogoMaxBytes int64
	ObjectStore  logo.R2Config
}

type OAuthConfig struct {
	DiscordKey         string
	DiscordSecret      string
	DiscordCallbackURL string

	GoogleKey         string
	GoogleSecret      string
	GoogleCallbackURL string
}

func (c OAuthConfig) DiscordEnabled() bool { return c.DiscordKey != "" && c.DiscordSecret != "" }
func (c OAuthConfig) GoogleEnabled() bool  { return c.GoogleKey != "" && c.GoogleSecret != "" }

// Load reads the configuration from the environment, a .env file is optional
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	}
	return FromEnv(os.Getenv)
}

func FromEnv(getenv func(string) string) (*Config, error) {
	env := reader{getenv: getenv}

	cfg := &Config{
		DatabasePath: env.str("DATABASE_PATH", "./championship.db"),
		ServerAddr:   env.str("SERVER_ADDR", ":8080"),
		LogLevel:     env.level("LOG_LEVEL", slog.LevelInfo),

		PollInterval: env.duration("STORAGE_POLL_INTERVAL", store.DefaultPollInterval),
		RevealHold:   env.duration("REVEAL_HOLD", service.DefaultRevealHold),
		RevealExit:   env.duration("REVEAL_EXIT", service.DefaultRevealExit),

		AdminEmails:     env.list("ADMIN_EMAILS"),
		AllowGuestAdmin: env.boolean("ALLOW_GUEST_ADMIN", false),
		SessionLifetime: env.duration("SESSION_LIFETIME", 24*time.Hour),
		OAuth: OAuthConfig{
			DiscordKey:         getenv("DISCORD_KEY"),
			DiscordSecret:      getenv("DISCORD_SECRET"),
			DiscordCallbackURL: getenv("DISCORD_CALLBACK_URL"),
			GoogleKey:          getenv("GOOGLE_KEY"),
			GoogleSecret:       getenv("GOOGLE_SECRET"),
			GoogleCallbackURL:  getenv("GOOGLE_CALLBACK_URL"),
		},

		CORSOrigins:  env.list("CORS_ORIGINS"),
		LogoMaxBytes: int64(env.integer("LOGO_MAX_BYTES", logo.DefaultMaxBytes)),
		ObjectStore: logo.R2Config{
			AccountID:       getenv("R2_ACCOUNT_ID"),
			AccessKeyID:     getenv("R2_ACCESS_KEY_ID"),
			SecretAccessKey: getenv("R2_SECRET_ACCESS_KEY"),
			BucketName:      getenv("R2_BUCKET_NAME"),
			PublicBaseURL:   getenv("R2_PUBLIC_BASE_URL"),
			Endpoint:        getenv("R2_ENDPOINT"),
		},
	}

	if env.err != nil {
		return nil, env.err
	}
	if cfg.RevealHold < 0 || cfg.RevealExit < 0 {
		return nil, fmt.Errorf("reveal delays must not be negative")
	}
	return cfg, nil
}

// reader keeps the first parse error so Load can report it once
type reader struct {
	getenv func(string) string
	err    error
}

func (r *reader) fail(key, value string, err error) {
	if r.err == nil {
		r.err = fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
}

func (r *reader) str(key, fallback string) string {
	if v := strings.TrimSpace(r.getenv(key)); v != "" {
		return v
	}
	return fallback
}

func (r *reader) list(key string) []string {
	var values []string
	for _, v := range strings.Split(r.getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		r.fail(key, v, err)
		return fallback
	}
	return d
}

func (r *reader) boolean(key string, fallback bool) bool {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.fail(key, v, err)
		return fallback
	}
	return b
}

func (r *reader) integer(key string, fallback int) int {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		r.fail(key, v, err)
		return fallback
	}
	return n
}

func (r *reader) level(key string, fallback slog.Level) slog.Level {
	v := strings.TrimSpace(r.getenv(key))
	if v == "" {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		r.fail(key, v, err)
		return fallback
	}
	return level
}
