package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/teemow/inboxassist/internal/gmail"
	"github.com/teemow/inboxassist/internal/google"
	"github.com/teemow/inboxassist/internal/store"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "INBOXASSIST_"

// Config is the complete runtime configuration.
type Config struct {
	Google  GoogleConfig  `yaml:"google"`
	Inbox   InboxConfig   `yaml:"inbox"`
	Store   StoreConfig   `yaml:"store"`
	Session SessionConfig `yaml:"session"`
	Rewrite RewriteConfig `yaml:"rewrite"`
	Server  ServerConfig  `yaml:"server"`
	Log     LogConfig     `yaml:"log"`
}

type GoogleConfig struct {
	ClientID     string `yaml:"client_id"`
	ClientSecret string `yaml:"client_secret"`
	RedirectURL  string `yaml:"redirect_url"`
	// GmailEndpoint overrides the Gmail API base URL.
	GmailEndpoint string `yaml:"gmail_endpoint"`
}

type InboxConfig struct {
	PageSize       int           `yaml:"page_size"`
	MaxConcurrency int           `yaml:"max_concurrency"`
	DetailTimeout  time.Duration `yaml:"detail_timeout"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	MaxPartDepth   int           `yaml:"max_part_depth"`
	ScoringMode    string        `yaml:"scoring_mode"`
}

type StoreConfig struct {
	Driver        string        `yaml:"driver"`
	DSN           string        `yaml:"dsn"`
	RedisAddr     string        `yaml:"redis_addr"`
	RedisPassword string        `yaml:"redis_password"`
	RedisDB       int           `yaml:"redis_db"`
	RedisTTL      time.Duration `yaml:"redis_ttl"`
}

type SessionConfig struct {
	// Identity is the user the CLI and an unauthenticated server act as.
	Identity string `yaml:"identity"`
	// JWTSecret enables HS256 bearer authentication on the HTTP API.
	JWTSecret string `yaml:"jwt_secret"`
}

type RewriteConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Model   string        `yaml:"model"`
	Timeout time.Duration `yaml:"timeout"`
}

type ServerConfig struct {
	Addr        string `yaml:"addr"`
	MetricsAddr string `yaml:"metrics_addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Inbox: InboxConfig{
			PageSize:       gmail.DefaultPageSize,
			MaxConcurrency: gmail.DefaultMaxConcurrency,
			DetailTimeout:  gmail.DefaultDetailTimeout,
			RequestTimeout: 60 * time.Second,
			MaxPartDepth:   gmail.DefaultMaxPartDepth,
			ScoringMode:    gmail.ScoringLabel,
		},
		Store: StoreConfig{
			Driver: store.DriverSQLite,
			DSN:    filepath.Join(google.DataDir(), "tokens.db"),
		},
		Session: SessionConfig{Identity: "default"},
		Server:  ServerConfig{Addr: ":8080", MetricsAddr: ":9090"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load builds the configuration: defaults, then the YAML file at path (if
// any), then environment variables. A .env file in the working directory is
// loaded into the environment first without overriding variables already set.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	var errs []error
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}

	str("GOOGLE_CLIENT_ID", &c.Google.ClientID)
	str("GOOGLE_CLIENT_SECRET", &c.Google.ClientSecret)
	str("GOOGLE_REDIRECT_URL", &c.Google.RedirectURL)
	str("GMAIL_ENDPOINT", &c.Google.GmailEndpoint)

	num("PAGE_SIZE", &c.Inbox.PageSize)
	num("MAX_CONCURRENCY", &c.Inbox.MaxConcurrency)
	dur("DETAIL_TIMEOUT", &c.Inbox.DetailTimeout)
	dur("REQUEST_TIMEOUT", &c.Inbox.RequestTimeout)
	num("MAX_PART_DEPTH", &c.Inbox.MaxPartDepth)
	str("SCORING_MODE", &c.Inbox.ScoringMode)

	str("STORE_DRIVER", &c.Store.Driver)
	str("STORE_DSN", &c.Store.DSN)
	str("REDIS_ADDR", &c.Store.RedisAddr)
	str("REDIS_PASSWORD", &c.Store.RedisPassword)
	num("REDIS_DB", &c.Store.RedisDB)
	dur("REDIS_TTL", &c.Store.RedisTTL)

	str("IDENTITY", &c.Session.Identity)
	str("JWT_SECRET", &c.Session.JWTSecret)

	// The provider's own variable name is honoured as well.
	if v, ok := lookup("DEEPSEEK_API_KEY"); ok {
		c.Rewrite.APIKey = v
	}
	str("REWRITE_API_KEY", &c.Rewrite.APIKey)
	str("REWRITE_BASE_URL", &c.Rewrite.BaseURL)
	str("REWRITE_MODEL", &c.Rewrite.Model)
	dur("REWRITE_TIMEOUT", &c.Rewrite.Timeout)

	str("SERVER_ADDR", &c.Server.Addr)
	str("METRICS_ADDR", &c.Server.MetricsAddr)

	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)

	return errors.Join(errs...)
}

// Validate checks ranges and enumerations.
func (c Config) Validate() error {
	var errs []error
	if c.Inbox.PageSize < 1 || c.Inbox.PageSize > gmail.MaxPageSize {
		errs = append(errs, fmt.Errorf("inbox.page_size must be between 1 and %d, got %d", gmail.MaxPageSize, c.Inbox.PageSize))
	}
	if c.Inbox.MaxConcurrency < 1 {
		errs = append(errs, fmt.Errorf("inbox.max_concurrency must be positive, got %d", c.Inbox.MaxConcurrency))
	}
	if c.Inbox.DetailTimeout <= 0 {
		errs = append(errs, errors.New("inbox.detail_timeout must be positive"))
	}
	if c.Inbox.RequestTimeout <= 0 {
		errs = append(errs, errors.New("inbox.request_timeout must be positive"))
	}
	if _, err := gmail.NewScorer(c.Inbox.ScoringMode); err != nil {
		errs = append(errs, fmt.Errorf("inbox.scoring_mode: %w", err))
	}

	switch strings.ToLower(c.Store.Driver) {
	case store.DriverMemory, store.DriverSQLite:
	case store.DriverPostgres:
		if c.Store.DSN == "" {
			errs = append(errs, errors.New("store.dsn is required for postgres"))
		}
	case store.DriverRedis:
		if c.Store.RedisAddr == "" {
			errs = append(errs, errors.New("store.redis_addr is required for redis"))
		}
	default:
		errs = append(errs, fmt.Errorf("store.driver %q is not one of memory, sqlite, postgres, redis", c.Store.Driver))
	}

	if strings.TrimSpace(c.Session.Identity) == "" {
		errs = append(errs, errors.New("session.identity must not be empty"))
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("log.format %q is not text or json", c.Log.Format))
	}
	return errors.Join(errs...)
}

// StoreOptions converts the store section for store.Open.
func (c Config) StoreOptions() store.Options {
	return store.Options{
		Driver:        c.Store.Driver,
		DSN:           c.Store.DSN,
		RedisAddr:     c.Store.RedisAddr,
		RedisPassword: c.Store.RedisPassword,
		RedisDB:       c.Store.RedisDB,
		RedisTTL:      c.Store.RedisTTL,
	}
}

// OAuthSettings converts the google section for google.NewOAuthConfig.
func (c Config) OAuthSettings() google.OAuthSettings {
	return google.OAuthSettings{
		ClientID:     c.Google.ClientID,
		ClientSecret: c.Google.ClientSecret,
		RedirectURL:  c.Google.RedirectURL,
	}
}
