package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/teemow/inboxassist/internal/auth"
	"github.com/teemow/inboxassist/internal/logging"
)

// Driver names accepted by Open.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Store is a token store with user bookkeeping.
type Store interface {
	auth.TokenStore
	auth.UserStore
	Ping(ctx context.Context) error
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Driver string
	// DSN is the SQLite path or the PostgreSQL connection string.
	DSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	// RedisTTL bounds how long a token stays cached. Zero keeps it forever.
	RedisTTL time.Duration

	Logger *slog.Logger
}

// Open creates the backend named by opts.Driver and prepares its schema.
func Open(ctx context.Context, opts Options) (Store, error) {
	logger := logging.OrDefault(opts.Logger)
	driver := strings.ToLower(strings.TrimSpace(opts.Driver))
	if driver == "" {
		driver = DriverMemory
	}
	logger.Info("opening token store", "driver", driver)

	switch driver {
	case DriverMemory:
		return NewMemoryStore(), nil
	case DriverSQLite:
		s, err := OpenSQLite(ctx, opts.DSN)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	case DriverPostgres:
		s, err := OpenPostgres(ctx, opts.DSN)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	case DriverRedis:
		s := NewRedisStore(RedisOptions{
			Addr:     opts.RedisAddr,
			Password: opts.RedisPassword,
			DB:       opts.RedisDB,
			TTL:      opts.RedisTTL,
		})
		if err := s.Ping(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}

func validateKey(identity, provider string) error {
	if identity == "" {
		return fmt.Errorf("identity cannot be empty")
	}
	if provider == "" {
		return fmt.Errorf("provider cannot be empty")
	}
	return nil
}
