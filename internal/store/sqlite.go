package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	_ "modernc.org/sqlite"

	"github.com/teemow/inboxassist/internal/auth"
)

// SQLiteStore keeps users and tokens in a SQLite database file.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLite opens path. An empty path or ":memory:" opens a private
// in-memory database.
func OpenSQLite(ctx context.Context, path string) (*SQLiteStore, error) {
	trimmed := strings.TrimSpace(path)
	inMemory := false
	if trimmed == "" {
		trimmed = ":memory:"
	}
	if strings.Contains(trimmed, "mode=memory") || trimmed == ":memory:" || trimmed == "file::memory:" {
		inMemory = true
	}
	if !inMemory && !strings.HasPrefix(trimmed, "file:") {
		if err := os.MkdirAll(filepath.Dir(trimmed), 0o700); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite", trimmed)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// One connection keeps an in-memory database alive and serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	if !inMemory {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS users (
            id TEXT PRIMARY KEY,
            created_at INTEGER NOT NULL,
            last_seen INTEGER NOT NULL
        );`,
		`CREATE TABLE IF NOT EXISTS user_tokens (
            user_id TEXT NOT NULL,
            provider TEXT NOT NULL,
            access_token TEXT NOT NULL,
            refresh_token TEXT NOT NULL DEFAULT '',
            token_type TEXT NOT NULL DEFAULT '',
            expiry INTEGER NOT NULL DEFAULT 0,
            updated_at INTEGER NOT NULL,
            PRIMARY KEY (user_id, provider),
            FOREIGN KEY(user_id) REFERENCES users(id) ON DELETE CASCADE
        );`,
	}

	for _, statement := range statements {
		if _, err := s.db.ExecContext(ctx, statement); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

func (s *SQLiteStore) EnsureUser(ctx context.Context, identity string) error {
	if identity == "" {
		return fmt.Errorf("identity cannot be empty")
	}
	now := s.now().Unix()
	query := `INSERT INTO users (id, created_at, last_seen)
        VALUES (?, ?, ?)
        ON CONFLICT(id) DO UPDATE SET last_seen = excluded.last_seen;`
	if _, err := s.db.ExecContext(ctx, query, identity, now, now); err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

// UpsertToken writes the token, creating the user row when missing so a
// token never violates the foreign key.
func (s *SQLiteStore) UpsertToken(ctx context.Context, identity, provider string, tok *oauth2.Token) error {
	if err := validateKey(identity, provider); err != nil {
		return err
	}
	if tok == nil {
		return fmt.Errorf("token cannot be nil")
	}
	now := s.now().Unix()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `INSERT INTO users (id, created_at, last_seen)
        VALUES (?, ?, ?) ON CONFLICT(id) DO NOTHING;`, identity, now, now); err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	_, err = tx.ExecContext(ctx, `INSERT INTO user_tokens
        (user_id, provider, access_token, refresh_token, token_type, expiry, updated_at)
        VALUES (?, ?, ?, ?, ?, ?, ?)
        ON CONFLICT(user_id, provider) DO UPDATE SET
            access_token = excluded.access_token,
            refresh_token = excluded.refresh_token,
            token_type = excluded.token_type,
            expiry = excluded.expiry,
            updated_at = excluded.updated_at;`,
		identity, provider, tok.AccessToken, tok.RefreshToken, tok.TokenType, expiryUnix(tok.Expiry), now)
	if err != nil {
		return fmt.Errorf("upsert token: %w", err)
	}
	return tx.Commit()
}

func (s *SQLiteStore) GetToken(ctx context.Context, identity, provider string) (*oauth2.Token, error) {
	var (
		tok    oauth2.Token
		expiry int64
	)
	err := s.db.QueryRowContext(ctx, `SELECT access_token, refresh_token, token_type, expiry
        FROM user_tokens WHERE user_id = ? AND provider = ?;`, identity, provider).
		Scan(&tok.AccessToken, &tok.RefreshToken, &tok.TokenType, &expiry)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, auth.ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query token: %w", err)
	}
	tok.Expiry = expiryTime(expiry)
	return &tok, nil
}

func (s *SQLiteStore) DeleteToken(ctx context.Context, identity, provider string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_tokens WHERE user_id = ? AND provider = ?;`, identity, provider)
	if err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return auth.ErrTokenNotFound
	}
	return nil
}

func expiryUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}

func expiryTime(unix int64) time.Time {
	if unix == 0 {
		return time.Time{}
	}
	return time.Unix(unix, 0)
}
