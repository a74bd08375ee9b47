package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/agentrelay/relay/internal/blob/sqlite/migrations"
	"github.com/agentrelay/relay/internal/log"
	"github.com/agentrelay/relay/internal/model"
)

// StoreConfig is the configuration for the SQLite blob store.
type StoreConfig struct {
	DBPath string
	Logger log.Logger
}

func (c *StoreConfig) defaults() error {
	if c.DBPath == "" {
		return fmt.Errorf("db path is required")
	}
	if c.Logger == nil {
		c.Logger = log.Noop
	}
	c.Logger = c.Logger.WithValues(log.Kv{"svc": "blob.SQLite"})
	return nil
}

// Store is a SQLite implementation of blob.Store for local state storage.
// The version token is the blob's revision counter.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// NewStore creates a new SQLite blob store.
func NewStore(ctx context.Context, cfg StoreConfig) (*Store, error) {
	if err := cfg.defaults(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	dir := filepath.Dir(cfg.DBPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("could not create db directory: %w", err)
	}

	dsn := fmt.Sprintf("%s?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)", cfg.DBPath)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("could not open database: %w", err)
	}

	migrator, err := migrations.NewMigrator(db, cfg.Logger)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("could not create migrator: %w", err)
	}
	if err := migrator.Up(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("could not run migrations: %w", err)
	}

	cfg.Logger.Debugf("SQLite blob store initialized at %s", cfg.DBPath)

	return &Store{db: db, logger: cfg.Logger}, nil
}

// Close closes the database connection.
func (s *Store) Close() error { return s.db.Close() }

// Read returns the blob content and its revision token.
func (s *Store) Read(ctx context.Context, path string) ([]byte, string, error) {
	var content []byte
	var revision int64

	err := s.db.QueryRowContext(ctx, `SELECT content, revision FROM blobs WHERE path = ?`, path).
		Scan(&content, &revision)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", fmt.Errorf("blob %s: %w", path, model.ErrNotFound)
		}
		return nil, "", fmt.Errorf("could not query blob: %w", err)
	}

	return content, strconv.FormatInt(revision, 10), nil
}

// Write stores the blob conditionally on the expected revision token.
func (s *Store) Write(ctx context.Context, path string, content []byte, expectedToken string) (string, error) {
	now := time.Now().UTC().Unix()

	if expectedToken == "" {
		_, err := s.db.ExecContext(ctx,
			`INSERT INTO blobs (path, content, revision, updated_at) VALUES (?, ?, 1, ?)`,
			path, content, now)
		if err != nil {
			if isUniqueViolation(err) {
				return "", fmt.Errorf("blob %s: %w", path, model.ErrAlreadyExists)
			}
			return "", fmt.Errorf("could not insert blob: %w", err)
		}
		s.logger.Debugf("Created blob %s (%d bytes)", path, len(content))
		return "1", nil
	}

	expected, err := strconv.ParseInt(expectedToken, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid version token %q: %w", expectedToken, model.ErrNotValid)
	}

	// Conditional update, the revision check rejects writers that read a
	// stale version of the blob.
	result, err := s.db.ExecContext(ctx,
		`UPDATE blobs SET content = ?, revision = revision + 1, updated_at = ? WHERE path = ? AND revision = ?`,
		content, now, path, expected)
	if err != nil {
		return "", fmt.Errorf("could not update blob: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("could not get rows affected: %w", err)
	}
	if rows == 0 {
		// Distinguish a missing blob from a stale token.
		var exists int
		err := s.db.QueryRowContext(ctx, `SELECT 1 FROM blobs WHERE path = ?`, path).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("blob %s: %w", path, model.ErrNotFound)
		}
		return "", fmt.Errorf("blob %s has been modified concurrently: %w", path, model.ErrConflict)
	}

	s.logger.Debugf("Updated blob %s (%d bytes)", path, len(content))

	return strconv.FormatInt(expected+1, 10), nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
