package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-pkgz/repeater/v2"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite" // pure Go SQLite driver

	"github.com/onlhub/boardscope/pkg/domain"
)

//go:embed schema.sql
var schema string

// ErrNotFound is returned when no snapshot exists for a feed
var ErrNotFound = errors.New("snapshot not found")

// SnapshotStore persists the last successful aggregation result per feed.
// It survives restarts and seeds the in-memory cache on startup.
type SnapshotStore struct {
	db *sqlx.DB
}

// Config represents database configuration
type Config struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// New creates a snapshot store backed by SQLite
func New(cfg Config) (*SnapshotStore, error) {
	if cfg.DSN == "" {
		cfg.DSN = "file:boardscope.db?cache=shared&mode=rwc"
	}

	db, err := sqlx.Open("sqlite", cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// configure connection pool
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	// optimize SQLite settings
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA temp_store = MEMORY",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return nil, fmt.Errorf("execute %s: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return &SnapshotStore{db: db}, nil
}

// Close closes the database connection
func (s *SnapshotStore) Close() error {
	return s.db.Close()
}

// Ping verifies the database connection
func (s *SnapshotStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Save upserts the snapshot for the result's feed key
func (s *SnapshotStore) Save(ctx context.Context, result domain.AggregationResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal snapshot for %s: %w", result.FeedKey, err)
	}

	retrier := repeater.NewBackoff(5, 50*time.Millisecond, repeater.WithMaxDelay(2*time.Second))

	return retrier.Do(ctx, func() error {
		query := `
			INSERT INTO snapshots (feed_key, generated_at, payload)
			VALUES (?, ?, ?)
			ON CONFLICT(feed_key) DO UPDATE SET
			    generated_at = excluded.generated_at,
			    payload = excluded.payload
		`
		_, err := s.db.ExecContext(ctx, query, result.FeedKey, result.GeneratedAt, string(payload))
		if err != nil {
			if isLockError(err) {
				return err // retry
			}
			return &criticalError{err: fmt.Errorf("save snapshot for %s: %w", result.FeedKey, err)}
		}
		return nil
	})
}

// Load returns the stored snapshot for the feed, or ErrNotFound
func (s *SnapshotStore) Load(ctx context.Context, feedKey string) (domain.AggregationResult, error) {
	var payload string
	err := s.db.GetContext(ctx, &payload, "SELECT payload FROM snapshots WHERE feed_key = ?", feedKey)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.AggregationResult{}, fmt.Errorf("%w: %q", ErrNotFound, feedKey)
	}
	if err != nil {
		return domain.AggregationResult{}, fmt.Errorf("load snapshot for %s: %w", feedKey, err)
	}

	var result domain.AggregationResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return domain.AggregationResult{}, fmt.Errorf("unmarshal snapshot for %s: %w", feedKey, err)
	}
	return result, nil
}

// LoadAll returns every stored snapshot, most recently generated first
func (s *SnapshotStore) LoadAll(ctx context.Context) ([]domain.AggregationResult, error) {
	var payloads []string
	err := s.db.SelectContext(ctx, &payloads, "SELECT payload FROM snapshots ORDER BY generated_at DESC")
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	results := make([]domain.AggregationResult, 0, len(payloads))
	for _, payload := range payloads {
		var result domain.AggregationResult
		if err := json.Unmarshal([]byte(payload), &result); err != nil {
			return nil, fmt.Errorf("unmarshal snapshot: %w", err)
		}
		results = append(results, result)
	}
	return results, nil
}

// criticalError wraps an error to signal repeater to stop retrying
type criticalError struct {
	err error
}

func (e *criticalError) Error() string {
	return e.err.Error()
}

// isLockError checks if an error is a SQLite lock/busy error
func isLockError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "SQLITE_BUSY") ||
		strings.Contains(errStr, "database is locked") ||
		strings.Contains(errStr, "database table is locked")
}
