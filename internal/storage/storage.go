// Package storage persists the history of notified opportunities in SQLite.
// The monitor consults it before alerting so the same opportunity, detected
// across consecutive scan cycles, is only announced once within the
// retention window.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/arbiterhq/arbiter/internal/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS notified_opportunities (
	id TEXT PRIMARY KEY,
	key TEXT NOT NULL,
	type TEXT NOT NULL,
	market_ids TEXT NOT NULL,
	profit_estimate REAL NOT NULL,
	description TEXT NOT NULL,
	detected_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_notified_key ON notified_opportunities (key);
CREATE INDEX IF NOT EXISTS idx_notified_detected_at ON notified_opportunities (detected_at);
`

// Store records which opportunities have already been announced.
type Store struct {
	db *sql.DB
}

// Open creates the database file (and its parent directory) if needed and
// ensures the schema exists.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Seen reports whether an opportunity with this dedup key has already been
// recorded.
func (s *Store) Seen(ctx context.Context, key string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM notified_opportunities WHERE key = ?`, key).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("failed to query opportunity history: %w", err)
	}
	return n > 0, nil
}

// Record stores an announced opportunity. Recording the same opportunity ID
// twice is a no-op.
func (s *Store) Record(ctx context.Context, opp models.ArbitrageOpportunity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO notified_opportunities
			(id, key, type, market_ids, profit_estimate, description, detected_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		opp.ID, opp.Key(), string(opp.Type), strings.Join(opp.MarketIDs, ","),
		opp.ProfitEstimate, opp.Description, opp.DetectedAt.UTC())
	if err != nil {
		return fmt.Errorf("failed to record opportunity: %w", err)
	}
	return nil
}

// Prune deletes history entries detected before the cutoff, allowing an
// opportunity that reappears after the retention window to be announced
// again. It returns the number of rows removed.
func (s *Store) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notified_opportunities WHERE detected_at < ?`, olderThan.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune opportunity history: %w", err)
	}
	return res.RowsAffected()
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
