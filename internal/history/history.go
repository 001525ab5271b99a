package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"

	"github.com/schemadrift/schemadrift/internal/models"
)

// Store keeps a local record of past crawls and the diffs they produced
type Store struct {
	db     *sqlx.DB
	logger *logrus.Logger
}

// CrawlRecord is one persisted crawl summary
type CrawlRecord struct {
	ID         int64     `db:"id"`
	StartedAt  time.Time `db:"started_at"`
	DurationMS int64     `db:"duration_ms"`
	Added      int       `db:"added"`
	Modified   int       `db:"modified"`
	Removed    int       `db:"removed"`
	Unchanged  int       `db:"unchanged"`
}

// DiffRecord is one persisted schema diff
type DiffRecord struct {
	ID          int64     `db:"id"`
	CrawlID     int64     `db:"crawl_id"`
	NodeID      string    `db:"node_id"`
	ChangeType  string    `db:"change_type"`
	Breaking    bool      `db:"breaking"`
	ChangesJSON string    `db:"changes_json"`
	CreatedAt   time.Time `db:"created_at"`
}

// Open creates or opens the history database at path
func Open(path string, logger *logrus.Logger) (*Store, error) {
	if logger == nil {
		logger = logrus.New()
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create history directory: %w", err)
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}

	db.Exec("PRAGMA journal_mode = WAL")

	store := &Store{db: db, logger: logger}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS crawls (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		started_at DATETIME NOT NULL,
		duration_ms INTEGER NOT NULL,
		added INTEGER NOT NULL,
		modified INTEGER NOT NULL,
		removed INTEGER NOT NULL,
		unchanged INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS diffs (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		crawl_id INTEGER,
		node_id TEXT NOT NULL,
		change_type TEXT NOT NULL,
		breaking BOOLEAN NOT NULL,
		changes_json TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		FOREIGN KEY (crawl_id) REFERENCES crawls(id)
	);

	CREATE INDEX IF NOT EXISTS idx_diffs_node ON diffs(node_id);
	`
	_, err := s.db.Exec(schema)
	return err
}

// RecordCrawl persists one crawl summary and returns its row id
func (s *Store) RecordCrawl(ctx context.Context, startedAt time.Time, result *models.CrawlResult) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO crawls (started_at, duration_ms, added, modified, removed, unchanged)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		startedAt.UTC(), result.Duration.Milliseconds(),
		result.Added, result.Modified, result.Removed, result.Unchanged)
	if err != nil {
		return 0, fmt.Errorf("record crawl: %w", err)
	}
	return res.LastInsertId()
}

// RecordDiffs persists a batch of diffs, optionally linked to a crawl
func (s *Store) RecordDiffs(ctx context.Context, crawlID int64, diffs []*models.SchemaDiff) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin diff batch: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	for _, diff := range diffs {
		changes, err := json.Marshal(diff.Changes)
		if err != nil {
			return fmt.Errorf("marshal changes for %s: %w", diff.NodeID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO diffs (crawl_id, node_id, change_type, breaking, changes_json, created_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			crawlID, diff.NodeID, string(diff.ChangeType), diff.Breaking, string(changes), now); err != nil {
			return fmt.Errorf("record diff for %s: %w", diff.NodeID, err)
		}
	}
	return tx.Commit()
}

// LatestCrawl returns the most recent crawl record, or nil when the
// history is empty
func (s *Store) LatestCrawl(ctx context.Context) (*CrawlRecord, error) {
	var record CrawlRecord
	err := s.db.GetContext(ctx, &record,
		`SELECT * FROM crawls ORDER BY id DESC LIMIT 1`)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load latest crawl: %w", err)
	}
	return &record, nil
}

// RecentDiffs returns the most recent diffs, newest first
func (s *Store) RecentDiffs(ctx context.Context, limit int) ([]DiffRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var records []DiffRecord
	err := s.db.SelectContext(ctx, &records,
		`SELECT * FROM diffs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("load recent diffs: %w", err)
	}
	return records, nil
}

// BreakingCount returns how many recorded diffs were breaking
func (s *Store) BreakingCount(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM diffs WHERE breaking = 1`); err != nil {
		return 0, fmt.Errorf("count breaking diffs: %w", err)
	}
	return count, nil
}

// Close closes the underlying database
func (s *Store) Close() error {
	return s.db.Close()
}
