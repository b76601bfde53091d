package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ludo-technologies/asmcluster/domain"

	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS distances (
	item_a   TEXT NOT NULL,
	item_b   TEXT NOT NULL,
	distance REAL NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_distances_pair ON distances(item_a, item_b);
`

// SQLiteStore implements domain.ResultStore on a single SQLite file
type SQLiteStore struct {
	path string
	db   *sql.DB
}

// Open opens or creates the store at path. Existing records are kept, which
// is what makes resuming a run possible.
func Open(ctx context.Context, path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, domain.NewStorageError("create store dir", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, domain.NewStorageError("open sqlite", err)
	}
	// One connection: writes are serialized by the caller and reads must see them
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, domain.NewStorageError(fmt.Sprintf("open store %s", path), err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, domain.NewStorageError("create distances schema", err)
	}
	return &SQLiteStore{path: path, db: db}, nil
}

// Path returns the database file location
func (s *SQLiteStore) Path() string {
	return s.path
}

// AppendBatch inserts records in one transaction. Either every record of the
// batch is durable after it returns, or none is.
func (s *SQLiteStore) AppendBatch(ctx context.Context, records []domain.DistanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin batch tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT OR IGNORE INTO distances (item_a, item_b, distance) VALUES (?, ?, ?)")
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx, rec.ItemA, rec.ItemB, rec.Distance); err != nil {
			return fmt.Errorf("insert %s/%s: %w", rec.ItemA, rec.ItemB, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit batch tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Lookup(ctx context.Context, a, b string) (float64, bool, error) {
	var d float64
	err := s.db.QueryRowContext(ctx,
		"SELECT distance FROM distances WHERE item_a = ? AND item_b = ?", a, b).Scan(&d)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return d, true, nil
}

func (s *SQLiteStore) Scan(ctx context.Context, fn func(domain.DistanceRecord) error) error {
	rows, err := s.db.QueryContext(ctx,
		"SELECT item_a, item_b, distance FROM distances ORDER BY rowid")
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var rec domain.DistanceRecord
		if err := rows.Scan(&rec.ItemA, &rec.ItemB, &rec.Distance); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM distances").Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
