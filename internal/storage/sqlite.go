package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"strings"
	"time"
)

//go:embed schema.sql
var embeddedSchema embed.FS

type SQLiteSlot struct {
	db  *sql.DB
	now func() time.Time
}

func NewSQLite(db *sql.DB) *SQLiteSlot {
	return &SQLiteSlot{db: db, now: time.Now}
}

func (s *SQLiteSlot) InitSchema() error {
	b, err := embeddedSchema.ReadFile("schema.sql")
	if err != nil {
		return err
	}

	schema := strings.TrimSpace(string(b))
	_, err = s.db.Exec(schema)
	return err
}

func (s *SQLiteSlot) Get(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM slots WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		return "", err
	}
	return value, nil
}

func (s *SQLiteSlot) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO slots(key, value, updated_at)
VALUES (?, ?, ?)
ON CONFLICT(key) DO UPDATE SET
    value = excluded.value,
    updated_at = excluded.updated_at
`, key, value, s.now().UTC())
	return err
}

// UpdatedAt reports when key was last written.
func (s *SQLiteSlot) UpdatedAt(ctx context.Context, key string) (time.Time, error) {
	var t time.Time
	err := s.db.QueryRowContext(ctx, `SELECT updated_at FROM slots WHERE key = ?`, key).Scan(&t)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, ErrNotFound
		}
		return time.Time{}, err
	}
	return t, nil
}
