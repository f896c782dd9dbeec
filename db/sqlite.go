package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"slopefs/ml"

	_ "github.com/mattn/go-sqlite3"
)

// PredictionRecord is one audited evaluation.
type PredictionRecord struct {
	ID         int64              `json:"id"`
	RequestID  string             `json:"request_id,omitempty"`
	Features   map[string]float64 `json:"features"`
	FS         float64            `json:"FS"`
	Conclusion ml.Classification  `json:"Conclusion"`
	CreatedAt  time.Time          `json:"created_at"`
}

// Store keeps an append-only log of served predictions.
type Store struct {
	db *sql.DB
}

// Open opens (and if needed creates) the SQLite database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("database path is required")
	}
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}
	database, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	query := `
    CREATE TABLE IF NOT EXISTS predictions (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        request_id TEXT,
        c REAL NOT NULL,
        l REAL NOT NULL,
        gamma REAL NOT NULL,
        h REAL NOT NULL,
        u REAL NOT NULL,
        phi REAL NOT NULL,
        beta REAL NOT NULL,
        fs REAL NOT NULL,
        conclusion VARCHAR(20) NOT NULL,
        created_at DATETIME NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_predictions_created_at ON predictions(created_at);
    `
	if _, err := database.Exec(query); err != nil {
		database.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}
	return &Store{db: database}, nil
}

// Record saves a successful evaluation.
func (s *Store) Record(ctx context.Context, requestID string, res ml.Result) (int64, error) {
	f := res.Features
	result, err := s.db.ExecContext(ctx, `
        INSERT INTO predictions (request_id, c, l, gamma, h, u, phi, beta, fs, conclusion, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		requestID, f[0], f[1], f[2], f[3], f[4], f[5], f[6], res.FS, string(res.Conclusion), time.Now().UTC())
	if err != nil {
		return 0, err
	}
	return result.LastInsertId()
}

// Recent returns up to limit records, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]PredictionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT id, request_id, c, l, gamma, h, u, phi, beta, fs, conclusion, created_at
        FROM predictions
        ORDER BY id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []PredictionRecord
	for rows.Next() {
		var (
			r          PredictionRecord
			requestID  sql.NullString
			fv         ml.FeatureVector
			conclusion string
		)
		err := rows.Scan(&r.ID, &requestID, &fv[0], &fv[1], &fv[2], &fv[3], &fv[4], &fv[5], &fv[6],
			&r.FS, &conclusion, &r.CreatedAt)
		if err != nil {
			return nil, err
		}
		if requestID.Valid {
			r.RequestID = requestID.String
		}
		r.Features = fv.Named()
		r.Conclusion = ml.Classification(conclusion)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Counts returns the number of stored records per classification.
func (s *Store) Counts(ctx context.Context) (map[ml.Classification]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT conclusion, COUNT(*) FROM predictions GROUP BY conclusion`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := make(map[ml.Classification]int)
	for rows.Next() {
		var label string
		var n int
		if err := rows.Scan(&label, &n); err != nil {
			return nil, err
		}
		counts[ml.Classification(label)] = n
	}
	return counts, rows.Err()
}

func (s *Store) Close() error {
	return s.db.Close()
}
