// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package history records acquisition cycles in a local SQLite file.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/relabs-tech/weather_station/internal/env"
)

// Row is one recorded reading.
type Row struct {
	Time        time.Time `json:"time"`
	Pressure    int64     `json:"pressure"`
	Temperature float64   `json:"temperature"`
	Altitude    float64   `json:"altitude"`
}

// Store is a SQLite-backed reading history.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path.
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open history database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping history database: %w", err)
	}

	s := &Store{db: db, now: time.Now}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate history database: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS readings (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			recorded_at INTEGER NOT NULL,
			pressure INTEGER NOT NULL,
			temperature REAL NOT NULL,
			altitude REAL NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_readings_recorded_at ON readings(recorded_at);
	`)
	return err
}

// Record stores r with timestamp at.
func (s *Store) Record(ctx context.Context, r env.Reading, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO readings (recorded_at, pressure, temperature, altitude) VALUES (?, ?, ?, ?)`,
		at.UnixMilli(), r.Pressure, r.Temperature, r.Altitude,
	)
	if err != nil {
		return fmt.Errorf("insert reading: %w", err)
	}
	return nil
}

// Observe records r at the current time. It satisfies
// acquisition.Observer.
func (s *Store) Observe(ctx context.Context, r env.Reading) error {
	return s.Record(ctx, r, s.now())
}

// Recent returns up to limit rows, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Row, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT recorded_at, pressure, temperature, altitude FROM readings ORDER BY recorded_at DESC, id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query readings: %w", err)
	}
	defer rows.Close()

	out := make([]Row, 0, limit)
	for rows.Next() {
		var (
			ms  int64
			row Row
		)
		if err := rows.Scan(&ms, &row.Pressure, &row.Temperature, &row.Altitude); err != nil {
			return nil, fmt.Errorf("scan reading: %w", err)
		}
		row.Time = time.UnixMilli(ms).UTC()
		out = append(out, row)
	}
	return out, rows.Err()
}

// Prune deletes rows older than maxAge.
func (s *Store) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := s.now().Add(-maxAge).UnixMilli()
	res, err := s.db.ExecContext(ctx, `DELETE FROM readings WHERE recorded_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune readings: %w", err)
	}
	return res.RowsAffected()
}

// RunPruner deletes rows older than maxAge now and then every interval
// until ctx is cancelled.
func (s *Store) RunPruner(ctx context.Context, maxAge, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		if n, err := s.Prune(ctx, maxAge); err != nil {
			log.Printf("history: %v", err)
		} else if n > 0 {
			log.Printf("history: pruned %d rows older than %s", n, maxAge)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
