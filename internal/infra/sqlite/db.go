// Package sqlite keeps a local journal of committed resolution cycles.
// Uses WAL mode so `netcrawl history` can read while the resolver writes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/netcrawl/netcrawl/internal/domain"
)

// DB wraps a SQLite connection with WAL mode and migrations.
type DB struct {
	db *sql.DB
}

// Open creates or opens the SQLite database at dir/journal.db.
// Enables WAL mode and a 5-second busy timeout.
func Open(dir string) (*DB, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}

	dbPath := filepath.Join(dir, "journal.db")
	dsn := dbPath + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	d := &DB{db: db}
	if err := d.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return d, nil
}

// Close cleanly shuts down the database.
func (d *DB) Close() error {
	return d.db.Close()
}

// Ping checks database connectivity.
func (d *DB) Ping() error {
	return d.db.Ping()
}

// migrate runs idempotent schema migrations.
func (d *DB) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS cycles (
			id                  TEXT PRIMARY KEY,
			token               INTEGER NOT NULL,
			addresses           INTEGER NOT NULL,
			geoip_resolved      INTEGER NOT NULL,
			hostname_candidates INTEGER NOT NULL,
			hostnames_committed INTEGER NOT NULL,
			hostnames_resolved  INTEGER NOT NULL,
			abandoned           INTEGER NOT NULL,
			elapsed_ms          INTEGER NOT NULL,
			finished_at         INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_finished ON cycles(finished_at)`,
		`CREATE INDEX IF NOT EXISTS idx_cycles_token ON cycles(token)`,
	}

	for _, m := range migrations {
		if _, err := d.db.Exec(m); err != nil {
			return fmt.Errorf("exec migration: %w", err)
		}
	}
	return nil
}

// RecordCycle appends one committed cycle.
func (d *DB) RecordCycle(ctx context.Context, s domain.CycleSummary) error {
	_, err := d.db.ExecContext(ctx, `
		INSERT INTO cycles (id, token, addresses, geoip_resolved, hostname_candidates,
			hostnames_committed, hostnames_resolved, abandoned, elapsed_ms, finished_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.Token, s.Addresses, s.GeoIPResolved, s.HostnameCandidates,
		s.HostnamesCommitted, s.HostnamesResolved, s.Abandoned,
		s.Elapsed.Milliseconds(), s.FinishedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("record cycle %s: %w", s.ID, err)
	}
	return nil
}

// RecentCycles returns up to limit cycles, newest first.
func (d *DB) RecentCycles(ctx context.Context, limit int) ([]domain.CycleSummary, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT id, token, addresses, geoip_resolved, hostname_candidates,
			hostnames_committed, hostnames_resolved, abandoned, elapsed_ms, finished_at
		FROM cycles ORDER BY finished_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query cycles: %w", err)
	}
	defer rows.Close()

	var out []domain.CycleSummary
	for rows.Next() {
		var (
			s         domain.CycleSummary
			elapsedMs int64
			finished  int64
		)
		if err := rows.Scan(&s.ID, &s.Token, &s.Addresses, &s.GeoIPResolved, &s.HostnameCandidates,
			&s.HostnamesCommitted, &s.HostnamesResolved, &s.Abandoned, &elapsedMs, &finished); err != nil {
			return nil, fmt.Errorf("scan cycle: %w", err)
		}
		s.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		s.FinishedAt = time.Unix(finished, 0)
		out = append(out, s)
	}
	return out, rows.Err()
}
