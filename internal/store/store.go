// internal/store/store.go
//
// SQLite persistence for the battleship server.
// Responsibilities:
//   - Opening the database with safe defaults (WAL, busy timeout,
//     foreign keys).
//   - Applying the schema idempotently on open.
//   - Player registry: one row per username ever seen by the lobby.
//   - Aggregate win/loss tallies and the leaderboard query.
//
// Deliberately stores no per-game history, only aggregates.

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/dariubs/percent"
	_ "github.com/mattn/go-sqlite3"
)

// ErrNotFound is returned when a player row does not exist.
var ErrNotFound = errors.New("store: player not found")

// Player is one registry row.
type Player struct {
	Username  string
	CreatedAt time.Time
	Wins      int
	Losses    int
}

// LeaderboardRow is one leaderboard entry with a derived win rate.
type LeaderboardRow struct {
	Username string  `json:"username"`
	Wins     int     `json:"wins"`
	Losses   int     `json:"losses"`
	WinRate  float64 `json:"winRate"`
}

// Store is the persistence interface for the player registry.
// Implementations may be backed by SQLite (this file) or memory.
type Store interface {
	// EnsurePlayer inserts a registry row for username if none exists.
	EnsurePlayer(ctx context.Context, username string) error

	// FindPlayer loads one registry row, or ErrNotFound.
	FindPlayer(ctx context.Context, username string) (*Player, error)

	// RecordResult bumps the aggregate tallies for a finished match.
	RecordResult(ctx context.Context, winner, loser string) error

	// Leaderboard fetches the top players. Default limit is 20.
	Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error)

	// Close releases any underlying resources.
	Close() error
}

const schema = `
CREATE TABLE IF NOT EXISTS players (
    username   TEXT PRIMARY KEY,
    created_at TEXT NOT NULL,
    wins       INTEGER NOT NULL DEFAULT 0,
    losses     INTEGER NOT NULL DEFAULT 0
);
`

// DB is the SQLite-backed Store.
type DB struct {
	db *sql.DB
}

// Open opens (and creates if missing) the database at dsn and applies the
// schema. The parent directory is created for relative paths like
// ./data/battleship.db.
func Open(dsn string) (*DB, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite3", dsn+"?_busy_timeout=5000&_journal_mode=WAL")
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL;`); err != nil {
		return nil, fmt.Errorf("set pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

// OpenMemory opens a throwaway in-memory SQLite database, used in tests.
func OpenMemory() (*DB, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, err
	}
	// each pooled connection would otherwise see its own empty database
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &DB{db: db}, nil
}

// Close releases the database handle.
func (s *DB) Close() error { return s.db.Close() }

// EnsurePlayer inserts a registry row for username if none exists.
func (s *DB) EnsurePlayer(ctx context.Context, username string) error {
	now := time.Now().UTC().Format(time.RFC3339)
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO players (username, created_at) VALUES (?, ?)`,
		username, now)
	return err
}

// FindPlayer loads one registry row, or ErrNotFound.
func (s *DB) FindPlayer(ctx context.Context, username string) (*Player, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT username, created_at, wins, losses FROM players WHERE username = ?`, username)
	var p Player
	var created string
	if err := row.Scan(&p.Username, &created, &p.Wins, &p.Losses); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	p.CreatedAt, _ = time.Parse(time.RFC3339, created)
	return &p, nil
}

// RecordResult bumps the aggregate tallies for a finished match.
func (s *DB) RecordResult(ctx context.Context, winner, loser string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `UPDATE players SET wins = wins + 1 WHERE username = ?`, winner); err != nil {
		return fmt.Errorf("record win: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `UPDATE players SET losses = losses + 1 WHERE username = ?`, loser); err != nil {
		return fmt.Errorf("record loss: %w", err)
	}
	return tx.Commit()
}

// Leaderboard fetches the top players ordered by wins, then fewest
// losses, then seniority. Default limit is 20.
func (s *DB) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
        SELECT username, wins, losses
        FROM players
        ORDER BY wins DESC, losses ASC, created_at ASC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]LeaderboardRow, 0, limit)
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.Username, &r.Wins, &r.Losses); err != nil {
			return nil, err
		}
		if total := r.Wins + r.Losses; total > 0 {
			r.WinRate = percent.PercentOf(r.Wins, total)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
