package results

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// Game is one finished (or abandoned) game played by one doctrine.
type Game struct {
	ID           string
	Doctrine     string
	Player       int
	StartedAt    time.Time
	FinishedAt   time.Time
	Turns        int
	Halite       int
	Rank         int // 0 when the engine never reported a result
	ShipsSpawned int
	Dropoffs     int
	Relocations  int
	StuckPeak    int // most ships simultaneously stuck on any turn
}

// DoctrineSummary aggregates every recorded game of one doctrine.
type DoctrineSummary struct {
	Doctrine  string
	Games     int
	Wins      int
	AvgHalite float64
	AvgShips  float64
	AvgTurns  float64
}

// Store is the match-history index used to compare the bots.
type Store struct {
	db *sql.DB
}

func Open(path string) (*Store, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// Several games may finish at once; one writer keeps sqlite happy.
	db.SetMaxOpenConns(1)

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=5000;",
		`CREATE TABLE IF NOT EXISTS games (
			id            TEXT PRIMARY KEY,
			doctrine      TEXT NOT NULL,
			player        INTEGER NOT NULL,
			started_at    TEXT NOT NULL,
			finished_at   TEXT NOT NULL,
			turns         INTEGER NOT NULL,
			halite        INTEGER NOT NULL,
			rank          INTEGER NOT NULL,
			ships_spawned INTEGER NOT NULL,
			dropoffs      INTEGER NOT NULL,
			relocations   INTEGER NOT NULL,
			stuck_peak    INTEGER NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS games_doctrine ON games(doctrine);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return fmt.Errorf("init schema: %w", err)
		}
	}
	return nil
}

func (s *Store) Close() error { return s.db.Close() }

// Record inserts or replaces the row for g.ID.
func (s *Store) Record(ctx context.Context, g Game) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO games (id, doctrine, player, started_at, finished_at, turns, halite, rank,
		                   ships_spawned, dropoffs, relocations, stuck_peak)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			doctrine = excluded.doctrine,
			player = excluded.player,
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			turns = excluded.turns,
			halite = excluded.halite,
			rank = excluded.rank,
			ships_spawned = excluded.ships_spawned,
			dropoffs = excluded.dropoffs,
			relocations = excluded.relocations,
			stuck_peak = excluded.stuck_peak`,
		g.ID, g.Doctrine, g.Player,
		g.StartedAt.UTC().Format(time.RFC3339), g.FinishedAt.UTC().Format(time.RFC3339),
		g.Turns, g.Halite, g.Rank, g.ShipsSpawned, g.Dropoffs, g.Relocations, g.StuckPeak,
	)
	if err != nil {
		return fmt.Errorf("record game %s: %w", g.ID, err)
	}
	return nil
}

// Summary returns per-doctrine aggregates ordered by doctrine name.
func (s *Store) Summary(ctx context.Context) ([]DoctrineSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT doctrine,
		       COUNT(*),
		       SUM(CASE WHEN rank = 1 THEN 1 ELSE 0 END),
		       AVG(halite),
		       AVG(ships_spawned),
		       AVG(turns)
		FROM games
		GROUP BY doctrine
		ORDER BY doctrine`)
	if err != nil {
		return nil, fmt.Errorf("query summary: %w", err)
	}
	defer rows.Close()

	var out []DoctrineSummary
	for rows.Next() {
		var d DoctrineSummary
		if err := rows.Scan(&d.Doctrine, &d.Games, &d.Wins, &d.AvgHalite, &d.AvgShips, &d.AvgTurns); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
