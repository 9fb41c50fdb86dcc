package reports

import (
	"civsim-server/internal/simulation"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var postgresSchema = []string{`
CREATE TABLE IF NOT EXISTS simulation_reports (
	id           TEXT PRIMARY KEY,
	created_at   TIMESTAMPTZ NOT NULL,
	steps        INTEGER NOT NULL,
	failures     INTEGER NOT NULL,
	total_turns  INTEGER NOT NULL,
	wall_ms      BIGINT NOT NULL,
	report       JSONB NOT NULL
)`, `
CREATE TABLE IF NOT EXISTS simulation_civ_results (
	report_id    TEXT NOT NULL REFERENCES simulation_reports(id) ON DELETE CASCADE,
	civ          TEXT NOT NULL,
	victory_type TEXT NOT NULL,
	wins         INTEGER NOT NULL,
	win_turns    INTEGER NOT NULL,
	PRIMARY KEY (report_id, civ, victory_type)
)`,
}

// PostgresSink экспортирует сводки в Postgres (включается через DATABASE_URL).
type PostgresSink struct {
	Pool *pgxpool.Pool
}

func NewPostgresSink(ctx context.Context, databaseURL string) (*PostgresSink, error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	for _, stmt := range postgresSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("create schema: %w", err)
		}
	}
	return &PostgresSink{Pool: pool}, nil
}

func (s *PostgresSink) Name() string { return "postgres" }

func (s *PostgresSink) Close() {
	s.Pool.Close()
}

// Save пишет сводку и разбивку побед одной транзакцией.
func (s *PostgresSink) Save(ctx context.Context, id string, summary simulation.Summary) error {
	raw, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	tx, err := s.Pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx,
		`INSERT INTO simulation_reports (id, created_at, steps, failures, total_turns, wall_ms, report)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 ON CONFLICT (id) DO UPDATE SET
		   steps = EXCLUDED.steps, failures = EXCLUDED.failures,
		   total_turns = EXCLUDED.total_turns, wall_ms = EXCLUDED.wall_ms, report = EXCLUDED.report`,
		id, time.Now().UTC(), summary.Steps, summary.Failures, summary.TotalTurns,
		summary.WallClock.Milliseconds(), raw)
	if err != nil {
		return fmt.Errorf("insert report %s: %w", id, err)
	}

	if _, err := tx.Exec(ctx, `DELETE FROM simulation_civ_results WHERE report_id = $1`, id); err != nil {
		return err
	}

	batch := &pgx.Batch{}
	for civ, byVictory := range summary.WinsByVictory {
		for victory, wins := range byVictory {
			batch.Queue(
				`INSERT INTO simulation_civ_results (report_id, civ, victory_type, wins, win_turns)
				 VALUES ($1, $2, $3, $4, $5)`,
				id, civ, string(victory), wins, summary.WinTurnsByVictory[civ][victory])
		}
	}
	if batch.Len() > 0 {
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("insert civ results %s: %w", id, err)
		}
	}

	return tx.Commit(ctx)
}
