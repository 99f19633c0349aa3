package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	_ "modernc.org/sqlite"
)

// SQLiteSink stores records of one run in a SQLite database. Several runs
// can share a database; rows are keyed by run id.
type SQLiteSink struct {
	path  string
	runID string

	mu sync.RWMutex
	db *sql.DB
}

// NewSQLiteSink returns a sink for runID. Init opens the database.
func NewSQLiteSink(path, runID string) *SQLiteSink {
	return &SQLiteSink{path: path, runID: runID}
}

// Init opens the database and creates the tables if needed.
func (s *SQLiteSink) Init(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("sqlite path is required")
	}
	if s.runID == "" {
		return errors.New("run id is required")
	}
	if s.db != nil {
		return nil
	}

	db, err := sql.Open("sqlite", s.path)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return err
	}
	if err := createTables(ctx, db); err != nil {
		_ = db.Close()
		return err
	}

	s.db = db
	return nil
}

func createTables(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS generations (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			offspring INTEGER NOT NULL,
			fundamental REAL NOT NULL,
			max_fitness REAL NOT NULL,
			average_fitness REAL NOT NULL,
			std REAL NOT NULL,
			PRIMARY KEY (run_id, generation)
		)`,
		`CREATE TABLE IF NOT EXISTS iterations (
			run_id TEXT NOT NULL,
			iteration INTEGER NOT NULL,
			fitness REAL NOT NULL,
			fundamental REAL NOT NULL,
			PRIMARY KEY (run_id, iteration)
		)`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
	}
	return nil
}

func (s *SQLiteSink) RecordGeneration(ctx context.Context, r GenerationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO generations (run_id, generation, offspring, fundamental, max_fitness, average_fitness, std)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(run_id, generation) DO UPDATE SET
			offspring = excluded.offspring,
			fundamental = excluded.fundamental,
			max_fitness = excluded.max_fitness,
			average_fitness = excluded.average_fitness,
			std = excluded.std
	`, s.runID, r.Generation, r.Offspring, r.Fundamental, r.MaxFitness, r.MeanFitness, r.StdDev)
	return err
}

func (s *SQLiteSink) RecordIteration(ctx context.Context, r IterationRecord) error {
	db, err := s.getDB()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `
		INSERT INTO iterations (run_id, iteration, fitness, fundamental)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(run_id, iteration) DO UPDATE SET
			fitness = excluded.fitness,
			fundamental = excluded.fundamental
	`, s.runID, r.Iteration, r.Fitness, r.Fundamental)
	return err
}

// Generations returns the stored generation records of the run in order.
func (s *SQLiteSink) Generations(ctx context.Context) ([]GenerationRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT generation, offspring, fundamental, max_fitness, average_fitness, std
		FROM generations WHERE run_id = ? ORDER BY generation
	`, s.runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []GenerationRecord
	for rows.Next() {
		var r GenerationRecord
		if err := rows.Scan(&r.Generation, &r.Offspring, &r.Fundamental, &r.MaxFitness, &r.MeanFitness, &r.StdDev); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Iterations returns the stored iteration records of the run in order.
func (s *SQLiteSink) Iterations(ctx context.Context) ([]IterationRecord, error) {
	db, err := s.getDB()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx, `
		SELECT iteration, fitness, fundamental
		FROM iterations WHERE run_id = ? ORDER BY iteration
	`, s.runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []IterationRecord
	for rows.Next() {
		var r IterationRecord
		if err := rows.Scan(&r.Iteration, &r.Fitness, &r.Fundamental); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLiteSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *SQLiteSink) getDB() (*sql.DB, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.db == nil {
		return nil, errors.New("sqlite sink is not initialized")
	}
	return s.db, nil
}
