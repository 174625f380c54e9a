// Package trialdb records repeated-trial convergence batches in sqlite so
// filter settings can be compared across invocations.
package trialdb

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Trial is one persisted filter run.
type Trial struct {
	TrialID         string  `json:"trial_id"`
	BatchID         string  `json:"batch_id"`
	Scenario        string  `json:"scenario"`
	Particles       int     `json:"particles"`
	Seed            uint64  `json:"seed"`
	EstX            float64 `json:"est_x"`
	EstY            float64 `json:"est_y"`
	EstOrientation  float64 `json:"est_orientation"`
	TrueX           float64 `json:"true_x"`
	TrueY           float64 `json:"true_y"`
	TrueOrientation float64 `json:"true_orientation"`
	Converged       bool    `json:"converged"`
	CreatedAt       int64   `json:"created_at"`
}

type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the sqlite file at path. ":memory:" works
// for throwaway stores.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open trial db: %w", err)
	}
	// a single connection keeps ":memory:" databases alive and serializes writers
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS trial_runs (
			trial_id          TEXT PRIMARY KEY,
			batch_id          TEXT NOT NULL,
			scenario          TEXT NOT NULL,
			particles         INTEGER NOT NULL,
			seed              TEXT NOT NULL,
			est_x             REAL,
			est_y             REAL,
			est_orientation   REAL,
			true_x            REAL,
			true_y            REAL,
			true_orientation  REAL,
			converged         INTEGER NOT NULL,
			created_at        INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_trial_runs_batch ON trial_runs(batch_id);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create trial_runs: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// NewBatchID returns an identifier for a group of trials.
func NewBatchID() string {
	return uuid.New().String()
}

// Insert persists a trial. Empty TrialID and zero CreatedAt are filled in.
func (s *Store) Insert(t *Trial) error {
	if t.BatchID == "" {
		return fmt.Errorf("trial batch id is required")
	}
	if t.TrialID == "" {
		t.TrialID = uuid.New().String()
	}
	if t.CreatedAt == 0 {
		t.CreatedAt = time.Now().UnixNano()
	}

	// seeds use the full uint64 range, which sqlite integers cannot hold
	_, err := s.db.Exec(`
		INSERT INTO trial_runs (
			trial_id, batch_id, scenario, particles, seed,
			est_x, est_y, est_orientation,
			true_x, true_y, true_orientation,
			converged, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TrialID, t.BatchID, t.Scenario, t.Particles, fmt.Sprint(t.Seed),
		t.EstX, t.EstY, t.EstOrientation,
		t.TrueX, t.TrueY, t.TrueOrientation,
		t.Converged, t.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert trial %s: %w", t.TrialID, err)
	}
	return nil
}

// ListByBatch returns a batch's trials in insertion order.
func (s *Store) ListByBatch(batchID string) ([]*Trial, error) {
	rows, err := s.db.Query(`
		SELECT trial_id, batch_id, scenario, particles, seed,
		       est_x, est_y, est_orientation,
		       true_x, true_y, true_orientation,
		       converged, created_at
		FROM trial_runs
		WHERE batch_id = ?
		ORDER BY created_at ASC, rowid ASC`, batchID)
	if err != nil {
		return nil, fmt.Errorf("query trials: %w", err)
	}
	defer rows.Close()

	var trials []*Trial
	for rows.Next() {
		var t Trial
		var seed string
		if err := rows.Scan(
			&t.TrialID, &t.BatchID, &t.Scenario, &t.Particles, &seed,
			&t.EstX, &t.EstY, &t.EstOrientation,
			&t.TrueX, &t.TrueY, &t.TrueOrientation,
			&t.Converged, &t.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan trial: %w", err)
		}
		if _, err := fmt.Sscan(seed, &t.Seed); err != nil {
			return nil, fmt.Errorf("parse seed %q: %w", seed, err)
		}
		trials = append(trials, &t)
	}
	return trials, rows.Err()
}

// ConvergenceRate returns the fraction of a batch's trials that converged
// and the batch size.
func (s *Store) ConvergenceRate(batchID string) (float64, int, error) {
	var total, converged int
	err := s.db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(converged), 0)
		FROM trial_runs
		WHERE batch_id = ?`, batchID).Scan(&total, &converged)
	if err != nil {
		return 0, 0, fmt.Errorf("convergence rate: %w", err)
	}
	if total == 0 {
		return 0, 0, fmt.Errorf("batch %s has no trials", batchID)
	}
	return float64(converged) / float64(total), total, nil
}
