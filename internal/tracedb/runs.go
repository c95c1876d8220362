package tracedb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/veeprom/internal/eeprom"
	"github.com/roach88/veeprom/internal/flash"
	"github.com/roach88/veeprom/internal/harness"
)

// ErrNotFound is returned for an unknown run ID.
var ErrNotFound = errors.New("tracedb: run not found")

// Run is a journaled sweep.
type Run struct {
	ID       string         `json:"id"`
	Seq      int64          `json:"seq"`
	Geometry eeprom.Config  `json:"geometry"`
	Writes   int            `json:"writes"`
	Steps    int            `json:"steps"`
	Runs     int            `json:"runs"`
	Failures int            `json:"failures"`
	Actions  map[string]int `json:"actions"`
}

// Failure is one failing power-loss point of a run.
type Failure struct {
	RunID   string `json:"run_id"`
	Budget  int    `json:"budget"`
	Message string `json:"message"`
	// Image is the decompressed flash contents.
	Image []byte `json:"-"`
}

// SaveSweep journals a sweep report and returns the new run ID.
// The run and its failures are written in one transaction.
func (s *Store) SaveSweep(ctx context.Context, report *harness.SweepReport) (string, error) {
	geometry, err := json.Marshal(report.Geometry)
	if err != nil {
		return "", fmt.Errorf("save sweep: %w", err)
	}
	actions, err := json.Marshal(report.Actions)
	if err != nil {
		return "", fmt.Errorf("save sweep: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("save sweep: begin: %w", err)
	}
	defer tx.Rollback()

	var seq int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) + 1 FROM sweep_runs`).Scan(&seq); err != nil {
		return "", fmt.Errorf("save sweep: next seq: %w", err)
	}

	id := s.ids.Generate()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO sweep_runs (id, seq, geometry, writes, steps, runs, failures, actions)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, id, seq, string(geometry), report.Writes, report.Steps, report.Runs, len(report.Failures), string(actions))
	if err != nil {
		return "", fmt.Errorf("save sweep: %w", err)
	}

	for _, f := range report.Failures {
		image, err := flash.CompressImage(f.Image)
		if err != nil {
			return "", fmt.Errorf("save sweep: budget %d: %w", f.Budget, err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO sweep_failures (run_id, budget, message, image)
			VALUES (?, ?, ?, ?)
		`, id, f.Budget, f.Message, image)
		if err != nil {
			return "", fmt.Errorf("save sweep: budget %d: %w", f.Budget, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("save sweep: commit: %w", err)
	}
	return id, nil
}

// Runs returns every journaled run, oldest first.
// Returns an empty slice (not nil) if nothing was saved.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, seq, geometry, writes, steps, runs, failures, actions
		FROM sweep_runs
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// Run returns a single run by ID.
func (s *Store) Run(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, seq, geometry, writes, steps, runs, failures, actions
		FROM sweep_runs
		WHERE id = ?
	`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return r, err
}

// Failures returns the failures of a run ordered by budget, with images
// decompressed.
func (s *Store) Failures(ctx context.Context, runID string) ([]Failure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, budget, message, image
		FROM sweep_failures
		WHERE run_id = ?
		ORDER BY budget ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query failures: %w", err)
	}
	defer rows.Close()

	failures := []Failure{}
	for rows.Next() {
		var f Failure
		var image []byte
		if err := rows.Scan(&f.RunID, &f.Budget, &f.Message, &image); err != nil {
			return nil, fmt.Errorf("scan failure: %w", err)
		}
		if f.Image, err = flash.DecompressImage(image); err != nil {
			return nil, fmt.Errorf("failure %s/%d: %w", f.RunID, f.Budget, err)
		}
		failures = append(failures, f)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate failures: %w", err)
	}
	return failures, nil
}

// DeleteRun removes a run and its failures.
func (s *Store) DeleteRun(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM sweep_runs WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var r Run
	var geometry, actions string
	if err := row.Scan(&r.ID, &r.Seq, &geometry, &r.Writes, &r.Steps, &r.Runs, &r.Failures, &actions); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}
	if err := json.Unmarshal([]byte(geometry), &r.Geometry); err != nil {
		return Run{}, fmt.Errorf("run %s geometry: %w", r.ID, err)
	}
	if err := json.Unmarshal([]byte(actions), &r.Actions); err != nil {
		return Run{}, fmt.Errorf("run %s actions: %w", r.ID, err)
	}
	return r, nil
}
