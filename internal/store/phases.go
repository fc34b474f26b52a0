package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
)

// Phase names the pipeline phases whose completion is recorded in the store.
type Phase string

const (
	PhaseScan    Phase = "scan"
	PhaseDerive  Phase = "derive"
	PhaseCluster Phase = "cluster"
	PhaseRefine  Phase = "refine"
	PhaseArch    Phase = "arch"
	PhaseTestgen Phase = "testgen"
)

// phaseDeps declares the predecessor each phase requires. A phase refuses to
// run until every listed predecessor has completed at least once for the
// current store.
var phaseDeps = map[Phase][]Phase{
	PhaseScan:    {},
	PhaseDerive:  {PhaseScan},
	PhaseCluster: {PhaseDerive},
	PhaseRefine:  {PhaseCluster},
	PhaseArch:    {PhaseCluster},
	PhaseTestgen: {PhaseRefine},
}

// OrderError reports a phase invoked before its declared predecessor has
// ever completed.
type OrderError struct {
	Phase   Phase
	Missing Phase
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("phase %q cannot run: predecessor %q has never completed for this store", e.Phase, e.Missing)
}

// Tx wraps a phase-scoped transaction. All reads and writes performed during
// a phase go through the Tx so the phase either fully commits or fully rolls
// back; a crash mid-phase leaves the store in its pre-phase state.
type Tx struct {
	tx *sql.Tx
	queries
}

// PhaseCompleted reports whether the named phase has ever run to completion
// for this store.
func (s *Store) PhaseCompleted(ctx context.Context, phase Phase) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM phase_runs
		WHERE phase = ? AND completed_at IS NOT NULL
	`, string(phase)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("phase completed: %w", err)
	}
	return count > 0, nil
}

// CheckOrder verifies that every declared predecessor of the phase has
// completed. Returns *OrderError naming the first missing predecessor.
func (s *Store) CheckOrder(ctx context.Context, phase Phase) error {
	for _, dep := range phaseDeps[phase] {
		done, err := s.PhaseCompleted(ctx, dep)
		if err != nil {
			return err
		}
		if !done {
			return &OrderError{Phase: phase, Missing: dep}
		}
	}
	return nil
}

// RunPhase executes fn inside a single transaction after checking phase
// ordering. On success the phase run is recorded as completed in the same
// transaction, so completion flags and phase output commit atomically.
func (s *Store) RunPhase(ctx context.Context, phase Phase, fn func(ctx context.Context, tx *Tx) error) error {
	if err := s.CheckOrder(ctx, phase); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("phase %s: begin tx: %w", phase, err)
	}
	defer tx.Rollback() // No-op if committed

	runID := uuid.Must(uuid.NewV7()).String()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO phase_runs (id, phase, started_at)
		VALUES (?, ?, datetime('now'))
	`, runID, string(phase)); err != nil {
		return fmt.Errorf("phase %s: record start: %w", phase, err)
	}

	ptx := &Tx{tx: tx, queries: queries{q: tx}}
	if err := fn(ctx, ptx); err != nil {
		return fmt.Errorf("phase %s: %w", phase, err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE phase_runs SET completed_at = datetime('now') WHERE id = ?
	`, runID); err != nil {
		return fmt.Errorf("phase %s: record completion: %w", phase, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("phase %s: commit: %w", phase, err)
	}

	return nil
}
