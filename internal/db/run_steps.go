package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// StartStage records a stage as in progress. Running the same stage twice in
// one run restarts its record.
func (db *DB) StartStage(ctx context.Context, runID uuid.UUID, stage, category string) error {
	_, err := db.pool.Exec(ctx,
		`INSERT INTO run_steps (run_id, step, category, status, started_at)
		 VALUES ($1, $2, $3, $4, NOW())
		 ON CONFLICT (run_id, step) DO UPDATE
		 SET category = $3, status = $4, started_at = NOW(), completed_at = NULL,
		     duration_ms = NULL, output_lines = 0, error_message = NULL, updated_at = NOW()`,
		runID, stage, category, StepStatusInProgress,
	)
	if err != nil {
		return fmt.Errorf("failed to start stage %s: %w", stage, err)
	}
	return nil
}

// FinishStage stores the outcome of a stage
func (db *DB) FinishStage(ctx context.Context, runID uuid.UUID, stage, status string, durationMs int64, outputLines int, errorMessage *string) error {
	tag, err := db.pool.Exec(ctx,
		`UPDATE run_steps
		 SET status = $3, completed_at = NOW(), duration_ms = $4, output_lines = $5,
		     error_message = $6, updated_at = NOW()
		 WHERE run_id = $1 AND step = $2`,
		runID, stage, stepStatus(status), durationMs, outputLines, errorMessage,
	)
	if err != nil {
		return fmt.Errorf("failed to finish stage %s: %w", stage, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("failed to finish stage %s: no started record for run %s", stage, runID)
	}
	return nil
}

// ListRunSteps retrieves all steps for a run in start order
func (db *DB) ListRunSteps(ctx context.Context, runID uuid.UUID) ([]RunStep, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT id, run_id, step, category, status, started_at, completed_at,
		        duration_ms, output_lines, error_message, created_at, updated_at
		 FROM run_steps
		 WHERE run_id = $1
		 ORDER BY created_at`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list run steps: %w", err)
	}
	defer rows.Close()

	steps := []RunStep{}
	for rows.Next() {
		var step RunStep
		if err := rows.Scan(&step.ID, &step.RunID, &step.Step, &step.Category, &step.Status,
			&step.StartedAt, &step.CompletedAt, &step.DurationMs, &step.OutputLines,
			&step.ErrorMessage, &step.CreatedAt, &step.UpdatedAt); err != nil {
			return nil, err
		}
		steps = append(steps, step)
	}
	return steps, rows.Err()
}
