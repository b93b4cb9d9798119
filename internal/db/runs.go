package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Run lifecycle states stored in scoring_runs.status.
const (
	RunStatusRunning = "running"
	RunStatusDone    = "done"
	RunStatusError   = "error"
)

// ScoringRun is the persisted record of one scoring pipeline execution.
// Result columns stay NULL until the run finishes.
type ScoringRun struct {
	RunID        string     `json:"run_id"`
	Region       string     `json:"region"`
	Status       string     `json:"status"`
	Source       string     `json:"source"` // bundle, synthetic or remote
	ConfigJSON   string     `json:"config_json"`
	GridRows     int        `json:"grid_rows"`
	GridCols     int        `json:"grid_cols"`
	SiteCount    *int       `json:"site_count,omitempty"`
	MaxGPS       *float64   `json:"max_gps,omitempty"`
	ValidCells   *int       `json:"valid_cells,omitempty"`
	ErrorMessage *string    `json:"error_message,omitempty"`
	ArtifactPath *string    `json:"artifact_path,omitempty"` // GeoJSON output path
	StartedAt    time.Time  `json:"started_at"`
	FinishedAt   *time.Time `json:"finished_at,omitempty"`
}

// CreateScoringRun inserts a new run record, normally in the running state.
func (db *DB) CreateScoringRun(run *ScoringRun) error {
	query := `
		INSERT INTO scoring_runs (
			run_id, region, status, source, config_json,
			grid_rows, grid_cols, started_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := db.DB.Exec(
		query,
		run.RunID,
		run.Region,
		run.Status,
		run.Source,
		run.ConfigJSON,
		run.GridRows,
		run.GridCols,
		run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create scoring run: %w", err)
	}

	return nil
}

// CompleteScoringRun marks a run as done and records its results.
func (db *DB) CompleteScoringRun(runID string, siteCount, validCells int, maxGPS float64, artifactPath string, finishedAt time.Time) error {
	query := `
		UPDATE scoring_runs
		SET status = ?, site_count = ?, valid_cells = ?, max_gps = ?,
		    artifact_path = ?, finished_at = ?
		WHERE run_id = ?
	`

	result, err := db.DB.Exec(
		query,
		RunStatusDone,
		siteCount,
		validCells,
		maxGPS,
		artifactPath,
		finishedAt,
		runID,
	)
	if err != nil {
		return fmt.Errorf("failed to complete scoring run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("run not found")
	}

	return nil
}

// FailScoringRun marks a run as failed and records the error message.
func (db *DB) FailScoringRun(runID, message string, finishedAt time.Time) error {
	query := `
		UPDATE scoring_runs
		SET status = ?, error_message = ?, finished_at = ?
		WHERE run_id = ?
	`

	result, err := db.DB.Exec(query, RunStatusError, message, finishedAt, runID)
	if err != nil {
		return fmt.Errorf("failed to fail scoring run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("run not found")
	}

	return nil
}

// GetScoringRun retrieves a run by its ID.
func (db *DB) GetScoringRun(runID string) (*ScoringRun, error) {
	query := `
		SELECT run_id, region, status, source, config_json,
		       grid_rows, grid_cols, site_count, max_gps, valid_cells,
		       error_message, artifact_path, started_at, finished_at
		FROM scoring_runs
		WHERE run_id = ?
	`

	var run ScoringRun
	err := db.DB.QueryRow(query, runID).Scan(
		&run.RunID,
		&run.Region,
		&run.Status,
		&run.Source,
		&run.ConfigJSON,
		&run.GridRows,
		&run.GridCols,
		&run.SiteCount,
		&run.MaxGPS,
		&run.ValidCells,
		&run.ErrorMessage,
		&run.ArtifactPath,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run not found")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get scoring run: %w", err)
	}

	return &run, nil
}

// GetRecentRuns retrieves the most recent N runs, newest first.
func (db *DB) GetRecentRuns(limit int) ([]ScoringRun, error) {
	query := `
		SELECT run_id, region, status, source, config_json,
		       grid_rows, grid_cols, site_count, max_gps, valid_cells,
		       error_message, artifact_path, started_at, finished_at
		FROM scoring_runs
		ORDER BY started_at DESC
		LIMIT ?
	`

	rows, err := db.DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scoring runs: %w", err)
	}
	defer rows.Close()

	var runs []ScoringRun
	for rows.Next() {
		var run ScoringRun
		err := rows.Scan(
			&run.RunID,
			&run.Region,
			&run.Status,
			&run.Source,
			&run.ConfigJSON,
			&run.GridRows,
			&run.GridCols,
			&run.SiteCount,
			&run.MaxGPS,
			&run.ValidCells,
			&run.ErrorMessage,
			&run.ArtifactPath,
			&run.StartedAt,
			&run.FinishedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan scoring run: %w", err)
		}
		runs = append(runs, run)
	}

	return runs, nil
}

// GetLatestCompletedRun retrieves the most recently finished successful run.
func (db *DB) GetLatestCompletedRun() (*ScoringRun, error) {
	query := `
		SELECT run_id, region, status, source, config_json,
		       grid_rows, grid_cols, site_count, max_gps, valid_cells,
		       error_message, artifact_path, started_at, finished_at
		FROM scoring_runs
		WHERE status = ?
		ORDER BY finished_at DESC
		LIMIT 1
	`

	var run ScoringRun
	err := db.DB.QueryRow(query, RunStatusDone).Scan(
		&run.RunID,
		&run.Region,
		&run.Status,
		&run.Source,
		&run.ConfigJSON,
		&run.GridRows,
		&run.GridCols,
		&run.SiteCount,
		&run.MaxGPS,
		&run.ValidCells,
		&run.ErrorMessage,
		&run.ArtifactPath,
		&run.StartedAt,
		&run.FinishedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no completed runs")
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest completed run: %w", err)
	}

	return &run, nil
}
