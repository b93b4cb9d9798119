package db

import (
	"path/filepath"
	"testing"
	"time"
)

// Helper functions for creating pointer values
func strPtr(s string) *string {
	return &s
}

func floatPtr(f float64) *float64 {
	return &f
}

// setupTestDB creates a file-backed database with the baseline schema
// in a per-test temp directory. The file is removed with the directory
// when the test finishes.
func setupTestDB(t *testing.T) *DB {
	t.Helper()
	fname := filepath.Join(t.TempDir(), "test.db")

	db, err := NewDB(fname)
	if err != nil {
		t.Fatalf("failed to create test DB: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// createTestRun inserts a run in the running state and returns it.
// This is a helper for tests that need a run on record before
// completing or failing it.
func createTestRun(t *testing.T, db *DB, runID string) *ScoringRun {
	t.Helper()

	run := &ScoringRun{
		RunID:      runID,
		Region:     "southern_utah",
		Status:     RunStatusRunning,
		Source:     "synthetic",
		ConfigJSON: `{"threshold":0.75}`,
		GridRows:   48,
		GridCols:   64,
		StartedAt:  time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	if err := db.CreateScoringRun(run); err != nil {
		t.Fatalf("CreateScoringRun failed: %v", err)
	}

	return run
}
