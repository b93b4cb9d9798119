package db

import (
	"database/sql"
	"fmt"
	"time"
)

// ConfigSnapshot is one saved scoring configuration. A snapshot is
// written every time the running config changes through the API, so
// past runs can be compared against the settings that produced them.
type ConfigSnapshot struct {
	ID         int       `json:"id"`
	ConfigJSON string    `json:"config_json"`
	AppliedBy  *string   `json:"applied_by,omitempty"` // request remote addr
	CreatedAt  time.Time `json:"created_at"`
}

// CreateConfigSnapshot records a new configuration snapshot.
func (db *DB) CreateConfigSnapshot(snap *ConfigSnapshot) error {
	query := `
		INSERT INTO config_history (config_json, applied_by)
		VALUES (?, ?)
	`

	result, err := db.DB.Exec(query, snap.ConfigJSON, snap.AppliedBy)
	if err != nil {
		return fmt.Errorf("failed to create config snapshot: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	snap.ID = int(id)
	return nil
}

// GetRecentConfigSnapshots retrieves the most recent N snapshots, newest first.
func (db *DB) GetRecentConfigSnapshots(limit int) ([]ConfigSnapshot, error) {
	query := `
		SELECT id, config_json, applied_by, created_at
		FROM config_history
		ORDER BY id DESC
		LIMIT ?
	`

	rows, err := db.DB.Query(query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query config history: %w", err)
	}
	defer rows.Close()

	var snaps []ConfigSnapshot
	for rows.Next() {
		var snap ConfigSnapshot
		err := rows.Scan(
			&snap.ID,
			&snap.ConfigJSON,
			&snap.AppliedBy,
			&snap.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan config snapshot: %w", err)
		}
		snaps = append(snaps, snap)
	}

	return snaps, nil
}

// GetLatestConfigSnapshot retrieves the most recent snapshot, or nil if
// no config change has ever been recorded.
func (db *DB) GetLatestConfigSnapshot() (*ConfigSnapshot, error) {
	query := `
		SELECT id, config_json, applied_by, created_at
		FROM config_history
		ORDER BY id DESC
		LIMIT 1
	`

	var snap ConfigSnapshot
	err := db.DB.QueryRow(query).Scan(
		&snap.ID,
		&snap.ConfigJSON,
		&snap.AppliedBy,
		&snap.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest config snapshot: %w", err)
	}

	return &snap, nil
}
