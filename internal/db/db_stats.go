package db

import (
	"fmt"
)

// TableStats describes one user table.
type TableStats struct {
	Name     string  `json:"name"`
	RowCount int64   `json:"row_count"`
	SizeMB   float64 `json:"size_mb"`
}

// DatabaseStats describes the whole database file.
type DatabaseStats struct {
	TotalSizeMB float64      `json:"total_size_mb"`
	PageSize    int64        `json:"page_size"`
	PageCount   int64        `json:"page_count"`
	Tables      []TableStats `json:"tables"`
}

// GetDatabaseStats reports the database file size and per-table row
// counts. Per-table sizes come from the dbstat virtual table and are
// left at zero when the driver was built without it.
func (db *DB) GetDatabaseStats() (*DatabaseStats, error) {
	stats := &DatabaseStats{}

	if err := db.QueryRow("PRAGMA page_count").Scan(&stats.PageCount); err != nil {
		return nil, fmt.Errorf("failed to read page_count: %w", err)
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&stats.PageSize); err != nil {
		return nil, fmt.Errorf("failed to read page_size: %w", err)
	}
	stats.TotalSizeMB = float64(stats.PageCount*stats.PageSize) / (1024 * 1024)

	rows, err := db.Query(`
		SELECT name
		FROM sqlite_master
		WHERE type='table' AND name NOT LIKE 'sqlite_%'
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list tables: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		names = append(names, name)
	}

	for _, name := range names {
		ts := TableStats{Name: name}

		// Table names can't be bound as parameters; they come straight
		// from sqlite_master above, not from user input.
		countQuery := fmt.Sprintf("SELECT COUNT(*) FROM %q", name)
		if err := db.QueryRow(countQuery).Scan(&ts.RowCount); err != nil {
			return nil, fmt.Errorf("failed to count rows in %s: %w", name, err)
		}

		var size int64
		err := db.QueryRow("SELECT COALESCE(SUM(pgsize), 0) FROM dbstat WHERE name = ?", name).Scan(&size)
		if err == nil {
			ts.SizeMB = float64(size) / (1024 * 1024)
		}

		stats.Tables = append(stats.Tables, ts)
	}

	return stats, nil
}
