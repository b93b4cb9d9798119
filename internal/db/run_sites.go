package db

import (
	"context"
	"database/sql"
	"fmt"
	"log"
)

// RunSite is the flattened, persisted form of one candidate site from a
// completed run. The full geometry is kept as GeoJSON text so the row
// can be served without re-deriving the hull.
type RunSite struct {
	ID           int      `json:"id"`
	RunID        string   `json:"run_id"`
	SiteID       string   `json:"site_id"`
	Name         string   `json:"name"`
	Rank         int      `json:"rank"`
	GPS          float64  `json:"gps"`
	PeakGPS      float64  `json:"peak_gps"`
	MeanGPS      float64  `json:"mean_gps"`
	CellCount    int      `json:"cell_count"`
	CentroidLon  float64  `json:"centroid_lon"`
	CentroidLat  float64  `json:"centroid_lat"`
	RadiusKm     *float64 `json:"radius_km,omitempty"`
	AreaKm2      *float64 `json:"area_km2,omitempty"`
	GeometryJSON string   `json:"geometry_json"`
}

// InsertRunSites stores all sites from one run in a single transaction.
func (db *DB) InsertRunSites(ctx context.Context, runID string, sites []RunSite) error {
	if len(sites) == 0 {
		return nil
	}

	tx, err := db.DB.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && err != sql.ErrTxDone {
			// ErrTxDone means transaction was already committed/rolled back
			log.Printf("warning: failed to rollback transaction: %v", err)
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO run_sites (
			run_id, site_id, name, rank, gps, peak_gps, mean_gps,
			cell_count, centroid_lon, centroid_lat, radius_km, area_km2,
			geometry_json
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare site insert: %w", err)
	}
	defer stmt.Close()

	for _, site := range sites {
		_, err := stmt.ExecContext(
			ctx,
			runID,
			site.SiteID,
			site.Name,
			site.Rank,
			site.GPS,
			site.PeakGPS,
			site.MeanGPS,
			site.CellCount,
			site.CentroidLon,
			site.CentroidLat,
			site.RadiusKm,
			site.AreaKm2,
			site.GeometryJSON,
		)
		if err != nil {
			return fmt.Errorf("failed to insert site %s: %w", site.SiteID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit site inserts: %w", err)
	}

	return nil
}

// GetRunSites retrieves all sites for a run, best rank first.
func (db *DB) GetRunSites(runID string) ([]RunSite, error) {
	query := `
		SELECT id, run_id, site_id, name, rank, gps, peak_gps, mean_gps,
		       cell_count, centroid_lon, centroid_lat, radius_km, area_km2,
		       geometry_json
		FROM run_sites
		WHERE run_id = ?
		ORDER BY rank ASC
	`

	rows, err := db.DB.Query(query, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query run sites: %w", err)
	}
	defer rows.Close()

	var sites []RunSite
	for rows.Next() {
		var site RunSite
		err := rows.Scan(
			&site.ID,
			&site.RunID,
			&site.SiteID,
			&site.Name,
			&site.Rank,
			&site.GPS,
			&site.PeakGPS,
			&site.MeanGPS,
			&site.CellCount,
			&site.CentroidLon,
			&site.CentroidLat,
			&site.RadiusKm,
			&site.AreaKm2,
			&site.GeometryJSON,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run site: %w", err)
		}
		sites = append(sites, site)
	}

	return sites, nil
}
