package db

import (
	"compress/gzip"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/tailscale/tailsql/server/tailsql"
	_ "modernc.org/sqlite"
	"tailscale.com/tsweb"
)

type DB struct {
	*sql.DB
}

// openPragmas are applied to every new connection in the pool, not just
// the first one, which is why they ride on the DSN instead of an Exec.
const openPragmas = "?_pragma=journal_mode(WAL)" +
	"&_pragma=busy_timeout(5000)" +
	"&_pragma=synchronous(NORMAL)" +
	"&_pragma=temp_store(MEMORY)"

// OpenDB opens the SQLite database without touching the schema. The
// migrate subcommand uses this directly because migrations manage the
// schema themselves.
func OpenDB(path string) (*DB, error) {
	sqlDB, err := sql.Open("sqlite", "file:"+path+openPragmas)
	if err != nil {
		return nil, err
	}
	return &DB{sqlDB}, nil
}

// NewDB opens the database and ensures the baseline schema exists.
func NewDB(path string) (*DB, error) {
	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	if err := db.createBaselineSchema(); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

func (db *DB) createBaselineSchema() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS scoring_runs (
			run_id            TEXT PRIMARY KEY,
			region            TEXT NOT NULL,
			status            TEXT NOT NULL,
			source            TEXT NOT NULL,
			config_json       TEXT NOT NULL,
			grid_rows         INTEGER NOT NULL,
			grid_cols         INTEGER NOT NULL,
			site_count        INTEGER,
			max_gps           DOUBLE,
			valid_cells       INTEGER,
			error_message     TEXT,
			artifact_path     TEXT,
			started_at        TIMESTAMP NOT NULL,
			finished_at       TIMESTAMP
		);
		CREATE TABLE IF NOT EXISTS run_sites (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id            TEXT NOT NULL,
			site_id           TEXT NOT NULL,
			name              TEXT NOT NULL,
			rank              INTEGER NOT NULL,
			gps               DOUBLE NOT NULL,
			peak_gps          DOUBLE NOT NULL,
			mean_gps          DOUBLE NOT NULL,
			cell_count        INTEGER NOT NULL,
			centroid_lon      DOUBLE NOT NULL,
			centroid_lat      DOUBLE NOT NULL,
			radius_km         DOUBLE,
			area_km2          DOUBLE,
			geometry_json     TEXT NOT NULL,
			FOREIGN KEY(run_id) REFERENCES scoring_runs(run_id)
		);
		CREATE INDEX IF NOT EXISTS idx_run_sites_run_id ON run_sites(run_id);
		CREATE TABLE IF NOT EXISTS config_history (
			id                INTEGER PRIMARY KEY AUTOINCREMENT,
			config_json       TEXT NOT NULL,
			applied_by        TEXT,
			created_at        TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	return err
}

// NewDBWithMigrationCheck opens the database for normal operation. A
// fresh database gets the baseline schema and is stamped at the latest
// migration version; an existing database must already be at the latest
// version or the open fails with instructions to run migrations.
func NewDBWithMigrationCheck(path string, devMode bool) (*DB, error) {
	DevMode = devMode

	migrationsFS, err := getMigrationsFS()
	if err != nil {
		return nil, err
	}

	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}

	fresh, err := db.isFreshDatabase()
	if err != nil {
		db.Close()
		return nil, err
	}

	if fresh {
		// Stamp the new schema at the latest version so future
		// upgrades go through 'geopulse migrate up'.
		latest, err := GetLatestMigrationVersion(migrationsFS)
		if err != nil {
			db.Close()
			return nil, err
		}
		if err := db.createBaselineSchema(); err != nil {
			db.Close()
			return nil, err
		}
		if err := db.BaselineAtVersion(latest); err != nil {
			db.Close()
			return nil, err
		}
		return db, nil
	}

	if _, err := db.CheckAndPromptMigrations(migrationsFS); err != nil {
		db.Close()
		return nil, err
	}

	return db, nil
}

// isFreshDatabase reports whether neither the application schema nor
// the migration bookkeeping table exists yet.
func (db *DB) isFreshDatabase() (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*)
		FROM sqlite_master
		WHERE type='table' AND name IN ('scoring_runs', 'schema_migrations')
	`).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("failed to inspect database: %w", err)
	}
	return count == 0, nil
}

// AttachAdminRoutes mounts the live SQL debugger and the backup
// endpoint under /debug/.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) {
	debug := tsweb.Debugger(mux)
	// create a tailSQL instance and point it to our DB
	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		log.Fatalf("failed to create tailsql server: %v", err)
	}
	tsql.SetDB("sqlite://geopulse.db", db.DB, &tailsql.DBOptions{
		Label: "GeoPulse DB",
	})

	// mount the tailSQL server on the debug /tailsql path
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("db-stats", "Database file size and per-table row counts", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		stats, err := db.GetDatabaseStats()
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to collect database stats: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(stats); err != nil {
			log.Printf("Failed to encode database stats: %v", err)
		}
	}))

	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		unixTime := time.Now().Unix()
		backupPath := fmt.Sprintf("geopulse-backup-%d.db", unixTime)
		if _, err := db.DB.Exec("VACUUM INTO ?", backupPath); err != nil {
			http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", backupPath))
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Encoding", "gzip")

		// Send the backup file to the client
		backupFile, err := os.Open(backupPath)
		if err != nil {
			http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
			return
		}

		// close the backup file after sending it
		// and remove it from the filesystem
		defer func() {
			backupFile.Close()
			if err := os.Remove(backupPath); err != nil {
				log.Printf("Failed to remove backup file: %v", err)
			}
		}()

		gzipWriter := gzip.NewWriter(w)
		defer gzipWriter.Close()

		// Copy the backup file content to the gzip writer
		if _, err := io.Copy(gzipWriter, backupFile); err != nil {
			http.Error(w, fmt.Sprintf("Failed to write backup file: %v", err), http.StatusInternalServerError)
			return
		}
	}))
}
