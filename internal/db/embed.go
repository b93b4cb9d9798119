package db

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
)

// DevMode selects on-disk migration files over the embedded copies so
// schema edits apply without rebuilding the binary. The -dev entrypoint
// flag sets it.
var DevMode = false

// devMigrationsDir is resolved relative to the repository root, which
// is where dev runs start from.
const devMigrationsDir = "internal/db/migrations"

//go:embed migrations/*.sql
var migrationsFS embed.FS

// getMigrationsFS returns the filesystem to read migration files from:
// the embedded copies in production, local files in dev.
func getMigrationsFS() (fs.FS, error) {
	if DevMode {
		info, err := os.Stat(devMigrationsDir)
		if err != nil {
			return nil, fmt.Errorf("dev migrations dir %q: %w", devMigrationsDir, err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("dev migrations dir %q is not a directory", devMigrationsDir)
		}
		return os.DirFS(devMigrationsDir), nil
	}

	sub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return nil, fmt.Errorf("failed to open embedded migrations: %w", err)
	}
	return sub, nil
}

// MigrationsFS exposes the bundled migration files so the startup
// version check can run against the same set the migrate subcommand
// would apply.
func MigrationsFS() (fs.FS, error) {
	return getMigrationsFS()
}
