package results

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/geopulse-data/geopulse/internal/geopulse"
	"github.com/geopulse-data/geopulse/internal/monitoring"
	"github.com/geopulse-data/geopulse/internal/security"
)

// DefaultArtifactName is the artifact filename downstream renderers
// load, so it stays fixed across runs.
const DefaultArtifactName = "scored_sites.geojson"

// Writer lands run artifacts under a fixed output directory. It
// implements the run manager's artifact hook.
type Writer struct {
	OutputDir string
	Filename  string
}

// NewWriter creates a writer targeting the given output directory.
func NewWriter(outputDir string) *Writer {
	if outputDir == "" {
		outputDir = "out"
	}
	return &Writer{OutputDir: outputDir, Filename: DefaultArtifactName}
}

// WriteRunArtifact encodes the run and writes it to
// <OutputDir>/<Filename>, creating the directory as needed. Returns the
// path written. The filename is validated against the output directory;
// a name that resolves outside it is rejected.
func (w *Writer) WriteRunArtifact(rr *geopulse.RunResult) (string, error) {
	data, err := Marshal(rr)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(w.OutputDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create output directory %s: %w", w.OutputDir, err)
	}
	path := filepath.Join(w.OutputDir, w.Filename)
	if err := security.ValidatePathWithinDirectory(path, w.OutputDir); err != nil {
		return "", fmt.Errorf("invalid artifact path: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write artifact: %w", err)
	}
	monitoring.Logf("[ResultWriter] Wrote %d sites to %s", len(rr.Sites), path)
	return path, nil
}

// WriteFile writes the run's artifact to an explicit path. Used by the
// offline tools, so the path is confined to the working directory or
// the system temp directory.
func WriteFile(rr *geopulse.RunResult, path string) error {
	if path == "" {
		return fmt.Errorf("no artifact path supplied")
	}
	data, err := Marshal(rr)
	if err != nil {
		return err
	}

	cleanPath := filepath.Clean(path)
	if err := security.ValidateExportPath(cleanPath); err != nil {
		return fmt.Errorf("invalid artifact path: %w", err)
	}
	if dir := filepath.Dir(cleanPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create artifact directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(cleanPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write artifact: %w", err)
	}
	return nil
}
