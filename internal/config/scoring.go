package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/geopulse-data/geopulse/internal/raster"
	"github.com/geopulse-data/geopulse/internal/scoring"
	"github.com/geopulse-data/geopulse/internal/sites"
)

// DefaultConfigPath is the path to the canonical scoring defaults file.
// This is the single source of truth for all default scoring values.
const DefaultConfigPath = "config/scoring.defaults.json"

// ScoringConfig represents the root configuration for a scoring run.
// The schema matches the /api/config endpoint so the same JSON can be
// used for both startup configuration and runtime updates. All fields
// are optional; the Get* methods supply defaults for anything unset.
type ScoringConfig struct {
	// Layer weights keyed by role name. Weights need not sum to 1.
	Weights map[string]float64 `json:"weights,omitempty"`

	// Normalization params
	NormalizeMode  *string  `json:"normalize_mode,omitempty"` // "minmax" or "percentile"
	PercentileLow  *float64 `json:"percentile_low,omitempty"`
	PercentileHigh *float64 `json:"percentile_high,omitempty"`

	// Per-layer overrides of the normalization params, keyed by role
	// name. A layer without an entry uses the shared params above.
	NormalizeOverrides map[string]*LayerNormalize `json:"normalize_overrides,omitempty"`

	// Extraction params
	Threshold      *float64 `json:"threshold,omitempty"`
	MinClusterSize *int     `json:"min_cluster_size,omitempty"`
	TopK           *int     `json:"top_k,omitempty"`
	ScorePolicy    *string  `json:"score_policy,omitempty"`    // "max" or "mean"
	GeometryPolicy *string  `json:"geometry_policy,omitempty"` // "hull" or "centroid"

	// Run params
	Region        *string `json:"region,omitempty"`
	GridRows      *int    `json:"grid_rows,omitempty"`
	GridCols      *int    `json:"grid_cols,omitempty"`
	OutputDir     *string `json:"output_dir,omitempty"`
	SyntheticSeed *int64  `json:"synthetic_seed,omitempty"`
}

// LayerNormalize overrides the normalization parameters for one layer.
// Set fields replace the shared value; nil fields inherit it.
type LayerNormalize struct {
	Mode           *string  `json:"mode,omitempty"`
	PercentileLow  *float64 `json:"percentile_low,omitempty"`
	PercentileHigh *float64 `json:"percentile_high,omitempty"`
}

// EmptyScoringConfig returns a ScoringConfig with all fields set to nil.
// Use LoadScoringConfig to load actual values from the defaults file.
func EmptyScoringConfig() *ScoringConfig {
	return &ScoringConfig{}
}

// LoadScoringConfig loads a ScoringConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file retain their
// default values, so partial configs are safe.
func LoadScoringConfig(path string) (*ScoringConfig, error) {
	// Validate the config file path.
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024 // 1MB
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON into empty config. The Get* methods provide fallback
	// defaults for any fields not specified in the JSON.
	cfg := EmptyScoringConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Validate the configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// MustLoadDefaultConfig loads the canonical scoring defaults from DefaultConfigPath.
// It searches for the file in the current directory and common parent directories.
// Panics if the file cannot be loaded, intended for test setup.
func MustLoadDefaultConfig() *ScoringConfig {
	// Try paths from current dir up to repo root
	candidates := []string{
		DefaultConfigPath,
		"../../" + DefaultConfigPath,    // from internal/config/
		"../../../" + DefaultConfigPath, // deeper packages
		"../../../../" + DefaultConfigPath,
	}
	for _, path := range candidates {
		if cfg, err := LoadScoringConfig(path); err == nil {
			return cfg
		}
	}
	panic("cannot find " + DefaultConfigPath + " - run tests from repository root")
}

// Validate checks that the configuration values are valid.
func (c *ScoringConfig) Validate() error {
	// Validate weights if set: each role must be known and non-negative.
	// The all-zero check happens downstream where the effective spec is
	// assembled, because a partial config may only override one role.
	for name, weight := range c.Weights {
		if _, err := raster.ParseRole(name); err != nil {
			return fmt.Errorf("weights: %w", err)
		}
		if weight < 0 {
			return fmt.Errorf("weight for layer %q must be non-negative, got %f", name, weight)
		}
	}

	if c.NormalizeMode != nil {
		if _, err := scoring.ParseMode(*c.NormalizeMode); err != nil {
			return err
		}
	}

	if c.PercentileLow != nil && (*c.PercentileLow < 0 || *c.PercentileLow > 100) {
		return fmt.Errorf("percentile_low must be between 0 and 100, got %f", *c.PercentileLow)
	}
	if c.PercentileHigh != nil && (*c.PercentileHigh < 0 || *c.PercentileHigh > 100) {
		return fmt.Errorf("percentile_high must be between 0 and 100, got %f", *c.PercentileHigh)
	}
	if c.GetPercentileLow() >= c.GetPercentileHigh() {
		return fmt.Errorf("percentile_low (%f) must be below percentile_high (%f)",
			c.GetPercentileLow(), c.GetPercentileHigh())
	}

	for name, o := range c.NormalizeOverrides {
		role, err := raster.ParseRole(name)
		if err != nil {
			return fmt.Errorf("normalize_overrides: %w", err)
		}
		if o == nil {
			continue
		}
		if o.Mode != nil {
			if _, err := scoring.ParseMode(*o.Mode); err != nil {
				return fmt.Errorf("normalize_overrides for layer %q: %w", name, err)
			}
		}
		if o.PercentileLow != nil && (*o.PercentileLow < 0 || *o.PercentileLow > 100) {
			return fmt.Errorf("normalize_overrides for layer %q: percentile_low must be between 0 and 100, got %f", name, *o.PercentileLow)
		}
		if o.PercentileHigh != nil && (*o.PercentileHigh < 0 || *o.PercentileHigh > 100) {
			return fmt.Errorf("normalize_overrides for layer %q: percentile_high must be between 0 and 100, got %f", name, *o.PercentileHigh)
		}
		// Bounds are checked against the effective pair, because an
		// override may set only one side against the shared value.
		p := c.NormalizeParamsFor(role)
		if p.LowPct >= p.HighPct {
			return fmt.Errorf("normalize_overrides for layer %q: percentile_low (%f) must be below percentile_high (%f)",
				name, p.LowPct, p.HighPct)
		}
	}

	if c.Threshold != nil && (*c.Threshold < 0 || *c.Threshold > 1) {
		return fmt.Errorf("threshold must be between 0 and 1, got %f", *c.Threshold)
	}
	if c.MinClusterSize != nil && *c.MinClusterSize < 1 {
		return fmt.Errorf("min_cluster_size must be at least 1, got %d", *c.MinClusterSize)
	}
	if c.TopK != nil && *c.TopK < 0 {
		return fmt.Errorf("top_k must be non-negative, got %d", *c.TopK)
	}

	if c.ScorePolicy != nil {
		if _, err := sites.ParseScorePolicy(*c.ScorePolicy); err != nil {
			return err
		}
	}
	if c.GeometryPolicy != nil {
		if _, err := sites.ParseGeometryPolicy(*c.GeometryPolicy); err != nil {
			return err
		}
	}

	if c.Region != nil {
		if _, err := LookupRegion(*c.Region); err != nil {
			return err
		}
	}
	if c.GridRows != nil && *c.GridRows < 1 {
		return fmt.Errorf("grid_rows must be positive, got %d", *c.GridRows)
	}
	if c.GridCols != nil && *c.GridCols < 1 {
		return fmt.Errorf("grid_cols must be positive, got %d", *c.GridCols)
	}
	if c.OutputDir != nil && *c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty when set")
	}

	return nil
}

// Merge returns a new config where every field set in override replaces
// the receiver's value. Used by the config API to apply partial updates
// and by run requests that carry per-run overrides.
func (c *ScoringConfig) Merge(override *ScoringConfig) *ScoringConfig {
	merged := *c
	if override == nil {
		return &merged
	}
	if override.Weights != nil {
		merged.Weights = override.Weights
	}
	if override.NormalizeMode != nil {
		merged.NormalizeMode = override.NormalizeMode
	}
	if override.PercentileLow != nil {
		merged.PercentileLow = override.PercentileLow
	}
	if override.PercentileHigh != nil {
		merged.PercentileHigh = override.PercentileHigh
	}
	if override.NormalizeOverrides != nil {
		merged.NormalizeOverrides = override.NormalizeOverrides
	}
	if override.Threshold != nil {
		merged.Threshold = override.Threshold
	}
	if override.MinClusterSize != nil {
		merged.MinClusterSize = override.MinClusterSize
	}
	if override.TopK != nil {
		merged.TopK = override.TopK
	}
	if override.ScorePolicy != nil {
		merged.ScorePolicy = override.ScorePolicy
	}
	if override.GeometryPolicy != nil {
		merged.GeometryPolicy = override.GeometryPolicy
	}
	if override.Region != nil {
		merged.Region = override.Region
	}
	if override.GridRows != nil {
		merged.GridRows = override.GridRows
	}
	if override.GridCols != nil {
		merged.GridCols = override.GridCols
	}
	if override.OutputDir != nil {
		merged.OutputDir = override.OutputDir
	}
	if override.SyntheticSeed != nil {
		merged.SyntheticSeed = override.SyntheticSeed
	}
	return &merged
}

// GetWeights returns the configured layer weights or the defaults the
// scoring model was tuned with.
func (c *ScoringConfig) GetWeights() scoring.WeightSpec {
	if len(c.Weights) == 0 {
		return scoring.DefaultWeights()
	}
	spec := make(scoring.WeightSpec, len(c.Weights))
	for name, weight := range c.Weights {
		spec[raster.LayerRole(name)] = weight
	}
	return spec
}

// GetNormalizeMode returns the normalize_mode value or the default.
// Panics on a mode Validate would have rejected; configs reach the
// getters only after validation.
func (c *ScoringConfig) GetNormalizeMode() scoring.Mode {
	if c.NormalizeMode == nil {
		return scoring.ModePercentile // default
	}
	mode, err := scoring.ParseMode(*c.NormalizeMode)
	if err != nil {
		panic(fmt.Sprintf("unvalidated scoring config: %v", err))
	}
	return mode
}

// GetPercentileLow returns the percentile_low value or the default.
func (c *ScoringConfig) GetPercentileLow() float64 {
	if c.PercentileLow == nil {
		return 2.0 // default
	}
	return *c.PercentileLow
}

// GetPercentileHigh returns the percentile_high value or the default.
func (c *ScoringConfig) GetPercentileHigh() float64 {
	if c.PercentileHigh == nil {
		return 98.0 // default
	}
	return *c.PercentileHigh
}

// GetThreshold returns the threshold value or the default.
func (c *ScoringConfig) GetThreshold() float64 {
	if c.Threshold == nil {
		return 0.75 // default
	}
	return *c.Threshold
}

// GetMinClusterSize returns the min_cluster_size value or the default.
func (c *ScoringConfig) GetMinClusterSize() int {
	if c.MinClusterSize == nil {
		return 3 // default
	}
	return *c.MinClusterSize
}

// GetTopK returns the top_k value or the default.
func (c *ScoringConfig) GetTopK() int {
	if c.TopK == nil {
		return 10 // default
	}
	return *c.TopK
}

// GetScorePolicy returns the score_policy value or the default. Panics
// on a policy Validate would have rejected.
func (c *ScoringConfig) GetScorePolicy() sites.ScorePolicy {
	if c.ScorePolicy == nil {
		return sites.ScoreMax // default
	}
	policy, err := sites.ParseScorePolicy(*c.ScorePolicy)
	if err != nil {
		panic(fmt.Sprintf("unvalidated scoring config: %v", err))
	}
	return policy
}

// GetGeometryPolicy returns the geometry_policy value or the default.
// Panics on a policy Validate would have rejected.
func (c *ScoringConfig) GetGeometryPolicy() sites.GeometryPolicy {
	if c.GeometryPolicy == nil {
		return sites.GeometryHull // default
	}
	policy, err := sites.ParseGeometryPolicy(*c.GeometryPolicy)
	if err != nil {
		panic(fmt.Sprintf("unvalidated scoring config: %v", err))
	}
	return policy
}

// GetRegion returns the region value or the default study region.
func (c *ScoringConfig) GetRegion() string {
	if c.Region == nil || *c.Region == "" {
		return DefaultRegionName
	}
	return *c.Region
}

// GetGridRows returns the grid_rows value or the default.
func (c *ScoringConfig) GetGridRows() int {
	if c.GridRows == nil {
		return 48 // default
	}
	return *c.GridRows
}

// GetGridCols returns the grid_cols value or the default.
func (c *ScoringConfig) GetGridCols() int {
	if c.GridCols == nil {
		return 64 // default
	}
	return *c.GridCols
}

// GetOutputDir returns the output_dir value or the default.
func (c *ScoringConfig) GetOutputDir() string {
	if c.OutputDir == nil || *c.OutputDir == "" {
		return "out" // default
	}
	return *c.OutputDir
}

// GetSyntheticSeed returns the synthetic_seed value or the default.
func (c *ScoringConfig) GetSyntheticSeed() int64 {
	if c.SyntheticSeed == nil {
		return 42 // default
	}
	return *c.SyntheticSeed
}

// NormalizeParams assembles the effective shared normalization
// parameters.
func (c *ScoringConfig) NormalizeParams() scoring.NormalizeParams {
	return scoring.NormalizeParams{
		Mode:    c.GetNormalizeMode(),
		LowPct:  c.GetPercentileLow(),
		HighPct: c.GetPercentileHigh(),
	}
}

// NormalizeParamsFor returns the effective normalization parameters for
// one layer: the shared params with that layer's overrides applied.
func (c *ScoringConfig) NormalizeParamsFor(role raster.LayerRole) scoring.NormalizeParams {
	p := c.NormalizeParams()
	o := c.NormalizeOverrides[string(role)]
	if o == nil {
		return p
	}
	if o.Mode != nil {
		mode, err := scoring.ParseMode(*o.Mode)
		if err != nil {
			panic(fmt.Sprintf("unvalidated scoring config: %v", err))
		}
		p.Mode = mode
	}
	if o.PercentileLow != nil {
		p.LowPct = *o.PercentileLow
	}
	if o.PercentileHigh != nil {
		p.HighPct = *o.PercentileHigh
	}
	return p
}

// ResolvedNormalizeOverrides returns the fully-resolved per-layer
// parameters for every layer that carries an override.
func (c *ScoringConfig) ResolvedNormalizeOverrides() map[raster.LayerRole]scoring.NormalizeParams {
	if len(c.NormalizeOverrides) == 0 {
		return nil
	}
	out := make(map[raster.LayerRole]scoring.NormalizeParams, len(c.NormalizeOverrides))
	for name := range c.NormalizeOverrides {
		role := raster.LayerRole(name)
		out[role] = c.NormalizeParamsFor(role)
	}
	return out
}

// ExtractParams assembles the effective site extraction parameters.
func (c *ScoringConfig) ExtractParams() sites.Params {
	return sites.Params{
		Threshold:      c.GetThreshold(),
		MinClusterSize: c.GetMinClusterSize(),
		TopK:           c.GetTopK(),
		ScorePolicy:    c.GetScorePolicy(),
		GeometryPolicy: c.GetGeometryPolicy(),
	}
}
