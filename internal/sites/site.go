package sites

import (
	"fmt"
	"strings"

	"github.com/paulmach/orb"

	"github.com/geopulse-data/geopulse/internal/scoring"
)

// ScorePolicy selects the representative score reported for a site.
type ScorePolicy string

const (
	// ScoreMax reports the peak member score, surfacing the true hotspot
	// rather than diluting it with boundary cells.
	ScoreMax ScorePolicy = "max"
	// ScoreMean reports the mean member score.
	ScoreMean ScorePolicy = "mean"
)

// ParseScorePolicy validates a score policy name.
func ParseScorePolicy(s string) (ScorePolicy, error) {
	switch ScorePolicy(strings.TrimSpace(strings.ToLower(s))) {
	case ScoreMax, "":
		return ScoreMax, nil
	case ScoreMean:
		return ScoreMean, nil
	default:
		return "", scoring.NewConfigurationError("extract", "unknown score policy %q (valid: max, mean)", s)
	}
}

// GeometryPolicy selects the representative geometry computed for a site.
type GeometryPolicy string

const (
	// GeometryHull emits the convex hull of the member cell corners.
	GeometryHull GeometryPolicy = "hull"
	// GeometryCentroid emits the member centroid plus an enclosing
	// radius in kilometres.
	GeometryCentroid GeometryPolicy = "centroid"
)

// ParseGeometryPolicy validates a geometry policy name.
func ParseGeometryPolicy(s string) (GeometryPolicy, error) {
	switch GeometryPolicy(strings.TrimSpace(strings.ToLower(s))) {
	case GeometryHull, "":
		return GeometryHull, nil
	case GeometryCentroid:
		return GeometryCentroid, nil
	default:
		return "", scoring.NewConfigurationError("extract", "unknown geometry policy %q (valid: hull, centroid)", s)
	}
}

// CandidateSite is one ranked cluster of high-scoring cells. Sites are
// created in rank order by Extract and never mutated afterwards.
type CandidateSite struct {
	// ID is a deterministic UUID derived from the cluster's cells, so
	// identical inputs and configuration reproduce identical sites.
	ID   string `json:"site_id"`
	Name string `json:"name"`
	Rank int    `json:"rank"`

	// Score is the representative score under the configured policy.
	// Peak and mean are both always carried so a policy change never
	// alters the serialized schema.
	Score     float64 `json:"gps"`
	PeakScore float64 `json:"peak_gps"`
	MeanScore float64 `json:"mean_gps"`

	CellCount int `json:"cell_count"`

	// Centroid is the mean of member cell centres (lon, lat). Always
	// populated regardless of geometry policy.
	Centroid orb.Point `json:"-"`

	// Hull is the convex hull of member cell corners. Populated only
	// under GeometryHull.
	Hull orb.Polygon `json:"-"`

	// RadiusKm is the enclosing radius around the centroid. Populated
	// only under GeometryCentroid.
	RadiusKm float64 `json:"radius_km,omitempty"`

	// AreaKm2 is the hull area. Populated only under GeometryHull.
	AreaKm2 float64 `json:"area_km2,omitempty"`

	// FirstCellIdx is the smallest flat cell index of the cluster's
	// members: the stable tiebreak key for ordering and the anchor for
	// the deterministic ID.
	FirstCellIdx int `json:"-"`
}

// Geometry returns the site's representative geometry under the policy
// it was built with: the hull polygon when present, otherwise the
// centroid point.
func (s CandidateSite) Geometry() orb.Geometry {
	if len(s.Hull) > 0 {
		return s.Hull
	}
	return s.Centroid
}

func (s CandidateSite) String() string {
	return fmt.Sprintf("%s rank=%d gps=%.3f cells=%d centroid=(%.4f, %.4f)",
		s.Name, s.Rank, s.Score, s.CellCount, s.Centroid.Lon(), s.Centroid.Lat())
}
