package sites

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/geopulse-data/geopulse/internal/raster"
	"github.com/geopulse-data/geopulse/internal/scoring"
)

// Params configures site extraction from a composite grid.
type Params struct {
	// Threshold is the minimum composite score for a cell to join a
	// cluster.
	Threshold float64 `json:"threshold"`
	// MinClusterSize drops components with fewer member cells, filtering
	// single noisy pixels out of the ranking.
	MinClusterSize int `json:"min_cluster_size"`
	// TopK truncates the ranking after sorting; 0 means unlimited.
	// Fewer qualifying clusters than TopK is not an error.
	TopK int `json:"top_k"`

	ScorePolicy    ScorePolicy    `json:"score_policy"`
	GeometryPolicy GeometryPolicy `json:"geometry_policy"`
}

// Validate rejects parameter combinations that cannot produce a
// meaningful ranking.
func (p Params) Validate() error {
	if p.Threshold < 0 || p.Threshold > 1 {
		return scoring.NewConfigurationError("extract", "threshold %g outside [0, 1]", p.Threshold)
	}
	if p.MinClusterSize < 1 {
		return scoring.NewConfigurationError("extract", "min cluster size must be at least 1, got %d", p.MinClusterSize)
	}
	if p.TopK < 0 {
		return scoring.NewConfigurationError("extract", "top_k must be non-negative, got %d", p.TopK)
	}
	if _, err := ParseScorePolicy(string(p.ScorePolicy)); err != nil {
		return err
	}
	if _, err := ParseGeometryPolicy(string(p.GeometryPolicy)); err != nil {
		return err
	}
	return nil
}

// cluster accumulates one connected component during the flood fill.
type cluster struct {
	cells    []int
	peak     float64
	sum      float64
	firstIdx int
}

// Extract produces the rank-ordered candidate sites of a composite grid.
//
// A threshold above the grid's maximum yields an empty slice and no
// error. The returned order is deterministic: score descending, ties by
// larger cell count, then by smallest member cell index.
func Extract(composite *raster.Grid, p Params) ([]CandidateSite, error) {
	if composite == nil {
		return nil, scoring.NewConfigurationError("extract", "no composite grid supplied")
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	clusters := findClusters(composite, p.Threshold)

	// Drop components below the minimum size before any geometry work.
	kept := clusters[:0]
	for _, c := range clusters {
		if len(c.cells) >= p.MinClusterSize {
			kept = append(kept, c)
		}
	}
	clusters = kept

	result := make([]CandidateSite, 0, len(clusters))
	for _, c := range clusters {
		site := buildSite(composite, c, p)
		result = append(result, site)
	}

	// Sort by representative score descending; ties broken by larger
	// cluster, then by the stable first-cell index so output order is
	// reproducible across runs with identical input.
	sort.Slice(result, func(i, j int) bool {
		if result[i].Score != result[j].Score {
			return result[i].Score > result[j].Score
		}
		if result[i].CellCount != result[j].CellCount {
			return result[i].CellCount > result[j].CellCount
		}
		return result[i].FirstCellIdx < result[j].FirstCellIdx
	})

	if p.TopK > 0 && len(result) > p.TopK {
		result = result[:p.TopK]
	}

	for i := range result {
		result[i].Rank = i + 1
		result[i].Name = fmt.Sprintf("Site R-%d", i+1)
	}
	return result, nil
}

// findClusters selects valid cells at or above the threshold and groups
// them into connected components with 8-connectivity: orthogonal and
// diagonal neighbours above threshold belong to the same cluster. The
// grid is a flat plane; clusters never wrap across edges.
func findClusters(g *raster.Grid, threshold float64) []cluster {
	total := g.NumCells()

	selected := make([]bool, total)
	for idx := 0; idx < total; idx++ {
		if g.IsValid(idx) && g.Value(idx) >= threshold {
			selected[idx] = true
		}
	}

	visited := make([]bool, total)
	var clusters []cluster

	for start := 0; start < total; start++ {
		if visited[start] || !selected[start] {
			continue
		}

		// BFS flood fill with an explicit queue over flat indices. The
		// ascending scan guarantees start is the smallest member index.
		c := cluster{firstIdx: start}
		queue := []int{start}
		visited[start] = true

		for len(queue) > 0 {
			current := queue[0]
			queue = queue[1:]

			c.cells = append(c.cells, current)
			v := g.Value(current)
			c.sum += v
			if len(c.cells) == 1 || v > c.peak {
				c.peak = v
			}

			row, col := g.RowCol(current)
			for dr := -1; dr <= 1; dr++ {
				for dc := -1; dc <= 1; dc++ {
					if dr == 0 && dc == 0 {
						continue
					}
					nr, nc := row+dr, col+dc
					if !g.InBounds(nr, nc) {
						continue
					}
					nIdx := g.Idx(nr, nc)
					if !visited[nIdx] && selected[nIdx] {
						visited[nIdx] = true
						queue = append(queue, nIdx)
					}
				}
			}
		}

		clusters = append(clusters, c)
	}
	return clusters
}

// buildSite computes the representative geometry and scores for one
// surviving cluster.
func buildSite(g *raster.Grid, c cluster, p Params) CandidateSite {
	mean := c.sum / float64(len(c.cells))

	site := CandidateSite{
		ID:           clusterID(c),
		PeakScore:    c.peak,
		MeanScore:    mean,
		CellCount:    len(c.cells),
		FirstCellIdx: c.firstIdx,
		Centroid:     clusterCentroid(g, c.cells),
	}

	switch p.ScorePolicy {
	case ScoreMean:
		site.Score = mean
	default:
		site.Score = c.peak
	}

	switch p.GeometryPolicy {
	case GeometryCentroid:
		site.RadiusKm = enclosingRadiusKm(g, c.cells, site.Centroid)
	default:
		site.Hull = clusterHull(g, c.cells)
		site.AreaKm2 = hullAreaKm2(site.Hull, site.Centroid.Lat())
	}
	return site
}

// clusterID derives a stable UUID from the cluster's anchor cell and
// membership, so identical inputs reproduce identical identifiers.
func clusterID(c cluster) string {
	seed := fmt.Sprintf("geopulse-site:%d:%d:%.9f:%.9f", c.firstIdx, len(c.cells), c.peak, c.sum)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(seed)).String()
}
