package correlation

import (
	"fmt"
	"log"
	"sort"
	"time"

	"github.com/dragonwatch/dragonwatch/internal/database"
	"github.com/dragonwatch/dragonwatch/internal/geo"
)

// Engine scores candidate (narrative, movement-cluster) pairs. It is a pure
// function of its inputs: one Run consumes a snapshot of events and returns
// the best candidate per region, touching no shared state.
type Engine struct {
	settings *database.CorrelationSettings
	regions  *geo.Registry
}

// NewEngine creates an engine. Settings are validated up front: the engine
// refuses to exist with a calibration that would produce wrong scores.
func NewEngine(settings *database.CorrelationSettings, regions *geo.Registry) (*Engine, error) {
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid correlation settings: %w", err)
	}
	return &Engine{settings: settings, regions: regions}, nil
}

// Settings returns the engine's calibration
func (e *Engine) Settings() *database.CorrelationSettings {
	return e.settings
}

// GeoMatch reports whether a narrative's stated geographic focus and a
// cluster centroid fall inside the same watch area. Both signals are
// required: a missing focus or a missing centroid is never a match, so a
// partial signal cannot produce a geographic false positive.
func (e *Engine) GeoMatch(focus *string, centroidLat, centroidLon *float64) bool {
	if focus == nil || centroidLat == nil || centroidLon == nil {
		return false
	}
	region := e.regions.Resolve(*focus)
	if region == nil {
		return false
	}
	return region.Contains(*centroidLat, *centroidLon)
}

// Run executes one correlation pass: cluster the movement events, pair every
// cluster with every narrative event inside the temporal window, score the
// pairs, and keep the highest-scoring candidate per region. Malformed events
// are skipped with a warning; empty inputs yield an empty result.
func (e *Engine) Run(narratives []database.NarrativeEvent, movements []database.MovementEvent) []Candidate {
	clusters := BuildClusters(movements, e.regions, e.settings.Window())
	if len(clusters) == 0 {
		return nil
	}

	now := time.Now().UTC()
	best := make(map[string]Candidate)

	for i := range narratives {
		n := narratives[i]
		if err := n.Validate(); err != nil {
			log.Printf("Warning: skipping malformed narrative event: %v", err)
			continue
		}

		for j := range clusters {
			cluster := clusters[j]
			if !InWindow(n.DetectedAt, cluster.WindowStart, e.settings.Window()) {
				continue
			}

			candidate := e.score(&n, &cluster, now)
			if existing, ok := best[cluster.Region]; !ok || candidate.CompositeScore > existing.CompositeScore {
				best[cluster.Region] = candidate
			}
		}
	}

	candidates := make([]Candidate, 0, len(best))
	for _, c := range best {
		candidates = append(candidates, c)
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Region < candidates[j].Region
	})

	return candidates
}

func (e *Engine) score(n *database.NarrativeEvent, cluster *MovementCluster, now time.Time) Candidate {
	geoMatch := e.GeoMatch(n.GeographicFocus, &cluster.CentroidLat, &cluster.CentroidLon)

	sub := ComputeSubScores(n, cluster, geoMatch, e.settings)
	composite := CompositeScore(sub, e.settings)
	corroboration := n.OutletCount + len(cluster.SourcePostIDs)

	return Candidate{
		NarrativeEventID: n.ID,
		MovementEventIDs: cluster.MemberIDs,
		Region:           cluster.Region,
		SubScores:        sub,
		CompositeScore:   composite,
		Confidence:       Confidence(composite, corroboration, e.settings),
		GeoMatch:         geoMatch,
		RawLevel:         LevelForScore(composite, e.settings),
		Corroboration:    corroboration,
		EvidenceSummary:  buildEvidenceSummary(n, cluster),
		DetectedAt:       now,
	}
}

// buildEvidenceSummary produces the plain-English one-liner stored with the
// alert and consumed by downstream brief generation.
func buildEvidenceSummary(n *database.NarrativeEvent, cluster *MovementCluster) string {
	focus := "unknown region"
	if n.GeographicFocus != nil && *n.GeographicFocus != "" {
		focus = *n.GeographicFocus
	}
	return fmt.Sprintf(
		"%d state media outlets detected coordinating on '%s' themes, correlating with %d civilian movement reports in %s.",
		n.OutletCount, focus, cluster.EventCount, cluster.Region,
	)
}
