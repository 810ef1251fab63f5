// Package correlation implements the scoring core: it pairs narrative
// coordination events with clustered movement events, computes weighted
// composite threat scores, and maps scores to escalation levels. Everything
// in this package is pure computation over snapshots; persistence lives in
// the services layer.
package correlation

import (
	"time"

	"github.com/dragonwatch/dragonwatch/internal/database"
)

// MovementCluster is a derived grouping of movement events sharing a region
// and time window. Clusters are rebuilt on every pass and never persisted;
// their identity is the tuple of member events.
type MovementCluster struct {
	Region        string
	MemberIDs     []uint
	SourcePostIDs []string
	CentroidLat   float64
	CentroidLon   float64
	EventCount    int
	WindowStart   time.Time
	WindowEnd     time.Time
}

// SubScores holds the four component scores, each normalized to 0-100
type SubScores struct {
	Outlet float64 `json:"outlet_score"`
	Phrase float64 `json:"phrase_score"`
	Volume float64 `json:"volume_score"`
	Geo    float64 `json:"geo_score"`
}

// Candidate pairs one narrative event with one movement cluster inside the
// temporal window, carrying everything the alert upsert needs.
type Candidate struct {
	NarrativeEventID uint
	MovementEventIDs []uint
	Region           string
	SubScores        SubScores
	CompositeScore   float64
	Confidence       float64
	GeoMatch         bool

	// RawLevel is the level the composite score maps to on this pass,
	// before the monotonic clamp against any existing alert.
	RawLevel database.ThreatLevel

	// Corroboration counts independent evidentiary items: distinct outlets
	// plus distinct movement source posts.
	Corroboration int

	EvidenceSummary string
	DetectedAt      time.Time
}

// EvidenceChain returns the ordered list of contributing event references:
// the narrative event first, then the movement events.
func (c *Candidate) EvidenceChain() []uint {
	chain := make([]uint, 0, 1+len(c.MovementEventIDs))
	chain = append(chain, c.NarrativeEventID)
	chain = append(chain, c.MovementEventIDs...)
	return chain
}
