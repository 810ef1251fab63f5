package correlation

import (
	"math"

	"github.com/dragonwatch/dragonwatch/internal/database"
)

// normalizeMinMax maps value onto a 0-100 scale against a tuned empirical
// range. Values below the floor clamp to 0, above the ceiling to 100.
func normalizeMinMax(value, floor, ceiling float64) float64 {
	if ceiling == floor {
		return 50.0
	}
	normalized := (value - floor) / (ceiling - floor) * 100.0
	return math.Max(0, math.Min(100, normalized))
}

// ComputeSubScores calculates the four component scores for a candidate pair
func ComputeSubScores(n *database.NarrativeEvent, cluster *MovementCluster, geoMatch bool, s *database.CorrelationSettings) SubScores {
	geoScore := 0.0
	if geoMatch {
		geoScore = 100.0
	}
	return SubScores{
		Outlet: normalizeMinMax(float64(n.OutletCount), float64(s.OutletFloor), float64(s.OutletCeiling)),
		Phrase: normalizeMinMax(float64(n.NovelPhraseCount), float64(s.PhraseFloor), float64(s.PhraseCeiling)),
		Volume: normalizeMinMax(float64(cluster.EventCount), float64(s.VolumeFloor), float64(s.VolumeCeiling)),
		Geo:    geoScore,
	}
}

// CompositeScore combines the sub-scores via the configured weights. With
// weights summing to 1.0 the result stays in [0,100].
func CompositeScore(sub SubScores, s *database.CorrelationSettings) float64 {
	return sub.Outlet*s.OutletWeight +
		sub.Phrase*s.PhraseWeight +
		sub.Volume*s.VolumeWeight +
		sub.Geo*s.GeoWeight
}

// Confidence calibrates how certain the correlation is. It grows with the
// composite score and with the number of independent evidentiary items
// (distinct outlets plus distinct movement sources), and is hard-capped at
// the configured ceiling: an OSINT-only correlation never claims certainty.
func Confidence(compositeScore float64, corroboration int, s *database.CorrelationSettings) float64 {
	base := compositeScore / 100.0 * 0.55
	credit := 0.05 * math.Min(float64(corroboration), 8)
	return math.Min(s.ConfidenceCeiling, base+credit)
}

// LevelForScore maps a composite score to the threat level it indicates on
// its own, before any monotonic clamp against an existing alert.
func LevelForScore(score float64, s *database.CorrelationSettings) database.ThreatLevel {
	switch {
	case score < s.AmberThreshold:
		return database.ThreatLevelGreen
	case score < s.RedThreshold:
		return database.ThreatLevelAmber
	default:
		return database.ThreatLevelRed
	}
}
