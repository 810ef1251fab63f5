package database

import (
	"fmt"
	"math"
	"time"
)

// CorrelationSettings controls the correlation engine's calibration. All of
// these are tuning artifacts of the observed event distribution, not fixed
// constants, so they live in the database and are editable at runtime.
type CorrelationSettings struct {
	ID      uint `gorm:"primaryKey" json:"id"`
	Enabled bool `gorm:"default:true" json:"enabled"`

	// Temporal window: a movement cluster correlates with a narrative event
	// when it starts between 0 and WindowHours after the narrative.
	WindowHours int `gorm:"default:72" json:"window_hours"`

	// Composite weights. Must sum to 1.0.
	OutletWeight float64 `gorm:"type:decimal(3,2);default:0.30" json:"outlet_weight"`
	PhraseWeight float64 `gorm:"type:decimal(3,2);default:0.25" json:"phrase_weight"`
	VolumeWeight float64 `gorm:"type:decimal(3,2);default:0.20" json:"volume_weight"`
	GeoWeight    float64 `gorm:"type:decimal(3,2);default:0.25" json:"geo_weight"`

	// Normalization ranges for the linear sub-scores
	OutletFloor   int `gorm:"default:1" json:"outlet_floor"`
	OutletCeiling int `gorm:"default:4" json:"outlet_ceiling"`
	PhraseFloor   int `gorm:"default:0" json:"phrase_floor"`
	PhraseCeiling int `gorm:"default:10" json:"phrase_ceiling"`
	VolumeFloor   int `gorm:"default:0" json:"volume_floor"`
	VolumeCeiling int `gorm:"default:50" json:"volume_ceiling"`

	// Escalation thresholds: score < AmberThreshold is GREEN,
	// score >= RedThreshold is RED, AMBER in between.
	AmberThreshold float64 `gorm:"type:decimal(5,2);default:30" json:"amber_threshold"`
	RedThreshold   float64 `gorm:"type:decimal(5,2);default:70" json:"red_threshold"`

	// ConfidenceCeiling caps correlation confidence. Never raise this to 1.0:
	// an OSINT-only correlation must not claim certainty.
	ConfidenceCeiling float64 `gorm:"type:decimal(3,2);default:0.95" json:"confidence_ceiling"`

	// PassIntervalMinutes controls the periodic correlation job
	PassIntervalMinutes int `gorm:"default:5" json:"pass_interval_minutes"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CorrelationSettings) TableName() string {
	return "correlation_settings"
}

// NewDefaultCorrelationSettings returns settings with default values
func NewDefaultCorrelationSettings() *CorrelationSettings {
	return &CorrelationSettings{
		Enabled:             true,
		WindowHours:         72,
		OutletWeight:        0.30,
		PhraseWeight:        0.25,
		VolumeWeight:        0.20,
		GeoWeight:           0.25,
		OutletFloor:         1,
		OutletCeiling:       4,
		PhraseFloor:         0,
		PhraseCeiling:       10,
		VolumeFloor:         0,
		VolumeCeiling:       50,
		AmberThreshold:      30,
		RedThreshold:        70,
		ConfidenceCeiling:   0.95,
		PassIntervalMinutes: 5,
	}
}

// Validate rejects calibrations that would silently produce wrong scores.
// The engine refuses to run with invalid settings.
func (s *CorrelationSettings) Validate() error {
	weightSum := s.OutletWeight + s.PhraseWeight + s.VolumeWeight + s.GeoWeight
	if math.Abs(weightSum-1.0) > 1e-9 {
		return fmt.Errorf("composite weights must sum to 1.0, got %.4f", weightSum)
	}
	for _, w := range []float64{s.OutletWeight, s.PhraseWeight, s.VolumeWeight, s.GeoWeight} {
		if w < 0 {
			return fmt.Errorf("composite weights must be non-negative, got %.4f", w)
		}
	}
	if s.WindowHours <= 0 {
		return fmt.Errorf("window_hours must be positive, got %d", s.WindowHours)
	}
	if s.OutletFloor >= s.OutletCeiling {
		return fmt.Errorf("outlet normalization range invalid: floor %d >= ceiling %d", s.OutletFloor, s.OutletCeiling)
	}
	if s.PhraseFloor >= s.PhraseCeiling {
		return fmt.Errorf("phrase normalization range invalid: floor %d >= ceiling %d", s.PhraseFloor, s.PhraseCeiling)
	}
	if s.VolumeFloor >= s.VolumeCeiling {
		return fmt.Errorf("volume normalization range invalid: floor %d >= ceiling %d", s.VolumeFloor, s.VolumeCeiling)
	}
	if s.AmberThreshold < 0 || s.RedThreshold > 100 || s.AmberThreshold >= s.RedThreshold {
		return fmt.Errorf("escalation thresholds out of order: amber=%.2f red=%.2f", s.AmberThreshold, s.RedThreshold)
	}
	if s.ConfidenceCeiling <= 0 || s.ConfidenceCeiling > 1 {
		return fmt.Errorf("confidence_ceiling must be in (0,1], got %.2f", s.ConfidenceCeiling)
	}
	if s.PassIntervalMinutes <= 0 {
		return fmt.Errorf("pass_interval_minutes must be positive, got %d", s.PassIntervalMinutes)
	}
	return nil
}

// Window returns the temporal correlation window as a duration
func (s *CorrelationSettings) Window() time.Duration {
	return time.Duration(s.WindowHours) * time.Hour
}
