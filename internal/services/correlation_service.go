package services

import (
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/dragonwatch/dragonwatch/internal/correlation"
	"github.com/dragonwatch/dragonwatch/internal/database"
	"github.com/dragonwatch/dragonwatch/internal/geo"
)

// Pass status values reported in a PassSummary
const (
	PassStatusSuccess           = "success"
	PassStatusDisabled          = "disabled"
	PassStatusNoNarrativeEvents = "no_narrative_events"
	PassStatusNoMovementEvents  = "no_movement_events"
	PassStatusNoCandidates      = "no_candidates"
)

// PassSummary describes the outcome of one correlation pass. A pass that
// finds nothing is a valid, common outcome, not an error.
type PassSummary struct {
	Status          string           `json:"status"`
	CandidatesFound int              `json:"candidates_found"`
	HighestScore    float64          `json:"highest_score,omitempty"`
	Alerts          []database.Alert `json:"alerts,omitempty"`
}

// CorrelationService runs the correlation pipeline: fetch recent events,
// score candidates through the engine, and drive alert upserts.
type CorrelationService struct {
	db           *gorm.DB
	regions      *geo.Registry
	alertService *AlertService
}

// NewCorrelationService creates a new CorrelationService
func NewCorrelationService(db *gorm.DB, regions *geo.Registry, alertService *AlertService) *CorrelationService {
	return &CorrelationService{
		db:           db,
		regions:      regions,
		alertService: alertService,
	}
}

// Settings returns the current engine calibration
func (s *CorrelationService) Settings() (*database.CorrelationSettings, error) {
	return database.GetOrCreateCorrelationSettings(s.db)
}

// RunPass executes one correlation pass over the recent event snapshot.
// Malformed events are skipped inside the engine; empty streams short-circuit
// with a descriptive status.
func (s *CorrelationService) RunPass() (*PassSummary, error) {
	settings, err := s.Settings()
	if err != nil {
		return nil, fmt.Errorf("failed to load correlation settings: %w", err)
	}
	if !settings.Enabled {
		return &PassSummary{Status: PassStatusDisabled}, nil
	}

	engine, err := correlation.NewEngine(settings, s.regions)
	if err != nil {
		return nil, err
	}

	narratives, err := database.RecentNarrativeEvents(s.db, settings.Window())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch narrative events: %w", err)
	}
	movements, err := database.RecentMovementEvents(s.db, settings.Window())
	if err != nil {
		return nil, fmt.Errorf("failed to fetch movement events: %w", err)
	}

	if len(narratives) == 0 {
		return &PassSummary{Status: PassStatusNoNarrativeEvents}, nil
	}
	if len(movements) == 0 {
		return &PassSummary{Status: PassStatusNoMovementEvents}, nil
	}

	log.Printf("Correlation pass: %d narrative events, %d movement events", len(narratives), len(movements))

	return s.Correlate(engine, narratives, movements)
}

// Correlate scores the given event snapshot and upserts one alert per region
// with a surviving candidate. Exposed separately from RunPass so callers and
// tests can drive the engine over an explicit snapshot.
func (s *CorrelationService) Correlate(engine *correlation.Engine, narratives []database.NarrativeEvent, movements []database.MovementEvent) (*PassSummary, error) {
	candidates := engine.Run(narratives, movements)
	if len(candidates) == 0 {
		return &PassSummary{Status: PassStatusNoCandidates}, nil
	}

	summary := &PassSummary{
		Status:          PassStatusSuccess,
		CandidatesFound: len(candidates),
	}

	for i := range candidates {
		c := candidates[i]
		alert, err := s.alertService.Upsert(&c)
		if err != nil {
			return nil, err
		}
		summary.Alerts = append(summary.Alerts, *alert)
		if c.CompositeScore > summary.HighestScore {
			summary.HighestScore = c.CompositeScore
		}
		log.Printf("Correlation candidate applied: region=%s score=%.1f level=%s confidence=%.2f",
			c.Region, c.CompositeScore, alert.ThreatLevel, c.Confidence)
	}

	return summary, nil
}
