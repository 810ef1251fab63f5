package services

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dragonwatch/dragonwatch/internal/correlation"
	"github.com/dragonwatch/dragonwatch/internal/database"
)

// AlertService is the sole write boundary for alert records. Upserts are
// serialized per region: the update is a read-modify-write against the
// monotonic escalation rule, so two concurrent passes for the same region
// must not interleave. Updates to different regions proceed independently.
type AlertService struct {
	db *gorm.DB

	mu          sync.Mutex
	regionLocks map[string]*sync.Mutex

	onUpdate     func(alert *database.Alert)
	onEscalation func(alert *database.Alert, from, to database.ThreatLevel)
}

// NewAlertService creates a new AlertService
func NewAlertService(db *gorm.DB) *AlertService {
	return &AlertService{
		db:          db,
		regionLocks: make(map[string]*sync.Mutex),
	}
}

// SetUpdateListener registers a callback invoked after every successful
// upsert (used to push alert state to websocket clients).
func (s *AlertService) SetUpdateListener(fn func(alert *database.Alert)) {
	s.onUpdate = fn
}

// SetEscalationListener registers a callback invoked when an upsert raises
// the visible threat level of a region.
func (s *AlertService) SetEscalationListener(fn func(alert *database.Alert, from, to database.ThreatLevel)) {
	s.onEscalation = fn
}

func (s *AlertService) regionLock(region string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.regionLocks[region]
	if !ok {
		lock = &sync.Mutex{}
		s.regionLocks[region] = lock
	}
	return lock
}

// Upsert applies a scored candidate to its region's alert. The first
// candidate for a region inserts a new alert; later candidates update it in
// place. The visible threat level only ever moves up — a lower-scoring pass
// updates score, confidence and evidence and lands in the detection history,
// but cannot downgrade the level. Every pass, even one that leaves the level
// unchanged, appends a history entry recording the raw pre-clamp level.
func (s *AlertService) Upsert(c *correlation.Candidate) (*database.Alert, error) {
	lock := s.regionLock(c.Region)
	lock.Lock()
	defer lock.Unlock()

	entry := map[string]interface{}{
		"detected_at": c.DetectedAt.Format(time.RFC3339Nano),
		"score":       c.CompositeScore,
		"level":       string(c.RawLevel),
	}
	subScores := database.JSONB{
		"outlet_score": c.SubScores.Outlet,
		"phrase_score": c.SubScores.Phrase,
		"volume_score": c.SubScores.Volume,
		"geo_score":    c.SubScores.Geo,
	}

	var alert database.Alert
	var previousLevel database.ThreatLevel

	err := s.db.Transaction(func(tx *gorm.DB) error {
		result := tx.Where("region = ? AND resolved_at IS NULL", c.Region).First(&alert)

		if result.Error == gorm.ErrRecordNotFound {
			previousLevel = database.ThreatLevelGreen
			alert = database.Alert{
				UUID:        uuid.New().String(),
				Region:      c.Region,
				ThreatLevel: c.RawLevel,
				ThreatScore: c.CompositeScore,
				Confidence:  c.Confidence,
				SubScores:   subScores,
				CorrelationMetadata: database.JSONB{
					"narrative_event_ids": []uint{c.NarrativeEventID},
					"movement_event_ids":  c.MovementEventIDs,
					"evidence_summary":    c.EvidenceSummary,
					"detection_history":   []interface{}{entry},
				},
			}
			return tx.Create(&alert).Error
		}
		if result.Error != nil {
			return result.Error
		}

		previousLevel = alert.ThreatLevel
		if !previousLevel.IsValid() {
			log.Printf("Warning: alert %s has invalid threat level %q, treating as GREEN", alert.UUID, previousLevel)
			previousLevel = database.ThreatLevelGreen
		}

		history := appendHistory(alert.CorrelationMetadata, entry)
		alert.ThreatLevel = previousLevel.Escalate(c.RawLevel)
		alert.ThreatScore = c.CompositeScore
		alert.Confidence = c.Confidence
		alert.SubScores = subScores
		alert.CorrelationMetadata = database.JSONB{
			"narrative_event_ids": []uint{c.NarrativeEventID},
			"movement_event_ids":  c.MovementEventIDs,
			"evidence_summary":    c.EvidenceSummary,
			"detection_history":   history,
		}

		return tx.Save(&alert).Error
	})
	if err != nil {
		return nil, fmt.Errorf("failed to upsert alert for region %s: %w", c.Region, err)
	}

	if s.onUpdate != nil {
		s.onUpdate(&alert)
	}
	if s.onEscalation != nil && alert.ThreatLevel.Rank() > previousLevel.Rank() {
		s.onEscalation(&alert, previousLevel, alert.ThreatLevel)
	}

	return &alert, nil
}

// appendHistory appends a detection entry to the existing trail, tolerating
// a missing or malformed trail in stored metadata.
func appendHistory(metadata database.JSONB, entry map[string]interface{}) []interface{} {
	var history []interface{}
	if metadata != nil {
		if existing, ok := metadata["detection_history"].([]interface{}); ok {
			history = existing
		}
	}
	return append(history, entry)
}

// ListAlerts returns alerts ordered by region, active only unless
// includeResolved is set.
func (s *AlertService) ListAlerts(includeResolved bool) ([]database.Alert, error) {
	var alerts []database.Alert
	query := s.db.Order("region asc")
	if !includeResolved {
		query = query.Where("resolved_at IS NULL")
	}
	if err := query.Find(&alerts).Error; err != nil {
		return nil, err
	}
	return alerts, nil
}

// GetByUUID retrieves an alert by UUID
func (s *AlertService) GetByUUID(id string) (*database.Alert, error) {
	var alert database.Alert
	if err := s.db.Where("uuid = ?", id).First(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// ActiveByRegion retrieves the unresolved alert for a region, if any
func (s *AlertService) ActiveByRegion(region string) (*database.Alert, error) {
	var alert database.Alert
	if err := s.db.Where("region = ? AND resolved_at IS NULL", region).First(&alert).Error; err != nil {
		return nil, err
	}
	return &alert, nil
}

// Resolve closes an alert. This is the only path that ends an escalation:
// the engine itself never downgrades or closes anything.
func (s *AlertService) Resolve(id string) (*database.Alert, error) {
	alert, err := s.GetByUUID(id)
	if err != nil {
		return nil, err
	}
	if alert.IsResolved() {
		return nil, fmt.Errorf("alert %s is already resolved", id)
	}

	lock := s.regionLock(alert.Region)
	lock.Lock()
	defer lock.Unlock()

	now := time.Now().UTC()
	if err := s.db.Model(alert).Update("resolved_at", now).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve alert %s: %w", id, err)
	}
	alert.ResolvedAt = &now

	log.Printf("Alert resolved: region=%s uuid=%s level=%s", alert.Region, alert.UUID, alert.ThreatLevel)

	if s.onUpdate != nil {
		s.onUpdate(alert)
	}

	return alert, nil
}
