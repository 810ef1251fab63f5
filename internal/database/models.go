package database

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// JSONB is a custom type for PostgreSQL JSONB columns
type JSONB map[string]interface{}

// Scan implements the sql.Scanner interface
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = make(map[string]interface{})
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, j)
}

// Value implements the driver.Valuer interface
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// ThreatLevel represents the discrete escalation stage of an alert.
// Levels are totally ordered: GREEN < AMBER < RED.
type ThreatLevel string

const (
	ThreatLevelGreen ThreatLevel = "GREEN"
	ThreatLevelAmber ThreatLevel = "AMBER"
	ThreatLevelRed   ThreatLevel = "RED"
)

// Rank returns the position of the level in the escalation order.
// Unknown values rank below GREEN so a corrupted row can never block escalation.
func (l ThreatLevel) Rank() int {
	switch l {
	case ThreatLevelGreen:
		return 1
	case ThreatLevelAmber:
		return 2
	case ThreatLevelRed:
		return 3
	default:
		return 0
	}
}

// IsValid returns true for one of the three known levels
func (l ThreatLevel) IsValid() bool {
	return l == ThreatLevelGreen || l == ThreatLevelAmber || l == ThreatLevelRed
}

// Escalate returns the higher of the two levels. An active alert never moves
// down: de-escalation only happens through explicit resolution.
func (l ThreatLevel) Escalate(next ThreatLevel) ThreatLevel {
	if next.Rank() > l.Rank() {
		return next
	}
	return l
}

// MovementEventType classifies a civilian-reported movement indicator
type MovementEventType string

const (
	MovementEventTypeConvoy         MovementEventType = "convoy"
	MovementEventTypeNaval          MovementEventType = "naval"
	MovementEventTypeFlight         MovementEventType = "flight"
	MovementEventTypeRestrictedZone MovementEventType = "restricted_zone"
)

// IsValid returns true for one of the known movement types
func (t MovementEventType) IsValid() bool {
	switch t {
	case MovementEventTypeConvoy, MovementEventTypeNaval, MovementEventTypeFlight, MovementEventTypeRestrictedZone:
		return true
	}
	return false
}

// NarrativeEvent is one detected state-media coordination episode.
// Rows are written by the upstream classification pipeline and are
// immutable once created; the correlation engine reads them as-is.
type NarrativeEvent struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	DetectedAt        time.Time `gorm:"not null;index" json:"detected_at"`
	CoordinationScore float64   `gorm:"type:decimal(5,2)" json:"coordination_score"` // 0-100 raw classifier output
	OutletCount       int       `gorm:"not null" json:"outlet_count"`
	NovelPhraseCount  int       `json:"novel_phrase_count"`
	GeographicFocus   *string   `gorm:"type:varchar(255)" json:"geographic_focus"` // free-text region hint, may be absent
	SourceArticleIDs  JSONB     `gorm:"type:jsonb" json:"source_article_ids"`
	CreatedAt         time.Time `json:"created_at"`
}

func (NarrativeEvent) TableName() string {
	return "narrative_events"
}

// Validate checks the invariants the upstream classifier is supposed to
// guarantee. A failing event is skipped by the engine, never fatal.
func (e *NarrativeEvent) Validate() error {
	if e.ID == 0 {
		return errors.New("narrative event missing id")
	}
	if e.DetectedAt.IsZero() {
		return errors.New("narrative event missing detected_at")
	}
	if e.OutletCount < 1 {
		return fmt.Errorf("narrative event %d: outlet_count must be >= 1, got %d", e.ID, e.OutletCount)
	}
	if e.NovelPhraseCount < 0 {
		return fmt.Errorf("narrative event %d: negative novel_phrase_count %d", e.ID, e.NovelPhraseCount)
	}
	if e.CoordinationScore < 0 || e.CoordinationScore > 100 {
		return fmt.Errorf("narrative event %d: coordination_score %.2f out of [0,100]", e.ID, e.CoordinationScore)
	}
	return nil
}

// MovementEvent is one classified civilian-movement indicator. Location is
// optional: absence means the source post could not be geolocated.
type MovementEvent struct {
	ID              uint              `gorm:"primaryKey" json:"id"`
	DetectedAt      time.Time         `gorm:"not null;index" json:"detected_at"`
	EventType       MovementEventType `gorm:"type:varchar(50);not null" json:"event_type"`
	LocationLat     *float64          `gorm:"type:decimal(9,6)" json:"location_lat"`
	LocationLon     *float64          `gorm:"type:decimal(9,6)" json:"location_lon"`
	Confidence      float64           `gorm:"type:decimal(3,2)" json:"confidence"` // 0-1 classifier confidence
	VesselReference *string           `gorm:"type:varchar(255)" json:"vessel_reference"`
	SourcePostID    string            `gorm:"type:varchar(255);not null" json:"source_post_id"`
	CreatedAt       time.Time         `json:"created_at"`
}

func (MovementEvent) TableName() string {
	return "movement_events"
}

// Validate checks required fields and ranges
func (e *MovementEvent) Validate() error {
	if e.ID == 0 {
		return errors.New("movement event missing id")
	}
	if e.DetectedAt.IsZero() {
		return errors.New("movement event missing detected_at")
	}
	if !e.EventType.IsValid() {
		return fmt.Errorf("movement event %d: unknown event_type %q", e.ID, e.EventType)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("movement event %d: confidence %.2f out of [0,1]", e.ID, e.Confidence)
	}
	if e.SourcePostID == "" {
		return fmt.Errorf("movement event %d: missing source_post_id", e.ID)
	}
	return nil
}

// HasLocation returns true when both coordinates are present
func (e *MovementEvent) HasLocation() bool {
	return e.LocationLat != nil && e.LocationLon != nil
}

// DetectionEntry is one row of an alert's append-only audit trail. Level is
// the raw level computed for that pass, before the monotonic clamp.
type DetectionEntry struct {
	DetectedAt time.Time   `json:"detected_at"`
	Score      float64     `json:"score"`
	Level      ThreatLevel `json:"level"`
}

// Alert is the persisted, user-facing threat state for one region. At most
// one unresolved alert exists per region at any time.
type Alert struct {
	ID                  uint        `gorm:"primaryKey" json:"id"`
	UUID                string      `gorm:"uniqueIndex;size:36;not null" json:"uuid"`
	Region              string      `gorm:"type:varchar(128);not null;index" json:"region"`
	ThreatLevel         ThreatLevel `gorm:"type:varchar(20);not null;default:'GREEN'" json:"threat_level"`
	ThreatScore         float64     `gorm:"type:decimal(5,2)" json:"threat_score"`
	Confidence          float64     `gorm:"type:decimal(3,2)" json:"confidence"`
	SubScores           JSONB       `gorm:"type:jsonb" json:"sub_scores"`
	CorrelationMetadata JSONB       `gorm:"type:jsonb" json:"correlation_metadata"`
	ResolvedAt          *time.Time  `json:"resolved_at"`
	CreatedAt           time.Time   `json:"created_at"`
	UpdatedAt           time.Time   `json:"updated_at"`
}

func (Alert) TableName() string {
	return "alerts"
}

// IsResolved returns true once the alert has been explicitly closed
func (a *Alert) IsResolved() bool {
	return a.ResolvedAt != nil
}

// DetectionHistory decodes the append-only detection trail from
// correlation_metadata. A missing or malformed trail decodes as empty.
func (a *Alert) DetectionHistory() []DetectionEntry {
	if a.CorrelationMetadata == nil {
		return nil
	}
	raw, ok := a.CorrelationMetadata["detection_history"]
	if !ok {
		return nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil
	}
	var entries []DetectionEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil
	}
	return entries
}
