package database

import (
	"testing"
	"time"
)

func TestThreatLevelOrdering(t *testing.T) {
	if ThreatLevelGreen.Rank() >= ThreatLevelAmber.Rank() {
		t.Error("GREEN must rank below AMBER")
	}
	if ThreatLevelAmber.Rank() >= ThreatLevelRed.Rank() {
		t.Error("AMBER must rank below RED")
	}
	if ThreatLevel("corrupted").Rank() != 0 {
		t.Error("unknown levels must rank below GREEN")
	}
}

func TestThreatLevelEscalate(t *testing.T) {
	tests := []struct {
		current, next, want ThreatLevel
	}{
		{ThreatLevelGreen, ThreatLevelAmber, ThreatLevelAmber},
		{ThreatLevelAmber, ThreatLevelRed, ThreatLevelRed},
		{ThreatLevelRed, ThreatLevelAmber, ThreatLevelRed},
		{ThreatLevelRed, ThreatLevelGreen, ThreatLevelRed},
		{ThreatLevelAmber, ThreatLevelAmber, ThreatLevelAmber},
		{ThreatLevelGreen, ThreatLevelGreen, ThreatLevelGreen},
	}

	for _, tt := range tests {
		if got := tt.current.Escalate(tt.next); got != tt.want {
			t.Errorf("%s.Escalate(%s) = %s, want %s", tt.current, tt.next, got, tt.want)
		}
	}
}

func TestThreatLevelIsValid(t *testing.T) {
	for _, l := range []ThreatLevel{ThreatLevelGreen, ThreatLevelAmber, ThreatLevelRed} {
		if !l.IsValid() {
			t.Errorf("%s should be valid", l)
		}
	}
	if ThreatLevel("ORANGE").IsValid() {
		t.Error("ORANGE is not a known level")
	}
	if ThreatLevel("").IsValid() {
		t.Error("empty level is not valid")
	}
}

func TestMovementEventTypeIsValid(t *testing.T) {
	valid := []MovementEventType{
		MovementEventTypeConvoy, MovementEventTypeNaval,
		MovementEventTypeFlight, MovementEventTypeRestrictedZone,
	}
	for _, et := range valid {
		if !et.IsValid() {
			t.Errorf("%s should be valid", et)
		}
	}
	if MovementEventType("submarine").IsValid() {
		t.Error("submarine is not a known movement type")
	}
}

func TestNarrativeEventValidate(t *testing.T) {
	base := func() NarrativeEvent {
		return NarrativeEvent{
			ID:                1,
			DetectedAt:        time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
			CoordinationScore: 75,
			OutletCount:       3,
			NovelPhraseCount:  5,
		}
	}

	if err := (&NarrativeEvent{}).Validate(); err == nil {
		t.Error("zero-value event must fail validation")
	}

	valid := base()
	if err := valid.Validate(); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*NarrativeEvent)
	}{
		{"missing id", func(e *NarrativeEvent) { e.ID = 0 }},
		{"missing detected_at", func(e *NarrativeEvent) { e.DetectedAt = time.Time{} }},
		{"zero outlets", func(e *NarrativeEvent) { e.OutletCount = 0 }},
		{"negative phrases", func(e *NarrativeEvent) { e.NovelPhraseCount = -1 }},
		{"score above 100", func(e *NarrativeEvent) { e.CoordinationScore = 101 }},
		{"negative score", func(e *NarrativeEvent) { e.CoordinationScore = -0.5 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base()
			tt.mutate(&e)
			if err := e.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestMovementEventValidate(t *testing.T) {
	lat, lon := 24.5, 119.5
	base := func() MovementEvent {
		return MovementEvent{
			ID:           1,
			DetectedAt:   time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
			EventType:    MovementEventTypeNaval,
			LocationLat:  &lat,
			LocationLon:  &lon,
			Confidence:   0.8,
			SourcePostID: "post-1",
		}
	}

	valid := base()
	if err := valid.Validate(); err != nil {
		t.Errorf("valid event rejected: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*MovementEvent)
	}{
		{"missing id", func(e *MovementEvent) { e.ID = 0 }},
		{"missing detected_at", func(e *MovementEvent) { e.DetectedAt = time.Time{} }},
		{"unknown event type", func(e *MovementEvent) { e.EventType = "submarine" }},
		{"confidence above 1", func(e *MovementEvent) { e.Confidence = 1.5 }},
		{"negative confidence", func(e *MovementEvent) { e.Confidence = -0.1 }},
		{"missing source post", func(e *MovementEvent) { e.SourcePostID = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := base()
			tt.mutate(&e)
			if err := e.Validate(); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestMovementEventHasLocation(t *testing.T) {
	lat, lon := 24.5, 119.5

	e := MovementEvent{LocationLat: &lat, LocationLon: &lon}
	if !e.HasLocation() {
		t.Error("both coordinates present should report a location")
	}

	partial := MovementEvent{LocationLat: &lat}
	if partial.HasLocation() {
		t.Error("a single coordinate is not a usable location")
	}
	if (&MovementEvent{}).HasLocation() {
		t.Error("no coordinates is not a location")
	}
}

func TestJSONBScanAndValue(t *testing.T) {
	original := JSONB{"region": "Taiwan Strait", "score": 91.0}

	value, err := original.Value()
	if err != nil {
		t.Fatalf("Value() failed: %v", err)
	}

	var decoded JSONB
	if err := decoded.Scan(value.([]byte)); err != nil {
		t.Fatalf("Scan() failed: %v", err)
	}
	if decoded["region"] != "Taiwan Strait" {
		t.Errorf("round trip lost region: %v", decoded["region"])
	}
	if decoded["score"] != 91.0 {
		t.Errorf("round trip lost score: %v", decoded["score"])
	}
}

func TestJSONBScanNil(t *testing.T) {
	var j JSONB
	if err := j.Scan(nil); err != nil {
		t.Fatalf("Scan(nil) failed: %v", err)
	}
	if j == nil {
		t.Error("Scan(nil) should initialize an empty map")
	}

	if err := j.Scan(42); err == nil {
		t.Error("Scan of a non-[]byte value should fail")
	}
}

func TestJSONBValueNil(t *testing.T) {
	var j JSONB
	value, err := j.Value()
	if err != nil {
		t.Fatalf("Value() on nil failed: %v", err)
	}
	if value != nil {
		t.Errorf("nil JSONB should store SQL NULL, got %v", value)
	}
}

func TestAlertIsResolved(t *testing.T) {
	a := Alert{}
	if a.IsResolved() {
		t.Error("alert without resolved_at must not be resolved")
	}
	now := time.Now()
	a.ResolvedAt = &now
	if !a.IsResolved() {
		t.Error("alert with resolved_at must be resolved")
	}
}

func TestAlertDetectionHistory(t *testing.T) {
	t.Run("decodes stored entries", func(t *testing.T) {
		a := Alert{
			CorrelationMetadata: JSONB{
				"detection_history": []interface{}{
					map[string]interface{}{
						"detected_at": "2026-03-10T08:00:00Z",
						"score":       91.0,
						"level":       "RED",
					},
					map[string]interface{}{
						"detected_at": "2026-03-11T08:00:00Z",
						"score":       40.0,
						"level":       "AMBER",
					},
				},
			},
		}

		history := a.DetectionHistory()
		if len(history) != 2 {
			t.Fatalf("expected 2 entries, got %d", len(history))
		}
		if history[0].Level != ThreatLevelRed || history[0].Score != 91.0 {
			t.Errorf("first entry = %+v", history[0])
		}
		if history[1].Level != ThreatLevelAmber || history[1].Score != 40.0 {
			t.Errorf("second entry = %+v", history[1])
		}
	})

	t.Run("missing trail decodes as empty", func(t *testing.T) {
		if got := (&Alert{}).DetectionHistory(); len(got) != 0 {
			t.Errorf("expected empty history, got %v", got)
		}
		a := Alert{CorrelationMetadata: JSONB{"other": "data"}}
		if got := a.DetectionHistory(); len(got) != 0 {
			t.Errorf("expected empty history, got %v", got)
		}
	})

	t.Run("malformed trail decodes as empty", func(t *testing.T) {
		a := Alert{CorrelationMetadata: JSONB{"detection_history": "not-a-list"}}
		if got := a.DetectionHistory(); len(got) != 0 {
			t.Errorf("expected empty history for malformed trail, got %v", got)
		}
	})
}

func TestTableNames(t *testing.T) {
	tests := []struct {
		model interface{ TableName() string }
		want  string
	}{
		{NarrativeEvent{}, "narrative_events"},
		{MovementEvent{}, "movement_events"},
		{Alert{}, "alerts"},
		{CorrelationSettings{}, "correlation_settings"},
	}
	for _, tt := range tests {
		if got := tt.model.TableName(); got != tt.want {
			t.Errorf("TableName() = %s, want %s", got, tt.want)
		}
	}
}
