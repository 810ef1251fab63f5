// Package testhelpers provides reusable testing utilities for Dragonwatch.
//
// This package contains:
// - In-memory database setup
// - Event and alert builders
// - HTTP test helpers
// - Assertion helpers
package testhelpers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/dragonwatch/dragonwatch/internal/database"
)

// ========================================
// Database Helpers
// ========================================

// SetupTestDB creates an in-memory SQLite database with all migrations
// applied and installs it as the global database instance.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open in-memory database: %v", err)
	}

	err = db.AutoMigrate(
		&database.NarrativeEvent{},
		&database.MovementEvent{},
		&database.Alert{},
		&database.CorrelationSettings{},
	)
	if err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	prev := database.DB
	database.DB = db
	t.Cleanup(func() { database.DB = prev })

	return db
}

// ========================================
// HTTP Test Helpers
// ========================================

// HTTPTestContext holds components for HTTP handler testing
type HTTPTestContext struct {
	T        *testing.T
	Recorder *httptest.ResponseRecorder
	Request  *http.Request
}

// NewHTTPTestContext creates a new HTTP test context
func NewHTTPTestContext(t *testing.T, method, path string, body io.Reader) *HTTPTestContext {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	return &HTTPTestContext{
		T:        t,
		Recorder: httptest.NewRecorder(),
		Request:  req,
	}
}

// WithJSONBody sets JSON body on the request
func (ctx *HTTPTestContext) WithJSONBody(v interface{}) *HTTPTestContext {
	ctx.T.Helper()
	body, err := json.Marshal(v)
	if err != nil {
		ctx.T.Fatalf("failed to marshal JSON body: %v", err)
	}
	ctx.Request = httptest.NewRequest(ctx.Request.Method, ctx.Request.URL.String(), bytes.NewReader(body))
	ctx.Request.Header.Set("Content-Type", "application/json")
	return ctx
}

// Execute runs the handler and returns the response
func (ctx *HTTPTestContext) Execute(handler http.Handler) *HTTPTestContext {
	handler.ServeHTTP(ctx.Recorder, ctx.Request)
	return ctx
}

// AssertStatus checks the response status code
func (ctx *HTTPTestContext) AssertStatus(expected int) *HTTPTestContext {
	ctx.T.Helper()
	if ctx.Recorder.Code != expected {
		ctx.T.Errorf("expected status %d, got %d. Body: %s", expected, ctx.Recorder.Code, ctx.Recorder.Body.String())
	}
	return ctx
}

// AssertBodyContains checks if response body contains substring
func (ctx *HTTPTestContext) AssertBodyContains(substr string) *HTTPTestContext {
	ctx.T.Helper()
	body := ctx.Recorder.Body.String()
	if !strings.Contains(body, substr) {
		ctx.T.Errorf("expected body to contain %q, got: %s", substr, body)
	}
	return ctx
}

// DecodeJSON decodes response body as JSON
func (ctx *HTTPTestContext) DecodeJSON(v interface{}) *HTTPTestContext {
	ctx.T.Helper()
	if err := json.NewDecoder(ctx.Recorder.Body).Decode(v); err != nil {
		ctx.T.Fatalf("failed to decode JSON response: %v", err)
	}
	return ctx
}

// ========================================
// Sample Data Builders
// ========================================

// NarrativeEventBuilder builds NarrativeEvent instances for testing
type NarrativeEventBuilder struct {
	event database.NarrativeEvent
}

// NewNarrativeEventBuilder creates a builder with sane defaults
func NewNarrativeEventBuilder() *NarrativeEventBuilder {
	return &NarrativeEventBuilder{
		event: database.NarrativeEvent{
			ID:                1,
			DetectedAt:        time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC),
			CoordinationScore: 75,
			OutletCount:       3,
			NovelPhraseCount:  5,
		},
	}
}

// WithID sets the event ID
func (b *NarrativeEventBuilder) WithID(id uint) *NarrativeEventBuilder {
	b.event.ID = id
	return b
}

// WithDetectedAt sets the detection timestamp
func (b *NarrativeEventBuilder) WithDetectedAt(t time.Time) *NarrativeEventBuilder {
	b.event.DetectedAt = t
	return b
}

// WithOutlets sets the outlet count
func (b *NarrativeEventBuilder) WithOutlets(n int) *NarrativeEventBuilder {
	b.event.OutletCount = n
	return b
}

// WithPhrases sets the novel phrase count
func (b *NarrativeEventBuilder) WithPhrases(n int) *NarrativeEventBuilder {
	b.event.NovelPhraseCount = n
	return b
}

// WithFocus sets the free-text geographic focus
func (b *NarrativeEventBuilder) WithFocus(focus string) *NarrativeEventBuilder {
	b.event.GeographicFocus = &focus
	return b
}

// WithoutFocus clears the geographic focus
func (b *NarrativeEventBuilder) WithoutFocus() *NarrativeEventBuilder {
	b.event.GeographicFocus = nil
	return b
}

// WithCoordinationScore sets the raw classifier score
func (b *NarrativeEventBuilder) WithCoordinationScore(score float64) *NarrativeEventBuilder {
	b.event.CoordinationScore = score
	return b
}

// Build returns the constructed event
func (b *NarrativeEventBuilder) Build() database.NarrativeEvent {
	return b.event
}

// MovementEventBuilder builds MovementEvent instances for testing
type MovementEventBuilder struct {
	event database.MovementEvent
}

// NewMovementEventBuilder creates a builder with sane defaults: a naval
// sighting inside the Taiwan Strait box.
func NewMovementEventBuilder() *MovementEventBuilder {
	lat, lon := 24.5, 119.5
	return &MovementEventBuilder{
		event: database.MovementEvent{
			ID:           1,
			DetectedAt:   time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC),
			EventType:    database.MovementEventTypeNaval,
			LocationLat:  &lat,
			LocationLon:  &lon,
			Confidence:   0.8,
			SourcePostID: "post-1",
		},
	}
}

// WithID sets the event ID and derives a unique source post ID
func (b *MovementEventBuilder) WithID(id uint) *MovementEventBuilder {
	b.event.ID = id
	b.event.SourcePostID = fmt.Sprintf("post-%d", id)
	return b
}

// WithDetectedAt sets the detection timestamp
func (b *MovementEventBuilder) WithDetectedAt(t time.Time) *MovementEventBuilder {
	b.event.DetectedAt = t
	return b
}

// WithType sets the movement type
func (b *MovementEventBuilder) WithType(t database.MovementEventType) *MovementEventBuilder {
	b.event.EventType = t
	return b
}

// WithLocation sets coordinates
func (b *MovementEventBuilder) WithLocation(lat, lon float64) *MovementEventBuilder {
	b.event.LocationLat = &lat
	b.event.LocationLon = &lon
	return b
}

// WithoutLocation clears coordinates (not geolocatable)
func (b *MovementEventBuilder) WithoutLocation() *MovementEventBuilder {
	b.event.LocationLat = nil
	b.event.LocationLon = nil
	return b
}

// WithSourcePost sets the source post reference
func (b *MovementEventBuilder) WithSourcePost(id string) *MovementEventBuilder {
	b.event.SourcePostID = id
	return b
}

// Build returns the constructed event
func (b *MovementEventBuilder) Build() database.MovementEvent {
	return b.event
}

// ========================================
// Assertion Helpers
// ========================================

// AssertEqual checks equality with a helpful error message
func AssertEqual(t *testing.T, expected, actual interface{}, msg string) {
	t.Helper()
	if expected != actual {
		t.Errorf("%s: expected %v, got %v", msg, expected, actual)
	}
}

// AssertNoError checks that no error occurred
func AssertNoError(t *testing.T, err error, msg string) {
	t.Helper()
	if err != nil {
		t.Errorf("%s: unexpected error: %v", msg, err)
	}
}

// AssertError checks that an error occurred
func AssertError(t *testing.T, err error, msg string) {
	t.Helper()
	if err == nil {
		t.Errorf("%s: expected error, got nil", msg)
	}
}
