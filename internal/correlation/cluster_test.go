package correlation

import (
	"fmt"
	"testing"
	"time"

	"github.com/dragonwatch/dragonwatch/internal/database"
	"github.com/dragonwatch/dragonwatch/internal/geo"
)

func locatedEvent(id uint, at time.Time, lat, lon float64) database.MovementEvent {
	return database.MovementEvent{
		ID:           id,
		DetectedAt:   at,
		EventType:    database.MovementEventTypeNaval,
		LocationLat:  &lat,
		LocationLon:  &lon,
		Confidence:   0.8,
		SourcePostID: fmt.Sprintf("post-%d", id),
	}
}

func TestBuildClustersGroupsByRegion(t *testing.T) {
	regions := geo.NewDefaultRegistry()
	t0 := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	events := []database.MovementEvent{
		locatedEvent(1, t0, 24.5, 119.5),           // Taiwan Strait
		locatedEvent(2, t0.Add(time.Hour), 24.6, 119.6), // Taiwan Strait
		locatedEvent(3, t0, 10.0, 114.0),           // South China Sea
	}

	clusters := BuildClusters(events, regions, 72*time.Hour)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}

	// Deterministic order: region name ascending
	if clusters[0].Region != "South China Sea" || clusters[1].Region != "Taiwan Strait" {
		t.Errorf("unexpected cluster regions: %s, %s", clusters[0].Region, clusters[1].Region)
	}
	if clusters[1].EventCount != 2 {
		t.Errorf("expected 2 events in Taiwan Strait cluster, got %d", clusters[1].EventCount)
	}
}

func TestBuildClustersSplitsOnWindow(t *testing.T) {
	regions := geo.NewDefaultRegistry()
	t0 := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	window := 72 * time.Hour

	events := []database.MovementEvent{
		locatedEvent(1, t0, 24.5, 119.5),
		locatedEvent(2, t0.Add(24*time.Hour), 24.5, 119.5),
		// 80h after the first event: outside its window, opens a new cluster
		locatedEvent(3, t0.Add(80*time.Hour), 24.5, 119.5),
	}

	clusters := BuildClusters(events, regions, window)
	if len(clusters) != 2 {
		t.Fatalf("expected 2 clusters, got %d", len(clusters))
	}
	if clusters[0].EventCount != 2 || clusters[1].EventCount != 1 {
		t.Errorf("unexpected cluster sizes: %d, %d", clusters[0].EventCount, clusters[1].EventCount)
	}
	if !clusters[0].WindowStart.Equal(t0) {
		t.Errorf("first cluster window start = %v, want %v", clusters[0].WindowStart, t0)
	}
	if !clusters[1].WindowStart.Equal(t0.Add(80 * time.Hour)) {
		t.Errorf("second cluster window start = %v, want %v", clusters[1].WindowStart, t0.Add(80*time.Hour))
	}
}

func TestBuildClustersCentroid(t *testing.T) {
	regions := geo.NewDefaultRegistry()
	t0 := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	events := []database.MovementEvent{
		locatedEvent(1, t0, 24.0, 119.0),
		locatedEvent(2, t0.Add(time.Hour), 25.0, 121.0),
	}

	clusters := BuildClusters(events, regions, 72*time.Hour)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if clusters[0].CentroidLat != 24.5 || clusters[0].CentroidLon != 120.0 {
		t.Errorf("centroid = (%v, %v), want (24.5, 120.0)", clusters[0].CentroidLat, clusters[0].CentroidLon)
	}
}

func TestBuildClustersSkipsUnusableEvents(t *testing.T) {
	regions := geo.NewDefaultRegistry()
	t0 := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	noLocation := database.MovementEvent{
		ID: 1, DetectedAt: t0, EventType: database.MovementEventTypeConvoy,
		Confidence: 0.5, SourcePostID: "p1",
	}
	outsideWatchAreas := locatedEvent(2, t0, 51.5, -0.1)
	malformed := database.MovementEvent{
		ID: 3, DetectedAt: t0, EventType: "submarine", Confidence: 0.5, SourcePostID: "p3",
	}
	lat, lon := 24.5, 119.5
	missingPost := database.MovementEvent{
		ID: 4, DetectedAt: t0, EventType: database.MovementEventTypeNaval,
		LocationLat: &lat, LocationLon: &lon, Confidence: 0.5,
	}

	clusters := BuildClusters([]database.MovementEvent{noLocation, outsideWatchAreas, malformed, missingPost}, regions, 72*time.Hour)
	if len(clusters) != 0 {
		t.Errorf("expected no clusters from unusable events, got %d", len(clusters))
	}
}

func TestBuildClustersDistinctSourcePosts(t *testing.T) {
	regions := geo.NewDefaultRegistry()
	t0 := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)

	a := locatedEvent(1, t0, 24.5, 119.5)
	a.SourcePostID = "post-shared"
	b := locatedEvent(2, t0.Add(time.Hour), 24.5, 119.5)
	b.SourcePostID = "post-shared"
	c := locatedEvent(3, t0.Add(2*time.Hour), 24.5, 119.5)
	c.SourcePostID = "post-other"

	clusters := BuildClusters([]database.MovementEvent{a, b, c}, regions, 72*time.Hour)
	if len(clusters) != 1 {
		t.Fatalf("expected 1 cluster, got %d", len(clusters))
	}
	if len(clusters[0].SourcePostIDs) != 2 {
		t.Errorf("expected 2 distinct source posts, got %d", len(clusters[0].SourcePostIDs))
	}
	if clusters[0].EventCount != 3 {
		t.Errorf("expected 3 member events, got %d", clusters[0].EventCount)
	}
}
