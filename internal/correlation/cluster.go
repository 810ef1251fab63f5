package correlation

import (
	"log"
	"sort"
	"time"

	"github.com/dragonwatch/dragonwatch/internal/database"
	"github.com/dragonwatch/dragonwatch/internal/geo"
)

// BuildClusters groups movement events into per-region time-window clusters.
// Events without coordinates, outside every watch area, or failing validation
// are skipped. Within a region, events are bucketed greedily in time order: an
// event joins the current cluster while it starts no later than window after
// the cluster's first event, otherwise it opens a new cluster.
func BuildClusters(events []database.MovementEvent, regions *geo.Registry, window time.Duration) []MovementCluster {
	byRegion := make(map[string][]database.MovementEvent)

	for i := range events {
		e := events[i]
		if err := e.Validate(); err != nil {
			log.Printf("Warning: skipping malformed movement event: %v", err)
			continue
		}
		if !e.HasLocation() {
			continue
		}
		region := regions.Locate(*e.LocationLat, *e.LocationLon)
		if region == nil {
			continue
		}
		byRegion[region.Name] = append(byRegion[region.Name], e)
	}

	var clusters []MovementCluster
	for regionName, regionEvents := range byRegion {
		sort.Slice(regionEvents, func(i, j int) bool {
			return regionEvents[i].DetectedAt.Before(regionEvents[j].DetectedAt)
		})

		var current []database.MovementEvent
		for _, e := range regionEvents {
			if len(current) > 0 && e.DetectedAt.Sub(current[0].DetectedAt) > window {
				clusters = append(clusters, finishCluster(regionName, current))
				current = nil
			}
			current = append(current, e)
		}
		if len(current) > 0 {
			clusters = append(clusters, finishCluster(regionName, current))
		}
	}

	// Map iteration order is random; keep output deterministic.
	sort.Slice(clusters, func(i, j int) bool {
		if clusters[i].Region != clusters[j].Region {
			return clusters[i].Region < clusters[j].Region
		}
		return clusters[i].WindowStart.Before(clusters[j].WindowStart)
	})

	return clusters
}

func finishCluster(region string, members []database.MovementEvent) MovementCluster {
	cluster := MovementCluster{
		Region:      region,
		EventCount:  len(members),
		WindowStart: members[0].DetectedAt,
		WindowEnd:   members[len(members)-1].DetectedAt,
	}

	var latSum, lonSum float64
	seenPosts := make(map[string]bool)
	for _, e := range members {
		cluster.MemberIDs = append(cluster.MemberIDs, e.ID)
		latSum += *e.LocationLat
		lonSum += *e.LocationLon
		if !seenPosts[e.SourcePostID] {
			seenPosts[e.SourcePostID] = true
			cluster.SourcePostIDs = append(cluster.SourcePostIDs, e.SourcePostID)
		}
	}
	cluster.CentroidLat = latSum / float64(len(members))
	cluster.CentroidLon = lonSum / float64(len(members))

	return cluster
}
