package correlation

import "time"

// InWindow reports whether a movement cluster starting at windowStart is
// temporally correlated with a narrative event detected at narrativeAt.
//
// The causal assumption is narrative-precedes-movement: the cluster must
// start between 0 and window after the narrative. Both boundaries are
// inclusive, so a cluster starting exactly at the narrative timestamp or
// exactly window later still matches. A cluster that starts before the
// narrative does not match it, though it may match an earlier narrative.
func InWindow(narrativeAt, windowStart time.Time, window time.Duration) bool {
	delta := windowStart.Sub(narrativeAt)
	return delta >= 0 && delta <= window
}
