package scout

import (
	"time"
)

// ApdexHorizon is how far Apdex looks back from now.
const ApdexHorizon = 24 * time.Hour

// Apdex calculates the Application Performance Index of snapshots.
//
// Snapshots are scanned from the newest one, and scanning stops at the first snapshot older than ApdexHorizon.
// Snapshots without response time are not counted.
// A response time up to threshold is satisfied, up to 4 times of threshold is tolerating, and otherwise frustrated.
//
// The ok is false if there is no snapshot to score. The score is 0 in this case.
func Apdex(snapshots []Snapshot, threshold time.Duration, now time.Time) (score float64, ok bool) {
	if threshold <= 0 {
		return 0, false
	}

	since := now.Add(-ApdexHorizon)

	var total, satisfied, tolerating int
	for i := len(snapshots) - 1; i >= 0; i-- {
		s := snapshots[i]
		if !s.Timestamp.After(since) {
			break
		}
		if s.ResponseTime <= 0 {
			continue
		}

		total++
		ratio := float64(s.ResponseTime) / float64(threshold)
		if ratio <= 1 {
			satisfied++
		} else if ratio <= 4 {
			tolerating++
		}
	}

	if total == 0 {
		return 0, false
	}

	return (float64(satisfied) + float64(tolerating)/2) / float64(total), true
}
