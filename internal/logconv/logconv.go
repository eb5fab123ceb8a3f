// Package logconv converts the snapshot history into other formats.
package logconv

import (
	"sort"
	"strconv"
	"time"

	api "github.com/macrat/scout/lib-scout"
)

// Row is a snapshot with the target it belongs to.
type Row struct {
	TargetID   string
	TargetName string
	URL        string
	api.Snapshot
}

// Rows flattens the snapshot history of targets in chronological order.
// Snapshots at the same time are ordered by the target name.
// Snapshots before since are skipped.
func Rows(ts []api.Target, since time.Time) []Row {
	var rows []Row
	for _, t := range ts {
		for _, s := range t.Snapshots {
			if s.Timestamp.Before(since) {
				continue
			}
			rows = append(rows, Row{
				TargetID:   t.ID,
				TargetName: t.Name,
				URL:        t.URL,
				Snapshot:   s,
			})
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		if !rows[i].Timestamp.Equal(rows[j].Timestamp) {
			return rows[i].Timestamp.Before(rows[j].Timestamp)
		}
		return rows[i].TargetName < rows[j].TargetName
	})

	return rows
}

func (r Row) statusCode() string {
	if r.StatusCode == 0 {
		return ""
	}
	return strconv.Itoa(r.StatusCode)
}

func (r Row) responseTime() string {
	if r.ResponseTime <= 0 {
		return ""
	}
	return strconv.FormatFloat(r.ResponseTimeMS(), 'f', 3, 64)
}
