package store

import (
	"time"

	"github.com/goccy/go-json"
	api "github.com/macrat/scout/lib-scout"
)

// encodeConfig encodes the configuration part of a target.
// Countdown and snapshots have their own columns.
func encodeConfig(t api.Target) (string, error) {
	t.NextPatrol = 0
	t.Snapshots = nil
	bs, err := json.Marshal(t)
	return string(bs), err
}

func decodeConfig(config string, nextPatrol int) (api.Target, error) {
	var t api.Target
	if err := json.Unmarshal([]byte(config), &t); err != nil {
		return api.Target{}, err
	}
	t.NextPatrol = nextPatrol
	t.Snapshots = nil
	return t, nil
}

// snapshotRow is a row of the snapshots table.
type snapshotRow struct {
	TargetID     string
	Timestamp    time.Time
	Status       string
	StatusCode   int
	ResponseTime int64
	ErrMessage   string
	Body         string
}

func rowOf(id string, s api.Snapshot) snapshotRow {
	return snapshotRow{
		TargetID:     id,
		Timestamp:    s.Timestamp,
		Status:       s.Status.String(),
		StatusCode:   s.StatusCode,
		ResponseTime: int64(s.ResponseTime),
		ErrMessage:   s.ErrMessage,
		Body:         s.Body,
	}
}

func (r snapshotRow) Snapshot() api.Snapshot {
	status, _ := api.ParseStatus(r.Status)
	return api.Snapshot{
		Timestamp:    r.Timestamp,
		Status:       status,
		StatusCode:   r.StatusCode,
		ResponseTime: time.Duration(r.ResponseTime),
		ErrMessage:   r.ErrMessage,
		Body:         r.Body,
	}
}

// attachSnapshots puts rows into the targets that have the same ID.
func attachSnapshots(ts []api.Target, rows []snapshotRow) {
	idx := make(map[string]int, len(ts))
	for i, t := range ts {
		idx[t.ID] = i
	}
	for _, r := range rows {
		if i, ok := idx[r.TargetID]; ok {
			ts[i].Snapshots = append(ts[i].Snapshots, r.Snapshot())
		}
	}
}
