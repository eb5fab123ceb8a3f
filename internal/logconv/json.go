package logconv

import (
	"io"

	"github.com/goccy/go-json"
	api "github.com/macrat/scout/lib-scout"
)

type jsonRow struct {
	TargetID   string       `json:"targetId"`
	TargetName string       `json:"target"`
	URL        string       `json:"url"`
	Snapshot   api.Snapshot `json:"snapshot"`
}

// ToJSON writes rows as JSON Lines.
func ToJSON(w io.Writer, rows []Row) error {
	enc := json.NewEncoder(w)

	for _, r := range rows {
		err := enc.Encode(jsonRow{
			TargetID:   r.TargetID,
			TargetName: r.TargetName,
			URL:        r.URL,
			Snapshot:   r.Snapshot,
		})
		if err != nil {
			return err
		}
	}

	return nil
}
