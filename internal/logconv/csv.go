package logconv

import (
	"encoding/csv"
	"io"
	"time"
)

func ToCSV(w io.Writer, rows []Row) error {
	c := csv.NewWriter(w)

	err := c.Write([]string{"time", "target_id", "target", "url", "status", "status_code", "response_time", "message"})
	if err != nil {
		return err
	}

	for _, r := range rows {
		err := c.Write([]string{
			r.Timestamp.Format(time.RFC3339),
			r.TargetID,
			r.TargetName,
			r.URL,
			r.Status.String(),
			r.statusCode(),
			r.responseTime(),
			r.ErrMessage,
		})
		if err != nil {
			return err
		}
	}

	c.Flush()

	return c.Error()
}
