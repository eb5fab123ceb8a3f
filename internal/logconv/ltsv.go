package logconv

import (
	"fmt"
	"io"
	"strings"
	"time"
)

var ltsvEscaper = strings.NewReplacer(`\`, `\\`, "\t", `\t`, "\n", `\n`, "\r", `\r`)

func ToLTSV(w io.Writer, rows []Row) error {
	for _, r := range rows {
		_, err := fmt.Fprintf(
			w,
			"time:%s\tstatus:%s\ttarget_id:%s\ttarget:%s\turl:%s",
			r.Timestamp.Format(time.RFC3339),
			r.Status,
			r.TargetID,
			ltsvEscaper.Replace(r.TargetName),
			r.URL,
		)
		if err != nil {
			return err
		}

		for _, x := range []struct{ Key, Value string }{
			{"status_code", r.statusCode()},
			{"response_time", r.responseTime()},
			{"message", r.ErrMessage},
		} {
			if x.Value == "" {
				continue
			}
			if _, err := fmt.Fprintf(w, "\t%s:%s", x.Key, ltsvEscaper.Replace(x.Value)); err != nil {
				return err
			}
		}

		if _, err = fmt.Fprintln(w); err != nil {
			return err
		}
	}

	return nil
}
