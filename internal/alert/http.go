package alert

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/macrat/scout/internal/meta"
	"github.com/macrat/scout/internal/scouterr"
	api "github.com/macrat/scout/lib-scout"
)

const (
	DefaultTimeout = 10 * time.Second

	responseLimit = 4096
)

// HTTPSink sends alerts as JSON via HTTP POST.
type HTTPSink struct {
	Client  *http.Client
	Timeout time.Duration
}

func (s HTTPSink) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return http.DefaultClient
}

// Send implements Sink.
// It fails with api.ErrAlertSend if the destination was unreachable or responded with non-2xx status.
func (s HTTPSink) Send(ctx context.Context, url string, p Payload) (string, error) {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := json.Marshal(p)
	if err != nil {
		return "", scouterr.New(api.ErrAlertSend, err, "failed to encode alert")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", scouterr.New(api.ErrAlertSend, err, "")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", meta.UserAgent())

	resp, err := s.client().Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			return "", scouterr.New(api.ErrAlertSend, nil, "%s: timed out", url)
		}
		return "", scouterr.New(api.ErrAlertSend, err, "")
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, responseLimit))
	text := strings.TrimSpace(string(raw))

	if resp.StatusCode < 200 || 299 < resp.StatusCode {
		if text == "" {
			return text, scouterr.New(api.ErrAlertSend, nil, "%s", resp.Status)
		}
		return text, scouterr.New(api.ErrAlertSend, nil, "%s: %s", resp.Status, text)
	}

	if text == "" {
		text = resp.Status
	}
	return text, nil
}
