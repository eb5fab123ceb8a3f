// Package probe sends requests to targets and judges the responses.
package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/macrat/scout/internal/meta"
	"github.com/macrat/scout/internal/sandbox"
	"github.com/macrat/scout/internal/scouterr"
	api "github.com/macrat/scout/lib-scout"
)

const (
	HTTP_REDIRECT_MAX = 10

	DefaultTimeout   = 30 * time.Second
	DefaultBodyLimit = 1 << 20
)

var (
	ErrRedirectLoopDetected = errors.New("redirect loop detected")
)

func checkHTTPRedirect(req *http.Request, via []*http.Request) error {
	if len(via) > HTTP_REDIRECT_MAX {
		return ErrRedirectLoopDetected
	}
	return nil
}

// NewHTTPClient makes a client for probing.
func NewHTTPClient() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			Proxy:             http.ProxyFromEnvironment,
			DisableKeepAlives: true,
		},
		CheckRedirect: checkHTTPRedirect,
	}
}

// Executor runs a probe of a target and makes a Snapshot of the result.
type Executor struct {
	Client *http.Client

	// Timeout bounds the whole probe including the body read and the script.
	Timeout time.Duration

	// BodyLimit is the maximum size of the response body to read, in bytes.
	BodyLimit int64

	// Location is the timezone to judge work time.
	Location *time.Location

	Now func() time.Time
}

// New makes an Executor with the default settings.
func New() *Executor {
	return &Executor{
		Client:    NewHTTPClient(),
		Timeout:   DefaultTimeout,
		BodyLimit: DefaultBodyLimit,
		Location:  time.Local,
		Now:       time.Now,
	}
}

func (e *Executor) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

func (e *Executor) client() *http.Client {
	if e.Client != nil {
		return e.Client
	}
	return http.DefaultClient
}

func (e *Executor) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultTimeout
}

func (e *Executor) bodyLimit() int64 {
	if e.BodyLimit > 0 {
		return e.BodyLimit
	}
	return DefaultBodyLimit
}

func (e *Executor) location() *time.Location {
	if e.Location != nil {
		return e.Location
	}
	return time.Local
}

func newRequest(ctx context.Context, t api.Target) (*http.Request, error) {
	var body io.Reader
	if t.Body != "" {
		body = strings.NewReader(t.Body)
	}

	method := t.Method
	if method == "" {
		method = http.MethodGet
	}

	req, err := http.NewRequestWithContext(ctx, method, t.URL, body)
	if err != nil {
		return nil, scouterr.New(api.ErrConfiguration, err, "failed to make request")
	}

	req.Header = t.HTTPHeader()
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", meta.UserAgent())
	}

	return req, nil
}

// networkMessage makes a short message for the transport error.
func networkMessage(ctx context.Context, err error) string {
	switch ctx.Err() {
	case context.DeadlineExceeded:
		return "probe timed out"
	case context.Canceled:
		return "probe aborted"
	}

	dnsErr := &net.DNSError{}
	opErr := &net.OpError{}

	if errors.As(err, &dnsErr) {
		if dnsErr.IsNotFound {
			return fmt.Sprintf("%s: no such host", dnsErr.Name)
		}
		return dnsErr.Error()
	} else if errors.As(err, &opErr) && opErr.Op == "dial" {
		return fmt.Sprintf("%s: connection refused", opErr.Addr)
	} else if errors.Is(err, ErrRedirectLoopDetected) {
		return ErrRedirectLoopDetected.Error()
	}
	return err.Error()
}

// Execute probes the target and returns the outcome.
//
// The returned snapshot is StatusIdle if it is out of the target's work time, StatusOK if the script passed, or StatusError otherwise.
// Execute never panics and never returns an error; every failure is recorded in the snapshot.
func (e *Executor) Execute(ctx context.Context, t api.Target) (snap api.Snapshot) {
	now := e.now()
	snap.Timestamp = now

	defer func() {
		if r := recover(); r != nil {
			snap.Status = api.StatusError
			snap.ErrMessage = fmt.Sprintf("panic: %v", r)
		}
	}()

	if !t.IsWorkTime(now.In(e.location())) {
		snap.Status = api.StatusIdle
		return snap
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout())
	defer cancel()

	fail := func(err error) api.Snapshot {
		snap.Status = api.StatusError
		snap.ErrMessage = err.Error()
		return snap
	}

	req, err := newRequest(ctx, t)
	if err != nil {
		return fail(err)
	}

	st := time.Now()
	resp, err := e.client().Do(req)
	if err != nil {
		return fail(scouterr.New(api.ErrNetwork, nil, "%s", networkMessage(ctx, err)))
	}
	snap.ResponseTime = time.Since(st)
	snap.StatusCode = resp.StatusCode
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, e.bodyLimit()))
	if err != nil {
		return fail(scouterr.New(api.ErrNetwork, nil, "failed to read response: %s", networkMessage(ctx, err)))
	}

	text := decodeText(raw, resp.Header.Get("Content-Type"))

	var body any = text
	if t.ReadType == api.ReadJSON {
		var v any
		if err := json.Unmarshal([]byte(text), &v); err != nil {
			snap.Body = text
			return fail(scouterr.New(api.ErrNetwork, err, "failed to decode response as JSON"))
		}
		body = v
	}

	err = sandbox.Run(ctx, t.TestCase, sandbox.Input{
		StatusCode:   snap.StatusCode,
		ResponseTime: snap.ResponseTimeMS(),
		Body:         body,
	})
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			err = errors.New("probe timed out")
		}
		snap.Body = text
		return fail(err)
	}

	snap.Status = api.StatusOK
	return snap
}
