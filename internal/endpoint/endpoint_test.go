package endpoint_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/macrat/scout/internal/endpoint"
	"github.com/macrat/scout/internal/journal"
	"github.com/macrat/scout/internal/store"
	"github.com/macrat/scout/internal/testutil"
	api "github.com/macrat/scout/lib-scout"
)

func request(t *testing.T, srv *httptest.Server, method, path, body string) (*http.Response, string) {
	t.Helper()

	req, err := http.NewRequest(method, srv.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatalf("failed to make request: %s", err)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("failed to %s %s: %s", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response: %s", err)
	}

	return resp, string(raw)
}

func TestNotFound(t *testing.T) {
	srv, _ := testutil.StartTestServer(t)

	resp, body := request(t, srv, "GET", "/not-found", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected status: %s", resp.Status)
	}
	if body != `{"error":"not found"}`+"\n" {
		t.Errorf("unexpected response: %s", body)
	}
}

func TestHealthzEndpoint(t *testing.T) {
	srv, _ := testutil.StartTestServer(t)

	resp, body := request(t, srv, "GET", "/healthz", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
	if body != "HEALTHY\n" {
		t.Errorf("unexpected response:\n%s", body)
	}
}

type BrokenStore struct {
	store.Store
}

func (s BrokenStore) Targets(ctx context.Context) ([]api.Target, error) {
	return nil, errors.New("database is gone")
}

func TestHealthzEndpoint_failure(t *testing.T) {
	srv := httptest.NewServer(endpoint.HealthzEndpoint(BrokenStore{}))
	defer srv.Close()

	resp, body := request(t, srv, "GET", "/", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
	if body != "FAILURE\ndatabase is gone\n" {
		t.Errorf("unexpected response:\n%s", body)
	}
}

func TestTargetsJSONEndpoint(t *testing.T) {
	srv, _ := testutil.StartTestServer(t)

	resp, body := request(t, srv, "GET", "/targets.json", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
	if ct := resp.Header.Get("Content-Type"); ct != "application/json" {
		t.Errorf("unexpected content type: %s", ct)
	}

	var targets []map[string]any
	if err := json.Unmarshal([]byte(body), &targets); err != nil {
		t.Fatalf("failed to parse response: %s\n%s", err, body)
	}

	if len(targets) != 2 {
		t.Fatalf("unexpected number of targets: %d", len(targets))
	}

	type Summary struct {
		Name        string
		Apdex       any
		ErrorStreak any
		LastStatus  any
		HasHistory  bool
	}
	var got []Summary
	for _, x := range targets {
		s := Summary{
			Name:        x["name"].(string),
			Apdex:       x["apdex"],
			ErrorStreak: x["errorStreak"],
		}
		if last, ok := x["lastSnapshot"].(map[string]any); ok {
			s.LastStatus = last["status"]
		}
		_, s.HasHistory = x["snapshots"]
		got = append(got, s)
	}

	want := []Summary{
		{Name: "alpha", Apdex: 0.75, ErrorStreak: float64(1), LastStatus: "Error"},
		{Name: "bravo", Apdex: nil, ErrorStreak: float64(0), LastStatus: nil},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("unexpected targets (-want +got):\n%s", diff)
	}
}

func TestTargetsTextEndpoint(t *testing.T) {
	srv, _ := testutil.StartTestServer(t)

	resp, body := request(t, srv, "GET", "/targets", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
	if resp.Request.URL.Path != "/targets.txt" {
		t.Errorf("expected to redirect to /targets.txt but got %s", resp.Request.URL.Path)
	}

	lines := strings.Split(strings.TrimRight(body, "\n"), "\n")
	if len(lines) != 3 {
		t.Fatalf("unexpected number of lines:\n%s", body)
	}

	for i, words := range [][]string{
		{"NAME", "STATUS", "APDEX", "LATENCY", "CHECKED", "URL"},
		{"alpha", "Error", "0.750", "1s", "1 minute ago", "GET https://alpha.example.com/health"},
		{"bravo", "-", "no data", "-", "never", "HEAD http://bravo.example.com"},
	} {
		for _, w := range words {
			if !strings.Contains(lines[i], w) {
				t.Errorf("line %d does not contain %q: %s", i, w, lines[i])
			}
		}
	}
}

func TestTargetEndpoint(t *testing.T) {
	srv, _ := testutil.StartTestServer(t)

	resp, body := request(t, srv, "GET", "/targets/alpha", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %s", resp.Status)
	}

	var target endpoint.TargetStatus
	if err := json.Unmarshal([]byte(body), &target); err != nil {
		t.Fatalf("failed to parse response: %s", err)
	}
	if target.ID != "alpha" || target.URL != "https://alpha.example.com/health" {
		t.Errorf("unexpected target: %#v", target)
	}
	if target.LastSnapshot == nil || target.LastSnapshot.ErrMessage != "assertion failed: script returned false" {
		t.Errorf("unexpected last snapshot: %#v", target.LastSnapshot)
	}

	resp, _ = request(t, srv, "GET", "/targets/no-such-target", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected status for unknown target: %s", resp.Status)
	}
}

func TestCreateTargetEndpoint(t *testing.T) {
	tests := []struct {
		Name   string
		Body   string
		Status int
		Error  string
	}{
		{
			Name:   "valid",
			Body:   `{"name": "charlie", "url": "https://charlie.example.com", "interval": 2.7, "testCase": ".statusCode == 200"}`,
			Status: http.StatusCreated,
		},
		{
			Name:   "broken-json",
			Body:   `{"name": `,
			Status: http.StatusBadRequest,
			Error:  "malformed target definition",
		},
		{
			Name:   "invalid-url",
			Body:   `{"name": "charlie", "url": "ftp://charlie.example.com"}`,
			Status: http.StatusBadRequest,
			Error:  "invalid target configuration",
		},
		{
			Name:   "invalid-script",
			Body:   `{"name": "charlie", "url": "https://charlie.example.com", "testCase": ".statusCode =="}`,
			Status: http.StatusBadRequest,
			Error:  "test case",
		},
		{
			Name:   "duplicated",
			Body:   `{"id": "alpha", "name": "charlie", "url": "https://charlie.example.com"}`,
			Status: http.StatusConflict,
			Error:  "target already exists: alpha",
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			srv, s := testutil.StartTestServer(t)

			resp, body := request(t, srv, "POST", "/targets", tt.Body)
			if resp.StatusCode != tt.Status {
				t.Fatalf("unexpected status: %s\n%s", resp.Status, body)
			}

			if tt.Error != "" {
				if !strings.Contains(body, tt.Error) {
					t.Errorf("expected error contains %q but got %s", tt.Error, body)
				}
				return
			}

			loc := resp.Header.Get("Location")
			if !strings.HasPrefix(loc, "/targets/") {
				t.Fatalf("unexpected location: %q", loc)
			}

			created, err := s.Target(context.Background(), strings.TrimPrefix(loc, "/targets/"))
			if err != nil {
				t.Fatalf("failed to get created target: %s", err)
			}
			if created.Name != "charlie" || created.Interval != 2 || created.NextPatrol != 0 {
				t.Errorf("unexpected target: %#v", created)
			}
		})
	}
}

func TestPutTargetEndpoint(t *testing.T) {
	srv, s := testutil.StartTestServer(t)

	resp, body := request(t, srv, "PUT", "/targets/alpha", `{"name": "alpha2", "url": "https://alpha.example.com/v2", "tolerance": 3}`)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status: %s\n%s", resp.Status, body)
	}

	updated, err := s.Target(context.Background(), "alpha")
	if err != nil {
		t.Fatalf("failed to get target: %s", err)
	}
	if updated.Name != "alpha2" || updated.URL != "https://alpha.example.com/v2" || updated.Tolerance != 3 {
		t.Errorf("target was not updated: %#v", updated)
	}
	if len(updated.Snapshots) != 2 {
		t.Errorf("history was not kept: %d snapshots", len(updated.Snapshots))
	}

	resp, body = request(t, srv, "PUT", "/targets/alpha", `{"id": "bravo", "name": "alpha", "url": "https://alpha.example.com"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected status for mismatched id: %s\n%s", resp.Status, body)
	}

	resp, body = request(t, srv, "PUT", "/targets/alpha", `{"name": "alpha", "url": "https://alpha.example.com", "method": "DELETE"}`)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("unexpected status for invalid method: %s\n%s", resp.Status, body)
	}
}

func TestDeleteTargetEndpoint(t *testing.T) {
	srv, s := testutil.StartTestServer(t)

	resp, _ := request(t, srv, "DELETE", "/targets/bravo", "")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("unexpected status: %s", resp.Status)
	}

	if _, err := s.Target(context.Background(), "bravo"); !errors.Is(err, api.ErrNotFound) {
		t.Errorf("target was not deleted: %v", err)
	}

	resp, _ = request(t, srv, "DELETE", "/targets/bravo", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("unexpected status for second delete: %s", resp.Status)
	}
}

func TestSnapshotsEndpoint(t *testing.T) {
	srv, _ := testutil.StartTestServer(t)

	tests := []struct {
		Path     string
		Status   int
		Statuses []api.Status
	}{
		{"/targets/alpha/snapshots.json", http.StatusOK, []api.Status{api.StatusOK, api.StatusError}},
		{"/targets/alpha/snapshots.json?limit=1", http.StatusOK, []api.Status{api.StatusError}},
		{"/targets/alpha/snapshots.json?since=2999-01-01T00:00:00Z", http.StatusOK, []api.Status{}},
		{"/targets/bravo/snapshots.json", http.StatusOK, []api.Status{}},
		{"/targets/alpha/snapshots.json?since=yesterday", http.StatusBadRequest, nil},
		{"/targets/alpha/snapshots.json?limit=-1", http.StatusBadRequest, nil},
		{"/targets/no-such-target/snapshots.json", http.StatusNotFound, nil},
	}

	for _, tt := range tests {
		t.Run(tt.Path, func(t *testing.T) {
			resp, body := request(t, srv, "GET", tt.Path, "")
			if resp.StatusCode != tt.Status {
				t.Fatalf("unexpected status: %s\n%s", resp.Status, body)
			}
			if tt.Statuses == nil {
				return
			}

			var snaps []api.Snapshot
			if err := json.Unmarshal([]byte(body), &snaps); err != nil {
				t.Fatalf("failed to parse response: %s", err)
			}

			got := []api.Status{}
			for _, s := range snaps {
				got = append(got, s.Status)
			}
			if diff := cmp.Diff(tt.Statuses, got); diff != "" {
				t.Errorf("unexpected snapshots (-want +got):\n%s", diff)
			}
		})
	}
}

func TestGzip(t *testing.T) {
	srv, s := testutil.StartTestServer(t)

	for i := 0; i < 20; i++ {
		x := testutil.SampleTargets(time.Now())[0]
		x.ID = fmt.Sprintf("target-%d", i)
		if err := s.Put(context.Background(), x); err != nil {
			t.Fatalf("failed to put target: %s", err)
		}
	}

	req, err := http.NewRequest("GET", srv.URL+"/targets.json", nil)
	if err != nil {
		t.Fatalf("failed to make request: %s", err)
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("failed to get: %s", err)
	}
	defer resp.Body.Close()

	if enc := resp.Header.Get("Content-Encoding"); enc != "gzip" {
		t.Errorf("response is not compressed: %q", enc)
	}
}

func TestEndpoint_internalError(t *testing.T) {
	j := journal.New(io.Discard)
	entries, cancel := j.Subscribe(8)
	defer cancel()

	srv := httptest.NewServer(endpoint.New(BrokenStore{}, j))
	defer srv.Close()

	resp, body := request(t, srv, "GET", "/targets.json", "")
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("unexpected status: %s", resp.Status)
	}
	if body != `{"error":"internal server error"}`+"\n" {
		t.Errorf("unexpected response: %s", body)
	}

	select {
	case e := <-entries:
		if e.Status != journal.StatusFailure || e.Scope != "scout:endpoint" || e.Message != "targets.json: database is gone" {
			t.Errorf("unexpected journal entry: %#v", e)
		}
	case <-time.After(time.Second):
		t.Errorf("failure was not journaled")
	}
}
