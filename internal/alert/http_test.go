package alert_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/macrat/scout/internal/alert"
	api "github.com/macrat/scout/lib-scout"
)

func TestHTTPSink_Send(t *testing.T) {
	t.Parallel()

	var received map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("unexpected method: %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type: %s", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &received); err != nil {
			t.Errorf("failed to parse payload: %s", err)
		}
		w.Write([]byte("queued\n"))
	}))
	defer srv.Close()

	resp, err := alert.HTTPSink{}.Send(context.Background(), srv.URL, alert.Payload{
		Recipients: []string{"alice@example.com", "bob@example.com"},
		Name:       "example",
		ErrMessage: "assertion failed",
		Detail: alert.Detail{
			TargetID:   "t1",
			URL:        "http://example.com",
			Streak:     2,
			StatusCode: 500,
			Timestamp:  "2024-01-01T00:00:00Z",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if resp != "queued" {
		t.Errorf("unexpected response: %q", resp)
	}

	want := map[string]any{
		"recipients": []any{"alice@example.com", "bob@example.com"},
		"name":       "example",
		"errMessage": "assertion failed",
		"detail": map[string]any{
			"targetId":   "t1",
			"url":        "http://example.com",
			"streak":     2.0,
			"statusCode": 500.0,
			"timestamp":  "2024-01-01T00:00:00Z",
		},
	}
	if diff := cmp.Diff(want, received); diff != "" {
		t.Errorf("unexpected payload\n%s", diff)
	}
}

func TestHTTPSink_Send_failure(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/error":
			http.Error(w, "broken", http.StatusInternalServerError)
		case "/slow":
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}
	}))
	defer srv.Close()

	tests := []struct {
		Name    string
		URL     string
		Message string
	}{
		{"error-status", srv.URL + "/error", "500 Internal Server Error: broken"},
		{"timeout", srv.URL + "/slow", srv.URL + "/slow: timed out"},
		{"invalid-url", "::", ""},
	}

	sink := alert.HTTPSink{Timeout: 100 * time.Millisecond}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			_, err := sink.Send(context.Background(), tt.URL, alert.Payload{Name: "example"})
			if !errors.Is(err, api.ErrAlertSend) {
				t.Fatalf("expected alert send error but got %v", err)
			}
			if tt.Message != "" && err.Error() != tt.Message {
				t.Errorf("unexpected message\nexpected: %q\n but got: %q", tt.Message, err.Error())
			}
		})
	}
}
