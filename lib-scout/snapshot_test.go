package scout_test

import (
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"github.com/macrat/scout/lib-scout"
)

func TestSnapshot_JSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		Snapshot scout.Snapshot
		JSON     string
	}{
		{
			scout.Snapshot{
				Timestamp:    time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
				Status:       scout.StatusOK,
				StatusCode:   200,
				ResponseTime: 123456 * time.Microsecond,
			},
			`{"timestamp":"2024-01-02T15:04:05Z","status":"OK","statusCode":200,"responseTime":123.456}`,
		},
		{
			scout.Snapshot{
				Timestamp:  time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
				Status:     scout.StatusError,
				ErrMessage: "connection refused",
			},
			`{"timestamp":"2024-01-02T15:04:05Z","status":"Error","errMessage":"connection refused"}`,
		},
		{
			scout.Snapshot{
				Timestamp: time.Date(2024, 1, 2, 15, 4, 5, 0, time.UTC),
				Status:    scout.StatusIdle,
			},
			`{"timestamp":"2024-01-02T15:04:05Z","status":"Idle"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.Snapshot.Status.String(), func(t *testing.T) {
			b, err := json.Marshal(tt.Snapshot)
			if err != nil {
				t.Fatalf("failed to marshal: %s", err)
			}
			if string(b) != tt.JSON {
				t.Errorf("unexpected json:\nexpected: %s\n but got: %s", tt.JSON, b)
			}

			var s scout.Snapshot
			if err := json.Unmarshal(b, &s); err != nil {
				t.Fatalf("failed to unmarshal: %s", err)
			}
			if diff := cmp.Diff(tt.Snapshot, s); diff != "" {
				t.Errorf("unexpected snapshot:\n%s", diff)
			}
		})
	}
}

func TestTarget_JSON(t *testing.T) {
	t.Parallel()

	target := scout.Target{
		ID:          "1",
		Name:        "example",
		Method:      "GET",
		URL:         "http://example.com",
		Headers:     []scout.Header{{Name: "X-Token", Value: "abc"}},
		ReadType:    scout.ReadText,
		ApdexTarget: 500,
		Interval:    5,
		WorkTime: []scout.WorkTimeRange{{
			{Weekday: time.Friday, Hour: 22, Minute: 0},
			{Weekday: time.Monday, Hour: 6, Minute: 0},
		}},
	}

	b, err := json.Marshal(target)
	if err != nil {
		t.Fatalf("failed to marshal: %s", err)
	}

	want := `{"id":"1","name":"example","method":"GET","url":"http://example.com","headers":[["X-Token","abc"]],"readType":"text","apdexTarget":500,"interval":5,"nextPatrol":0,"tolerance":0,"workTime":[[[5,22,0],[1,6,0]]]}`
	if string(b) != want {
		t.Errorf("unexpected json:\nexpected: %s\n but got: %s", want, b)
	}

	var decoded scout.Target
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("failed to unmarshal: %s", err)
	}
	if diff := cmp.Diff(target, decoded); diff != "" {
		t.Errorf("unexpected target:\n%s", diff)
	}
}
