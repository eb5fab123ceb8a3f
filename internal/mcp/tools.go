package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	api "github.com/macrat/scout/lib-scout"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Store is the source of targets.
type Store interface {
	Targets(ctx context.Context) ([]api.Target, error)
}

// TargetsInput is the input for query_targets tool.
type TargetsInput struct {
	JQ string `json:"jq,omitempty" jsonschema:"A jq query string to filter and/or aggregate targets. Query receives an array. Each object is like '{\"id\": \"...\", \"name\": \"...\", \"url\": \"...\", \"apdex\": 0.95, \"error_streak\": 0, \"latest\": {\"time\": \"{RFC 3339}\", \"status\": \"OK|Error|Idle\", \"status_code\": 200, \"response_time_ms\": 12.3, \"message\": \"...\"}, ...}'. You can use 'parse_url' filter to parse URLs. For example, 'map(select(.latest.status == \"Error\")) | map({name, message: .latest.message})' to get failing targets."`
}

// FetchTargetsByJQ fetches targets from store and applies jq query.
func FetchTargetsByJQ(ctx context.Context, s Store, now time.Time, input TargetsInput) (Output, error) {
	jq, err := ParseJQ(input.JQ)
	if err != nil {
		return Output{}, fmt.Errorf("failed to parse jq query: %w", err)
	}

	ts, err := s.Targets(ctx)
	if err != nil {
		return Output{}, errors.New("internal server error")
	}

	targets := make([]any, 0, len(ts))
	for _, t := range ts {
		targets = append(targets, TargetToMap(t, now))
	}

	return jq.Run(ctx, targets)
}

// SnapshotsInput is the input for query_snapshots tool.
type SnapshotsInput struct {
	Target string `json:"target,omitempty" jsonschema:"ID or name of the target. If omitted, snapshots of all targets are returned."`
	Since  string `json:"since,omitempty" jsonschema:"The start time for fetching snapshots, in RFC3339 format. If omitted, all snapshots are returned."`
	JQ     string `json:"jq,omitempty" jsonschema:"A jq query string to filter snapshots. Query receives an array of snapshot objects. Each object has 'target_id', 'target_name', 'time', 'status', and optionally 'status_code', 'response_time_ms', and 'message'. For example, 'map(select(.status == \"Error\")) | group_by(.target_name)[] | {target: .[0].target_name, count: length}' to count errors per target."`
}

// FetchSnapshotsByJQ fetches snapshots from store and applies jq query.
func FetchSnapshotsByJQ(ctx context.Context, s Store, input SnapshotsInput) (Output, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var since time.Time
	if input.Since != "" {
		var err error
		since, err = time.Parse(time.RFC3339, input.Since)
		if err != nil {
			return Output{}, fmt.Errorf("since time must be in RFC3339 format but got %q", input.Since)
		}
	}

	jq, err := ParseJQ(input.JQ)
	if err != nil {
		return Output{}, fmt.Errorf("failed to parse jq query: %w", err)
	}

	ts, err := s.Targets(ctx)
	if err != nil {
		return Output{}, errors.New("internal server error")
	}

	found := input.Target == ""
	snapshots := []any{}
	for _, t := range ts {
		if input.Target != "" && input.Target != t.ID && input.Target != t.Name {
			continue
		}
		found = true

		for _, snap := range t.Snapshots {
			if snap.Timestamp.Before(since) {
				continue
			}
			x := SnapshotToMap(snap)
			x["target_id"] = t.ID
			x["target_name"] = t.Name
			snapshots = append(snapshots, x)
		}
	}
	if !found {
		return Output{}, fmt.Errorf("no such target: %q", input.Target)
	}

	return jq.Run(ctx, snapshots)
}

// AddReadOnlyTools adds the query tools to the MCP server.
func AddReadOnlyTools(server *mcp.Server, s Store, now func() time.Time) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_targets",
		Title:       "Query targets",
		Description: "Fetch monitored targets with their latest snapshot and Apdex score from Scout server.",
		Annotations: &mcp.ToolAnnotations{
			IdempotentHint: true,
			ReadOnlyHint:   true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input TargetsInput) (*mcp.CallToolResult, Output, error) {
		output, err := FetchTargetsByJQ(ctx, s, now(), input)
		return nil, output, err
	})

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_snapshots",
		Title:       "Query snapshots",
		Description: "Fetch probe history of targets from Scout server. The result can be large. Please use since parameter and aggregation in jq query to reduce the result size.",
		Annotations: &mcp.ToolAnnotations{
			IdempotentHint: true,
			ReadOnlyHint:   true,
		},
	}, func(ctx context.Context, req *mcp.CallToolRequest, input SnapshotsInput) (*mcp.CallToolResult, Output, error) {
		output, err := FetchSnapshotsByJQ(ctx, s, input)
		return nil, output, err
	})
}
