// Package sandbox evaluates assertion scripts of targets.
//
// Scripts are jq programs, evaluated by gojq against an object like {"statusCode": 200, "responseTime": 12.3, "body": ...}.
// jq has no way to reach the filesystem or the network, and this package also hides environment variables and disables input functions.
// So a script can only see the probe result that passed to it.
//
// A script passes if it raises no error and none of its outputs is false or null.
// Two helper functions are available in scripts:
//
//	assert(cond)            fails if cond is false or null
//	assert(cond; message)   fails with message if cond is false or null
package sandbox

import (
	"context"
	"errors"
	"fmt"

	"github.com/itchyny/gojq"
	"github.com/macrat/scout/internal/scouterr"
	api "github.com/macrat/scout/lib-scout"
)

// Input is the probe result that passed to a script.
type Input struct {
	StatusCode int

	// ResponseTime is the response time in milliseconds.
	ResponseTime float64

	// Body is a string for text targets, or a decoded JSON value for json targets.
	Body any
}

func (in Input) toJQ() map[string]any {
	return map[string]any{
		"statusCode":   in.StatusCode,
		"responseTime": in.ResponseTime,
		"body":         normalize(in.Body),
	}
}

// normalize converts values into the types that gojq can handle.
func normalize(v any) any {
	switch x := v.(type) {
	case nil, bool, int, float64, string:
		return x
	case int64:
		return int(x)
	case float32:
		return float64(x)
	case []any:
		ys := make([]any, len(x))
		for i, y := range x {
			ys[i] = normalize(y)
		}
		return ys
	case map[string]any:
		ys := make(map[string]any, len(x))
		for k, y := range x {
			ys[k] = normalize(y)
		}
		return ys
	case []byte:
		return string(x)
	default:
		return fmt.Sprint(x)
	}
}

type assertionError struct {
	message string
}

func (e *assertionError) Error() string {
	return e.message
}

func truthy(v any) bool {
	return v != nil && v != false
}

func jqAssert(v any, args []any) any {
	if truthy(args[0]) {
		return v
	}
	if len(args) > 1 {
		if msg, ok := args[1].(string); ok {
			return &assertionError{msg}
		}
		return &assertionError{fmt.Sprint(args[1])}
	}
	return &assertionError{"assertion failed"}
}

func passThrough(v any, _ []any) any {
	return v
}

func compile(script string) (*gojq.Code, error) {
	q, err := gojq.Parse(script)
	if err != nil {
		return nil, err
	}

	return gojq.Compile(
		q,
		gojq.WithEnvironLoader(func() []string { return nil }),
		gojq.WithFunction("assert", 1, 2, jqAssert),
		gojq.WithFunction("debug", 0, 1, passThrough),
		gojq.WithFunction("stderr", 0, 0, passThrough),
	)
}

// Check parses the script and reports syntax errors.
func Check(script string) error {
	if script == "" {
		return nil
	}
	if _, err := compile(script); err != nil {
		return scouterr.New(api.ErrScript, err, "invalid script")
	}
	return nil
}

// Run evaluates the script against the input.
//
// It returns nil if the script passed.
// The returned error is api.ErrAssertion if the script rejected the input, or api.ErrScript if the script itself was broken.
// An empty script always passes.
func Run(ctx context.Context, script string, input Input) error {
	if script == "" {
		return nil
	}

	code, err := compile(script)
	if err != nil {
		return scouterr.New(api.ErrScript, err, "invalid script")
	}

	iter := code.RunWithContext(ctx, input.toJQ())
	for {
		v, ok := iter.Next()
		if !ok {
			return nil
		}

		switch x := v.(type) {
		case *gojq.HaltError:
			if x.ExitCode() == 0 {
				return nil
			}
			return scouterr.New(api.ErrAssertion, nil, "script halted with exit code %d", x.ExitCode())
		case error:
			return classify(ctx, x)
		}

		if !truthy(v) {
			return scouterr.New(api.ErrAssertion, nil, "assertion failed: script returned %v", stringify(v))
		}
	}
}

func stringify(v any) string {
	if v == nil {
		return "null"
	}
	return fmt.Sprint(v)
}

func classify(ctx context.Context, err error) error {
	var ae *assertionError
	if errors.As(err, &ae) {
		if ae.message == "assertion failed" {
			return scouterr.New(api.ErrAssertion, nil, "assertion failed")
		}
		return scouterr.New(api.ErrAssertion, nil, "assertion failed: %s", ae.message)
	}

	var ve gojq.ValueError
	if errors.As(err, &ve) {
		if msg, ok := ve.Value().(string); ok {
			return scouterr.New(api.ErrAssertion, nil, "%s", msg)
		}
		return scouterr.New(api.ErrAssertion, err, "")
	}

	if ctx.Err() != nil {
		return scouterr.New(api.ErrScript, ctx.Err(), "script aborted")
	}

	return scouterr.New(api.ErrScript, err, "script error")
}
