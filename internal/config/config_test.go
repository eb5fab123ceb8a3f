package config_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/macrat/scout/internal/config"
	api "github.com/macrat/scout/lib-scout"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scout.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %s", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
listen: 127.0.0.1:8080
tick: 30s
timezone: UTC
request_timeout: 5s
concurrency: 4
snapshot_limit: 0
alert_url: http://alert.example.com/notify
store:
  driver: sqlite
  dsn: /tmp/scout.db
targets:
  - name: example
    url: https://example.com
    method: post
    headers:
      - [Content-Type, application/json]
    body: '{"ping": true}'
    read_type: json
    test_case: .statusCode == 200
    recipients: [alice@example.com]
    apdex_target: 300.7
    interval: 2.9
    tolerance: 3
    work_time:
      - [[1, 9, 0], [5, 18, 0]]
`)

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("failed to load: %s", err)
	}

	if cfg.Listen != "127.0.0.1:8080" || cfg.Tick != "30s" || cfg.Concurrency != 4 || cfg.RequestTimeout != 5*time.Second {
		t.Errorf("unexpected config: %#v", cfg)
	}
	if cfg.SnapshotLimit != 0 {
		t.Errorf("explicit zero snapshot limit should be kept but got %d", cfg.SnapshotLimit)
	}
	if cfg.AlertTimeout != 10*time.Second || cfg.BodyLimit != 1<<20 {
		t.Errorf("defaults should be used for missing keys: %#v", cfg)
	}
	if cfg.AlertURL() != "http://alert.example.com/notify" {
		t.Errorf("unexpected alert url: %s", cfg.AlertURL())
	}
	if loc, err := cfg.Location(); err != nil || loc != time.UTC {
		t.Errorf("unexpected location: %v, %v", loc, err)
	}

	ts, err := cfg.SeedTargets()
	if err != nil {
		t.Fatalf("failed to build targets: %s", err)
	}

	want := []api.Target{{
		ID:          config.SeedID("example"),
		Name:        "example",
		Method:      "POST",
		URL:         "https://example.com",
		Body:        `{"ping": true}`,
		Headers:     []api.Header{{Name: "Content-Type", Value: "application/json"}},
		ReadType:    api.ReadJSON,
		TestCase:    ".statusCode == 200",
		Recipients:  []string{"alice@example.com"},
		ApdexTarget: 300,
		Interval:    2,
		Tolerance:   3,
		WorkTime: []api.WorkTimeRange{
			{{Weekday: time.Monday, Hour: 9, Minute: 0}, {Weekday: time.Friday, Hour: 18, Minute: 0}},
		},
	}}
	if diff := cmp.Diff(want, ts); diff != "" {
		t.Errorf("unexpected targets\n%s", diff)
	}
}

func TestLoad_missingFile(t *testing.T) {
	cfg, err := config.Load(filepath.Join(t.TempDir(), "not-exists.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %s", err)
	}
	if diff := cmp.Diff(config.Default(), cfg); diff != "" {
		t.Errorf("unexpected config\n%s", diff)
	}
}

func TestLoad_env(t *testing.T) {
	t.Setenv("SCOUT_ALERT_URL", "http://env.example.com")
	t.Setenv("SCOUT_STORE_DRIVER", "memory")
	t.Setenv("SCOUT_STORE_DSN", "")

	cfg, err := config.Load("")
	if err != nil {
		t.Fatalf("failed to load: %s", err)
	}
	if cfg.AlertURL() != "http://env.example.com" {
		t.Errorf("unexpected alert url: %s", cfg.AlertURL())
	}
	if cfg.Store.Driver != "memory" || cfg.Store.DSN != "" {
		t.Errorf("unexpected store: %#v", cfg.Store)
	}
}

func TestLoad_invalid(t *testing.T) {
	path := writeConfig(t, `
tick: every minute
timezone: Nowhere/Unknown
store:
  driver: mysql
targets:
  - name: no-url
  - name: dup
    url: http://a.example.com
  - name: dup
    url: http://b.example.com
  - name: bad-script
    url: http://example.com
    test_case: .statusCode ==
`)

	_, err := config.Load(path)
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("expected invalid config error but got %v", err)
	}

	msg := err.Error()
	for _, want := range []string{
		"tick:",
		"timezone:",
		`store.driver must be memory, file, sqlite, or postgres but got "mysql"`,
		"target #1: invalid target configuration:",
		"url is required",
		"target #3: duplicated with target #2",
		"target #4: test case: invalid script",
	} {
		if !strings.Contains(msg, want) {
			t.Errorf("error message should contain %q\n%s", want, msg)
		}
	}
}

func TestLoad_broken(t *testing.T) {
	path := writeConfig(t, "listen: [broken")

	if _, err := config.Load(path); err == nil || !strings.HasPrefix(err.Error(), "parse config:") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestSeedID(t *testing.T) {
	if config.SeedID("example") != config.SeedID(" example ") {
		t.Errorf("seed ID should be stable")
	}
	if config.SeedID("example") == config.SeedID("another") {
		t.Errorf("seed ID should differ by name")
	}
	if config.NewID() == config.NewID() {
		t.Errorf("new ID should be random")
	}
}

func TestBuildTarget(t *testing.T) {
	_, err := config.BuildTarget(api.TargetSpec{Name: "x", URL: "http://example.com", TestCase: "assert("}, config.NewID)
	if !errors.Is(err, api.ErrConfiguration) {
		t.Errorf("broken script should be a configuration error but got %v", err)
	}

	target, err := config.BuildTarget(api.TargetSpec{ID: "fixed", Name: "x", URL: "http://example.com"}, config.NewID)
	if err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	if target.ID != "fixed" || target.NextPatrol != 0 {
		t.Errorf("unexpected target: %#v", target)
	}
}
