package main_test

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/macrat/scout/cmd/scout"
	"github.com/macrat/scout/internal/journal"
	"github.com/macrat/scout/internal/store"
	api "github.com/macrat/scout/lib-scout"
)

func StartTargetServer(t testing.TB) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/ok", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status": "ok"}`)
	})
	mux.HandleFunc("/error", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "something wrong")
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func WriteConfig(t testing.TB, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "scout.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %s", err)
	}
	return path
}

func MakeTestCommand(t testing.TB) (*main.ScoutCommand, *bytes.Buffer) {
	t.Helper()

	buf := bytes.NewBuffer([]byte{})

	return &main.ScoutCommand{
		OutStream: buf,
		ErrStream: buf,
	}, buf
}

func TestScoutCommand_ParseArgs(t *testing.T) {
	t.Setenv("SCOUT_ALERT_URL", "")

	validConfig := WriteConfig(t, `
tick: 30s
store:
  driver: memory
targets:
  - name: example
    url: https://example.com
    interval: 2.5
`)
	brokenConfig := WriteConfig(t, `
targets:
  - name: example
    url: ftp://example.com
`)
	missingConfig := filepath.Join(t.TempDir(), "missing.yaml")

	tests := []struct {
		Args     []string
		Pattern  string
		ExitCode int
		Extra    func(*testing.T, main.ScoutCommand)
	}{
		{
			Args:     []string{"scout", "--no-such-option"},
			Pattern:  "^unknown flag: --no-such-option\n\nPlease see `scout -h` for more information\\.\n$",
			ExitCode: 2,
		},
		{
			Args:     []string{"scout", "-v", "-1", "-p", "1234"},
			Pattern:  `^$`,
			ExitCode: 0,
		},
		{
			Args:     []string{"scout", "-h", "-c", "somewhere"},
			Pattern:  `^$`,
			ExitCode: 0,
		},
		{
			Args:     []string{"scout", "-c", missingConfig, "something"},
			Pattern:  "^invalid argument: unexpected argument: something\n",
			ExitCode: 2,
		},
		{
			Args:     []string{"scout", "-c", missingConfig, "-1", "-p", "1234", "-s", "memory"},
			Pattern:  "^warning: port option will ignored in the oneshot mode\\.\n$",
			ExitCode: 0,
		},
		{
			Args:     []string{"scout", "-c", missingConfig, "-s", "mysql"},
			Pattern:  `store\.driver must be memory, file, sqlite, or postgres but got "mysql"`,
			ExitCode: 2,
		},
		{
			Args:     []string{"scout", "-c", brokenConfig},
			Pattern:  `url must be http or https but got "ftp://example.com"`,
			ExitCode: 2,
		},
		{
			Args:     []string{"scout", "-c", validConfig, "-p", "1234", "-a", "https://alert.example.com", "-s", "sqlite", "-d", "./scout.db"},
			Pattern:  `^$`,
			ExitCode: 0,
			Extra: func(t *testing.T, cmd main.ScoutCommand) {
				if cmd.Config.Listen != "0.0.0.0:1234" {
					t.Errorf("unexpected listen address: %s", cmd.Config.Listen)
				}
				if cmd.Config.AlertURL() != "https://alert.example.com" {
					t.Errorf("unexpected alert URL: %s", cmd.Config.AlertURL())
				}
				if cmd.Config.Store.Driver != "sqlite" || cmd.Config.Store.DSN != "./scout.db" {
					t.Errorf("unexpected store: %#v", cmd.Config.Store)
				}
				if cmd.Config.Tick != "30s" {
					t.Errorf("unexpected tick: %s", cmd.Config.Tick)
				}
				ts, err := cmd.Config.SeedTargets()
				if err != nil {
					t.Fatalf("failed to build targets: %s", err)
				}
				if len(ts) != 1 || ts[0].Interval != 2 {
					t.Errorf("unexpected targets: %#v", ts)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.Args), func(t *testing.T) {
			cmd, buf := MakeTestCommand(t)

			code := cmd.ParseArgs(tt.Args)
			if code != tt.ExitCode {
				t.Errorf("unexpected exit code: %d\n%s", code, buf)
			}

			if tt.Pattern != "" && !regexp.MustCompile(tt.Pattern).Match(buf.Bytes()) {
				t.Errorf("unexpected output:\n%s", buf)
			}

			if tt.Extra != nil {
				tt.Extra(t, *cmd)
			}
		})
	}
}

func TestScoutCommand_Run_version(t *testing.T) {
	cmd, buf := MakeTestCommand(t)

	if code := cmd.Run([]string{"scout", "-v"}); code != 0 {
		t.Errorf("unexpected exit code: %d", code)
	}

	if !strings.HasPrefix(buf.String(), "Scout version HEAD (UNKNOWN)\n") {
		t.Errorf("unexpected output:\n%s", buf)
	}
}

func TestScoutCommand_Run_help(t *testing.T) {
	cmd, buf := MakeTestCommand(t)

	if code := cmd.Run([]string{"scout", "-h"}); code != 0 {
		t.Errorf("unexpected exit code: %d", code)
	}

	for _, s := range []string{"Scout -- uptime monitor", "CONFIGURATION:", "follows at most 10 redirects"} {
		if !strings.Contains(buf.String(), s) {
			t.Errorf("help does not contain %q:\n%s", s, buf)
		}
	}
}

func TestScoutCommand_RunOneshot(t *testing.T) {
	t.Setenv("SCOUT_ALERT_URL", "")
	srv := StartTargetServer(t)

	tests := []struct {
		Name     string
		Targets  string
		ExitCode int
		Pattern  string
	}{
		{
			Name: "healthy",
			Targets: fmt.Sprintf(`
  - name: ok
    url: %s/ok
    read_type: json
    test_case: .statusCode == 200 and .body.status == "ok"
`, srv.URL),
			ExitCode: 0,
			Pattern:  "\tOK\t[0-9.]+\tpatrol:ok\tstatus=200\n",
		},
		{
			Name: "failure",
			Targets: fmt.Sprintf(`
  - name: ok
    url: %s/ok
  - name: broken
    url: %s/error
    test_case: .statusCode == 200
`, srv.URL, srv.URL),
			ExitCode: 1,
			Pattern:  "\tError\t[0-9.]+\tpatrol:broken\tstatus=500: assertion failed: script returned false\n",
		},
		{
			Name:     "no-targets",
			Targets:  " []",
			ExitCode: 0,
			Pattern:  "\tscout:oneshot\t0 targets, 0 probed, 0 skipped, 0 errors, 0 failures\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.Name, func(t *testing.T) {
			path := WriteConfig(t, "targets:"+tt.Targets)

			cmd, buf := MakeTestCommand(t)
			code := cmd.Run([]string{"scout", "-1", "-s", "memory", "-c", path})
			if code != tt.ExitCode {
				t.Errorf("unexpected exit code: %d\n%s", code, buf)
			}

			if !regexp.MustCompile(tt.Pattern).Match(buf.Bytes()) {
				t.Errorf("unexpected output:\n%s", buf)
			}
		})
	}
}

func TestScoutCommand_RunServer(t *testing.T) {
	t.Setenv("SCOUT_ALERT_URL", "")
	srv := StartTargetServer(t)

	path := WriteConfig(t, fmt.Sprintf(`
listen: 127.0.0.1:0
tick: 1h
store:
  driver: memory
targets:
  - name: ok
    url: %s/ok
`, srv.URL))

	cmd, buf := MakeTestCommand(t)
	if code := cmd.ParseArgs([]string{"scout", "-c", path}); code != 0 {
		t.Fatalf("failed to parse args: %d\n%s", code, buf)
	}

	s := store.NewMemory(0)
	defer s.Close()

	j := journal.New(buf)
	ctx := context.Background()
	if err := cmd.SeedTargets(ctx, s, j); err != nil {
		t.Fatalf("failed to seed targets: %s", err)
	}

	ctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer cancel()

	if code := cmd.RunServer(ctx, s, j, cmd.NewPatroller(s, j)); code != 0 {
		t.Errorf("unexpected exit code: %d\n%s", code, buf)
	}

	ts, err := s.Targets(context.Background())
	if err != nil {
		t.Fatalf("failed to get targets: %s", err)
	}
	if len(ts) != 1 {
		t.Fatalf("unexpected number of targets: %d", len(ts))
	}
	if len(ts[0].Snapshots) != 1 || ts[0].Snapshots[0].Status != api.StatusOK {
		t.Errorf("unexpected snapshots: %#v", ts[0].Snapshots)
	}

	for _, pattern := range []string{
		"\tINFO\t0.000\tscout:config\t1 targets created, 0 targets updated\n",
		"\tINFO\t0.000\tscout:server\tstart Scout HEAD \\(UNKNOWN\\) on http://127.0.0.1:0, tick=1h0m0s\n",
		"\tOK\t[0-9.]+\tpatrol:ok\tstatus=200\n",
		"\tINFO\t0.000\tscout:server\tstopped\n",
	} {
		if !regexp.MustCompile(pattern).Match(buf.Bytes()) {
			t.Errorf("output does not match to %q:\n%s", pattern, buf)
		}
	}
}
