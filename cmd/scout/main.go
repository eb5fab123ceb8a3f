package main

import (
	"context"
	_ "embed"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/template"

	"github.com/macrat/scout/internal/alert"
	"github.com/macrat/scout/internal/config"
	"github.com/macrat/scout/internal/journal"
	"github.com/macrat/scout/internal/meta"
	"github.com/macrat/scout/internal/patrol"
	"github.com/macrat/scout/internal/probe"
	"github.com/macrat/scout/internal/store"
	"github.com/spf13/pflag"
)

type ScoutCommand struct {
	OutStream io.Writer
	ErrStream io.Writer

	ConfigPath  string
	ListenPort  int
	AlertURL    string
	StoreDriver string
	StoreDSN    string
	OneshotMode bool
	ShowVersion bool
	ShowHelp    bool

	Config config.Config
}

var defaultScoutCommand = &ScoutCommand{
	OutStream: os.Stdout,
	ErrStream: os.Stderr,
}

//go:embed help.txt
var helpText string

func (cmd *ScoutCommand) PrintUsage(detail bool) {
	tmpl := template.Must(template.New("help.txt").Parse(helpText))
	tmpl.Execute(cmd.ErrStream, map[string]interface{}{
		"Version":         meta.Version,
		"HTTPRedirectMax": probe.HTTP_REDIRECT_MAX,
		"Short":           !detail,
	})
}

func (cmd *ScoutCommand) ParseArgs(args []string) (exitCode int) {
	flags := pflag.NewFlagSet("scout", pflag.ContinueOnError)
	flags.Usage = func() {}

	flags.StringVarP(&cmd.ConfigPath, "config", "c", "scout.yaml", "Path to configuration file")
	flags.IntVarP(&cmd.ListenPort, "port", "p", 9000, "HTTP listen port")
	flags.StringVarP(&cmd.AlertURL, "alert", "a", "", "The URL to send alerts")
	flags.StringVarP(&cmd.StoreDriver, "store", "s", "", "Store driver")
	flags.StringVarP(&cmd.StoreDSN, "dsn", "d", "", "Store data source name")
	flags.BoolVarP(&cmd.OneshotMode, "oneshot", "1", false, "Patrol only once and exit")
	flags.BoolVarP(&cmd.ShowVersion, "version", "v", false, "Show version")
	flags.BoolVarP(&cmd.ShowHelp, "help", "h", false, "Show help message")

	if err := flags.Parse(args[1:]); err != nil {
		fmt.Fprintln(cmd.ErrStream, err)
		fmt.Fprintf(cmd.ErrStream, "\nPlease see `%s -h` for more information.\n", args[0])
		return 2
	}

	if cmd.ShowVersion || cmd.ShowHelp {
		return 0
	}

	if flags.NArg() > 0 {
		fmt.Fprintf(cmd.ErrStream, "invalid argument: unexpected argument: %s\n", flags.Arg(0))
		fmt.Fprintf(cmd.ErrStream, "\nPlease see `%s -h` for more information.\n", args[0])
		return 2
	}

	if cmd.OneshotMode && flags.Changed("port") {
		fmt.Fprintln(cmd.ErrStream, "warning: port option will ignored in the oneshot mode.")
	}

	cfg, err := config.Load(cmd.ConfigPath)
	if err != nil {
		fmt.Fprintf(cmd.ErrStream, "error: %s\n", err)
		return 2
	}

	if flags.Changed("port") {
		cfg.Listen = fmt.Sprintf("0.0.0.0:%d", cmd.ListenPort)
	}
	if flags.Changed("alert") {
		cfg.Alert = cmd.AlertURL
	}
	if flags.Changed("store") {
		cfg.Store.Driver = cmd.StoreDriver
	}
	if flags.Changed("dsn") {
		cfg.Store.DSN = cmd.StoreDSN
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(cmd.ErrStream, "error: %s\n", err)
		return 2
	}
	cmd.Config = cfg

	return 0
}

func (cmd *ScoutCommand) PrintVersion() {
	fmt.Fprintf(cmd.OutStream, "Scout version %s (%s)\n", meta.Version, meta.Commit)
}

// NewPatroller wires the probe executor and the alert dispatcher to s, following the configuration.
func (cmd *ScoutCommand) NewPatroller(s store.Store, j *journal.Journal) *patrol.Patroller {
	loc, _ := cmd.Config.Location()

	exec := probe.New()
	exec.Timeout = cmd.Config.RequestTimeout
	exec.BodyLimit = cmd.Config.BodyLimit
	exec.Location = loc

	return &patrol.Patroller{
		Store:    s,
		Executor: exec,
		Alert: alert.Dispatcher{
			Settings: cmd.Config,
			Sink:     alert.HTTPSink{Timeout: cmd.Config.AlertTimeout},
			Journal:  j,
		},
		Journal:     j,
		Concurrency: cmd.Config.Concurrency,
	}
}

// SeedTargets puts the targets in the configuration file into s.
func (cmd *ScoutCommand) SeedTargets(ctx context.Context, s store.Store, j *journal.Journal) error {
	seeds, err := cmd.Config.SeedTargets()
	if err != nil {
		return err
	}
	if len(seeds) == 0 {
		return nil
	}

	created, updated, err := store.Seed(ctx, s, seeds)
	if err != nil {
		return err
	}
	j.Info("scout:config", fmt.Sprintf("%d targets created, %d targets updated", created, updated))

	return nil
}

func (cmd *ScoutCommand) Run(args []string) (exitCode int) {
	if code := cmd.ParseArgs(args); code != 0 {
		return code
	}

	if cmd.ShowVersion {
		cmd.PrintVersion()
		return 0
	}

	if cmd.ShowHelp {
		cmd.PrintUsage(true)
		return 0
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	s, err := store.Open(ctx, cmd.Config.Store.Driver, cmd.Config.Store.DSN, cmd.Config.SnapshotLimit)
	if err != nil {
		fmt.Fprintf(cmd.ErrStream, "error: failed to open store: %s\n", err)
		return 1
	}
	defer s.Close()

	j := journal.New(cmd.OutStream)

	if err := cmd.SeedTargets(ctx, s, j); err != nil {
		fmt.Fprintf(cmd.ErrStream, "error: failed to register targets: %s\n", err)
		return 1
	}

	p := cmd.NewPatroller(s, j)

	if cmd.OneshotMode {
		return cmd.RunOneshot(ctx, p)
	}
	return cmd.RunServer(ctx, s, j, p)
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "oneshot":
			os.Args[1] = "-1"
			os.Exit(defaultScoutCommand.Run(os.Args))
		case "conv", "convert":
			os.Exit(defaultConvCommand.Run(os.Args))
		}
	}

	os.Exit(defaultScoutCommand.Run(os.Args))
}
