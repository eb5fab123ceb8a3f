package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/macrat/scout/internal/config"
	"github.com/macrat/scout/internal/logconv"
	"github.com/macrat/scout/internal/store"
	api "github.com/macrat/scout/lib-scout"
	"github.com/mattn/go-isatty"
	"github.com/spf13/pflag"
)

var CurrentTime = time.Now

type ConvCommand struct {
	OutStream io.Writer
	ErrStream io.Writer
}

var defaultConvCommand = &ConvCommand{
	OutStream: os.Stdout,
	ErrStream: os.Stderr,
}

const ConvHelp = `Scout conv -- Export the snapshot history to other format

Usage: scout conv [OPTIONS...]

Options:
  -C, --config  Path to configuration file. (default scout.yaml)
  -s, --store   Store driver. (default is the same as the configuration)
  -d, --dsn     Data source name of the store.
  -t, --target  ID or name of the target to export. (default all targets)
      --since   Export snapshots after this time in RFC3339 format.
  -o, --output  Output file. (default stdout)

  -c, --csv     Convert to CSV. (default format)
  -j, --json    Convert to JSON Lines.
  -l, --ltsv    Convert to LTSV.
  -x, --xlsx    Convert to XLSX.

  -h, --help    Show this help message and exit.
`

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func (c ConvCommand) Run(args []string) int {
	flags := pflag.NewFlagSet("scout conv", pflag.ContinueOnError)
	flags.Usage = func() {}

	configPath := flags.StringP("config", "C", "scout.yaml", "Path to configuration file")
	driver := flags.StringP("store", "s", "", "Store driver")
	dsn := flags.StringP("dsn", "d", "", "Data source name")
	target := flags.StringP("target", "t", "", "ID or name of the target")
	sinceStr := flags.String("since", "", "Export snapshots after this time")
	outputPath := flags.StringP("output", "o", "", "Output file")

	toCsv := flags.BoolP("csv", "c", false, "Convert to CSV")
	toJson := flags.BoolP("json", "j", false, "Convert to JSON")
	toLtsv := flags.BoolP("ltsv", "l", false, "Convert to LTSV")
	toXlsx := flags.BoolP("xlsx", "x", false, "Convert to XLSX")

	help := flags.BoolP("help", "h", false, "Show this message and exit")

	if err := flags.Parse(args[2:]); err != nil {
		fmt.Fprintln(c.ErrStream, err)
		fmt.Fprintf(c.ErrStream, "\nPlease see `%s %s -h` for more information.\n", args[0], args[1])
		return 2
	}

	if *help {
		fmt.Fprint(c.OutStream, ConvHelp)
		return 0
	}

	count := 0
	for _, f := range []bool{*toCsv, *toJson, *toLtsv, *toXlsx} {
		if f {
			count++
		}
	}
	if count > 1 {
		fmt.Fprintln(c.ErrStream, "error: flags for output format can not use multiple in the same time.")
		return 2
	}

	var since time.Time
	if *sinceStr != "" {
		var err error
		since, err = time.Parse(time.RFC3339, *sinceStr)
		if err != nil {
			fmt.Fprintf(c.ErrStream, "error: since must be RFC3339 format but got %q\n", *sinceStr)
			return 2
		}
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(c.ErrStream, "error: %s\n", err)
		return 2
	}
	if *driver != "" {
		cfg.Store.Driver = *driver
	}
	if *dsn != "" {
		cfg.Store.DSN = *dsn
	}

	output := c.OutStream
	if *outputPath != "" && *outputPath != "-" {
		f, err := os.Create(*outputPath)
		if err != nil {
			fmt.Fprintf(c.ErrStream, "error: failed to open output file: %s\n", err)
			return 1
		}
		defer f.Close()
		output = f
	} else if *toXlsx && isTerminal(output) {
		fmt.Fprintln(c.ErrStream, "error: can not write xlsx format to stdout. please redirect or use -o option.")
		return 2
	}

	rows, err := c.loadRows(cfg, *target, since)
	if err != nil {
		fmt.Fprintf(c.ErrStream, "error: %s\n", err)
		return 1
	}

	switch {
	case *toJson:
		err = logconv.ToJSON(output, rows)
	case *toLtsv:
		err = logconv.ToLTSV(output, rows)
	case *toXlsx:
		err = logconv.ToXlsx(output, rows, CurrentTime())
	default:
		err = logconv.ToCSV(output, rows)
	}
	if err != nil {
		fmt.Fprintf(c.ErrStream, "error: failed to write: %s\n", err)
		return 1
	}
	return 0
}

func (c ConvCommand) loadRows(cfg config.Config, target string, since time.Time) ([]logconv.Row, error) {
	ctx := context.Background()

	s, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}
	defer s.Close()

	ts, err := s.Targets(ctx)
	if err != nil {
		return nil, err
	}

	if target != "" {
		var found []api.Target
		for _, t := range ts {
			if t.ID == target || t.Name == target {
				found = append(found, t)
			}
		}
		if len(found) == 0 {
			return nil, fmt.Errorf("no such target: %q", target)
		}
		ts = found
	}

	return logconv.Rows(ts, since), nil
}
