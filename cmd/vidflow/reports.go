package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/BaSui01/vidflow/config"
	"github.com/BaSui01/vidflow/internal/console"
	"github.com/BaSui01/vidflow/storage"
)

// =============================================================================
// 📚 reports 命令
// =============================================================================

func printReportsUsage(w io.Writer) {
	fmt.Fprint(w, `Stored batch reports

Usage:
  vidflow reports list [options]
  vidflow reports show <id> [options]

Subcommands:
  list        List stored reports, newest first
  show <id>   Show one report by batch id

Options:
  --config <path>   Configuration file (storage.*)
  --dir <dir>       Report directory for the file store (overrides config)
  --limit <n>       Maximum reports to list (default 20, 0 = all)
  --json            Print JSON instead of tables
`)
}

type reportsOptions struct {
	configPath string
	dir        string
	limit      int
	asJSON     bool
	positional []string
}

func parseReportsArgs(sub string, args []string, stderr io.Writer) (*reportsOptions, error) {
	opts := &reportsOptions{}

	fs := flag.NewFlagSet("reports "+sub, flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() { printReportsUsage(stderr) }
	fs.StringVar(&opts.configPath, "config", "", "configuration file path")
	fs.StringVar(&opts.dir, "dir", "", "report directory for the file store")
	fs.IntVar(&opts.limit, "limit", 20, "maximum reports to list")
	fs.BoolVar(&opts.asJSON, "json", false, "print JSON")

	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		args = fs.Args()
		if len(args) == 0 {
			break
		}
		opts.positional = append(opts.positional, args[0])
		args = args[1:]
	}
	return opts, nil
}

// runReports 查询报告存储，返回进程退出码
func runReports(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printReportsUsage(stderr)
		return 1
	}
	sub, rest := args[0], args[1:]
	switch sub {
	case "help", "-h", "--help":
		printReportsUsage(stdout)
		return 0
	case "list", "show":
	default:
		fmt.Fprintf(stderr, "Unknown reports subcommand: %s\n", sub)
		printReportsUsage(stderr)
		return 1
	}

	opts, err := parseReportsArgs(sub, rest, stderr)
	if err != nil {
		if !errors.Is(err, flag.ErrHelp) {
			fmt.Fprintf(stderr, "Error: %v\n", err)
		}
		return 1
	}
	if sub == "show" && len(opts.positional) != 1 {
		fmt.Fprintln(stderr, "Error: show requires exactly one report id")
		return 1
	}
	if sub == "list" && len(opts.positional) > 0 {
		fmt.Fprintf(stderr, "Error: unexpected argument %q\n", opts.positional[0])
		return 1
	}

	loader := config.NewLoader()
	if opts.configPath != "" {
		loader = loader.WithConfigPath(opts.configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load config: %v\n", err)
		return 1
	}
	if opts.dir != "" {
		cfg.Storage.BaseDir = opts.dir
	}

	logger := initLogger(cfg.Log)
	defer func() { _ = logger.Sync() }()

	store, err := storage.NewReportStore(cfg.Storage, logger)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to open report store: %v\n", err)
		return 1
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Warn("close report store", zap.Error(err))
		}
	}()

	if sub == "list" {
		return listReports(ctx, store, opts, stdout, stderr)
	}
	return showReport(ctx, store, opts.positional[0], opts.asJSON, stdout, stderr)
}

func listReports(ctx context.Context, store storage.ReportStore, opts *reportsOptions, stdout, stderr io.Writer) int {
	summaries, err := store.ListReports(ctx, opts.limit)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to list reports: %v\n", err)
		return 1
	}
	if opts.asJSON {
		if summaries == nil {
			summaries = []storage.ReportSummary{}
		}
		return writeJSON(stdout, stderr, summaries)
	}
	fmt.Fprintln(stdout, console.RenderReportList(summaries))
	return 0
}

func showReport(ctx context.Context, store storage.ReportStore, id string, asJSON bool, stdout, stderr io.Writer) int {
	report, err := store.GetReport(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		fmt.Fprintf(stderr, "Report not found: %s\n", id)
		return 1
	}
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load report: %v\n", err)
		return 1
	}
	if asJSON {
		return writeJSON(stdout, stderr, report)
	}
	fmt.Fprintf(stdout, "Report %s (%s)\n\n", report.ID, report.Timestamp.Local().Format("2006-01-02 15:04:05"))
	console.NewPrinter(stdout).Summary(report)
	return 0
}

func writeJSON(stdout, stderr io.Writer, v any) int {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}
