// Command kalpem-export acquires the training calendar once and writes the
// filtered dashboard workbook to disk.
//
//	kalpem-export -month Januari -month Februari -method PJJ -out laporan.xlsx
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"kalpem/internal/acquisition"
	"kalpem/internal/config"
	"kalpem/internal/dataprocessing"
	"kalpem/internal/exporter"
	"kalpem/internal/infrastructure"
	"kalpem/pkg/contracts/domain"
)

// multiFlag collects a repeatable string flag.
type multiFlag []string

func (m *multiFlag) String() string { return strings.Join(*m, ",") }

func (m *multiFlag) Set(v string) error {
	if v = strings.TrimSpace(v); v != "" {
		*m = append(*m, v)
	}
	return nil
}

type options struct {
	months     multiFlag
	organizers multiFlag
	methods    multiFlag
	out        string
	offline    bool
}

func parseFlags(args []string) (options, error) {
	var opts options
	fs := flag.NewFlagSet("kalpem-export", flag.ContinueOnError)
	fs.Var(&opts.months, "month", "month name filter, repeatable (e.g. Januari)")
	fs.Var(&opts.organizers, "organizer", "organizer filter, repeatable")
	fs.Var(&opts.methods, "method", "method filter, repeatable (e.g. PJJ)")
	fs.StringVar(&opts.out, "out", "", "output directory or .xlsx path (defaults to the data directory)")
	fs.BoolVar(&opts.offline, "offline", false, "skip the remote source and read local files only")
	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	return opts, nil
}

func (o options) filters() domain.FilterSet {
	return domain.FilterSet{
		Months:     o.months,
		Organizers: o.organizers,
		Methods:    o.methods,
	}
}

// outputPath resolves -out against the default directory and file name.
func outputPath(out, dataDir, filename string) string {
	switch {
	case out == "":
		return filepath.Join(dataDir, filename)
	case strings.EqualFold(filepath.Ext(out), ".xlsx"):
		return out
	default:
		return filepath.Join(out, filename)
	}
}

func run(ctx context.Context, opts options, cfg *config.Config, logger *slog.Logger) (string, error) {
	if opts.offline {
		cfg.Source.UseRemote = false
	}

	paths := cfg.ResolvePaths()
	if err := paths.EnsureDirectories(); err != nil {
		return "", err
	}

	metrics := infrastructure.NoopBusinessMetrics()
	acq, err := acquisition.NewFromConfig(ctx, cfg, nil, logger, metrics)
	if err != nil {
		return "", err
	}

	raw, result := acq.Acquire(ctx)
	if result.Err != nil {
		return "", result.Err
	}
	records := dataprocessing.Normalize(raw)

	data, filename, err := exporter.NewWorkbookExporter(logger, metrics).
		Export(ctx, records, opts.filters(), time.Now())
	if err != nil {
		return "", err
	}

	path := outputPath(opts.out, paths.DataDir, filename)
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write workbook: %w", err)
	}

	logger.InfoContext(ctx, "export written",
		slog.String("path", path),
		slog.String("source", result.Source),
		slog.Bool("connected", result.Connected),
		slog.Int("records", records.Len()),
	)
	return path, nil
}

func main() {
	opts, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("Failed to load config, using defaults", slog.String("error", err.Error()))
		cfg = config.Default()
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Error("Failed to initialize logger", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	path, err := run(ctx, opts, cfg, logger)
	if err != nil {
		logger.Error("Export failed", slog.String("error", err.Error()))
		infrastructure.CloseLogFile()
		os.Exit(1)
	}
	fmt.Println(path)
	infrastructure.CloseLogFile()
}
