package acquisition

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"kalpem/internal/config"
	"kalpem/internal/infrastructure"
	"kalpem/pkg/contracts/domain"
)

// BackupWriter persists a successfully fetched remote table.
type BackupWriter interface {
	Write(ctx context.Context, table domain.RawTable) error
}

// Result describes how a table was obtained.
type Result struct {
	Connected bool
	Source    string
	// RemoteErr is the primary source failure that caused a fallback.
	RemoteErr error
	// Err is set when every source failed and the table is empty.
	Err      error
	Duration time.Duration
}

// Acquirer fetches the training calendar from the primary source, falling
// back to local sources in strict order. It never fails: when every
// source fails an empty table is returned with Connected=false.
type Acquirer struct {
	primary   Source
	fallbacks []Source
	backup    BackupWriter
	logger    *slog.Logger
	metrics   *infrastructure.BusinessMetrics
	tracer    trace.Tracer
}

// Option configures an Acquirer.
type Option func(*Acquirer)

// WithBackupWriter sets where successful primary fetches are persisted.
func WithBackupWriter(b BackupWriter) Option {
	return func(a *Acquirer) { a.backup = b }
}

// WithMetrics sets the business metrics recorder.
func WithMetrics(m *infrastructure.BusinessMetrics) Option {
	return func(a *Acquirer) { a.metrics = m }
}

// NewAcquirer creates an acquirer. primary may be nil, in which case only
// the fallbacks are consulted and the result is never connected.
func NewAcquirer(primary Source, fallbacks []Source, logger *slog.Logger, opts ...Option) *Acquirer {
	if logger == nil {
		logger = slog.Default()
	}
	a := &Acquirer{
		primary:   primary,
		fallbacks: fallbacks,
		logger:    logger.With(slog.String("component", "acquisition")),
		tracer:    otel.Tracer(infrastructure.MeterName),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire returns the first table any source produces.
func (a *Acquirer) Acquire(ctx context.Context) (domain.RawTable, Result) {
	ctx, span := a.tracer.Start(ctx, "acquisition.acquire")
	defer span.End()

	start := time.Now()
	result := Result{Source: SourceNone}

	if a.primary != nil {
		table, err := a.fetch(ctx, a.primary)
		if err == nil {
			result.Connected = true
			result.Source = a.primary.Name()
			result.Duration = time.Since(start)

			if a.backup != nil {
				// Failures are logged by the writer; the fresh table is still used
				if berr := a.backup.Write(ctx, table); berr != nil {
					span.AddEvent("backup write failed")
				}
			}

			a.finish(ctx, span, table, result)
			return table, result
		}

		result.RemoteErr = err
		a.logger.WarnContext(ctx, "primary source failed, using local fallback",
			slog.String("source", a.primary.Name()),
			slog.String("error", err.Error()),
		)
	}

	var errs []error
	if result.RemoteErr != nil {
		errs = append(errs, result.RemoteErr)
	}
	for _, src := range a.fallbacks {
		table, err := a.fetch(ctx, src)
		if err != nil {
			errs = append(errs, err)
			if !errors.Is(err, ErrSourceMissing) {
				a.logger.WarnContext(ctx, "fallback source failed",
					slog.String("source", src.Name()),
					slog.String("error", err.Error()),
				)
			}
			continue
		}

		result.Source = src.Name()
		result.Duration = time.Since(start)
		a.finish(ctx, span, table, result)
		return table, result
	}

	result.Err = ErrAllSourcesFailed
	if len(errs) > 0 {
		result.Err = fmt.Errorf("%w: %w", ErrAllSourcesFailed, errors.Join(errs...))
	}
	result.Duration = time.Since(start)
	a.logger.ErrorContext(ctx, "no source produced data", slog.String("error", result.Err.Error()))
	span.SetStatus(codes.Error, ErrAllSourcesFailed.Error())
	a.finish(ctx, span, domain.RawTable{}, result)
	return domain.RawTable{}, result
}

func (a *Acquirer) fetch(ctx context.Context, src Source) (domain.RawTable, error) {
	ctx, span := a.tracer.Start(ctx, "acquisition.fetch",
		trace.WithAttributes(attribute.String("source", src.Name())))
	defer span.End()

	table, err := src.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return domain.RawTable{}, fmt.Errorf("%s: %w", src.Name(), err)
	}
	span.SetAttributes(attribute.Int("rows", table.Len()))
	return table, nil
}

func (a *Acquirer) finish(ctx context.Context, span trace.Span, table domain.RawTable, result Result) {
	span.SetAttributes(
		attribute.String("source", result.Source),
		attribute.Bool("connected", result.Connected),
		attribute.Int("rows", table.Len()),
	)
	a.metrics.RecordAcquisition(ctx, result.Source, result.Connected, result.Duration)

	a.logger.InfoContext(ctx, "data acquired",
		slog.String("source", result.Source),
		slog.Bool("connected", result.Connected),
		slog.Int("rows", table.Len()),
		slog.Duration("duration", result.Duration),
	)
}

// NewFromConfig builds the acquirer for the configured source settings.
//
// With the remote enabled, the primary source is Google Sheets when a sheet
// id is set and the download link otherwise, followed by the workbook
// backup, the delimited backup and the bundled default file. With the
// remote disabled the first-load policy decides whether the backups are
// consulted before the default file. A Sheets client that cannot be built
// is logged and leaves the local sources serving.
func NewFromConfig(ctx context.Context, cfg *config.Config, backup BackupWriter, logger *slog.Logger, metrics *infrastructure.BusinessMetrics) (*Acquirer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	paths := cfg.ResolvePaths()

	backups := []Source{
		NewFileSource(SourceBackupXLSX, paths.BackupXLSX, KindWorkbook),
		NewFileSource(SourceBackupCSV, paths.BackupCSV, KindDelimited),
	}
	defaultFile := NewFileSource(SourceDefault, paths.DefaultCSV, KindDelimited)

	opts := []Option{WithMetrics(metrics)}

	if !cfg.Source.UseRemote {
		fallbacks := []Source{defaultFile}
		if cfg.Source.FirstLoadPolicy == config.PolicyBackupsFirst {
			fallbacks = append(backups, defaultFile)
		}
		return NewAcquirer(nil, fallbacks, logger, opts...), nil
	}

	var primary Source
	if cfg.Source.SheetID != "" {
		sheetsSrc, err := NewSheetsSource(ctx, cfg.Source.SheetID, cfg.Source.SheetRange,
			paths.CredentialsFile, cfg.Source.FetchTimeout)
		if err != nil {
			logger.WarnContext(ctx, "sheets source unavailable, serving local fallbacks",
				slog.String("credentials", paths.CredentialsFile),
				slog.String("error", err.Error()),
			)
			primary = &unavailableSource{name: SourceSheets, err: err}
		} else {
			primary = sheetsSrc
		}
	} else {
		primary = NewRemoteSource(cfg.Source.RemoteURL, cfg.Source.FetchTimeout, &http.Client{
			Timeout: cfg.Source.FetchTimeout,
		})
	}

	if backup != nil {
		opts = append(opts, WithBackupWriter(backup))
	}
	return NewAcquirer(primary, append(backups, defaultFile), logger, opts...), nil
}
