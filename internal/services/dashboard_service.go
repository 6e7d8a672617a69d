package services

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/singleflight"

	"kalpem/internal/acquisition"
	"kalpem/internal/config"
	"kalpem/internal/dataprocessing"
	"kalpem/internal/exporter"
	"kalpem/internal/infrastructure"
	api "kalpem/pkg/contracts/api/v1"
	"kalpem/pkg/contracts/domain"
)

const (
	refreshKey        = "refresh"
	lastUpdatedLayout = "15:04:05"
)

// Acquirer produces the raw training calendar table.
type Acquirer interface {
	Acquire(ctx context.Context) (domain.RawTable, acquisition.Result)
}

// Exporter builds the downloadable workbook.
type Exporter interface {
	Export(ctx context.Context, rs domain.RecordSet, fs domain.FilterSet, now time.Time) ([]byte, string, error)
}

// ChartRenderer draws one dashboard chart.
type ChartRenderer interface {
	Render(ctx context.Context, kind, theme string, result domain.FilteredResult) ([]byte, error)
}

// SnapshotNotifier is told about every published snapshot.
type SnapshotNotifier interface {
	NotifySnapshot(ctx context.Context, snap *domain.Snapshot)
}

// view is a published snapshot with the figures that depend only on it.
type view struct {
	snapshot *domain.Snapshot
	totals   domain.Totals
	options  domain.FilterOptions
}

func newView(snap *domain.Snapshot) *view {
	return &view{
		snapshot: snap,
		totals:   dataprocessing.ComputeTotals(snap.Records),
		options:  dataprocessing.BuildFilterOptions(snap.Records),
	}
}

// DashboardService owns the current snapshot. Reads are lock-free; every
// refresh publishes a whole new snapshot and overlapping refreshes share
// one pipeline run.
type DashboardService struct {
	acquirer Acquirer
	exporter Exporter
	charts   ChartRenderer
	notifier SnapshotNotifier

	current atomic.Pointer[view]
	flight  singleflight.Group

	now     func() time.Time
	logger  *slog.Logger
	metrics *infrastructure.BusinessMetrics
	tracer  trace.Tracer
}

// DashboardOption configures a DashboardService.
type DashboardOption func(*DashboardService)

// WithNotifier sets the receiver of snapshot notifications.
func WithNotifier(n SnapshotNotifier) DashboardOption {
	return func(s *DashboardService) { s.notifier = n }
}

// WithChartRenderer sets the chart renderer.
func WithChartRenderer(r ChartRenderer) DashboardOption {
	return func(s *DashboardService) { s.charts = r }
}

// WithMetrics sets the business metrics recorder.
func WithMetrics(m *infrastructure.BusinessMetrics) DashboardOption {
	return func(s *DashboardService) { s.metrics = m }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) DashboardOption {
	return func(s *DashboardService) { s.now = now }
}

// NewDashboardService creates the service with an empty offline snapshot.
func NewDashboardService(acq Acquirer, exp Exporter, logger *slog.Logger, opts ...DashboardOption) *DashboardService {
	s := &DashboardService{
		acquirer: acq,
		exporter: exp,
		now:      time.Now,
		logger:   serviceLogger(logger, "dashboard"),
		tracer:   otel.Tracer(infrastructure.MeterName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current.Store(newView(domain.EmptySnapshot()))
	return s
}

// Current returns the published snapshot.
func (s *DashboardService) Current() *domain.Snapshot {
	return s.current.Load().snapshot
}

// Refresh runs acquisition and normalization and publishes the result.
// Concurrent callers join the in-flight run and receive its snapshot. The
// run is detached from the caller's cancellation so an abandoned request
// never leaves a half-finished refresh behind.
func (s *DashboardService) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	ch := s.flight.DoChan(refreshKey, func() (interface{}, error) {
		return s.refresh(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		snap, _ := res.Val.(*domain.Snapshot)
		if snap == nil {
			snap = s.Current()
		}
		if res.Shared {
			s.logger.DebugContext(ctx, "joined in-flight refresh", slog.Uint64("version", snap.Version))
		}
		return snap, res.Err
	case <-ctx.Done():
		return s.Current(), ctx.Err()
	}
}

func (s *DashboardService) refresh(ctx context.Context) (snap *domain.Snapshot, err error) {
	ctx, span := s.tracer.Start(ctx, "dashboard.refresh")
	defer span.End()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrRefreshFailed, r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			snap = s.publishError(ctx, err)
		}
	}()

	raw, result := s.acquirer.Acquire(ctx)
	records := dataprocessing.Normalize(raw)

	status := domain.SourceStatus{
		Connected: result.Connected,
		Label:     domain.StatusOffline,
		Source:    result.Source,
		UpdatedAt: s.now(),
	}
	if result.Connected {
		status.Label = domain.StatusOnline
	}
	if result.Err != nil {
		status.Error = truncateMessage(result.Err.Error(), config.StatusErrorChars)
	}

	snap = s.publish(ctx, records, status)
	span.SetAttributes(
		attribute.Int64("version", int64(snap.Version)),
		attribute.Int("records", records.Len()),
		attribute.String("source", result.Source),
	)
	s.logger.InfoContext(ctx, "snapshot published",
		slog.Uint64("version", snap.Version),
		slog.String("digest", snap.Digest),
		slog.Int("records", records.Len()),
		slog.String("status", status.Label),
		slog.String("source", status.Source),
		slog.Duration("duration", time.Since(start)),
	)
	return snap, nil
}

// publishError keeps the previous records and marks the status as failed.
func (s *DashboardService) publishError(ctx context.Context, cause error) *domain.Snapshot {
	prev := s.Current()
	status := prev.Status
	status.Label = domain.StatusError
	status.Connected = false
	status.UpdatedAt = s.now()
	status.Error = truncateMessage(cause.Error(), config.StatusErrorChars)

	s.metrics.RecordRefreshError(ctx)
	s.logger.ErrorContext(ctx, "refresh failed, keeping previous data",
		slog.Uint64("previous_version", prev.Version),
		slog.String("error", cause.Error()),
	)
	return s.publish(ctx, prev.Records, status)
}

func (s *DashboardService) publish(ctx context.Context, records domain.RecordSet, status domain.SourceStatus) *domain.Snapshot {
	prev := s.Current()
	snap := &domain.Snapshot{
		ID:      uuid.NewString(),
		Version: prev.Version + 1,
		Digest:  digest(records),
		Records: records,
		Status:  status,
	}
	s.current.Store(newView(snap))
	s.metrics.RecordSnapshot(ctx, records.Len(), status.Label)

	if s.notifier != nil {
		s.notifier.NotifySnapshot(ctx, snap)
	}
	return snap
}

// Dashboard filters and aggregates the current snapshot.
func (s *DashboardService) Dashboard(ctx context.Context, fs domain.FilterSet) api.DashboardResponse {
	v := s.current.Load()
	return api.DashboardResponse{
		Result:   dataprocessing.FilterAndAggregate(v.snapshot.Records, fs),
		Totals:   v.totals,
		Status:   v.snapshot.Status,
		Filters:  fs,
		Snapshot: api.NewSnapshotInfo(v.snapshot),
	}
}

// Filters returns the selectable filter values of the current snapshot.
func (s *DashboardService) Filters(ctx context.Context) domain.FilterOptions {
	return s.current.Load().options
}

// Status reports the outcome of the most recent refresh.
func (s *DashboardService) Status(ctx context.Context) api.StatusResponse {
	snap := s.Current()
	return api.StatusResponse{
		Status:      snap.Status,
		Snapshot:    api.NewSnapshotInfo(snap),
		LastUpdated: LastUpdatedText(snap.Status),
	}
}

// Export builds the workbook for a filter selection of the current snapshot.
func (s *DashboardService) Export(ctx context.Context, fs domain.FilterSet) ([]byte, string, error) {
	if s.exporter == nil {
		return nil, "", ErrServiceUnavailable
	}
	data, name, err := s.exporter.Export(ctx, s.Current().Records, fs, s.now())
	if errors.Is(err, exporter.ErrNoData) {
		return nil, "", fmt.Errorf("%w: %w", ErrNoData, err)
	}
	return data, name, err
}

// Chart renders one chart for a filter selection.
func (s *DashboardService) Chart(ctx context.Context, kind, theme string, fs domain.FilterSet) ([]byte, error) {
	if s.charts == nil {
		return nil, ErrServiceUnavailable
	}
	result := dataprocessing.FilterAndAggregate(s.Current().Records, fs)
	return s.charts.Render(ctx, kind, theme, result)
}

// LastUpdatedText is the status line under the connectivity label.
func LastUpdatedText(status domain.SourceStatus) string {
	if status.Label == domain.StatusError {
		return "Error: " + status.Error
	}
	if status.UpdatedAt.IsZero() {
		return ""
	}
	return "Update: " + status.UpdatedAt.Format(lastUpdatedLayout)
}

// digest fingerprints a record set so clients can tell whether a new
// snapshot actually changed the data.
func digest(rs domain.RecordSet) string {
	payload, err := json.Marshal(rs)
	if err != nil {
		return ""
	}
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:16])
}

func truncateMessage(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
