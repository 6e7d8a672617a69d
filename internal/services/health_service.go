package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"

	"kalpem/internal/config"
	"kalpem/pkg/contracts"
	"kalpem/pkg/contracts/domain"
)

// SnapshotSource exposes the current snapshot to health checks.
type SnapshotSource interface {
	Current() *domain.Snapshot
}

// ClientCounter reports connected websocket clients.
type ClientCounter interface {
	ClientCount() int
}

// HealthService provides health check functionality
type HealthService struct {
	paths     *config.Paths
	snapshots SnapshotSource
	hub       ClientCounter
	startTime time.Time
	logger    *slog.Logger
}

// HealthStatus represents the health status response
type HealthStatus struct {
	Status    string                   `json:"status"`
	Timestamp time.Time                `json:"timestamp"`
	Version   string                   `json:"version"`
	Runtime   map[string]interface{}   `json:"runtime,omitempty"`
	Services  map[string]ServiceHealth `json:"services,omitempty"`
}

// ServiceHealth represents individual service health
type ServiceHealth struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
}

// NewHealthService creates a health service. hub may be nil.
func NewHealthService(paths *config.Paths, snapshots SnapshotSource, hub ClientCounter, logger *slog.Logger) *HealthService {
	return &HealthService{
		paths:     paths,
		snapshots: snapshots,
		hub:       hub,
		startTime: time.Now(),
		logger:    serviceLogger(logger, "health"),
	}
}

// HealthCheck returns overall health status
func (hs *HealthService) HealthCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "ok",
		Timestamp: time.Now(),
		Version:   contracts.Version,
	}
}

// LivenessCheck returns liveness status
func (hs *HealthService) LivenessCheck(ctx context.Context) HealthStatus {
	return HealthStatus{
		Status:    "alive",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Runtime: map[string]interface{}{
			"uptime":     time.Since(hs.startTime).Seconds(),
			"go_version": runtime.Version(),
			"goroutines": runtime.NumGoroutine(),
		},
	}
}

// ReadinessCheck is ready once a snapshot has been published and the data
// directory exists. An offline or failed snapshot is still ready: the
// dashboard serves whatever data it has.
func (hs *HealthService) ReadinessCheck(ctx context.Context) HealthStatus {
	status := HealthStatus{
		Status:    "ready",
		Timestamp: time.Now(),
		Version:   contracts.Version,
		Services: map[string]ServiceHealth{
			"snapshot":  hs.checkSnapshot(),
			"data":      hs.checkDataDir(),
			"websocket": hs.checkWebSocket(),
		},
	}

	for name, svc := range status.Services {
		if svc.Status != "ready" {
			status.Status = "not_ready"
			hs.logger.DebugContext(ctx, "readiness check failed",
				slog.String("check", name),
				slog.String("message", svc.Message))
		}
	}
	return status
}

// Version returns version information
func (hs *HealthService) Version() map[string]interface{} {
	info := contracts.GetVersionInfo()
	return map[string]interface{}{
		"version":      info.Version,
		"build_time":   info.BuildTime,
		"git_commit":   info.GitCommit,
		"go_version":   info.GoVersion,
		"os":           info.OS,
		"arch":         info.Architecture,
		"api_version":  info.APIVersion,
		"uptime":       time.Since(hs.startTime).Seconds(),
		"start_time":   hs.startTime.Format(time.RFC3339),
		"current_time": time.Now().Format(time.RFC3339),
	}
}

func (hs *HealthService) checkSnapshot() ServiceHealth {
	if hs.snapshots == nil {
		return ServiceHealth{Status: "not_ready", Message: "dashboard service not initialized"}
	}
	snap := hs.snapshots.Current()
	if snap == nil || snap.Version == 0 {
		return ServiceHealth{Status: "not_ready", Message: "initial load not finished"}
	}
	return ServiceHealth{
		Status:  "ready",
		Message: fmt.Sprintf("version %d, %d records, %s", snap.Version, snap.Records.Len(), snap.Status.Label),
	}
}

func (hs *HealthService) checkDataDir() ServiceHealth {
	if hs.paths == nil {
		return ServiceHealth{Status: "ready", Message: "no data directory configured"}
	}
	info, err := os.Stat(hs.paths.DataDir)
	if err != nil {
		return ServiceHealth{Status: "not_ready", Message: fmt.Sprintf("data directory unavailable: %v", err)}
	}
	if !info.IsDir() {
		return ServiceHealth{Status: "not_ready", Message: "data path is not a directory"}
	}
	return ServiceHealth{Status: "ready"}
}

func (hs *HealthService) checkWebSocket() ServiceHealth {
	if hs.hub == nil {
		return ServiceHealth{Status: "ready", Message: "websocket disabled"}
	}
	return ServiceHealth{Status: "ready", Message: fmt.Sprintf("%d clients", hs.hub.ClientCount())}
}
