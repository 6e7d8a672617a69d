package http

import (
	"context"

	api "kalpem/pkg/contracts/api/v1"
	"kalpem/pkg/contracts/domain"
)

// DashboardService defines the interface for dashboard operations
type DashboardService interface {
	Refresh(ctx context.Context) (*domain.Snapshot, error)
	Dashboard(ctx context.Context, fs domain.FilterSet) api.DashboardResponse
	Filters(ctx context.Context) domain.FilterOptions
	Status(ctx context.Context) api.StatusResponse
	Export(ctx context.Context, fs domain.FilterSet) ([]byte, string, error)
	Chart(ctx context.Context, kind, theme string, fs domain.FilterSet) ([]byte, error)
}
