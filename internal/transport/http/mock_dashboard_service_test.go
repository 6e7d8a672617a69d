package http

import (
	"context"

	"github.com/stretchr/testify/mock"

	api "kalpem/pkg/contracts/api/v1"
	"kalpem/pkg/contracts/domain"
)

type mockDashboardService struct {
	mock.Mock
}

func (m *mockDashboardService) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	args := m.Called(ctx)
	snap, _ := args.Get(0).(*domain.Snapshot)
	return snap, args.Error(1)
}

func (m *mockDashboardService) Dashboard(ctx context.Context, fs domain.FilterSet) api.DashboardResponse {
	args := m.Called(ctx, fs)
	return args.Get(0).(api.DashboardResponse)
}

func (m *mockDashboardService) Filters(ctx context.Context) domain.FilterOptions {
	args := m.Called(ctx)
	return args.Get(0).(domain.FilterOptions)
}

func (m *mockDashboardService) Status(ctx context.Context) api.StatusResponse {
	args := m.Called(ctx)
	return args.Get(0).(api.StatusResponse)
}

func (m *mockDashboardService) Export(ctx context.Context, fs domain.FilterSet) ([]byte, string, error) {
	args := m.Called(ctx, fs)
	data, _ := args.Get(0).([]byte)
	return data, args.String(1), args.Error(2)
}

func (m *mockDashboardService) Chart(ctx context.Context, kind, theme string, fs domain.FilterSet) ([]byte, error) {
	args := m.Called(ctx, kind, theme, fs)
	data, _ := args.Get(0).([]byte)
	return data, args.Error(1)
}
