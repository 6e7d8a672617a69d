package http

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"kalpem/internal/charts"
	"kalpem/internal/config"
	apierrors "kalpem/internal/errors"
	"kalpem/internal/middleware"
	"kalpem/internal/services"
	api "kalpem/pkg/contracts/api/v1"
)

// DashboardHandler handles dashboard HTTP requests
type DashboardHandler struct {
	service      DashboardService
	validator    *middleware.QueryValidator
	logger       *slog.Logger
	errorHandler *apierrors.ErrorHandler
}

// NewDashboardHandler creates a new dashboard handler
func NewDashboardHandler(service DashboardService, logger *slog.Logger, errorHandler *apierrors.ErrorHandler) *DashboardHandler {
	return &DashboardHandler{
		service:      service,
		validator:    middleware.NewQueryValidator(logger),
		logger:       logger.With(slog.String("handler", "dashboard")),
		errorHandler: errorHandler,
	}
}

// Routes returns the dashboard routes
func (h *DashboardHandler) Routes() chi.Router {
	r := chi.NewRouter()

	r.Get("/dashboard", h.GetDashboard)
	r.Get("/filters", h.GetFilters)
	r.Get("/status", h.GetStatus)
	r.Post("/refresh", h.Refresh)
	r.Get("/export", h.Export)
	r.Get("/charts/{name}.png", h.GetChart)

	return r
}

// GetDashboard handles GET /api/dashboard
func (h *DashboardHandler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	var q api.FilterQuery
	if err := h.validator.Bind(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	render.JSON(w, r, h.service.Dashboard(r.Context(), q.ToFilterSet()))
}

// GetFilters handles GET /api/filters
func (h *DashboardHandler) GetFilters(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Filters(r.Context()))
}

// GetStatus handles GET /api/status
func (h *DashboardHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	render.JSON(w, r, h.service.Status(r.Context()))
}

// Refresh handles POST /api/refresh. A failed acquisition still answers 200:
// the snapshot status carries the error and the previous data stays live.
func (h *DashboardHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	snap, err := h.service.Refresh(r.Context())
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) || snap == nil {
			h.errorHandler.HandleError(w, r, err)
			return
		}
		h.logger.WarnContext(r.Context(), "refresh completed with error",
			slog.String("error", err.Error()))
	}

	render.JSON(w, r, api.RefreshResponse{
		Status:   snap.Status,
		Snapshot: api.NewSnapshotInfo(snap),
	})
}

// Export handles GET /api/export. An empty selection or a failed write
// answers 204 so the browser stays on the page.
func (h *DashboardHandler) Export(w http.ResponseWriter, r *http.Request) {
	var q api.FilterQuery
	if err := h.validator.Bind(r, &q); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	data, filename, err := h.service.Export(r.Context(), q.ToFilterSet())
	if err != nil {
		if errors.Is(err, services.ErrNoData) {
			h.logger.DebugContext(r.Context(), "export skipped, no rows")
		} else {
			h.logger.ErrorContext(r.Context(), "export failed",
				slog.String("error", err.Error()))
		}
		w.WriteHeader(http.StatusNoContent)
		return
	}

	w.Header().Set("Content-Type", config.ExportMIMEType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		h.logger.WarnContext(r.Context(), "export write interrupted",
			slog.String("error", err.Error()))
	}
}

// GetChart handles GET /api/charts/{name}.png
func (h *DashboardHandler) GetChart(w http.ResponseWriter, r *http.Request) {
	var req api.ChartRequest
	if err := h.validator.Bind(r, &req); err != nil {
		h.errorHandler.HandleError(w, r, err)
		return
	}

	img, err := h.service.Chart(r.Context(), req.Name, req.Theme, req.ToFilterSet())
	if err != nil {
		switch {
		case errors.Is(err, charts.ErrUnknownChart):
			h.errorHandler.HandleError(w, r, apierrors.ErrChartNotFound)
		case errors.Is(err, services.ErrServiceUnavailable):
			h.errorHandler.HandleError(w, r, apierrors.ErrServiceUnavailable)
		case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
			h.errorHandler.HandleError(w, r, err)
		default:
			h.logger.ErrorContext(r.Context(), "chart render failed",
				slog.String("chart", req.Name),
				slog.String("error", err.Error()))
			h.errorHandler.HandleError(w, r, apierrors.ErrRenderFailed)
		}
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(img)
}
