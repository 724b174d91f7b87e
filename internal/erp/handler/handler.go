// Package handler exposes operational endpoints for the employee cache.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"alumreg/internal/erp"
	dErrors "alumreg/pkg/domain-errors"
	"alumreg/pkg/platform/httputil"
	"alumreg/pkg/requestcontext"
)

// Cache is the slice of the employee cache the handler needs.
type Cache interface {
	Refresh(ctx context.Context) error
	Stats() erp.CacheStats
}

// Handler wires cache operations to admin endpoints.
type Handler struct {
	cache  Cache
	logger *slog.Logger
}

// New constructs the ERP ops handler.
func New(cache Cache, logger *slog.Logger) *Handler {
	return &Handler{cache: cache, logger: logger}
}

// Register mounts the cache endpoints on an (already admin-guarded) router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/erp/cache/stats", h.HandleStats)
	r.Post("/erp/cache/refresh", h.HandleRefresh)
}

// HandleStats returns the cache observability snapshot.
func (h *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.cache.Stats())
}

// HandleRefresh forces an immediate roster refresh.
func (h *Handler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.cache.Refresh(ctx); err != nil {
		h.logger.ErrorContext(ctx, "manual roster refresh failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeExternalService, "roster refresh failed"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.cache.Stats())
}
