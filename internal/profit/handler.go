package profit

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for profit reporting.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a profit handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers profit routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/profit", h.handleList)
	r.Get("/profit/summary", h.handleSummary)
}

func filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	filter := Filter{
		SaleType:  inventory.SaleType(q.Get("sale_type")),
		ProductID: parseID(q.Get("product_id")),
	}
	if raw := q.Get("from"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.From = ts
		}
	}
	if raw := q.Get("to"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			filter.To = ts
		}
	}
	return filter
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.List(r.Context(), filterFromQuery(r))
	if err != nil {
		h.logger.Error("profit request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"list": entries})
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summaries, err := h.service.Summarize(r.Context(), filterFromQuery(r))
	if err != nil {
		h.logger.Error("profit request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"summaries": summaries})
}

func parseID(raw string) int64 {
	if raw == "" {
		return 0
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
