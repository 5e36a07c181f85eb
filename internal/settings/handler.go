package settings

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
)

// Handler wires HTTP endpoints for application settings.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers settings routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/settings/pricing-method", h.getPricingMethod)
	r.Put("/settings/pricing-method", h.putPricingMethod)
}

type pricingMethodPayload struct {
	Method string `json:"method"`
}

func (h *Handler) getPricingMethod(w http.ResponseWriter, r *http.Request) {
	method, err := h.service.PricingMethod(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pricingMethodPayload{Method: string(method)})
}

func (h *Handler) putPricingMethod(w http.ResponseWriter, r *http.Request) {
	var payload pricingMethodPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "invalid payload", err.Error())
		return
	}
	if err := h.service.SetPricingMethod(r.Context(), inventory.PricingMethod(payload.Method)); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, pricingMethodPayload{Method: payload.Method})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, inventory.ErrUnknownPricingMethod):
		httpx.Problem(w, http.StatusBadRequest, "unknown pricing method", err.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "setting not found", err.Error())
	default:
		h.logger.Error("settings request failed", "error", err, "path", r.URL.Path)
		httpx.Problem(w, http.StatusInternalServerError, "internal error", "unexpected failure")
	}
}
