package sales

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-pos/meridian-pos/internal/inventory"
	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Handler wires HTTP endpoints for sales invoices.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a sales handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers sales routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{invoiceID}", h.handleGet)
		r.Post("/{invoiceID}/post", h.handlePost)
		r.Post("/{invoiceID}/reverse", h.handleReverse)
	})
}

type linePayload struct {
	ProductID   int64 `json:"product_id" validate:"required"`
	WarehouseID int64 `json:"warehouse_id"`
	Count       int64 `json:"count" validate:"required,gt=0"`
	SalePrice   int64 `json:"sale_price" validate:"gte=0"`
	ChangeSetID int64 `json:"change_set_id,omitempty"`
}

type createPayload struct {
	Number     string        `json:"number"`
	CustomerID int64         `json:"customer_id" validate:"required"`
	Type       string        `json:"type" validate:"required,oneof=retail onlineSales"`
	OccurredAt time.Time     `json:"occurred_at"`
	Lines      []linePayload `json:"lines" validate:"required,min=1,dive"`
}

type invoiceResponse struct {
	ID         int64         `json:"id"`
	Number     string        `json:"number"`
	CustomerID int64         `json:"customer_id"`
	Type       string        `json:"type"`
	Status     InvoiceStatus `json:"status"`
	Total      int64         `json:"total"`
	OccurredAt time.Time     `json:"occurred_at"`
}

func toInvoiceResponse(inv Invoice) invoiceResponse {
	return invoiceResponse{
		ID:         inv.ID,
		Number:     inv.Number,
		CustomerID: inv.CustomerID,
		Type:       string(inv.Type),
		Status:     inv.Status,
		Total:      inv.Total,
		OccurredAt: inv.OccurredAt,
	}
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var payload createPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	lines := make([]LineInput, 0, len(payload.Lines))
	for _, p := range payload.Lines {
		lines = append(lines, LineInput{
			ProductID:   p.ProductID,
			WarehouseID: p.WarehouseID,
			Count:       p.Count,
			SalePrice:   p.SalePrice,
		})
	}
	invoice, err := h.service.Create(r.Context(), CreateInput{
		Number:     payload.Number,
		CustomerID: payload.CustomerID,
		Type:       inventory.SaleType(payload.Type),
		OccurredAt: payload.OccurredAt,
		ActorID:    shared.ActorFromContext(r.Context()),
		Lines:      lines,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toInvoiceResponse(invoice))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "invoiceID"))
	invoice, lines, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	resp := struct {
		invoiceResponse
		Lines []linePayload `json:"lines"`
	}{invoiceResponse: toInvoiceResponse(invoice)}
	for _, line := range lines {
		resp.Lines = append(resp.Lines, linePayload{
			ProductID:   line.ProductID,
			WarehouseID: line.WarehouseID,
			Count:       line.Count,
			SalePrice:   line.SalePrice,
			ChangeSetID: line.ChangeSetID,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		CustomerID: parseID(q.Get("customer_id")),
		Status:     InvoiceStatus(q.Get("status")),
		Page:       int(parseID(q.Get("page"))),
		PerPage:    int(parseID(q.Get("per_page"))),
	}
	invoices, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	list := make([]invoiceResponse, 0, len(invoices))
	for _, inv := range invoices {
		list = append(list, toInvoiceResponse(inv))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"list": list, "pagination": pagination})
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "invoiceID"))
	if err := h.service.Post(r.Context(), id, shared.ActorFromContext(r.Context())); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "posted"})
}

func (h *Handler) handleReverse(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "invoiceID"))
	if err := h.service.Reverse(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "reversed"})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid State", err.Error())
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("sales request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		inventory.RespondError(w, err)
	}
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
