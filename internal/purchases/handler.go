package purchases

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

// Handler wires HTTP endpoints for purchase invoices.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a purchases handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers purchase routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/purchases", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{invoiceID}", h.handleGet)
		r.Put("/{invoiceID}", h.handleUpdate)
		r.Delete("/{invoiceID}", h.handleDelete)
		r.Post("/{invoiceID}/complete", h.handleComplete)
	})
}

type linePayload struct {
	ProductID     int64 `json:"product_id" validate:"required"`
	Count         int64 `json:"count" validate:"required,gt=0"`
	PurchasePrice int64 `json:"purchase_price" validate:"gte=0"`
	ConsumerPrice int64 `json:"consumer_price" validate:"gte=0"`
	StorePrice    int64 `json:"store_price" validate:"gte=0"`
}

type createPayload struct {
	Number      string        `json:"number"`
	SupplierID  int64         `json:"supplier_id" validate:"required"`
	WarehouseID int64         `json:"warehouse_id" validate:"required"`
	OccurredAt  time.Time     `json:"occurred_at"`
	Lines       []linePayload `json:"lines" validate:"required,min=1,dive"`
}

type updatePayload struct {
	WarehouseID int64         `json:"warehouse_id"`
	OccurredAt  time.Time     `json:"occurred_at"`
	Lines       []linePayload `json:"lines" validate:"required,min=1,dive"`
}

func toLineInputs(payload []linePayload) []LineInput {
	lines := make([]LineInput, 0, len(payload))
	for _, p := range payload {
		lines = append(lines, LineInput{
			ProductID: p.ProductID,
			Count:     p.Count,
			Price: inventory.PriceSet{
				Purchase: p.PurchasePrice,
				Consumer: p.ConsumerPrice,
				Store:    p.StorePrice,
			},
		})
	}
	return lines
}

type invoiceResponse struct {
	ID          int64         `json:"id"`
	Number      string        `json:"number"`
	SupplierID  int64         `json:"supplier_id"`
	WarehouseID int64         `json:"warehouse_id"`
	Status      InvoiceStatus `json:"status"`
	Total       int64         `json:"total"`
	OccurredAt  time.Time     `json:"occurred_at"`
}

func toInvoiceResponse(inv Invoice) invoiceResponse {
	return invoiceResponse{
		ID:          inv.ID,
		Number:      inv.Number,
		SupplierID:  inv.SupplierID,
		WarehouseID: inv.WarehouseID,
		Status:      inv.Status,
		Total:       inv.Total,
		OccurredAt:  inv.OccurredAt,
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
	invoice, err := h.service.Create(r.Context(), CreateInput{
		Number:      payload.Number,
		SupplierID:  payload.SupplierID,
		WarehouseID: payload.WarehouseID,
		OccurredAt:  payload.OccurredAt,
		ActorID:     shared.ActorFromContext(r.Context()),
		Lines:       toLineInputs(payload.Lines),
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
			ProductID:     line.ProductID,
			Count:         line.Count,
			PurchasePrice: line.Price.Purchase,
			ConsumerPrice: line.Price.Consumer,
			StorePrice:    line.Price.Store,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		SupplierID: parseID(q.Get("supplier_id")),
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

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "invoiceID"))
	var payload updatePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Payload", err.Error())
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.service.Update(r.Context(), UpdateInput{
		InvoiceID:   id,
		WarehouseID: payload.WarehouseID,
		OccurredAt:  payload.OccurredAt,
		ActorID:     shared.ActorFromContext(r.Context()),
		Lines:       toLineInputs(payload.Lines),
	}); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "updated"})
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "invoiceID"))
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "deleted"})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "invoiceID"))
	if err := h.service.Complete(r.Context(), id, shared.ActorFromContext(r.Context())); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "completed"})
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
		h.logger.Error("purchases request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
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
