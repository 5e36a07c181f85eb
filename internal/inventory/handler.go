package inventory

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-pos/meridian-pos/internal/platform/httpx"
	"github.com/meridian-pos/meridian-pos/internal/shared"
)

// Handler wires HTTP endpoints for the inventory module.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs inventory handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers inventory routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/lots", h.handleListLots)
	r.Get("/products/{productID}/price", h.handleQuotePrice)
	r.Get("/products/{productID}/availability", h.handleAvailability)
}

type lotResponse struct {
	ID                int64     `json:"id"`
	ProductID         int64     `json:"product_id"`
	WarehouseID       int64     `json:"warehouse_id"`
	PurchaseInvoiceID int64     `json:"purchase_invoice_id"`
	Count             int64     `json:"count"`
	Price             PriceSet  `json:"price"`
	OccurredAt        time.Time `json:"occurred_at"`
	Status            LotStatus `json:"status"`
}

type lotListResponse struct {
	List       []lotResponse     `json:"list"`
	Pagination shared.Pagination `json:"pagination"`
}

func (h *Handler) handleListLots(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := LotListFilter{
		WarehouseID: parseID(q.Get("warehouse_id")),
		ProductID:   parseID(q.Get("product_id")),
		Page:        int(parseID(q.Get("page"))),
		PerPage:     int(parseID(q.Get("per_page"))),
	}
	lots, pagination, err := h.service.ListLots(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	resp := lotListResponse{List: make([]lotResponse, 0, len(lots)), Pagination: pagination}
	for _, lot := range lots {
		resp.List = append(resp.List, lotResponse{
			ID:                lot.ID,
			ProductID:         lot.ProductID,
			WarehouseID:       lot.WarehouseID,
			PurchaseInvoiceID: lot.PurchaseInvoiceID,
			Count:             lot.Count,
			Price:             lot.Price,
			OccurredAt:        lot.OccurredAt,
			Status:            lot.Status,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleQuotePrice(w http.ResponseWriter, r *http.Request) {
	productID := parseID(chi.URLParam(r, "productID"))
	if productID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product id required")
		return
	}
	var (
		quote Quote
		err   error
	)
	if method := r.URL.Query().Get("method"); method != "" {
		quote, err = h.service.QuotePriceWith(r.Context(), productID, PricingMethod(method))
	} else {
		quote, err = h.service.QuotePrice(r.Context(), productID)
	}
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, quote)
}

func (h *Handler) handleAvailability(w http.ResponseWriter, r *http.Request) {
	productID := parseID(chi.URLParam(r, "productID"))
	if productID == 0 {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "product id required")
		return
	}
	avail, err := h.service.AvailabilityOf(r.Context(), productID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"product_id": avail.ProductID,
		"total":      avail.Total,
		"warehouses": avail.ByWarehouse,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	h.logger.Error("inventory request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
	RespondError(w, err)
}

// RespondError maps inventory errors onto problem responses. Shared with the
// document synchronizer handlers, which surface the same error set.
func RespondError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", insufficient.Error())
	case errors.Is(err, ErrLotNotFound), errors.Is(err, ErrChangeSetNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", "a concurrent stock mutation interrupted the operation, retry")
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrUnknownPricingMethod):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, ErrNoLotsDeleted):
		httpx.Problem(w, http.StatusInternalServerError, "Inconsistent State", "")
	default:
		httpx.RespondError(w, err)
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
