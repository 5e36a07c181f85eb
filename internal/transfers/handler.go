package transfers

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

// Handler wires HTTP endpoints for stock transfers.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a transfers handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers transfer routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/transfers", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Post("/", h.handleCreate)
		r.Get("/{transferID}", h.handleGet)
		r.Post("/{transferID}/complete", h.handleComplete)
		r.Post("/{transferID}/revert", h.handleRevert)
	})
}

type linePayload struct {
	ProductID   int64 `json:"product_id" validate:"required"`
	Count       int64 `json:"count" validate:"required,gt=0"`
	ChangeSetID int64 `json:"change_set_id,omitempty"`
}

type createPayload struct {
	Number                 string        `json:"number"`
	SourceWarehouseID      int64         `json:"source_warehouse_id" validate:"required"`
	DestinationWarehouseID int64         `json:"destination_warehouse_id" validate:"required,nefield=SourceWarehouseID"`
	Note                   string        `json:"note"`
	OccurredAt             time.Time     `json:"occurred_at"`
	Lines                  []linePayload `json:"lines" validate:"required,min=1,dive"`
}

type transferResponse struct {
	ID                     int64          `json:"id"`
	Number                 string         `json:"number"`
	SourceWarehouseID      int64          `json:"source_warehouse_id"`
	DestinationWarehouseID int64          `json:"destination_warehouse_id"`
	Status                 TransferStatus `json:"status"`
	Note                   string         `json:"note,omitempty"`
	OccurredAt             time.Time      `json:"occurred_at"`
}

func toTransferResponse(tr Transfer) transferResponse {
	return transferResponse{
		ID:                     tr.ID,
		Number:                 tr.Number,
		SourceWarehouseID:      tr.SourceWarehouseID,
		DestinationWarehouseID: tr.DestinationWarehouseID,
		Status:                 tr.Status,
		Note:                   tr.Note,
		OccurredAt:             tr.OccurredAt,
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
		lines = append(lines, LineInput{ProductID: p.ProductID, Count: p.Count})
	}
	transfer, err := h.service.Create(r.Context(), CreateInput{
		Number:                 payload.Number,
		SourceWarehouseID:      payload.SourceWarehouseID,
		DestinationWarehouseID: payload.DestinationWarehouseID,
		Note:                   payload.Note,
		OccurredAt:             payload.OccurredAt,
		ActorID:                shared.ActorFromContext(r.Context()),
		Lines:                  lines,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTransferResponse(transfer))
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "transferID"))
	transfer, lines, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	resp := struct {
		transferResponse
		Lines []linePayload `json:"lines"`
	}{transferResponse: toTransferResponse(transfer)}
	for _, line := range lines {
		resp.Lines = append(resp.Lines, linePayload{
			ProductID:   line.ProductID,
			Count:       line.Count,
			ChangeSetID: line.ChangeSetID,
		})
	}
	httpx.JSON(w, http.StatusOK, resp)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := ListFilter{
		WarehouseID: parseID(q.Get("warehouse_id")),
		Status:      TransferStatus(q.Get("status")),
		Page:        int(parseID(q.Get("page"))),
		PerPage:     int(parseID(q.Get("per_page"))),
	}
	transfers, pagination, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	list := make([]transferResponse, 0, len(transfers))
	for _, tr := range transfers {
		list = append(list, toTransferResponse(tr))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"list": list, "pagination": pagination})
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "transferID"))
	if err := h.service.Complete(r.Context(), id, shared.ActorFromContext(r.Context())); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "completed"})
}

func (h *Handler) handleRevert(w http.ResponseWriter, r *http.Request) {
	id := parseID(chi.URLParam(r, "transferID"))
	if err := h.service.Revert(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"status": "reverted"})
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
		h.logger.Error("transfers request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
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
