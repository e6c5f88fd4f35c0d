package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockroom-app/stockroom/internal/platform/httpx"
	"github.com/stockroom-app/stockroom/internal/shared"
)

// Handler wires HTTP endpoints for the ledger module.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balances", h.listBalances)
	r.Get("/balances/{itemID}/{locationID}", h.getBalance)
	r.Post("/adjustments", h.applyAdjustment)
	r.Put("/balances", h.setAbsolute)
	r.Get("/transactions", h.listTransactions)
	r.Get("/low-stock", h.lowStock)
	r.Get("/overstock", h.overstock)
}

type adjustmentRequest struct {
	ItemID     int64  `json:"item_id" validate:"required"`
	LocationID int64  `json:"location_id" validate:"required"`
	Delta      int64  `json:"quantity_change" validate:"required"`
	Type       string `json:"transaction_type"`
	Notes      string `json:"notes"`
}

type setBalanceRequest struct {
	ItemID            int64 `json:"item_id" validate:"required"`
	LocationID        int64 `json:"location_id" validate:"required"`
	Quantity          int64 `json:"quantity" validate:"gte=0"`
	OverstockQuantity int64 `json:"overstock_quantity" validate:"gte=0"`
}

func (h *Handler) getBalance(w http.ResponseWriter, r *http.Request) {
	itemID, err1 := strconv.ParseInt(chi.URLParam(r, "itemID"), 10, 64)
	locationID, err2 := strconv.ParseInt(chi.URLParam(r, "locationID"), 10, 64)
	if err1 != nil || err2 != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item and location ids must be numeric")
		return
	}
	bal, err := h.service.GetBalance(r.Context(), itemID, locationID)
	if err != nil {
		h.logger.Error("get balance failed", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, bal)
}

func (h *Handler) listBalances(w http.ResponseWriter, r *http.Request) {
	locationID := queryInt64(r, "location_id")
	views, err := h.service.ListBalances(r.Context(), locationID)
	if err != nil {
		h.logger.Error("list balances failed", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) applyAdjustment(w http.ResponseWriter, r *http.Request) {
	var req adjustmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item_id, location_id and quantity_change are required")
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	result, err := h.service.ApplyMovement(r.Context(), MovementInput{
		ItemID:      req.ItemID,
		LocationID:  req.LocationID,
		Delta:       req.Delta,
		Type:        TransactionType(req.Type),
		PerformedBy: principal.UserID,
		Notes:       req.Notes,
	})
	if err != nil {
		h.logger.Error("apply adjustment failed", slog.Any("error", err),
			slog.Int64("item_id", req.ItemID), slog.Int64("location_id", req.LocationID))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) setAbsolute(w http.ResponseWriter, r *http.Request) {
	var req setBalanceRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid json body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "item_id and location_id are required, quantities must not be negative")
		return
	}
	principal, _ := shared.PrincipalFromContext(r.Context())
	err := h.service.SetAbsolute(r.Context(), SetAbsoluteInput{
		ItemID:            req.ItemID,
		LocationID:        req.LocationID,
		Quantity:          req.Quantity,
		OverstockQuantity: req.OverstockQuantity,
		PerformedBy:       principal.UserID,
	})
	if err != nil {
		h.logger.Error("set balance failed", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"message": "Inventory updated successfully"})
}

func (h *Handler) listTransactions(w http.ResponseWriter, r *http.Request) {
	filter := TransactionFilter{
		ItemID:     queryInt64(r, "item_id"),
		LocationID: queryInt64(r, "location_id"),
		Type:       TransactionType(r.URL.Query().Get("type")),
		Page:       int(queryInt64(r, "page")),
		PerPage:    int(queryInt64(r, "per_page")),
	}
	if filter.Type != "" && !filter.Type.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "unknown transaction type")
		return
	}
	entries, total, err := h.service.ListTransactions(r.Context(), filter)
	if err != nil {
		h.logger.Error("list transactions failed", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"transactions": entries,
		"pagination":   shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) lowStock(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.LowStock(r.Context(), queryInt64(r, "location_id"))
	if err != nil {
		h.logger.Error("low stock view failed", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) overstock(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.Overstock(r.Context(), queryInt64(r, "location_id"))
	if err != nil {
		h.logger.Error("overstock view failed", slog.Any("error", err))
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, views)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInsufficientStock):
		httpx.Problem(w, http.StatusConflict, "Insufficient Stock", err.Error())
	case errors.Is(err, ErrInvalidQuantity), errors.Is(err, ErrInvalidType), errors.Is(err, ErrSameLocation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func queryInt64(r *http.Request, name string) int64 {
	value, _ := strconv.ParseInt(r.URL.Query().Get(name), 10, 64)
	return value
}
