package procurement

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/stockroom-app/stockroom/internal/platform/httpx"
	"github.com/stockroom-app/stockroom/internal/shared"
)

// Handler exposes purchase order endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the procurement handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the purchase order routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/purchase-orders", h.listOrders)
	r.Post("/purchase-orders", h.createOrder)
	r.Get("/purchase-orders/{id}", h.getOrder)
	r.Put("/purchase-orders/{id}/status", h.updateStatus)
}

type orderLineRequest struct {
	ItemID    int64  `json:"item_id" validate:"required,gt=0"`
	Quantity  int64  `json:"quantity" validate:"required,gt=0"`
	UnitPrice string `json:"unit_price" validate:"required"`
}

type createOrderRequest struct {
	PONumber   string             `json:"po_number"`
	LocationID int64              `json:"location_id" validate:"required,gt=0"`
	BudgetID   *int64             `json:"budget_id"`
	Vendor     string             `json:"vendor"`
	Notes      string             `json:"notes"`
	Lines      []orderLineRequest `json:"items" validate:"required,min=1,dive"`
}

type statusRequest struct {
	Status       string     `json:"status" validate:"required"`
	ReceivedDate *time.Time `json:"received_date"`
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	input := CreateOrderInput{
		PONumber:   req.PONumber,
		LocationID: req.LocationID,
		BudgetID:   req.BudgetID,
		Vendor:     req.Vendor,
		Notes:      req.Notes,
	}
	if principal, ok := shared.PrincipalFromContext(r.Context()); ok {
		input.OrderedBy = principal.UserID
	}
	for _, line := range req.Lines {
		price, err := decimal.NewFromString(line.UnitPrice)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation failed", "unit_price must be a decimal string")
			return
		}
		input.Lines = append(input.Lines, OrderLineInput{ItemID: line.ItemID, Quantity: line.Quantity, UnitPrice: price})
	}

	order, err := h.service.CreateOrder(r.Context(), input)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "id must be an integer")
		return
	}
	order, lines, err := h.service.GetOrder(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"order": order, "items": lines})
}

func (h *Handler) listOrders(w http.ResponseWriter, r *http.Request) {
	var filter OrderFilter
	if raw := r.URL.Query().Get("location_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid filter", "location_id must be an integer")
			return
		}
		filter.LocationID = &id
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status := OrderStatus(raw)
		if !status.Valid() {
			httpx.Problem(w, http.StatusBadRequest, "Invalid filter", "unknown status")
			return
		}
		filter.Status = &status
	}
	orders, err := h.service.ListOrders(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"orders": orders})
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "id must be an integer")
		return
	}
	var req statusRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	var actorID int64
	if principal, ok := shared.PrincipalFromContext(r.Context()); ok {
		actorID = principal.UserID
	}
	report, err := h.service.UpdateStatus(r.Context(), id, OrderStatus(req.Status), req.ReceivedDate, actorID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	body := map[string]any{"id": id, "status": req.Status}
	if report != nil {
		body["receiving"] = report
	}
	httpx.JSON(w, http.StatusOK, body)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
	case errors.Is(err, ErrInvalidState):
		httpx.Problem(w, http.StatusConflict, "Invalid state", err.Error())
	case errors.Is(err, ErrDuplicateNumber):
		httpx.Problem(w, http.StatusConflict, "Duplicate PO number", err.Error())
	case errors.Is(err, ErrBudgetNotFound):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Budget not found", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Already received", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
	default:
		h.logger.Error("procurement request failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
