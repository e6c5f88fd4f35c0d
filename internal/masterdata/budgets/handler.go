package budgets

import (
	"context"
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

// RepositoryPort describes the storage surface the handler needs.
type RepositoryPort interface {
	Create(ctx context.Context, input CreateInput) (Budget, error)
	Get(ctx context.Context, id int64) (Budget, error)
	List(ctx context.Context, fiscalYear *int, locationID *int64) ([]Budget, error)
	Update(ctx context.Context, id int64, input UpdateInput) (Budget, error)
}

// Handler exposes budget endpoints.
type Handler struct {
	logger   *slog.Logger
	repo     RepositoryPort
	validate *validator.Validate
}

// NewHandler constructs the budgets handler.
func NewHandler(logger *slog.Logger, repo RepositoryPort) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes registers the budget routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/budgets", h.list)
	r.Post("/budgets", h.create)
	r.Get("/budgets/summary", h.summary)
	r.Get("/budgets/{id}", h.get)
	r.Put("/budgets/{id}", h.update)
}

type budgetRequest struct {
	Name        string `json:"name" validate:"required"`
	LocationID  int64  `json:"location_id" validate:"required,gt=0"`
	Department  string `json:"department"`
	FiscalYear  int    `json:"fiscal_year" validate:"omitempty,gte=2000"`
	TotalAmount string `json:"total_amount" validate:"required"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	Active      *bool  `json:"active"`
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	parsed, err := time.Parse("2006-01-02", raw)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func (req budgetRequest) period(w http.ResponseWriter) (start, end *time.Time, ok bool) {
	start, err := parseDate(req.StartDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", "start_date must be YYYY-MM-DD")
		return nil, nil, false
	}
	end, err = parseDate(req.EndDate)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", "end_date must be YYYY-MM-DD")
		return nil, nil, false
	}
	return start, end, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req budgetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil || total.IsNegative() {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", "total_amount must be a non-negative decimal string")
		return
	}
	start, end, ok := req.period(w)
	if !ok {
		return
	}
	year := req.FiscalYear
	if year == 0 {
		year = time.Now().Year()
	}
	created, err := h.repo.Create(r.Context(), CreateInput{
		Name:        req.Name,
		LocationID:  req.LocationID,
		Department:  req.Department,
		FiscalYear:  year,
		TotalAmount: total,
		StartDate:   start,
		EndDate:     end,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "id must be an integer")
		return
	}
	b, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	var fiscalYear *int
	if raw := r.URL.Query().Get("fiscal_year"); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid filter", "fiscal_year must be an integer")
			return
		}
		fiscalYear = &year
	}
	var locationID *int64
	if raw := r.URL.Query().Get("location_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid filter", "location_id must be an integer")
			return
		}
		locationID = &id
	}
	out, err := h.repo.List(r.Context(), fiscalYear, locationID)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"budgets": out})
}

// summary aggregates active budgets for one fiscal year, current year by
// default.
func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if raw := r.URL.Query().Get("fiscal_year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Invalid filter", "fiscal_year must be an integer")
			return
		}
		year = parsed
	}
	all, err := h.repo.List(r.Context(), &year, nil)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	summary := Summary{FiscalYear: year, TotalAmount: decimal.Zero, SpentAmount: decimal.Zero}
	for _, b := range all {
		if !b.Active {
			continue
		}
		summary.TotalAmount = summary.TotalAmount.Add(b.TotalAmount)
		summary.SpentAmount = summary.SpentAmount.Add(b.SpentAmount)
		summary.Budgets = append(summary.Budgets, b)
	}
	summary.Remaining = summary.TotalAmount.Sub(summary.SpentAmount)
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid id", "id must be an integer")
		return
	}
	var req budgetRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid payload", err.Error())
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
		return
	}
	total, err := decimal.NewFromString(req.TotalAmount)
	if err != nil || total.IsNegative() {
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", "total_amount must be a non-negative decimal string")
		return
	}
	start, end, ok := req.period(w)
	if !ok {
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	updated, err := h.repo.Update(r.Context(), id, UpdateInput{
		Name:        req.Name,
		Department:  req.Department,
		TotalAmount: total,
		StartDate:   start,
		EndDate:     end,
		Active:      active,
	})
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}

func (h *Handler) respondError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation failed", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not found", err.Error())
	default:
		h.logger.Error("budget operation failed", slog.String("path", r.URL.Path), slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
