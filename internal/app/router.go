package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/stockroom-app/stockroom/internal/auth"
	"github.com/stockroom-app/stockroom/internal/ledger"
	"github.com/stockroom-app/stockroom/internal/masterdata/budgets"
	"github.com/stockroom-app/stockroom/internal/masterdata/items"
	"github.com/stockroom-app/stockroom/internal/masterdata/locations"
	"github.com/stockroom-app/stockroom/internal/observability"
	"github.com/stockroom-app/stockroom/internal/procurement"
	"github.com/stockroom-app/stockroom/internal/requests"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger             *slog.Logger
	Config             *Config
	AuthService        *auth.Service
	AuthHandler        *auth.Handler
	LedgerHandler      *ledger.Handler
	ProcurementHandler *procurement.Handler
	RequestsHandler    *requests.Handler
	ItemsHandler       *items.Handler
	LocationsHandler   *locations.Handler
	BudgetsHandler     *budgets.Handler
	Metrics            *observability.Metrics
}

// NewRouter constructs the chi.Router with application defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	params.AuthHandler.MountPublicRoutes(r)

	r.Group(func(r chi.Router) {
		r.Use(params.AuthService.Middleware)

		params.AuthHandler.MountRoutes(r)

		r.Route("/ledger", params.LedgerHandler.MountRoutes)
		params.ProcurementHandler.MountRoutes(r)
		params.RequestsHandler.MountRoutes(r)

		r.Group(func(r chi.Router) {
			r.Use(auth.RequireRole(auth.RoleAdmin, auth.RoleManager))
			params.ItemsHandler.MountRoutes(r)
			params.LocationsHandler.MountRoutes(r)
			params.BudgetsHandler.MountRoutes(r)
		})
	})

	return r
}
