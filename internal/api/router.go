package api

import (
	"net/http"

	"github.com/bgtwallet/bgtwallet/internal/api/handler"
	"github.com/bgtwallet/bgtwallet/internal/api/middleware"
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handlers bundles everything the router mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	Account    *handler.AccountHandler
	Sale       *handler.SaleHandler
	Withdrawal *handler.WithdrawalHandler
	Admin      *handler.AdminHandler
	Health     *handler.HealthHandler
}

// RateLimits carries the per-group request budgets.
type RateLimits struct {
	PublicRPS int
	AuthRPS   int
}

// NewRouter wires middleware and routes.
func NewRouter(h Handlers, limits RateLimits) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.TraceMiddleware)
	r.Use(middleware.RecoverMiddleware)
	r.Use(middleware.LoggingMiddleware)
	r.Use(middleware.MetricsMiddleware)

	r.Get("/healthz", h.Health.Live)
	r.Get("/readyz", h.Health.Ready)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(middleware.PublicRateLimiter(limits.PublicRPS))
		r.Post("/v1/auth/token", h.Auth.Token)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.AuthMiddleware)
		r.Use(middleware.AuthRateLimiter(limits.AuthRPS))

		r.Post("/v1/start", h.Account.Start)
		r.Get("/v1/balance", h.Account.Balance)
		r.Get("/v1/sales", h.Account.Sales)
		r.Get("/v1/catalog", h.Account.Catalog)

		r.Post("/v1/purchase", h.Sale.Purchase)
		r.Post("/v1/sales/country", h.Sale.SelectCountry)
		r.Post("/v1/sales/number", h.Sale.SubmitNumber)
		r.Post("/v1/sales/code", h.Sale.SubmitCode)
		r.Post("/v1/sales/cancel", h.Sale.Cancel)

		r.Post("/v1/withdrawals/method", h.Withdrawal.SelectMethod)
		r.Post("/v1/withdrawals/address", h.Withdrawal.SubmitAddress)
		r.Post("/v1/withdrawals/amount", h.Withdrawal.SubmitAmount)
		r.Post("/v1/withdrawals/cancel", h.Withdrawal.Cancel)

		r.Route("/v1/admin", func(r chi.Router) {
			r.Use(middleware.RequireOperator)

			r.Post("/decisions", h.Admin.Decide)
			r.Post("/balance", h.Admin.AdjustBalance)
			r.Put("/policy", h.Admin.UpdatePolicy)
			r.Put("/policy/users/{id}", h.Admin.SetUserLimit)
			r.Delete("/policy/users/{id}", h.Admin.RemoveUserLimit)
			r.Post("/broadcast", h.Admin.Broadcast)
			r.Put("/catalog/{country}", h.Admin.UpsertCountry)
			r.Delete("/catalog/{country}", h.Admin.DeleteCountry)
		})
	})

	return r
}
