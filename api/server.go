/*
server.go - HTTP router and middleware configuration

PURPOSE:

	Configures the chi router, middleware stack, and route definitions.
	This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
 1. Logger:     Request logging
 2. Recoverer:  Panic recovery (500 instead of crash)
 3. RequestID:  Unique ID per request for tracing
 4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:

	/api/accounts/*      Account lifecycle, balance, history, user actions
	/api/deposits/*      Operator deposit review queue
	/api/withdrawals/*   Operator withdrawal review queue
	/api/slots/*         Operator slot termination
	/api/catalog         Tier listing
	/api/admin/*         Bonus grants, manual accrual runs
	/metrics             Prometheus scrape endpoint

SECURITY NOTE:

	No authentication middleware here; operator endpoints trust the
	X-Operator-ID header. Authentication lives in the gateway in front
	of this service.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Operator-ID"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Account routes
		r.Route("/accounts", func(r chi.Router) {
			r.Post("/", h.CreateAccount)
			r.Get("/{id}", h.GetAccount)
			r.Delete("/{id}", h.DeleteAccount)
			r.Put("/{id}/destination", h.SetDestination)
			r.Get("/{id}/balance", h.GetBalance)
			r.Get("/{id}/history", h.GetHistory)
			r.Post("/{id}/deposits", h.SubmitDeposit)
			r.Post("/{id}/levels", h.OpenLevel)
			r.Post("/{id}/withdrawals", h.SubmitWithdrawal)
		})

		// Deposit review routes
		r.Route("/deposits", func(r chi.Router) {
			r.Get("/pending", h.ListPendingDeposits)
			r.Post("/{id}/approve", h.ApproveDeposit)
			r.Post("/{id}/deny", h.DenyDeposit)
		})

		// Withdrawal review routes
		r.Route("/withdrawals", func(r chi.Router) {
			r.Get("/pending", h.ListPendingWithdrawals)
			r.Post("/{id}/approve", h.ApproveWithdrawal)
			r.Post("/{id}/deny", h.DenyWithdrawal)
		})

		// Slot routes
		r.Route("/slots", func(r chi.Router) {
			r.Post("/{id}/terminate", h.TerminateSlot)
		})

		// Catalog
		r.Get("/catalog", h.ListCatalog)

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/accounts/{id}/bonus", h.GrantBonus)
			r.Post("/accrual/run", h.RunAccrual)
		})
	})

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
