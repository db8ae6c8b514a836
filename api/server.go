/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging, written through zerolog
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Observe:    Per-route latency histogram
  5. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/dashboard        Home screen figures
  /api/paydays/*        Payday recording and pay schedule
  /api/bills/*          Bill tracking
  /api/debts/*          Debt tracking and payoff strategy
  /api/charity/*        Charity fund
  /api/savings/*        Savings
  /api/rates, /convert  Currency conversion
  /api/exports/*        XLSX and PDF downloads
  /api/scenarios/*      Demo scenarios
  /metrics              Prometheus scrape endpoint
  /healthz              Liveness

SECURITY NOTE:
  No authentication middleware. Bind to localhost or put it behind a proxy.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"fmt"
	stdlog "log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/warp/payday-engine/metrics"
)

// NewRouter creates a new router with all routes configured. An empty
// origins list allows the local frontend dev servers.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  stdlog.New(h.Log, "", 0),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)
	r.Use(observe)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Get("/healthz", h.Health)
	r.Handle("/metrics", metrics.Handler())

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/dashboard", h.GetDashboard)

		r.Route("/paydays", func(r chi.Router) {
			r.Get("/", h.ListPaydays)
			r.Post("/", h.RecordPayday)
			r.Get("/settings", h.GetPaydaySettings)
			r.Put("/settings", h.UpdatePaydaySettings)
			r.Get("/next", h.GetNextPayday)
			r.Get("/summary", h.GetPaydaySummary)
		})

		r.Route("/bills", func(r chi.Router) {
			r.Get("/", h.ListBills)
			r.Post("/", h.CreateBill)
			r.Get("/upcoming", h.UpcomingBills)
			r.Get("/history", h.BillHistory)
			r.Get("/unpaid-total", h.UnpaidBillsTotal)
			r.Post("/rollover", h.RolloverBills)
			r.Get("/{id}", h.GetBill)
			r.Delete("/{id}", h.DeleteBill)
			r.Put("/{id}/paid", h.SetBillPaid)
		})

		r.Route("/debts", func(r chi.Router) {
			r.Get("/", h.ListDebts)
			r.Post("/", h.CreateDebt)
			r.Get("/strategy", h.DebtStrategy)
			r.Get("/prioritized", h.PrioritizedDebts)
			r.Get("/total", h.DebtTotal)
			r.Get("/{id}", h.GetDebt)
			r.Delete("/{id}", h.DeleteDebt)
			r.Post("/{id}/payments", h.RecordDebtPayment)
			r.Get("/{id}/schedule", h.DebtSchedule)
		})

		r.Route("/charity", func(r chi.Router) {
			r.Get("/", h.GetCharity)
			r.Put("/settings", h.UpdateCharitySettings)
			r.Get("/donations", h.ListDonations)
			r.Post("/donations", h.CreateDonation)
		})

		r.Route("/savings", func(r chi.Router) {
			r.Get("/", h.GetSavings)
			r.Put("/settings", h.UpdateSavingsSettings)
			r.Get("/history", h.SavingsHistory)
		})

		r.Get("/rates", h.GetRates)
		r.Post("/rates/refresh", h.RefreshRates)
		r.Get("/convert", h.Convert)

		r.Route("/exports", func(r chi.Router) {
			r.Get("/ledger.xlsx", h.ExportLedger)
			r.Get("/strategy.pdf", h.ExportStrategy)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
			r.Post("/reset", h.ResetDatabase)
		})
	})

	return r
}

// observe records request latency per route pattern. 5xx responses count
// as errors.
func observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		op := r.Method + " unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			op = r.Method + " " + rctx.RoutePattern()
		}
		var err error
		if ww.Status() >= http.StatusInternalServerError {
			err = fmt.Errorf("status %d", ww.Status())
		}
		metrics.ObserveOperation(op, start, err)
	})
}
