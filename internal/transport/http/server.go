// Package http exposes the engine's operations over a chi router. The
// transport is a thin shell: it decodes arguments, calls the services and
// renders typed results; every invariant lives below it.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(h *Handler, db Pinger) http.Handler {
	router := chi.NewRouter()
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(chimiddleware.Timeout(30 * time.Second))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	router.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.Ping(ctx); err != nil {
			http.Error(w, "db not ready", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	if h.Config.MetricsEnabled {
		router.Handle("/metrics", promhttp.Handler())
	}

	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/token", h.HandleToken)

		r.Group(func(r chi.Router) {
			r.Use(RequireAuth(h.Config.JWTSecret))

			r.Post("/employees", h.HandleAddEmployee)
			r.Get("/employees", h.HandleSearchEmployees)
			r.Get("/employees/resolve", h.HandleResolve)
			r.Get("/employees/{id}", h.HandleGetEmployee)
			r.Patch("/employees/{id}", h.HandleUpdateEmployee)
			r.Post("/employees/{id}/terminate", h.HandleTerminateEmployee)
			r.Post("/employees/{id}/reactivate", h.HandleReactivateEmployee)
			r.Get("/employees/{id}/leave-balances", h.HandleLeaveBalances)
			r.Get("/employees/{id}/salary", h.HandleCurrentSalary)
			r.Post("/employees/{id}/salary", h.HandleUpdateSalary)
			r.Get("/employees/{id}/salary/history", h.HandleSalaryHistory)
			r.Get("/employees/{id}/reviews", h.HandleListReviews)

			r.Post("/departments", h.HandleCreateDepartment)
			r.Patch("/departments/{id}", h.HandleUpdateDepartment)
			r.Post("/departments/{id}/merge", h.HandleMergeDepartments)
			r.Post("/positions", h.HandleCreatePosition)

			r.Post("/leave-requests", h.HandleSubmitLeaveRequest)
			r.Get("/leave-requests", h.HandleListLeaveRequests)
			r.Post("/leave-requests/{id}/approve", h.HandleApproveLeave)
			r.Post("/leave-requests/{id}/reject", h.HandleRejectLeave)
			r.Post("/leave-requests/{id}/cancel", h.HandleCancelLeave)

			r.Post("/reviews", h.HandleCreateReview)

			r.Get("/audit", h.HandleAuditQuery)

			r.Get("/reports/dashboard", h.HandleDashboard)
			r.Get("/reports/turnover", h.HandleTurnover)
			r.Get("/reports/org-chart", h.HandleOrgChart)
			r.Get("/reports/compensation", h.HandleCompensationReport)
			r.Get("/reports/compensation.pdf", h.HandleCompensationPDF)
		})
	})

	return router
}
