package main

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "wl-portal/docs" // This is for Swagger
	"wl-portal/internal/handlers"
	"wl-portal/internal/middleware"
)

func registerRoutes(
	mux *http.ServeMux,
	authMw *middleware.AuthMiddleware,
	staffMw *middleware.StaffMiddleware,
	applicationHandler *handlers.ApplicationHandler,
	reviewHandler *handlers.ReviewHandler,
	healthHandler *handlers.HealthHandler,
) {
	applicant := func(h http.HandlerFunc) http.Handler {
		return authMw.Authenticate(h)
	}
	staff := func(h http.HandlerFunc) http.Handler {
		return authMw.Authenticate(staffMw.RequireStaff(h))
	}

	// Applicant routes
	mux.Handle("POST /api/v1/applications", applicant(applicationHandler.Submit))
	mux.Handle("GET /api/v1/applications/me", applicant(applicationHandler.Status))

	// Staff routes
	mux.Handle("GET /api/v1/review/applications", staff(reviewHandler.ListAll))
	mux.Handle("GET /api/v1/review/applications/pending", staff(reviewHandler.ListPending))
	mux.Handle("GET /api/v1/review/applications/{id}", staff(reviewHandler.GetDetail))
	mux.Handle("POST /api/v1/review/applications/{id}/review", staff(reviewHandler.Review))
	mux.Handle("GET /api/v1/review/applications/{id}/audit", staff(reviewHandler.AuditTrail))
	mux.Handle("GET /api/v1/review/applicants/{applicantId}/applications", staff(reviewHandler.History))

	// Operational endpoints
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.Handle("/swagger/", httpSwagger.WrapHandler)
}
