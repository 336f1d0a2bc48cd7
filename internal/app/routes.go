package app

import (
	"github.com/gorilla/mux"
	"github.com/greensquare/lessonsync/internal/config"
)

// RegisterRoutes registers all API endpoints.
func RegisterRoutes(r *mux.Router, deps *Dependencies, cfg config.Application) {

	// Calendar push notifications
	r.HandleFunc("/webhook/calendar", deps.SyncHandler.Webhook).Methods("POST")
	r.HandleFunc("/webhook/calendar", deps.SyncHandler.WebhookInfo).Methods("GET")

	// Manual sync
	r.HandleFunc("/api/sync/daily", deps.SyncHandler.SyncDaily).Methods("POST")
	r.HandleFunc("/api/sync/monthly", deps.SyncHandler.SyncMonthly).Methods("POST")
	r.HandleFunc("/api/sync/all", deps.SyncHandler.SyncAll).Methods("POST")

	// Sync state
	r.HandleFunc("/api/state", deps.StateHandler.GetState).Methods("GET")
	r.HandleFunc("/api/state/flags/{name}", deps.StateHandler.SetFlag).Methods("PUT")

	// Student directory
	r.HandleFunc("/api/students", deps.StudentHandler.List).Methods("GET")
	r.HandleFunc("/api/students", deps.StudentHandler.Store).Methods("PUT")
	r.HandleFunc("/api/students/{name}", deps.StudentHandler.Delete).Methods("DELETE")

	// Google integration
	r.HandleFunc("/api/integrations/google/auth/login", deps.GoogleAuth.OAuthLogin).Methods("GET")
	r.HandleFunc("/api/integrations/google/auth/logout", deps.GoogleAuth.OAuthLogout).Methods("DELETE")
	r.HandleFunc("/api/integrations/google/auth/callback", deps.GoogleAuth.OAuthCallback).Methods("GET")
	r.HandleFunc("/api/integrations/google/calendars", deps.GoogleHandler.ListCalendars).Methods("GET")

	// Metrics
	r.Handle("/metrics", deps.SyncMetrics.Handler()).Methods("GET")
}
