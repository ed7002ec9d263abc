// Package api wires the HTTP routes.
package api

import (
	"database/sql"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/onnwee/tripletree/internal/api/handlers"
	"github.com/onnwee/tripletree/internal/config"
	"github.com/onnwee/tripletree/internal/store"
)

// NewRouter builds the route table. hub may be nil to disable the
// progress WebSocket.
func NewRouter(db *sql.DB, st *store.Store, cfg *config.Config, hub *handlers.Hub) *mux.Router {
	r := mux.NewRouter()

	// Runs
	r.HandleFunc("/api/runs", handlers.SubmitRun(st, cfg)).Methods("POST")
	r.HandleFunc("/api/runs/{id}", handlers.GetRun(st)).Methods("GET")
	r.HandleFunc("/api/runs/{id}/forces", handlers.GetRunForces(st)).Methods("GET")

	// Progress
	if hub != nil {
		r.HandleFunc("/api/runs/{id}/ws", handlers.ServeWS(hub)).Methods("GET")
		r.HandleFunc("/api/ws", handlers.ServeWS(hub)).Methods("GET")
	}

	// Operational
	r.HandleFunc("/healthz", handlers.Health(db)).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")

	return r
}
