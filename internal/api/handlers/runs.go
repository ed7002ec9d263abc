// Package handlers implements the HTTP handlers for the run API.
package handlers

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/onnwee/tripletree/internal/apierr"
	"github.com/onnwee/tripletree/internal/config"
	"github.com/onnwee/tripletree/internal/force"
	"github.com/onnwee/tripletree/internal/logger"
	"github.com/onnwee/tripletree/internal/simulation"
	"github.com/onnwee/tripletree/internal/store"
)

// SubmitRunRequest is the POST /api/runs payload.
type SubmitRunRequest struct {
	Points force.Points      `json:"points"`
	Params simulation.Params `json:"params"`
}

// SubmitRunResponse acknowledges a queued run.
type SubmitRunResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

func newRunID() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		return "run-fallback"
	}
	return hex.EncodeToString(b)
}

// SubmitRun validates a dataset and queues it for the background job.
func SubmitRun(st *store.Store, cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req SubmitRunRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidJSON())
			return
		}
		if len(req.Points) == 0 {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationMissingField("points"))
			return
		}
		if len(req.Points) < 3 {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("points", "at least 3 points are required"))
			return
		}
		if cfg.MaxPoints > 0 && len(req.Points) > cfg.MaxPoints {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationTooLarge(len(req.Points), cfg.MaxPoints))
			return
		}
		dim := len(req.Points[0])
		if dim == 0 {
			apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("points", "points must have at least one dimension"))
			return
		}
		for _, p := range req.Points {
			if len(p) != dim {
				apierr.WriteErrorWithContext(w, r, apierr.ValidationInvalidValue("points", "all points must share one dimension"))
				return
			}
		}

		pointsJSON, err := json.Marshal(req.Points)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemInternal(""))
			return
		}
		paramsJSON, err := json.Marshal(req.Params)
		if err != nil {
			apierr.WriteErrorWithContext(w, r, apierr.SystemInternal(""))
			return
		}

		id := newRunID()
		if err := st.CreateRun(r.Context(), id, pointsJSON, paramsJSON, len(req.Points)); err != nil {
			logger.ErrorContext(r.Context(), "failed to queue run", "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.RunQueueFailed(""))
			return
		}

		logger.InfoContext(r.Context(), "run queued", "run_id", id, "points", len(req.Points))
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		json.NewEncoder(w).Encode(SubmitRunResponse{ID: id, Status: store.StatusQueued})
	}
}

// GetRun returns a run's status and summary.
func GetRun(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		run, err := st.GetRun(r.Context(), id)
		if err == sql.ErrNoRows {
			apierr.WriteErrorWithContext(w, r, apierr.RunNotFound(id))
			return
		}
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to fetch run", "run_id", id, "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(run)
	}
}

// ForcesResponse carries the force vectors of a completed run.
type ForcesResponse struct {
	ID     string      `json:"id"`
	Forces [][]float64 `json:"forces"`
}

// GetRunForces returns the per-point force vectors of a completed run.
func GetRunForces(st *store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]
		run, err := st.GetRun(r.Context(), id)
		if err == sql.ErrNoRows {
			apierr.WriteErrorWithContext(w, r, apierr.RunNotFound(id))
			return
		}
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to fetch run", "run_id", id, "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
			return
		}
		if run.Status != store.StatusCompleted {
			apierr.WriteErrorWithContext(w, r, apierr.RunNotCompleted(run.Status))
			return
		}

		forces, err := st.Forces(r.Context(), id)
		if err != nil {
			logger.ErrorContext(r.Context(), "failed to fetch forces", "run_id", id, "error", err)
			apierr.WriteErrorWithContext(w, r, apierr.SystemDatabase(""))
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ForcesResponse{ID: id, Forces: forces})
	}
}
