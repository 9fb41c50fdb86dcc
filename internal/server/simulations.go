package server

import (
	"civsim-server/internal/domain"
	"civsim-server/pkg/api"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"
)

// maxRequestSize - предел JSON тела запросов
const maxRequestSize = 64 << 10

// POST /simulations
func (s *Server) handleStartBatch(w http.ResponseWriter, r *http.Request) {
	var req api.BatchRequest
	if r.ContentLength != 0 {
		dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestSize))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&req); err != nil {
			writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidAction, err))
			return
		}
	}

	id, err := s.Engine.StartBatch(req)
	if err != nil {
		writeError(w, err)
		return
	}

	view, err := s.Engine.Job(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, view)
}

// GET /simulations/{id}
func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	view, err := s.Engine.Job(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DELETE /simulations/{id}
func (s *Server) handleCancelJob(w http.ResponseWriter, r *http.Request) {
	if err := s.Engine.CancelJob(mux.Vars(r)["id"]); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GET /simulations/{id}/text - текстовый отчет, как в консоли
func (s *Server) handleJobText(w http.ResponseWriter, r *http.Request) {
	summary, ok, err := s.Engine.JobSummary(mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusConflict, api.ErrorResponse{Error: "report is not ready"})
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(summary.Text()))
}
