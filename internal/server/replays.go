package server

import (
	"civsim-server/internal/domain"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
)

// MaxReplaySize - предел тела POST /replays
const MaxReplaySize = 32 << 20

// POST /replays - тело: лог в формате CRPL
func (s *Server) handleUploadReplay(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxReplaySize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "replay too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeError(w, fmt.Errorf("%w: %v", domain.ErrInvalidAction, err))
		return
	}

	summary, err := s.Engine.UploadReplay(r.Context(), data)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, summary)
}

// GET /replays/{id}
func (s *Server) handleGetReplay(w http.ResponseWriter, r *http.Request) {
	summary, err := s.Engine.ReplayInfo(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// POST /replays/{id}/run - проигрывает лог на свежем мире.
// Расхождение возвращается в теле с кодом 200.
func (s *Server) handleRunReplay(w http.ResponseWriter, r *http.Request) {
	view, err := s.Engine.RunStoredReplay(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}
