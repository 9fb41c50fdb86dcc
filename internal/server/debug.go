package server

import (
	"civsim-server/internal/engine"
	"net/http"
	"net/http/pprof"

	"github.com/gorilla/mux"
)

// DebugHandler предоставляет доступ к внутреннему состоянию сервиса
type DebugHandler struct {
	Service *engine.GameService
}

func NewDebugHandler(s *engine.GameService) *DebugHandler {
	return &DebugHandler{Service: s}
}

// RegisterRoutes регистрирует debug-эндпоинты
func (h *DebugHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/debug/jobs", h.handleListJobs).Methods(http.MethodGet)
	r.HandleFunc("/debug/config", h.handleConfig).Methods(http.MethodGet)

	// Profiling
	r.HandleFunc("/debug/pprof/", pprof.Index)
	r.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	r.HandleFunc("/debug/pprof/profile", pprof.Profile)
	r.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	r.HandleFunc("/debug/pprof/trace", pprof.Trace)
	r.PathPrefix("/debug/pprof/").HandlerFunc(pprof.Index)
}

// /debug/jobs - все задания с прогрессом, включая завершенные
func (h *DebugHandler) handleListJobs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Service.Jobs())
}

// /debug/config - параметры запуска (без строки подключения к БД)
func (h *DebugHandler) handleConfig(w http.ResponseWriter, r *http.Request) {
	cfg := h.Service.Config()
	if cfg.DatabaseURL != "" {
		cfg.DatabaseURL = "***"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"config":   cfg,
		"template": h.Service.Template(),
	})
}
