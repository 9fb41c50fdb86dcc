package server

import (
	"civsim-server/internal/domain"
	"civsim-server/internal/engine"
	"civsim-server/internal/infrastructure/storage"
	"civsim-server/internal/version"
	"civsim-server/pkg/api"
	"civsim-server/pkg/logger"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

const shutdownTimeout = 10 * time.Second

type Server struct {
	Engine *engine.GameService
	// Store - хранилище файлов релея. nil - релей выключен.
	Store *storage.SQLiteStore
	Port  string
}

func New(engine *engine.GameService, store *storage.SQLiteStore, port string) *Server {
	return &Server{
		Engine: engine,
		Store:  store,
		Port:   port,
	}
}

// Router собирает все маршруты сервера
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.Use(enableCORS)

	r.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/version", s.handleVersion).Methods(http.MethodGet)

	// Пакеты симуляций
	r.HandleFunc("/simulations", s.handleStartBatch).Methods(http.MethodPost)
	r.HandleFunc("/simulations/{id}", s.handleGetJob).Methods(http.MethodGet)
	r.HandleFunc("/simulations/{id}", s.handleCancelJob).Methods(http.MethodDelete)
	r.HandleFunc("/simulations/{id}/text", s.handleJobText).Methods(http.MethodGet)
	r.HandleFunc("/ws/simulations/{id}", s.handleProgressWS)

	// Логи действий
	r.HandleFunc("/replays", s.handleUploadReplay).Methods(http.MethodPost)
	r.HandleFunc("/replays/{id}", s.handleGetReplay).Methods(http.MethodGet)
	r.HandleFunc("/replays/{id}/run", s.handleRunReplay).Methods(http.MethodPost)

	NewDebugHandler(s.Engine).RegisterRoutes(r)

	// Релей файлов мультиплеера
	if s.Store != nil {
		relay := &RelayHandler{Store: s.Store}
		relay.RegisterRoutes(r)
	}

	return r
}

// Run запускает HTTP сервер и останавливает его по отмене ctx
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.Port,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Log.Infof("🛡️  CivSim Server running on :%s", s.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Разрешаем запросы с фронтенда
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, version.Info())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Log.WithError(err).Debug("write json response failed")
	}
}

// writeError переводит ошибку ядра в HTTP статус.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrInvalidAction):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound), errors.Is(err, engine.ErrJobNotFound):
		status = http.StatusNotFound
	case errors.Is(err, engine.ErrNoStore):
		status = http.StatusServiceUnavailable
	}
	if status == http.StatusInternalServerError {
		logger.Log.WithError(err).Error("request failed")
	}
	writeJSON(w, status, api.ErrorResponse{Error: err.Error()})
}
