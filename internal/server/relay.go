package server

import (
	"civsim-server/internal/domain"
	"civsim-server/internal/infrastructure/storage"
	"civsim-server/pkg/api"
	"civsim-server/pkg/logger"
	"errors"
	"io"
	"net/http"
	"regexp"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
)

// MaxFileSize - предел одного файла релея (10 MiB)
const MaxFileSize = 10 << 20

var fileNamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{1,128}$`)

// RelayHandler - файловый релей мультиплеера: клиенты кладут и забирают файлы игр по имени.
type RelayHandler struct {
	Store *storage.SQLiteStore
}

func (h *RelayHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("/isalive", h.handleIsAlive).Methods(http.MethodGet)
	r.HandleFunc("/files/{name}", h.handleGetFile).Methods(http.MethodGet)
	r.HandleFunc("/files/{name}", h.handlePutFile).Methods(http.MethodPut)
	r.HandleFunc("/files/{name}", h.handleDeleteFile).Methods(http.MethodDelete)
}

func (h *RelayHandler) handleIsAlive(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, api.ServerFeatureSet{})
}

// fileName достает и проверяет имя файла. При ошибке ответ уже записан.
func fileName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name := mux.Vars(r)["name"]
	if !fileNamePattern.MatchString(name) || name == "." || name == ".." {
		writeJSON(w, http.StatusBadRequest, api.ErrorResponse{Error: "invalid file name"})
		return "", false
	}
	return name, true
}

func (h *RelayHandler) handleGetFile(w http.ResponseWriter, r *http.Request) {
	name, ok := fileName(w, r)
	if !ok {
		return
	}

	data, err := h.Store.GetFile(r.Context(), name)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *RelayHandler) handlePutFile(w http.ResponseWriter, r *http.Request) {
	name, ok := fileName(w, r)
	if !ok {
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxFileSize))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "read body failed", http.StatusBadRequest)
		return
	}

	if err := h.Store.PutFile(r.Context(), name, data); err != nil {
		writeError(w, err)
		return
	}

	logger.Log.WithFields(logrus.Fields{
		"component": "relay",
		"file":      name,
		"size":      len(data),
	}).Debug("file stored")
	w.WriteHeader(http.StatusOK)
}

func (h *RelayHandler) handleDeleteFile(w http.ResponseWriter, r *http.Request) {
	name, ok := fileName(w, r)
	if !ok {
		return
	}

	err := h.Store.DeleteFile(r.Context(), name)
	if errors.Is(err, domain.ErrNotFound) {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusOK)
}
