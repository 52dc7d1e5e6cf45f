package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"

	"github.com/CTAG07/ngram/pkg/ngram"
	"github.com/CTAG07/ngram/pkg/store"
)

const (
	// maxTrainBody caps the size of a training upload.
	maxTrainBody = 64 << 20
	// maxGenerateBody caps the size of a generate request.
	maxGenerateBody = 1 << 20
)

// ModelAPI holds the dependencies for the model API handlers.
type ModelAPI struct {
	svc           *ModelService
	defaultLength int
	logger        *slog.Logger
}

// NewModelAPI creates a new instance of the ModelAPI.
func NewModelAPI(svc *ModelService, defaultLength int, logger *slog.Logger) *ModelAPI {
	return &ModelAPI{
		svc:           svc,
		defaultLength: defaultLength,
		logger:        logger,
	}
}

// RegisterRoutes sets up the routing for all /api/models endpoints.
func (m *ModelAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/models", m.handleListModels)
	mux.HandleFunc("/api/models/", m.handleModelByName)
}

// handleListModels lists every stored model.
func (m *ModelAPI) handleListModels(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	models, err := m.svc.List(r.Context())
	if err != nil {
		m.logger.Error("Failed to list models", "error", err)
		respondWithError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to retrieve models: %v", err))
		return
	}
	respondWithJSON(w, http.StatusOK, models)
}

// handleModelByName routes actions for a specific model, e.g., train, tune, generate, delete.
func (m *ModelAPI) handleModelByName(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/api/models/")
	parts := strings.Split(path, "/")
	modelName := parts[0]

	if modelName == "" {
		respondWithError(w, http.StatusBadRequest, "Model name not specified")
		return
	}
	if len(parts) > 2 {
		respondWithError(w, http.StatusNotFound, "Action not found")
		return
	}

	if len(parts) == 1 { // Path is just /api/models/{name}
		switch r.Method {
		case http.MethodGet:
			m.handleExport(w, r, modelName)
		case http.MethodDelete:
			if err := m.svc.Delete(r.Context(), modelName); err != nil {
				m.respondWithModelError(w, modelName, "Delete", err)
				return
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.Header().Set("Allow", "GET, DELETE")
			respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		}
		return
	}

	action := parts[1]
	switch action {
	case "train":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		n := 3
		if raw := r.URL.Query().Get("n"); raw != "" {
			var err error
			if n, err = strconv.Atoi(raw); err != nil {
				respondWithError(w, http.StatusBadRequest, "Query parameter n must be an integer")
				return
			}
		}
		body := http.MaxBytesReader(w, r.Body, maxTrainBody)
		stats, err := m.svc.Train(r.Context(), modelName, n, func(b *ngram.Builder) error {
			return b.AddFromReader(body)
		})
		if err != nil {
			m.respondWithModelError(w, modelName, "Training", err)
			return
		}
		respondWithJSON(w, http.StatusCreated, stats)

	case "tune":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		body := http.MaxBytesReader(w, r.Body, maxTrainBody)
		stats, err := m.svc.Tune(r.Context(), modelName, func(b *ngram.Builder) error {
			return b.AddFromReader(body)
		})
		if err != nil {
			m.respondWithModelError(w, modelName, "Tuning", err)
			return
		}
		respondWithJSON(w, http.StatusOK, stats)

	case "generate":
		if !requireMethod(w, r, http.MethodPost) {
			return
		}
		req := GenerateRequest{Length: m.defaultLength}
		if r.ContentLength != 0 {
			data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxGenerateBody))
			if err != nil {
				var maxBytes *http.MaxBytesError
				if errors.As(err, &maxBytes) {
					respondWithError(w, http.StatusRequestEntityTooLarge, "Request body too large")
					return
				}
				respondWithError(w, http.StatusBadRequest, "Failed to read request body")
				return
			}
			if err = json.Unmarshal(data, &req); err != nil {
				respondWithError(w, http.StatusBadRequest, "Invalid JSON request body")
				return
			}
		}
		if req.Length < 0 {
			respondWithError(w, http.StatusBadRequest, "Length must not be negative")
			return
		}
		result, err := m.svc.Generate(r.Context(), []string{modelName}, req)
		if err != nil {
			m.respondWithModelError(w, modelName, "Generation", err)
			return
		}
		respondWithJSON(w, http.StatusOK, result)

	case "stats":
		if !requireMethod(w, r, http.MethodGet) {
			return
		}
		stats, err := m.svc.Stats(r.Context(), modelName)
		if err != nil {
			m.respondWithModelError(w, modelName, "Stats", err)
			return
		}
		respondWithJSON(w, http.StatusOK, stats)

	default:
		respondWithError(w, http.StatusNotFound, "Action not found")
	}
}

// handleExport writes the stored model as a JSON attachment.
func (m *ModelAPI) handleExport(w http.ResponseWriter, r *http.Request, modelName string) {
	data, err := m.svc.Export(r.Context(), modelName)
	if err != nil {
		m.respondWithModelError(w, modelName, "Export", err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s.json\"", modelName))
	if _, err = w.Write(data); err != nil {
		m.logger.Error("Failed to export model", "name", modelName, "error", err)
	}
}

// respondWithModelError maps service and engine errors to HTTP status codes.
func (m *ModelAPI) respondWithModelError(w http.ResponseWriter, modelName, op string, err error) {
	var maxBytes *http.MaxBytesError
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, store.ErrModelNotFound):
		status = http.StatusNotFound
	case errors.Is(err, errModelExists):
		status = http.StatusConflict
	case errors.As(err, &maxBytes):
		status = http.StatusRequestEntityTooLarge
	case errors.Is(err, store.ErrInvalidName),
		errors.Is(err, ngram.ErrInvalidOrder),
		errors.Is(err, ngram.ErrBadSeedLength),
		errors.Is(err, ngram.ErrEmptyModel):
		status = http.StatusBadRequest
	case errors.Is(err, ngram.ErrMalformedModel),
		errors.Is(err, ngram.ErrInconsistentOrder),
		errors.Is(err, ngram.ErrCountOverflow):
		status = http.StatusUnprocessableEntity
	}
	if status == http.StatusInternalServerError {
		m.logger.Error(op+" failed", "name", modelName, "error", err)
	} else {
		m.logger.Debug(op+" rejected", "name", modelName, "error", err)
	}
	respondWithError(w, status, fmt.Sprintf("%s failed: %v", op, err))
}

func requireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		w.Header().Set("Allow", method)
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return false
	}
	return true
}
