package main

import (
	"log/slog"
	"net/http"

	"github.com/goccy/go-json"
)

var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

// VersionInfo defines the structure for build/version information.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	BuildDate string `json:"build_date"`
}

// ServerAPI serves diagnostics about the running binary.
type ServerAPI struct {
	logger *slog.Logger
}

// NewServerAPI creates a new instance of the ServerAPI.
func NewServerAPI(logger *slog.Logger) *ServerAPI {
	return &ServerAPI{logger: logger}
}

// RegisterRoutes sets up the routing for the /api/version endpoint.
func (a *ServerAPI) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/version", a.handleVersion)
}

// handleVersion returns the application's build information.
func (a *ServerAPI) handleVersion(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		respondWithError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	respondWithJSON(w, http.StatusOK, VersionInfo{
		Version:   Version,
		Commit:    Commit,
		BuildDate: BuildDate,
	})
}

func respondWithError(w http.ResponseWriter, code int, message string) {
	respondWithJSON(w, code, map[string]string{"error": message})
}

func respondWithJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if payload != nil {
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			slog.Error("Failed to encode JSON response", "error", err)
		}
	}
}
