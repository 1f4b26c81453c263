// Package settingsapi serves the application-wide settings document.
package settingsapi

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/nulltasker/nulltasker/internal/models"
	"github.com/nulltasker/nulltasker/internal/storage"
)

// Response helpers (local to avoid import cycle)

type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type dataResponse struct {
	Data any `json:"data"`
}

const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_ERROR"
	errCodeInternalError    = "INTERNAL_ERROR"
)

func jsonError(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(errorResponse{Error: errorBody{Code: code, Message: message}})
}

func jsonOK(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

// Handler handles application settings endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new settings handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// Get returns the current application settings.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.storage.Settings().Get(r.Context())
	if err != nil {
		log.Printf("get settings error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if settings == nil {
		settings = models.DefaultAppSettings()
	}

	jsonOK(w, settings)
}

// Update replaces the application settings (admin only).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var settings models.AppSettings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	if settings.ProjectName == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "project_name is required")
		return
	}
	if len(settings.Categories) == 0 {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "at least one category is required")
		return
	}
	switch settings.Display.Theme {
	case "", "light", "dark":
	default:
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "theme must be light or dark")
		return
	}
	if settings.Display.TasksPerPage < 0 {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "tasks_per_page must not be negative")
		return
	}

	if err := h.storage.Settings().Update(r.Context(), &settings); err != nil {
		log.Printf("update settings error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("application settings updated")

	jsonOK(w, &settings)
}
