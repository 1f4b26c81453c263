// Package backupadmin implements admin backup snapshots and downloads.
package backupadmin

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/nulltasker/nulltasker/internal/metrics"
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

const errCodeInternalError = "INTERNAL_ERROR"

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

// snapshot is the on-disk backup document.
type snapshot struct {
	Users      []*models.User      `json:"users"`
	Tasks      []*models.Ticket    `json:"tasks"`
	Projects   []*models.Project   `json:"projects"`
	Settings   *models.AppSettings `json:"settings"`
	BackupDate time.Time           `json:"backup_date"`
}

// SnapshotResponse is returned after a successful backup.
type SnapshotResponse struct {
	Filename string    `json:"filename"`
	Created  time.Time `json:"created"`
}

// Handler handles backup endpoints.
type Handler struct {
	storage   storage.Storage
	backupDir string
}

// NewHandler creates a new backup handler writing snapshots to dir.
func NewHandler(store storage.Storage, dir string) *Handler {
	return &Handler{storage: store, backupDir: dir}
}

// collect assembles a full snapshot of the current data set.
func (h *Handler) collect(r *http.Request) (*snapshot, error) {
	ctx := r.Context()

	users, err := h.storage.Users().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	tickets, err := h.storage.Tickets().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	projects, err := h.storage.Projects().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	settings, err := h.storage.Settings().Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("get settings: %w", err)
	}
	if settings == nil {
		settings = models.DefaultAppSettings()
	}

	return &snapshot{
		Users:      users,
		Tasks:      tickets,
		Projects:   projects,
		Settings:   settings,
		BackupDate: time.Now().UTC(),
	}, nil
}

// Snapshot writes a timestamped backup file and returns its name.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.collect(r)
	if err != nil {
		metrics.BackupsTotal.WithLabelValues("failure").Inc()
		log.Printf("backup error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	if err := os.MkdirAll(h.backupDir, 0o755); err != nil {
		metrics.BackupsTotal.WithLabelValues("failure").Inc()
		log.Printf("backup error: create dir: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	filename := fmt.Sprintf("backup-%s.json", snap.BackupDate.Format("20060102-150405"))
	path := filepath.Join(h.backupDir, filename)

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		metrics.BackupsTotal.WithLabelValues("failure").Inc()
		log.Printf("backup error: marshal: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	// Write to a temp file, then rename so a crash never leaves a
	// truncated backup behind.
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		metrics.BackupsTotal.WithLabelValues("failure").Inc()
		log.Printf("backup error: write: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if err := os.Rename(tmp, path); err != nil {
		metrics.BackupsTotal.WithLabelValues("failure").Inc()
		log.Printf("backup error: rename: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.BackupsTotal.WithLabelValues("success").Inc()
	log.Printf("backup written: %s", path)

	jsonOK(w, SnapshotResponse{Filename: filename, Created: snap.BackupDate})
}

// DownloadData streams the full data set as a JSON attachment.
func (h *Handler) DownloadData(w http.ResponseWriter, r *http.Request) {
	snap, err := h.collect(r)
	if err != nil {
		log.Printf("download data error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	writeAttachment(w, "nulltasker-data.json", snap)
}

// DownloadSettings streams the application settings as a JSON attachment.
func (h *Handler) DownloadSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.storage.Settings().Get(r.Context())
	if err != nil {
		log.Printf("download settings error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if settings == nil {
		settings = models.DefaultAppSettings()
	}

	writeAttachment(w, "nulltasker-settings.json", settings)
}

func writeAttachment(w http.ResponseWriter, filename string, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.Encode(v)
}
