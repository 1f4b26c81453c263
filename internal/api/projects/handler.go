package projects

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/nulltasker/nulltasker/internal/api/middleware"
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

// Error codes
const (
	errCodeBadRequest       = "BAD_REQUEST"
	errCodeValidationFailed = "VALIDATION_ERROR"
	errCodeNotFound         = "NOT_FOUND"
	errCodeConflict         = "CONFLICT"
	errCodeForbidden        = "FORBIDDEN"
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

func jsonCreated(w http.ResponseWriter, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(dataResponse{Data: data})
}

func jsonNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// Handler handles project endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new project handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// CreateRequest is the request body for creating a project.
type CreateRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// UpdateRequest is the request body for updating a project. Absent
// fields are left unchanged.
type UpdateRequest struct {
	Name        *string                 `json:"name,omitempty"`
	Description *string                 `json:"description,omitempty"`
	Settings    *models.ProjectSettings `json:"settings,omitempty"`
}

// AddMemberRequest is the request body for adding a project member.
type AddMemberRequest struct {
	UserID string `json:"user_id"`
}

// List returns the projects visible to the caller. System admins see
// everything, everyone else only their own memberships.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var (
		list []*models.Project
		err  error
	)
	if middleware.GetRole(ctx) == models.RoleSystemAdmin {
		list, err = h.storage.Projects().List(ctx)
	} else {
		list, err = h.storage.Projects().ListForUser(ctx, middleware.GetUserID(ctx))
	}
	if err != nil {
		log.Printf("list projects error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, list)
}

// GetByID returns a single project if the caller is a member or a
// system admin.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if projectID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	ctx := r.Context()

	project, err := h.storage.Projects().GetByID(ctx, projectID)
	if err != nil {
		log.Printf("get project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	if middleware.GetRole(ctx) != models.RoleSystemAdmin && !project.HasMember(middleware.GetUserID(ctx)) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "not a member of this project")
		return
	}

	jsonOK(w, project)
}

// Create creates a new project (admin only). The caller becomes the
// owner and first member.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	if err := ValidateName(req.Name); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateDescription(req.Description); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()
	ownerID := middleware.GetUserID(ctx)

	existing, err := h.storage.Projects().GetByName(ctx, req.Name)
	if err != nil {
		log.Printf("create project error: check name: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, errCodeConflict, "project name already exists")
		return
	}

	project := models.NewProject(req.Name, req.Description, ownerID)
	project.ID = uuid.New().String()

	if err := h.storage.Projects().Create(ctx, project); err != nil {
		log.Printf("create project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	// Sync the owner's membership list
	if err := h.storage.Projects().AddMember(ctx, project.ID, ownerID); err != nil {
		log.Printf("create project error: enroll owner: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("project created: %s (%s)", project.Name, project.ID)

	jsonCreated(w, project)
}

// Update updates a project (admin only).
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if projectID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()

	project, err := h.storage.Projects().GetByID(ctx, projectID)
	if err != nil {
		log.Printf("update project error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if err := ValidateName(name); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		existing, err := h.storage.Projects().GetByName(ctx, name)
		if err != nil {
			log.Printf("update project error: check name: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
			return
		}
		if existing != nil && existing.ID != project.ID {
			jsonError(w, http.StatusConflict, errCodeConflict, "project name already exists")
			return
		}
		project.Name = name
	}
	if req.Description != nil {
		if err := ValidateDescription(*req.Description); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		project.Description = *req.Description
	}
	if req.Settings != nil {
		project.Settings = *req.Settings
	}

	project.UpdatedAt = time.Now()

	if err := h.storage.Projects().Update(ctx, project); err != nil {
		log.Printf("update project error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, project)
}

// Delete deletes a project along with its tickets and membership
// references (admin only). The default project is protected.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if projectID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	ctx := r.Context()

	if err := h.storage.Projects().Delete(ctx, projectID); err != nil {
		switch {
		case errors.Is(err, storage.ErrDefaultProjectProtected):
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "default project cannot be deleted")
		case errors.Is(err, storage.ErrNotFound):
			jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		default:
			log.Printf("delete project error: %v", err)
			jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		}
		return
	}

	log.Printf("project deleted: %s", projectID)

	jsonNoContent(w)
}

// AddMember adds a user to a project (admin only). The user's own
// membership list is kept in sync by the storage layer.
func (h *Handler) AddMember(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	if projectID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id required")
		return
	}

	var req AddMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "user_id is required")
		return
	}

	ctx := r.Context()

	user, err := h.storage.Users().GetByID(ctx, req.UserID)
	if err != nil {
		log.Printf("add member error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if user == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "user not found")
		return
	}

	if err := h.storage.Projects().AddMember(ctx, projectID, req.UserID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
			return
		}
		log.Printf("add member error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	project, err := h.storage.Projects().GetByID(ctx, projectID)
	if err != nil || project == nil {
		log.Printf("add member error: reload project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("member added: user %s to project %s", req.UserID, projectID)

	jsonOK(w, project)
}

// RemoveMember removes a user from a project (admin only).
func (h *Handler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	projectID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userId")
	if projectID == "" || userID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "project id and user id required")
		return
	}

	ctx := r.Context()

	if err := h.storage.Projects().RemoveMember(ctx, projectID, userID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
			return
		}
		log.Printf("remove member error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	log.Printf("member removed: user %s from project %s", userID, projectID)

	jsonNoContent(w)
}
