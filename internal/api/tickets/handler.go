package tickets

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

// Handler handles ticket endpoints.
type Handler struct {
	storage storage.Storage
}

// NewHandler creates a new ticket handler.
func NewHandler(store storage.Storage) *Handler {
	return &Handler{storage: store}
}

// CreateRequest is the request body for creating a ticket.
type CreateRequest struct {
	Project        string   `json:"project"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Assignee       string   `json:"assignee"`
	Category       string   `json:"category"`
	Priority       string   `json:"priority"`
	Status         string   `json:"status"`
	Progress       *int     `json:"progress"`
	StartDate      *string  `json:"start_date"`
	DueDate        *string  `json:"due_date"`
	EstimatedHours float64  `json:"estimated_hours"`
	ActualHours    float64  `json:"actual_hours"`
	Tags           []string `json:"tags"`
	ParentTask     *string  `json:"parent_task"`
}

// UpdateRequest is the request body for updating a ticket. Absent
// fields are left unchanged; present fields replace the stored value.
type UpdateRequest struct {
	Title          *string   `json:"title,omitempty"`
	Description    *string   `json:"description,omitempty"`
	Assignee       *string   `json:"assignee,omitempty"`
	Category       *string   `json:"category,omitempty"`
	Priority       *string   `json:"priority,omitempty"`
	Status         *string   `json:"status,omitempty"`
	Progress       *int      `json:"progress,omitempty"`
	StartDate      *string   `json:"start_date,omitempty"`
	DueDate        *string   `json:"due_date,omitempty"`
	EstimatedHours *float64  `json:"estimated_hours,omitempty"`
	ActualHours    *float64  `json:"actual_hours,omitempty"`
	Tags           *[]string `json:"tags,omitempty"`
	ParentTask     *string   `json:"parent_task,omitempty"`
}

// memberProjects returns the caller's fresh membership list, or nil
// with allAccess=true for system admins.
func (h *Handler) memberProjects(r *http.Request) (ids []string, allAccess bool, err error) {
	ctx := r.Context()
	if middleware.GetRole(ctx) == models.RoleSystemAdmin {
		return nil, true, nil
	}
	user, err := h.storage.Users().GetByID(ctx, middleware.GetUserID(ctx))
	if err != nil {
		return nil, false, err
	}
	if user == nil {
		return nil, false, nil
	}
	return user.Projects, false, nil
}

// canAccessProject reports whether the caller may touch tickets in the
// given project.
func canAccessProject(projectID string, memberOf []string, allAccess bool) bool {
	if allAccess {
		return true
	}
	for _, id := range memberOf {
		if id == projectID {
			return true
		}
	}
	return false
}

// List returns the caller's visible tickets, optionally filtered by
// the ?project= query parameter.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	memberOf, allAccess, err := h.memberProjects(r)
	if err != nil {
		log.Printf("list tickets error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	projectFilter := r.URL.Query().Get("project")

	var list []*models.Ticket
	switch {
	case projectFilter != "":
		if !canAccessProject(projectFilter, memberOf, allAccess) {
			jsonError(w, http.StatusForbidden, errCodeForbidden, "not a member of this project")
			return
		}
		list, err = h.storage.Tickets().ListByProject(ctx, projectFilter)
	case allAccess:
		list, err = h.storage.Tickets().List(ctx)
	default:
		list, err = h.storage.Tickets().ListByProjects(ctx, memberOf)
	}
	if err != nil {
		log.Printf("list tickets error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, list)
}

// GetByID returns a single ticket if the caller can access its project.
func (h *Handler) GetByID(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "id")
	if ticketID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "ticket id required")
		return
	}

	ctx := r.Context()

	ticket, err := h.storage.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		log.Printf("get ticket error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if ticket == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "ticket not found")
		return
	}

	memberOf, allAccess, err := h.memberProjects(r)
	if err != nil {
		log.Printf("get ticket error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !canAccessProject(ticket.Project, memberOf, allAccess) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "not a member of this project")
		return
	}

	jsonOK(w, ticket)
}

// Create creates a new ticket. The caller must be a member of the
// target project, and the title must be unique within it.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	req.Title = strings.TrimSpace(req.Title)
	if err := ValidateTitle(req.Title); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if req.Project == "" {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, "project is required")
		return
	}
	if req.Priority != "" {
		if err := ValidatePriority(models.Priority(req.Priority)); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
	}
	if req.Status != "" {
		if err := ValidateStatus(models.Status(req.Status)); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
	}
	if req.Progress != nil {
		if err := ValidateProgress(*req.Progress); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
	}
	if err := ValidateDate("start_date", req.StartDate); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateDate("due_date", req.DueDate); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateHours("estimated_hours", req.EstimatedHours); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}
	if err := ValidateHours("actual_hours", req.ActualHours); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
		return
	}

	ctx := r.Context()

	memberOf, allAccess, err := h.memberProjects(r)
	if err != nil {
		log.Printf("create ticket error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !canAccessProject(req.Project, memberOf, allAccess) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "not a member of this project")
		return
	}

	project, err := h.storage.Projects().GetByID(ctx, req.Project)
	if err != nil {
		log.Printf("create ticket error: get project: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if project == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "project not found")
		return
	}

	existing, err := h.storage.Tickets().GetByProjectTitle(ctx, req.Project, req.Title)
	if err != nil {
		log.Printf("create ticket error: check title: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if existing != nil {
		jsonError(w, http.StatusConflict, errCodeConflict, "a ticket with this title already exists in the project")
		return
	}

	ticket := models.NewTicket(req.Project, req.Title)
	ticket.ID = uuid.New().String()
	ticket.Description = req.Description
	ticket.Assignee = req.Assignee
	ticket.Category = req.Category
	if req.Priority != "" {
		ticket.Priority = models.Priority(req.Priority)
	}
	if req.Status != "" {
		ticket.Status = models.Status(req.Status)
	}
	if req.Progress != nil {
		ticket.Progress = *req.Progress
	}
	ticket.StartDate = req.StartDate
	ticket.DueDate = req.DueDate
	ticket.EstimatedHours = req.EstimatedHours
	ticket.ActualHours = req.ActualHours
	if req.Tags != nil {
		ticket.Tags = req.Tags
	}
	ticket.ParentTask = req.ParentTask

	if err := h.storage.Tickets().Create(ctx, ticket); err != nil {
		log.Printf("create ticket error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.TicketsCreatedTotal.Inc()
	log.Printf("ticket created: %q in project %s (%s)", ticket.Title, ticket.Project, ticket.ID)

	jsonCreated(w, ticket)
}

// Update applies a partial update to a ticket. Absent fields are left
// unchanged.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "id")
	if ticketID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "ticket id required")
		return
	}

	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "invalid request body")
		return
	}

	ctx := r.Context()

	ticket, err := h.storage.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		log.Printf("update ticket error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if ticket == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "ticket not found")
		return
	}

	memberOf, allAccess, err := h.memberProjects(r)
	if err != nil {
		log.Printf("update ticket error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !canAccessProject(ticket.Project, memberOf, allAccess) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "not a member of this project")
		return
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if err := ValidateTitle(title); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		if title != ticket.Title {
			existing, err := h.storage.Tickets().GetByProjectTitle(ctx, ticket.Project, title)
			if err != nil {
				log.Printf("update ticket error: check title: %v", err)
				jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
				return
			}
			if existing != nil && existing.ID != ticket.ID {
				jsonError(w, http.StatusConflict, errCodeConflict, "a ticket with this title already exists in the project")
				return
			}
		}
		ticket.Title = title
	}
	if req.Priority != nil {
		if err := ValidatePriority(models.Priority(*req.Priority)); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		ticket.Priority = models.Priority(*req.Priority)
	}
	if req.Status != nil {
		if err := ValidateStatus(models.Status(*req.Status)); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		ticket.Status = models.Status(*req.Status)
	}
	if req.Progress != nil {
		if err := ValidateProgress(*req.Progress); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		ticket.Progress = *req.Progress
	}
	if req.StartDate != nil {
		if err := ValidateDate("start_date", req.StartDate); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		ticket.StartDate = req.StartDate
	}
	if req.DueDate != nil {
		if err := ValidateDate("due_date", req.DueDate); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		ticket.DueDate = req.DueDate
	}
	if req.Description != nil {
		ticket.Description = *req.Description
	}
	if req.Assignee != nil {
		ticket.Assignee = *req.Assignee
	}
	if req.Category != nil {
		ticket.Category = *req.Category
	}
	if req.EstimatedHours != nil {
		if err := ValidateHours("estimated_hours", *req.EstimatedHours); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		ticket.EstimatedHours = *req.EstimatedHours
	}
	if req.ActualHours != nil {
		if err := ValidateHours("actual_hours", *req.ActualHours); err != nil {
			jsonError(w, http.StatusBadRequest, errCodeValidationFailed, err.Error())
			return
		}
		ticket.ActualHours = *req.ActualHours
	}
	if req.Tags != nil {
		ticket.Tags = *req.Tags
	}
	if req.ParentTask != nil {
		if *req.ParentTask == "" {
			ticket.ParentTask = nil
		} else {
			ticket.ParentTask = req.ParentTask
		}
	}

	ticket.UpdatedAt = time.Now()

	if err := h.storage.Tickets().Update(ctx, ticket); err != nil {
		log.Printf("update ticket error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	jsonOK(w, ticket)
}

// Delete removes a ticket. Children keep existing with their parent
// reference cleared.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ticketID := chi.URLParam(r, "id")
	if ticketID == "" {
		jsonError(w, http.StatusBadRequest, errCodeBadRequest, "ticket id required")
		return
	}

	ctx := r.Context()

	ticket, err := h.storage.Tickets().GetByID(ctx, ticketID)
	if err != nil {
		log.Printf("delete ticket error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if ticket == nil {
		jsonError(w, http.StatusNotFound, errCodeNotFound, "ticket not found")
		return
	}

	memberOf, allAccess, err := h.memberProjects(r)
	if err != nil {
		log.Printf("delete ticket error: get user: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}
	if !canAccessProject(ticket.Project, memberOf, allAccess) {
		jsonError(w, http.StatusForbidden, errCodeForbidden, "not a member of this project")
		return
	}

	if err := h.storage.Tickets().Delete(ctx, ticketID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			jsonError(w, http.StatusNotFound, errCodeNotFound, "ticket not found")
			return
		}
		log.Printf("delete ticket error: %v", err)
		jsonError(w, http.StatusInternalServerError, errCodeInternalError, "internal server error")
		return
	}

	metrics.TicketsDeletedTotal.Inc()
	log.Printf("ticket deleted: %q (%s)", ticket.Title, ticket.ID)

	jsonNoContent(w)
}
