package models

import (
	"time"
)

// Priority represents a ticket's urgency.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Status represents a ticket's workflow position. Transitions are
// unconstrained: any status may move to any other.
type Status string

const (
	StatusTodo       Status = "todo"
	StatusInProgress Status = "in_progress"
	StatusReview     Status = "review"
	StatusDone       Status = "done"
)

// Progress bounds for a ticket.
const (
	ProgressMin = 0
	ProgressMax = 100
)

// Ticket represents a task/work-item record scoped to a project.
// StartDate and DueDate are ISO dates (YYYY-MM-DD) or nil.
type Ticket struct {
	ID             string    `json:"id"`
	Project        string    `json:"project"`
	Title          string    `json:"title"`
	Description    string    `json:"description"`
	Assignee       string    `json:"assignee"`
	Category       string    `json:"category"`
	Priority       Priority  `json:"priority"`
	Status         Status    `json:"status"`
	Progress       int       `json:"progress"`
	StartDate      *string   `json:"start_date"`
	DueDate        *string   `json:"due_date"`
	EstimatedHours float64   `json:"estimated_hours"`
	ActualHours    float64   `json:"actual_hours"`
	Tags           []string  `json:"tags"`
	ParentTask     *string   `json:"parent_task"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// NewTicket creates a Ticket with defaults and initialized timestamps.
func NewTicket(projectID, title string) *Ticket {
	now := time.Now()
	return &Ticket{
		Project:   projectID,
		Title:     title,
		Priority:  PriorityMedium,
		Status:    StatusTodo,
		Tags:      []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ValidPriority returns true for a recognized priority value.
func ValidPriority(p Priority) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// ValidStatus returns true for a recognized status value.
func ValidStatus(s Status) bool {
	switch s {
	case StatusTodo, StatusInProgress, StatusReview, StatusDone:
		return true
	}
	return false
}

// ValidProgress returns true if the value is within the 0-100 range.
func ValidProgress(p int) bool {
	return p >= ProgressMin && p <= ProgressMax
}

// ISODateLayout is the accepted format for start and due dates.
const ISODateLayout = "2006-01-02"

// ValidISODate returns true for an empty pointer or a parseable ISO date.
func ValidISODate(s *string) bool {
	if s == nil || *s == "" {
		return true
	}
	_, err := time.Parse(ISODateLayout, *s)
	return err == nil
}
