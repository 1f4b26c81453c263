package models

import (
	"time"
)

// DefaultProjectID is the distinguished project every user is enrolled
// in at registration. It always exists and cannot be deleted.
const DefaultProjectID = "default"

// ChoiceOption is a labeled, colored value used for the per-project
// priority and status vocabularies.
type ChoiceOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
	Color string `json:"color"`
}

// ProjectSettings holds the per-project ticket vocabulary and flags.
type ProjectSettings struct {
	Categories    []string       `json:"categories"`
	Priorities    []ChoiceOption `json:"priorities"`
	Statuses      []ChoiceOption `json:"statuses"`
	Notifications bool           `json:"notifications"`
	AutoAssign    bool           `json:"auto_assign"`
}

// Project represents a named collection of tickets with its own
// membership and category/priority/status vocabulary.
type Project struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Owner       string          `json:"owner"`
	Members     []string        `json:"members"` // ordered, unique user ids
	Admins      []string        `json:"admins"`
	Settings    ProjectSettings `json:"settings"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// NewProject creates a new Project with default settings. The owner is
// always enrolled as a member.
func NewProject(name, description, owner string) *Project {
	now := time.Now()
	p := &Project{
		Name:        name,
		Description: description,
		Owner:       owner,
		Members:     []string{},
		Admins:      []string{},
		Settings:    DefaultProjectSettings(),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if owner != "" {
		p.AddMember(owner)
	}
	return p
}

// DefaultProjectSettings returns the vocabulary a fresh project starts with.
func DefaultProjectSettings() ProjectSettings {
	return ProjectSettings{
		Categories: []string{"planning", "development", "design", "testing", "documentation", "meeting", "other"},
		Priorities: []ChoiceOption{
			{Value: string(PriorityHigh), Label: "High", Color: "#c62828"},
			{Value: string(PriorityMedium), Label: "Medium", Color: "#ef6c00"},
			{Value: string(PriorityLow), Label: "Low", Color: "#2e7d32"},
		},
		Statuses: []ChoiceOption{
			{Value: string(StatusTodo), Label: "To Do", Color: "#666"},
			{Value: string(StatusInProgress), Label: "In Progress", Color: "#1976d2"},
			{Value: string(StatusReview), Label: "Review", Color: "#f57c00"},
			{Value: string(StatusDone), Label: "Done", Color: "#388e3c"},
		},
		Notifications: true,
	}
}

// HasMember returns true if the user id is in the member list.
func (p *Project) HasMember(userID string) bool {
	for _, id := range p.Members {
		if id == userID {
			return true
		}
	}
	return false
}

// AddMember appends a user to the member list, preserving order and
// uniqueness.
func (p *Project) AddMember(userID string) {
	if !p.HasMember(userID) {
		p.Members = append(p.Members, userID)
	}
}

// RemoveMember drops a user from both the member and admin lists.
func (p *Project) RemoveMember(userID string) {
	members := p.Members[:0]
	for _, id := range p.Members {
		if id != userID {
			members = append(members, id)
		}
	}
	p.Members = members

	admins := p.Admins[:0]
	for _, id := range p.Admins {
		if id != userID {
			admins = append(admins, id)
		}
	}
	p.Admins = admins
}
