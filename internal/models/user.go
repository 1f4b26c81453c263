package models

import (
	"time"
)

// Role represents a user's permission level.
type Role string

const (
	RoleSystemAdmin  Role = "system_admin"
	RoleProjectAdmin Role = "project_admin"
	RoleUser         Role = "user"
)

// User represents a registered account. Email is the canonical login
// identity; it is unique across all users.
type User struct {
	ID           string     `json:"id"`
	DisplayName  string     `json:"display_name"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"` // Never expose in JSON
	Role         Role       `json:"role"`
	Projects     []string   `json:"projects"` // project membership ids
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
}

// NewUser creates a new User with initialized timestamps.
func NewUser(displayName, email string, role Role) *User {
	now := time.Now()
	return &User{
		DisplayName: displayName,
		Email:       email,
		Role:        role,
		Projects:    []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsSystemAdmin returns true if the user has the system admin role.
func (u *User) IsSystemAdmin() bool {
	return u.Role == RoleSystemAdmin
}

// IsMemberOf returns true if the user belongs to the given project.
func (u *User) IsMemberOf(projectID string) bool {
	for _, id := range u.Projects {
		if id == projectID {
			return true
		}
	}
	return false
}

// AddProject appends a project membership if not already present.
func (u *User) AddProject(projectID string) {
	if !u.IsMemberOf(projectID) {
		u.Projects = append(u.Projects, projectID)
	}
}

// RemoveProject drops a project membership if present.
func (u *User) RemoveProject(projectID string) {
	out := u.Projects[:0]
	for _, id := range u.Projects {
		if id != projectID {
			out = append(out, id)
		}
	}
	u.Projects = out
}

// ParseRole converts a string to Role.
func ParseRole(s string) Role {
	switch s {
	case "system_admin":
		return RoleSystemAdmin
	case "project_admin":
		return RoleProjectAdmin
	default:
		return RoleUser
	}
}
