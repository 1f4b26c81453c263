// Package users provides user management API endpoints.
package users

import (
	"regexp"
	"strings"

	"github.com/nulltasker/nulltasker/internal/models"
)

var emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// ValidationError contains validation error details.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *ValidationError) Error() string {
	return e.Message
}

// ValidateDisplayName validates a display name.
func ValidateDisplayName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &ValidationError{Field: "display_name", Message: "display_name is required"}
	}
	if len(name) > 100 {
		return &ValidationError{Field: "display_name", Message: "display_name must be at most 100 characters"}
	}
	return nil
}

// ValidateEmail validates an email address.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return &ValidationError{Field: "email", Message: "email is required"}
	}
	if len(email) > 255 {
		return &ValidationError{Field: "email", Message: "email must be at most 255 characters"}
	}
	if !emailRegex.MatchString(email) {
		return &ValidationError{Field: "email", Message: "invalid email format"}
	}
	return nil
}

// ValidateRole validates a role string.
func ValidateRole(role string) (models.Role, error) {
	role = strings.TrimSpace(strings.ToLower(role))
	switch role {
	case "system_admin":
		return models.RoleSystemAdmin, nil
	case "project_admin":
		return models.RoleProjectAdmin, nil
	case "user":
		return models.RoleUser, nil
	default:
		return "", &ValidationError{Field: "role", Message: "role must be one of: system_admin, project_admin, user"}
	}
}
