package projects

import "errors"

const (
	maxNameLength        = 100
	maxDescriptionLength = 500
)

// ValidateName checks a project name.
func ValidateName(name string) error {
	if name == "" {
		return errors.New("name is required")
	}
	if len(name) > maxNameLength {
		return errors.New("name must be 100 characters or fewer")
	}
	return nil
}

// ValidateDescription checks a project description.
func ValidateDescription(description string) error {
	if len(description) > maxDescriptionLength {
		return errors.New("description must be 500 characters or fewer")
	}
	return nil
}
