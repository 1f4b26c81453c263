package tickets

import (
	"errors"
	"fmt"

	"github.com/nulltasker/nulltasker/internal/models"
)

const maxTitleLength = 200

// ValidateTitle checks a ticket title.
func ValidateTitle(title string) error {
	if title == "" {
		return errors.New("title is required")
	}
	if len(title) > maxTitleLength {
		return errors.New("title must be 200 characters or fewer")
	}
	return nil
}

// ValidatePriority checks a priority value.
func ValidatePriority(p models.Priority) error {
	if !models.ValidPriority(p) {
		return fmt.Errorf("invalid priority %q: must be low, medium, or high", p)
	}
	return nil
}

// ValidateStatus checks a status value.
func ValidateStatus(s models.Status) error {
	if !models.ValidStatus(s) {
		return fmt.Errorf("invalid status %q: must be todo, in_progress, review, or done", s)
	}
	return nil
}

// ValidateProgress checks a progress value.
func ValidateProgress(p int) error {
	if !models.ValidProgress(p) {
		return errors.New("progress must be between 0 and 100")
	}
	return nil
}

// ValidateHours checks a time-tracking value.
func ValidateHours(field string, hours float64) error {
	if hours < 0 {
		return fmt.Errorf("%s must not be negative", field)
	}
	return nil
}

// ValidateDate checks an optional ISO date (YYYY-MM-DD).
func ValidateDate(field string, date *string) error {
	if !models.ValidISODate(date) {
		return fmt.Errorf("%s must be an ISO date (YYYY-MM-DD)", field)
	}
	return nil
}
