package validation

import (
	"errors"
	"strings"
)

// ValidatePost validates post title and description
func ValidatePost(title, description string) error {
	if strings.TrimSpace(title) == "" {
		return errors.New("title is required")
	}

	if len(title) > 200 {
		return errors.New("title is too long (max 200 characters)")
	}

	if strings.TrimSpace(description) == "" {
		return errors.New("description is required")
	}

	return nil
}
