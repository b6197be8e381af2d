// Package validation checks incoming patch payloads before they reach the
// archive. Only fields present in the patch are validated; a partial update
// never fails on fields it does not touch.
package validation

import (
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/newsroom-authoring-api/internal/models"
)

var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// ValidationError represents a single validation error
type ValidationError struct {
	Field   string      `json:"field"`
	Message string      `json:"message"`
	Value   interface{} `json:"value,omitempty"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidatePatch validates the fields present in a partial article update.
func ValidatePatch(p models.Patch) []ValidationError {
	var errors []ValidationError

	if raw, ok := p["slug"]; ok {
		slug, isString := raw.(string)
		switch {
		case !isString || slug == "":
			errors = append(errors, ValidationError{Field: "slug", Message: "slug must be a non-empty string", Value: raw})
		case !slugRegex.MatchString(slug):
			errors = append(errors, ValidationError{Field: "slug", Message: "slug must be kebab-case (lowercase letters, numbers, hyphens)", Value: slug})
		}
	}

	if raw, ok := p["headline"]; ok {
		if _, isString := raw.(string); !isString {
			errors = append(errors, ValidationError{Field: "headline", Message: "headline must be a string", Value: raw})
		}
	}

	if raw, ok := p["status"]; ok {
		status, isString := raw.(string)
		if !isString || !models.ValidStatuses[status] {
			errors = append(errors, ValidationError{
				Field:   "status",
				Message: "invalid status, must be one of: draft, in-progress, published",
				Value:   raw,
			})
		}
	}

	if raw, ok := p["author_id"]; ok {
		author, isString := raw.(string)
		if !isString || !isValidUUID(author) {
			errors = append(errors, ValidationError{Field: "author_id", Message: "invalid UUID format", Value: raw})
		}
	}

	if raw, ok := p["published_at"]; ok && raw != nil {
		if value, isString := raw.(string); isString {
			if _, err := time.Parse(time.RFC3339, value); err != nil {
				errors = append(errors, ValidationError{Field: "published_at", Message: "invalid ISO 8601 date format", Value: raw})
			}
		}
	}

	if raw, ok := p["tags"]; ok && raw != nil {
		switch tags := raw.(type) {
		case []string:
		case []interface{}:
			for _, tag := range tags {
				if _, isString := tag.(string); !isString {
					errors = append(errors, ValidationError{Field: "tags", Message: "tags must be strings", Value: tag})
					break
				}
			}
		default:
			errors = append(errors, ValidationError{Field: "tags", Message: "tags must be an array of strings", Value: raw})
		}
	}

	return errors
}

// isValidUUID checks if a string is a valid UUID
func isValidUUID(s string) bool {
	_, err := uuid.Parse(s)
	return err == nil
}
