package review

import (
	"errors"
	"strings"
)

var (
	ErrNotFound      = errors.New("review item not found")
	ErrStaffNotFound = errors.New("staff member not found among approved profiles")
	ErrKPINotFound   = errors.New("kpi not found or removed")
)

type Issue struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError carries field-scoped issues found before any mutation.
type ValidationError struct {
	Issues []Issue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, is := range e.Issues {
		parts = append(parts, is.Field+": "+is.Reason)
	}
	return "invalid review: " + strings.Join(parts, "; ")
}

func (e *ValidationError) add(field, reason string) {
	e.Issues = append(e.Issues, Issue{Field: field, Reason: reason})
}

func (e *ValidationError) orNil() error {
	if len(e.Issues) == 0 {
		return nil
	}
	return e
}
