// Package httpapi holds the JSON and problem-details plumbing shared by the
// admin API handlers.
package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/flowlyst-io/agents/platform/go/apperrors"
)

const (
	ProblemTypeValidation = "https://flowlyst.io/problems/validation-error"
	ProblemTypeNotFound   = "https://flowlyst.io/problems/not-found"
	ProblemTypeConflict   = "https://flowlyst.io/problems/conflict"
	ProblemTypeInternal   = "https://flowlyst.io/problems/internal-error"
)

// ProblemDetails is an RFC 7807 problem document.
type ProblemDetails struct {
	Type   string              `json:"type,omitempty"`
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Detail string              `json:"detail,omitempty"`
	Errors map[string][]string `json:"errors,omitempty"`
}

// Classify maps an error from the domain layer onto a problem document.
func Classify(err error) ProblemDetails {
	var (
		validationErr *apperrors.ValidationError
		deletionErr   *apperrors.TenantDeletionError
	)

	switch {
	case errors.As(err, &validationErr):
		return ProblemDetails{
			Type:   ProblemTypeValidation,
			Title:  "Validation failed",
			Status: http.StatusBadRequest,
			Detail: validationErr.Detail(),
			Errors: copyFields(validationErr.Fields),
		}
	case errors.Is(err, apperrors.ErrNotFound):
		return ProblemDetails{
			Type:   ProblemTypeNotFound,
			Title:  "Resource not found",
			Status: http.StatusNotFound,
			Detail: err.Error(),
		}
	case errors.Is(err, apperrors.ErrConflict):
		return ProblemDetails{
			Type:   ProblemTypeConflict,
			Title:  "Conflict",
			Status: http.StatusConflict,
			Detail: err.Error(),
		}
	case errors.As(err, &deletionErr):
		return ProblemDetails{
			Type:   ProblemTypeInternal,
			Title:  "Tenant deletion failed",
			Status: http.StatusInternalServerError,
			Detail: "the tenant was not deleted and no changes were applied",
		}
	default:
		return ProblemDetails{
			Type:   ProblemTypeInternal,
			Title:  "Internal server error",
			Status: http.StatusInternalServerError,
			Detail: "an unexpected error occurred",
		}
	}
}

// BadRequest builds a 400 problem for malformed requests.
func BadRequest(detail string) ProblemDetails {
	return ProblemDetails{
		Type:   ProblemTypeValidation,
		Title:  "Invalid request",
		Status: http.StatusBadRequest,
		Detail: detail,
	}
}

// WriteProblem renders problem as application/problem+json.
func WriteProblem(w http.ResponseWriter, problem ProblemDetails) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(problem.Status)
	_ = json.NewEncoder(w).Encode(problem)
}

func copyFields(fields apperrors.FieldErrors) map[string][]string {
	if len(fields) == 0 {
		return nil
	}
	copied := make(map[string][]string, len(fields))
	for field, messages := range fields {
		copied[field] = append([]string(nil), messages...)
	}
	return copied
}
