// Package apperrors holds the error taxonomy shared by the domain services
// and translated to HTTP problems at the edge.
package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Sentinels matched by errors.Is for every NotFoundError and ConflictError.
var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")
)

// NotFoundError reports that a referenced entity does not exist.
type NotFoundError struct {
	Resource string
	Message  string
}

func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Resource + " not found"
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NotFound builds a NotFoundError for resource.
func NotFound(resource string) *NotFoundError {
	return &NotFoundError{Resource: resource}
}

// ConflictError reports a uniqueness violation.
type ConflictError struct {
	Resource string
	Message  string
}

func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Resource + " already exists"
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// FieldErrors maps request fields to validation issues.
type FieldErrors map[string][]string

// Add appends message to the issues recorded for field.
func (f FieldErrors) Add(field, message string) {
	f[field] = append(f[field], message)
}

// Err returns a *ValidationError when issues were recorded, nil otherwise.
func (f FieldErrors) Err() error {
	if len(f) == 0 {
		return nil
	}
	return &ValidationError{Fields: f}
}

// ValidationError captures input validation problems.
type ValidationError struct {
	Fields FieldErrors
}

func (v *ValidationError) Error() string {
	return "validation error"
}

// Detail renders the field issues as a single sorted, human-readable line.
func (v *ValidationError) Detail() string {
	fields := make([]string, 0, len(v.Fields))
	for field := range v.Fields {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		parts = append(parts, fmt.Sprintf("%s: %s", field, strings.Join(v.Fields[field], ", ")))
	}
	return strings.Join(parts, "; ")
}

// NewValidation builds a ValidationError carrying a single field issue.
func NewValidation(field, message string) *ValidationError {
	return &ValidationError{Fields: FieldErrors{field: []string{message}}}
}

// TenantDeletionError reports a failure while applying a deletion
// disposition. The surrounding transaction has been rolled back.
type TenantDeletionError struct {
	TenantID    uuid.UUID
	Disposition string
	Cause       error
}

func (e *TenantDeletionError) Error() string {
	return fmt.Sprintf("delete tenant %s (%s): %v", e.TenantID, e.Disposition, e.Cause)
}

func (e *TenantDeletionError) Unwrap() error {
	return e.Cause
}
