package consult

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConsultNotFound    = errors.New("consult not found")
	ErrAlreadyHandled     = errors.New("consult has already been accepted by another doctor")
	ErrInvalidTransition  = errors.New("consult is not in a state that allows this action")
	ErrNotAssignedDoctor  = errors.New("consult is assigned to another doctor")
	ErrSpecialistMismatch = errors.New("consult was requested for a different specialty")
	ErrNotOwner           = errors.New("consult belongs to another patient")
	ErrMissingPrincipal   = errors.New("caller identity is missing")
)

// ValidationError names every missing or malformed intake field.
type ValidationError struct {
	Fields []string
}

func (e *ValidationError) Error() string {
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

// StorageError wraps an unexpected persistence failure.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("consult %s: storage failure: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
