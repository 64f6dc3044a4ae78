package prescription

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrConsultNotFound   = errors.New("consult not found")
	ErrNotAssignedDoctor = errors.New("consult is assigned to another doctor")
	ErrConsultNotActive  = errors.New("consult has not been accepted yet")
	ErrMissingPrincipal  = errors.New("caller identity is missing")
)

// ValidationError names every missing field of an AddRequest.
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
	return fmt.Sprintf("prescription %s: storage failure: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }
