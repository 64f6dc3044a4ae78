package stats

import "errors"

var (
	ErrInvalidSort  = errors.New("sort must be one of today, total")
	ErrMissingEmail = errors.New("doctor email is required")

	ErrMissingConsult     = errors.New("consult id is required")
	ErrConsultNotFound    = errors.New("consult not found")
	ErrConsultNotAssigned = errors.New("consult is not assigned to this doctor")
)
