package prescription

import (
	"context"
	"iter"
)

// ServiceInterface defines the contract for prescription operations
type ServiceInterface interface {
	Add(ctx context.Context, doctorID string, req AddRequest) (*Prescription, error)
	ListForPatient(ctx context.Context, patientEmail string) iter.Seq2[Prescription, error]
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
