package prescription

import (
	"context"
	"iter"
)

// RepositoryInterface defines the contract for prescription data access
type RepositoryInterface interface {
	Create(ctx context.Context, p *Prescription) error
	ListForPatient(ctx context.Context, patientEmail string) iter.Seq2[Prescription, error]
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
