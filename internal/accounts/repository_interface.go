package accounts

import (
	"context"

	"github.com/doctorsaathi/consult-service/internal/db"
)

// RepositoryInterface defines the contract for directory lookups.
// A nil q runs the lookup on the repository's own connection.
type RepositoryInterface interface {
	FindPatientByEmail(ctx context.Context, q db.Querier, email string) (*Patient, error)
	FindDoctorByID(ctx context.Context, q db.Querier, id string) (*Doctor, error)
	FindDoctorByEmail(ctx context.Context, q db.Querier, email string) (*Doctor, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
