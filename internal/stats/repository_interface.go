package stats

import (
	"context"
	"time"

	"github.com/doctorsaathi/consult-service/internal/db"
)

// RepositoryInterface defines the contract for counter storage.
// Day bounds are half-open: from <= created_at < to.
type RepositoryInterface interface {
	Record(ctx context.Context, q db.Querier, consultID, doctorID, doctorEmail string, at time.Time) error
	AssignedTo(ctx context.Context, consultID, doctorID string) error
	DoctorStats(ctx context.Context, doctorEmail string, from, to time.Time) (*DoctorStats, error)
	AllDoctorsStats(ctx context.Context, from, to time.Time) ([]DoctorStats, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
