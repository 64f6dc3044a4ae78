package consult

import (
	"context"
	"iter"
	"time"

	"github.com/doctorsaathi/consult-service/internal/db"
)

// FollowUp runs inside the transaction of a state change, after the row was
// updated and locked. Returning an error rolls the change back.
type FollowUp func(ctx context.Context, q db.Querier, c *ConsultRequest) error

// RepositoryInterface defines the contract for consult data access
type RepositoryInterface interface {
	Create(ctx context.Context, c *ConsultRequest) error
	Get(ctx context.Context, id string) (*ConsultRequest, error)
	List(ctx context.Context, f Filter) iter.Seq2[ConsultRequest, error]
	Approve(ctx context.Context, id, doctorID string, at time.Time, follow FollowUp) (*ConsultRequest, error)
	Complete(ctx context.Context, id, doctorID string, at time.Time) (*ConsultRequest, error)
	DeletePending(ctx context.Context, id, patientEmail string) (*ConsultRequest, error)
	DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
	CountCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Ensure Repository implements RepositoryInterface
var _ RepositoryInterface = (*Repository)(nil)
