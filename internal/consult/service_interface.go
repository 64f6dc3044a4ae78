package consult

import (
	"context"
	"iter"
)

// ServiceInterface defines the contract for the consultation lifecycle
type ServiceInterface interface {
	Submit(ctx context.Context, req SubmitRequest) (*ConsultRequest, error)
	Get(ctx context.Context, id string) (*ConsultRequest, error)
	SpecialistOf(ctx context.Context, doctorID string) (string, error)
	ListPending(ctx context.Context, specialist string) iter.Seq2[ConsultRequest, error]
	ListApproved(ctx context.Context, doctorID string) iter.Seq2[ConsultRequest, error]
	ListForPatient(ctx context.Context, patientEmail string) iter.Seq2[ConsultRequest, error]
	ListAll(ctx context.Context) iter.Seq2[ConsultRequest, error]
	Accept(ctx context.Context, id, doctorID string) (*Acceptance, error)
	Complete(ctx context.Context, id, doctorID string) (*ConsultRequest, error)
	Cancel(ctx context.Context, id, patientEmail string) error
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
