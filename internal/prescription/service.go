package prescription

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/doctorsaathi/consult-service/internal/accounts"
	"github.com/doctorsaathi/consult-service/internal/consult"
	"github.com/doctorsaathi/consult-service/internal/db"
	"github.com/doctorsaathi/consult-service/internal/logging"
	"github.com/google/uuid"
)

// ConsultLookup is satisfied by *consult.Service.
type ConsultLookup interface {
	Get(ctx context.Context, id string) (*consult.ConsultRequest, error)
}

// Directory resolves the patient a prescription is written for.
type Directory interface {
	FindPatientByEmail(ctx context.Context, q db.Querier, email string) (*accounts.Patient, error)
}

type Service struct {
	repo      RepositoryInterface
	consults  ConsultLookup
	directory Directory
	now       func() time.Time
}

func NewService(repo RepositoryInterface, consults ConsultLookup, directory Directory) *Service {
	return &Service{
		repo:      repo,
		consults:  consults,
		directory: directory,
		now:       time.Now,
	}
}

// Add stores a prescription for the patient of a consult the doctor has
// accepted. Completed consults still take prescriptions until they are purged.
func (s *Service) Add(ctx context.Context, doctorID string, req AddRequest) (*Prescription, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if _, err := uuid.Parse(doctorID); err != nil {
		return nil, ErrNotAssignedDoctor
	}

	c, err := s.consults.Get(ctx, req.ConsultID)
	if errors.Is(err, consult.ErrConsultNotFound) {
		return nil, ErrConsultNotFound
	}
	if err != nil {
		return nil, s.classify("lookup consult", err)
	}
	if c.Status == consult.StatusPending {
		return nil, ErrConsultNotActive
	}
	if c.AssignedDoctorID == nil || *c.AssignedDoctorID != doctorID {
		return nil, ErrNotAssignedDoctor
	}

	patient, err := s.directory.FindPatientByEmail(ctx, nil, c.PatientEmail)
	if err != nil {
		return nil, s.classify("lookup patient", err)
	}

	p := &Prescription{
		ConsultID:    &c.ID,
		PatientID:    patient.ID,
		PatientEmail: patient.Email,
		DoctorID:     doctorID,
		Text:         req.Prescription,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, s.classify("add", err)
	}

	logging.FromContext(ctx).Info().
		Str("prescription_id", p.ID).
		Str("consult_id", c.ID).
		Str("doctor_id", doctorID).
		Msg("prescription added")
	return p, nil
}

// ListForPatient yields the patient's prescriptions, newest first.
func (s *Service) ListForPatient(ctx context.Context, patientEmail string) iter.Seq2[Prescription, error] {
	email := strings.ToLower(strings.TrimSpace(patientEmail))
	if email == "" {
		return func(yield func(Prescription, error) bool) {
			yield(Prescription{}, ErrMissingPrincipal)
		}
	}
	seq := s.repo.ListForPatient(ctx, email)
	return func(yield func(Prescription, error) bool) {
		for p, err := range seq {
			if err != nil {
				yield(Prescription{}, s.classify("list patient", err))
				return
			}
			if !yield(p, nil) {
				return
			}
		}
	}
}

// classify passes domain errors through and wraps everything else as a StorageError.
func (s *Service) classify(op string, err error) error {
	var ve *ValidationError
	var se *StorageError
	switch {
	case errors.As(err, &ve), errors.As(err, &se),
		errors.Is(err, ErrConsultNotFound),
		errors.Is(err, ErrNotAssignedDoctor),
		errors.Is(err, ErrConsultNotActive),
		errors.Is(err, ErrMissingPrincipal),
		errors.Is(err, accounts.ErrPatientNotFound):
		return err
	}
	return &StorageError{Op: op, Err: err}
}
