package consult

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"github.com/doctorsaathi/consult-service/internal/accounts"
	"github.com/doctorsaathi/consult-service/internal/chat"
	"github.com/doctorsaathi/consult-service/internal/db"
	"github.com/doctorsaathi/consult-service/internal/logging"
	"github.com/doctorsaathi/consult-service/internal/messaging"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = otel.Tracer("github.com/doctorsaathi/consult-service/consult")

// Directory resolves the participants of a consult.
type Directory interface {
	FindPatientByEmail(ctx context.Context, q db.Querier, email string) (*accounts.Patient, error)
	FindDoctorByID(ctx context.Context, q db.Querier, id string) (*accounts.Doctor, error)
}

// CounterRecorder appends a per-doctor consult counter entry, at most one per consult.
type CounterRecorder interface {
	Record(ctx context.Context, q db.Querier, consultID, doctorID, doctorEmail string, at time.Time) error
}

// ChannelProvisioner is satisfied by *chat.Provisioner.
type ChannelProvisioner interface {
	EnsureChannel(ctx context.Context, doctorID, patientID string) (*chat.Channel, error)
}

// MetricsRecorder records lifecycle metrics.
type MetricsRecorder interface {
	RecordConsultTransition(ctx context.Context, status string)
	RecordAcceptConflict(ctx context.Context)
}

type Service struct {
	repo        RepositoryInterface
	directory   Directory
	counters    CounterRecorder
	provisioner ChannelProvisioner
	publisher   messaging.PublisherInterface
	metrics     MetricsRecorder
	now         func() time.Time
}

func NewService(
	repo RepositoryInterface,
	directory Directory,
	counters CounterRecorder,
	provisioner ChannelProvisioner,
	publisher messaging.PublisherInterface,
	metrics MetricsRecorder,
) *Service {
	if publisher == nil {
		publisher = messaging.NopPublisher{}
	}
	return &Service{
		repo:        repo,
		directory:   directory,
		counters:    counters,
		provisioner: provisioner,
		publisher:   publisher,
		metrics:     metrics,
		now:         time.Now,
	}
}

// Submit stores a new pending consult. Nothing is written when validation fails.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*ConsultRequest, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	c := &ConsultRequest{
		PatientEmail: req.Email,
		PatientName:  req.Name,
		Age:          req.Age,
		Gender:       req.Gender,
		Phone:        req.Phone,
		Symptoms:     req.Symptoms,
		Specialist:   req.Specialist,
		CreatedAt:    s.now(),
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, s.classify("submit", err)
	}

	logging.FromContext(ctx).Info().
		Str("consult_id", c.ID).
		Str("specialist", c.Specialist).
		Msg("consult submitted")
	s.recordTransition(ctx, string(StatusPending))
	s.publish(ctx, messaging.EventConsultSubmitted, c, "")
	return c, nil
}

func (s *Service) Get(ctx context.Context, id string) (*ConsultRequest, error) {
	if !validID(id) {
		return nil, ErrConsultNotFound
	}
	c, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, s.classify("get", err)
	}
	return c, nil
}

// SpecialistOf returns the registered specialty of a doctor.
func (s *Service) SpecialistOf(ctx context.Context, doctorID string) (string, error) {
	if !validID(doctorID) {
		return "", accounts.ErrDoctorNotFound
	}
	d, err := s.directory.FindDoctorByID(ctx, nil, doctorID)
	if err != nil {
		return "", s.classify("lookup doctor", err)
	}
	return d.Specialist, nil
}

// ListPending yields pending consults for exactly this specialty, newest first.
func (s *Service) ListPending(ctx context.Context, specialist string) iter.Seq2[ConsultRequest, error] {
	return s.list(ctx, "list pending", Filter{Status: StatusPending, Specialist: strings.TrimSpace(specialist)})
}

// ListApproved yields the approved consults assigned to doctorID, newest first.
func (s *Service) ListApproved(ctx context.Context, doctorID string) iter.Seq2[ConsultRequest, error] {
	if !validID(doctorID) {
		return empty
	}
	return s.list(ctx, "list approved", Filter{Status: StatusApproved, AssignedDoctorID: doctorID})
}

func (s *Service) ListForPatient(ctx context.Context, patientEmail string) iter.Seq2[ConsultRequest, error] {
	email := strings.ToLower(strings.TrimSpace(patientEmail))
	if email == "" {
		return empty
	}
	return s.list(ctx, "list patient", Filter{PatientEmail: email})
}

func (s *Service) ListAll(ctx context.Context) iter.Seq2[ConsultRequest, error] {
	return s.list(ctx, "list all", Filter{})
}

func (s *Service) list(ctx context.Context, op string, f Filter) iter.Seq2[ConsultRequest, error] {
	seq := s.repo.List(ctx, f)
	return func(yield func(ConsultRequest, error) bool) {
		for c, err := range seq {
			if err != nil {
				yield(ConsultRequest{}, s.classify(op, err))
				return
			}
			if !yield(c, nil) {
				return
			}
		}
	}
}

func empty(func(ConsultRequest, error) bool) {}

// Accept assigns a pending consult to doctorID. The status change, the
// doctor's counter entry and the chat channel form one unit: if any step
// fails the consult stays pending and nothing is recorded.
func (s *Service) Accept(ctx context.Context, id, doctorID string) (*Acceptance, error) {
	ctx, span := tracer.Start(ctx, "consult.Accept")
	defer span.End()
	span.SetAttributes(
		attribute.String("consult.id", id),
		attribute.String("doctor.id", doctorID),
	)

	if !validID(id) {
		return nil, ErrConsultNotFound
	}
	if !validID(doctorID) {
		return nil, accounts.ErrDoctorNotFound
	}
	doctor, err := s.directory.FindDoctorByID(ctx, nil, doctorID)
	if err != nil {
		return nil, s.classify("accept", err)
	}

	now := s.now()
	var channel *chat.Channel
	c, err := s.repo.Approve(ctx, id, doctor.ID, now, func(ctx context.Context, q db.Querier, c *ConsultRequest) error {
		if c.Specialist != doctor.Specialist {
			return ErrSpecialistMismatch
		}
		patient, err := s.directory.FindPatientByEmail(ctx, q, c.PatientEmail)
		if err != nil {
			return err
		}
		if err := s.counters.Record(ctx, q, c.ID, doctor.ID, doctor.Email, now); err != nil {
			return err
		}
		channel, err = s.provisioner.EnsureChannel(ctx, doctor.ID, patient.ID)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "accept failed")
		if errors.Is(err, ErrAlreadyHandled) && s.metrics != nil {
			s.metrics.RecordAcceptConflict(ctx)
		}
		logging.FromContext(ctx).Warn().Err(err).
			Str("consult_id", id).
			Str("doctor_id", doctorID).
			Msg("accept failed, consult left pending")
		return nil, s.classify("accept", err)
	}

	logging.FromContext(ctx).Info().
		Str("consult_id", c.ID).
		Str("doctor_id", doctor.ID).
		Str("channel_id", channel.ID).
		Msg("consult accepted")
	s.recordTransition(ctx, string(StatusApproved))
	s.publish(ctx, messaging.EventConsultApproved, c, channel.ID)
	return &Acceptance{Consult: c, Channel: channel}, nil
}

// Complete closes an approved consult. Only the assigned doctor may do this.
func (s *Service) Complete(ctx context.Context, id, doctorID string) (*ConsultRequest, error) {
	if !validID(id) {
		return nil, ErrConsultNotFound
	}
	if !validID(doctorID) {
		return nil, ErrNotAssignedDoctor
	}

	c, err := s.repo.Complete(ctx, id, doctorID, s.now())
	if err != nil {
		return nil, s.classify("complete", err)
	}

	logging.FromContext(ctx).Info().
		Str("consult_id", c.ID).
		Str("doctor_id", doctorID).
		Msg("consult completed")
	s.recordTransition(ctx, string(StatusCompleted))
	s.publish(ctx, messaging.EventConsultCompleted, c, "")
	return c, nil
}

// Cancel withdraws a patient's own consult while it is still pending.
func (s *Service) Cancel(ctx context.Context, id, patientEmail string) error {
	if !validID(id) {
		return ErrConsultNotFound
	}
	email := strings.ToLower(strings.TrimSpace(patientEmail))
	if email == "" {
		return ErrMissingPrincipal
	}

	c, err := s.repo.DeletePending(ctx, id, email)
	if err != nil {
		return s.classify("cancel", err)
	}

	logging.FromContext(ctx).Info().Str("consult_id", c.ID).Msg("consult cancelled")
	s.recordTransition(ctx, "cancelled")
	s.publish(ctx, messaging.EventConsultCancelled, c, "")
	return nil
}

// classify passes domain errors through and wraps everything else as a StorageError.
func (s *Service) classify(op string, err error) error {
	var ve *ValidationError
	var se *StorageError
	switch {
	case errors.As(err, &ve), errors.As(err, &se),
		errors.Is(err, ErrConsultNotFound),
		errors.Is(err, ErrAlreadyHandled),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrNotAssignedDoctor),
		errors.Is(err, ErrSpecialistMismatch),
		errors.Is(err, ErrNotOwner),
		errors.Is(err, ErrMissingPrincipal),
		errors.Is(err, accounts.ErrDoctorNotFound),
		errors.Is(err, accounts.ErrPatientNotFound),
		errors.Is(err, chat.ErrProvisioningUnavailable):
		return err
	}
	return &StorageError{Op: op, Err: err}
}

func (s *Service) recordTransition(ctx context.Context, status string) {
	if s.metrics != nil {
		s.metrics.RecordConsultTransition(ctx, status)
	}
}

// publish runs after commit. A failed publish is logged and never undoes the transition.
func (s *Service) publish(ctx context.Context, eventType string, c *ConsultRequest, channelID string) {
	data := messaging.ConsultEventData{
		ConsultID:     c.ID,
		PatientEmail:  c.PatientEmail,
		Specialist:    c.Specialist,
		Status:        string(c.Status),
		ChatChannelID: channelID,
		CompletedAt:   c.CompletedAt,
		OccurredAt:    s.now().UTC(),
	}
	if eventType == messaging.EventConsultCancelled {
		data.Status = "cancelled"
	}
	if c.AssignedDoctorID != nil {
		data.AssignedDoctorID = *c.AssignedDoctorID
	}

	event := messaging.ConsultEvent{
		BaseEvent: messaging.NewBaseEvent(eventType),
		Data:      data,
	}
	if err := s.publisher.Publish(ctx, eventType, event); err != nil {
		logging.FromContext(ctx).Warn().Err(err).
			Str("event", eventType).
			Str("consult_id", c.ID).
			Msg("Warning: failed to publish consult event")
	}
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
