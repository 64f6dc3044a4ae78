package messaging

import (
	"time"

	"github.com/google/uuid"
)

// Event routing keys as constants. The same strings are used as Kafka topics.
const (
	EventConsultSubmitted = "consult.submitted"
	EventConsultApproved  = "consult.approved"
	EventConsultCompleted = "consult.completed"
	EventConsultCancelled = "consult.cancelled"
	EventConsultExpired   = "consult.expired"
)

// ServiceName is stamped on every event this service emits.
const ServiceName = "consult-service"

// BaseEvent contains common fields for all events
type BaseEvent struct {
	EventType   string    `json:"event_type"`
	EventID     string    `json:"event_id"`
	Timestamp   time.Time `json:"timestamp"`
	ServiceName string    `json:"service_name"`
}

// NewBaseEvent creates a new base event with common fields
func NewBaseEvent(eventType string) BaseEvent {
	return BaseEvent{
		EventType:   eventType,
		EventID:     uuid.NewString(),
		Timestamp:   time.Now().UTC(),
		ServiceName: ServiceName,
	}
}

// ConsultEvent is published for submitted, approved, completed and cancelled consults.
type ConsultEvent struct {
	BaseEvent
	Data ConsultEventData `json:"data"`
}

type ConsultEventData struct {
	ConsultID        string     `json:"consult_id"`
	PatientEmail     string     `json:"patient_email"`
	Specialist       string     `json:"specialist"`
	Status           string     `json:"status"`
	AssignedDoctorID string     `json:"assigned_doctor_id,omitempty"`
	ChatChannelID    string     `json:"chat_channel_id,omitempty"`
	CompletedAt      *time.Time `json:"completed_at,omitempty"`
	OccurredAt       time.Time  `json:"occurred_at"`
}

// ConsultsExpiredEvent is published after a retention sweep removed records.
type ConsultsExpiredEvent struct {
	BaseEvent
	Data ConsultsExpiredData `json:"data"`
}

type ConsultsExpiredData struct {
	Purged int64     `json:"purged"`
	Cutoff time.Time `json:"cutoff"`
}
