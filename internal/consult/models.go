package consult

import (
	"strings"
	"time"

	"github.com/doctorsaathi/consult-service/internal/chat"
)

// Status of a consultation. Transitions only move forward:
// pending -> approved -> completed.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusCompleted Status = "completed"
)

// ConsultRequest is one patient's request to be seen by a specialist.
// AssignedDoctorID is set exactly when Status is approved or completed and
// CompletedAt exactly when Status is completed.
type ConsultRequest struct {
	ID               string     `json:"id"`
	PatientEmail     string     `json:"patientEmail"`
	PatientName      string     `json:"patientName"`
	Age              string     `json:"age"`
	Gender           string     `json:"gender"`
	Phone            string     `json:"phone"`
	Symptoms         string     `json:"symptoms"`
	Specialist       string     `json:"specialist"`
	Status           Status     `json:"status"`
	AssignedDoctorID *string    `json:"assignedDoctorId,omitempty"`
	CompletedAt      *time.Time `json:"completedAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

// SubmitRequest is the patient intake form.
type SubmitRequest struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Age        string `json:"age"`
	Gender     string `json:"gender"`
	Phone      string `json:"phone"`
	Symptoms   string `json:"symptoms"`
	Specialist string `json:"specialist"`
}

// Normalize trims every field and lower-cases the email.
func (r *SubmitRequest) Normalize() {
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Name = strings.TrimSpace(r.Name)
	r.Age = strings.TrimSpace(r.Age)
	r.Gender = strings.TrimSpace(r.Gender)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Symptoms = strings.TrimSpace(r.Symptoms)
	r.Specialist = strings.TrimSpace(r.Specialist)
}

// Validate reports every empty field at once.
func (r *SubmitRequest) Validate() error {
	var missing []string
	for _, f := range []struct {
		name, value string
	}{
		{"email", r.Email},
		{"name", r.Name},
		{"age", r.Age},
		{"gender", r.Gender},
		{"phone", r.Phone},
		{"symptoms", r.Symptoms},
		{"specialist", r.Specialist},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}

// Acceptance is the result of a successful Accept.
type Acceptance struct {
	Consult *ConsultRequest `json:"consult"`
	Channel *chat.Channel   `json:"chatChannel"`
}

// Filter selects consults for listing. Empty fields do not filter.
type Filter struct {
	Status           Status
	Specialist       string
	AssignedDoctorID string
	PatientEmail     string
}
