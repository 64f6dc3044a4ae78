package prescription

import (
	"strings"
	"time"
)

// Prescription is a doctor's written advice for the patient of one consult.
// ConsultID becomes nil once the consult itself has been purged.
type Prescription struct {
	ID           string    `json:"id"`
	ConsultID    *string   `json:"consultId,omitempty"`
	PatientID    string    `json:"patientId"`
	PatientEmail string    `json:"patientEmail"`
	DoctorID     string    `json:"doctorId"`
	Text         string    `json:"prescription"`
	CreatedAt    time.Time `json:"createdAt"`
}

// AddRequest is the body of POST /doctor/addPrescription.
type AddRequest struct {
	ConsultID    string `json:"consultId"`
	Prescription string `json:"prescription"`
}

func (r *AddRequest) Normalize() {
	r.ConsultID = strings.TrimSpace(r.ConsultID)
	r.Prescription = strings.TrimSpace(r.Prescription)
}

// Validate reports every empty field at once.
func (r *AddRequest) Validate() error {
	var missing []string
	if r.ConsultID == "" {
		missing = append(missing, "consultId")
	}
	if r.Prescription == "" {
		missing = append(missing, "prescription")
	}
	if len(missing) > 0 {
		return &ValidationError{Fields: missing}
	}
	return nil
}
