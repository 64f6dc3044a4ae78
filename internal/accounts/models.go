package accounts

import "time"

// Patient is a registered DoctorSaathi user who books consultations.
type Patient struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Gender    string    `json:"gender,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Doctor is a registered practitioner. Specialist drives routing of pending consults.
type Doctor struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Specialist string    `json:"specialist"`
	Hospital   string    `json:"hospital,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}
