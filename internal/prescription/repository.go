package prescription

import (
	"context"
	"database/sql"
	"fmt"
	"iter"
	"time"

	"github.com/google/uuid"
)

const prescriptionColumns = `id, consult_id, patient_id, patient_email, doctor_id, prescription, created_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) Create(ctx context.Context, p *Prescription) error {
	p.ID = uuid.NewString()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO prescriptions (id, consult_id, patient_id, patient_email, doctor_id, prescription, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		p.ID,
		p.ConsultID,
		p.PatientID,
		p.PatientEmail,
		p.DoctorID,
		p.Text,
		p.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create prescription: %w", err)
	}
	return nil
}

// ListForPatient returns a lazy newest-first sequence of one patient's prescriptions.
func (r *Repository) ListForPatient(ctx context.Context, patientEmail string) iter.Seq2[Prescription, error] {
	query := `SELECT ` + prescriptionColumns + ` FROM prescriptions
		WHERE patient_email = $1
		ORDER BY created_at DESC, id DESC`

	return func(yield func(Prescription, error) bool) {
		rows, err := r.db.QueryContext(ctx, query, patientEmail)
		if err != nil {
			yield(Prescription{}, fmt.Errorf("failed to list prescriptions: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			var p Prescription
			var consultID sql.NullString
			if err := rows.Scan(&p.ID, &consultID, &p.PatientID, &p.PatientEmail, &p.DoctorID, &p.Text, &p.CreatedAt); err != nil {
				yield(Prescription{}, fmt.Errorf("failed to scan prescription: %w", err))
				return
			}
			if consultID.Valid {
				p.ConsultID = &consultID.String
			}
			if !yield(p, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(Prescription{}, fmt.Errorf("error iterating prescriptions: %w", err))
		}
	}
}
