package stats

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/doctorsaathi/consult-service/internal/db"
	"github.com/google/uuid"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{db: conn}
}

// Record appends one counter entry. A consult is counted at most once, so a
// second Record for the same consultID is a no-op. Pass the caller's
// transaction as q to make the entry part of a larger unit of work.
func (r *Repository) Record(ctx context.Context, q db.Querier, consultID, doctorID, doctorEmail string, at time.Time) error {
	query := `
		INSERT INTO patient_consult_counters (id, doctor_id, doctor_email, consult_id, count, created_at)
		VALUES ($1, $2, $3, $4, 1, $5)
		ON CONFLICT (consult_id) DO NOTHING
	`
	_, err := db.Or(q, r.db).ExecContext(ctx, query,
		uuid.NewString(),
		doctorID,
		strings.ToLower(strings.TrimSpace(doctorEmail)),
		sql.NullString{String: consultID, Valid: consultID != ""},
		at,
	)
	if err != nil {
		return fmt.Errorf("failed to record consult counter: %w", err)
	}
	return nil
}

// AssignedTo reports whether consultID was accepted by doctorID.
func (r *Repository) AssignedTo(ctx context.Context, consultID, doctorID string) error {
	var status string
	var assigned sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT status, assigned_doctor_id FROM consult_requests WHERE id = $1`, consultID,
	).Scan(&status, &assigned)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConsultNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read consult assignment: %w", err)
	}
	if status == "pending" || !assigned.Valid || assigned.String != doctorID {
		return ErrConsultNotAssigned
	}
	return nil
}

func (r *Repository) DoctorStats(ctx context.Context, doctorEmail string, from, to time.Time) (*DoctorStats, error) {
	query := `
		SELECT
			COALESCE(SUM(count) FILTER (WHERE created_at >= $2 AND created_at < $3), 0),
			COALESCE(SUM(count), 0)
		FROM patient_consult_counters
		WHERE doctor_email = $1
	`
	s := &DoctorStats{DoctorEmail: strings.ToLower(strings.TrimSpace(doctorEmail))}
	if err := r.db.QueryRowContext(ctx, query, s.DoctorEmail, from, to).Scan(&s.TodayCount, &s.TotalCount); err != nil {
		return nil, fmt.Errorf("failed to get doctor stats: %w", err)
	}
	return s, nil
}

func (r *Repository) AllDoctorsStats(ctx context.Context, from, to time.Time) ([]DoctorStats, error) {
	query := `
		SELECT
			doctor_email,
			MIN(doctor_id::text),
			COALESCE(SUM(count) FILTER (WHERE created_at >= $1 AND created_at < $2), 0),
			SUM(count)
		FROM patient_consult_counters
		GROUP BY doctor_email
	`
	rows, err := r.db.QueryContext(ctx, query, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query doctor stats: %w", err)
	}
	defer rows.Close()

	var out []DoctorStats
	for rows.Next() {
		var s DoctorStats
		if err := rows.Scan(&s.DoctorEmail, &s.DoctorID, &s.TodayCount, &s.TotalCount); err != nil {
			return nil, fmt.Errorf("failed to scan doctor stats: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating doctor stats: %w", err)
	}
	return out, nil
}
