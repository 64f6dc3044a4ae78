package consult

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"iter"
	"strings"
	"time"

	"github.com/doctorsaathi/consult-service/internal/db"
	"github.com/google/uuid"
)

const consultColumns = `id, patient_email, patient_name, age, gender, phone, symptoms, specialist,
	status, assigned_doctor_id, completed_at, created_at, updated_at`

type Repository struct {
	db *sql.DB
}

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{db: conn}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanConsult(s scanner) (*ConsultRequest, error) {
	c := &ConsultRequest{}
	var status string
	var doctorID sql.NullString
	var completedAt sql.NullTime

	err := s.Scan(
		&c.ID,
		&c.PatientEmail,
		&c.PatientName,
		&c.Age,
		&c.Gender,
		&c.Phone,
		&c.Symptoms,
		&c.Specialist,
		&status,
		&doctorID,
		&completedAt,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	c.Status = Status(status)
	if doctorID.Valid {
		c.AssignedDoctorID = &doctorID.String
	}
	if completedAt.Valid {
		c.CompletedAt = &completedAt.Time
	}
	return c, nil
}

func (r *Repository) Create(ctx context.Context, c *ConsultRequest) error {
	c.ID = uuid.NewString()
	c.Status = StatusPending
	c.AssignedDoctorID = nil
	c.CompletedAt = nil
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	c.UpdatedAt = c.CreatedAt

	query := `
		INSERT INTO consult_requests (id, patient_email, patient_name, age, gender, phone, symptoms,
			specialist, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err := r.db.ExecContext(ctx, query,
		c.ID,
		c.PatientEmail,
		c.PatientName,
		c.Age,
		c.Gender,
		c.Phone,
		c.Symptoms,
		c.Specialist,
		string(c.Status),
		c.CreatedAt,
		c.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create consult: %w", err)
	}
	return nil
}

func (r *Repository) Get(ctx context.Context, id string) (*ConsultRequest, error) {
	query := `SELECT ` + consultColumns + ` FROM consult_requests WHERE id = $1`

	c, err := scanConsult(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrConsultNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get consult: %w", err)
	}
	return c, nil
}

func (f Filter) where() (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		add("status = $%d", string(f.Status))
	}
	if f.Specialist != "" {
		add("specialist = $%d", f.Specialist)
	}
	if f.AssignedDoctorID != "" {
		add("assigned_doctor_id = $%d", f.AssignedDoctorID)
	}
	if f.PatientEmail != "" {
		add("patient_email = $%d", f.PatientEmail)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// List returns a lazy newest-first sequence. Each range runs the query again,
// so the sequence can be consumed more than once.
func (r *Repository) List(ctx context.Context, f Filter) iter.Seq2[ConsultRequest, error] {
	where, args := f.where()
	query := `SELECT ` + consultColumns + ` FROM consult_requests` + where + ` ORDER BY created_at DESC, id DESC`

	return func(yield func(ConsultRequest, error) bool) {
		rows, err := r.db.QueryContext(ctx, query, args...)
		if err != nil {
			yield(ConsultRequest{}, fmt.Errorf("failed to list consults: %w", err))
			return
		}
		defer rows.Close()

		for rows.Next() {
			c, err := scanConsult(rows)
			if err != nil {
				yield(ConsultRequest{}, fmt.Errorf("failed to scan consult: %w", err))
				return
			}
			if !yield(*c, nil) {
				return
			}
		}
		if err := rows.Err(); err != nil {
			yield(ConsultRequest{}, fmt.Errorf("error iterating consults: %w", err))
		}
	}
}

// Approve moves a pending consult to approved in one transaction. The
// conditional UPDATE locks the row, so a concurrent Approve waits for this
// transaction and then matches nothing.
func (r *Repository) Approve(ctx context.Context, id, doctorID string, at time.Time, follow FollowUp) (*ConsultRequest, error) {
	query := `
		UPDATE consult_requests
		SET status = 'approved', assigned_doctor_id = $2, updated_at = $3
		WHERE id = $1 AND status = 'pending'
		RETURNING ` + consultColumns

	var out *ConsultRequest
	err := db.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		c, err := scanConsult(tx.QueryRowContext(ctx, query, id, doctorID, at))
		if errors.Is(err, sql.ErrNoRows) {
			return r.explainApproveMiss(ctx, tx, id)
		}
		if err != nil {
			return fmt.Errorf("failed to approve consult: %w", err)
		}
		if follow != nil {
			if err := follow(ctx, tx, c); err != nil {
				return err
			}
		}
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *Repository) explainApproveMiss(ctx context.Context, q db.Querier, id string) error {
	var status string
	err := q.QueryRowContext(ctx, `SELECT status FROM consult_requests WHERE id = $1`, id).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConsultNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read consult status: %w", err)
	}
	return ErrAlreadyHandled
}

// Complete moves an approved consult assigned to doctorID to completed.
func (r *Repository) Complete(ctx context.Context, id, doctorID string, at time.Time) (*ConsultRequest, error) {
	query := `
		UPDATE consult_requests
		SET status = 'completed', completed_at = $3, updated_at = $3
		WHERE id = $1 AND status = 'approved' AND assigned_doctor_id = $2
		RETURNING ` + consultColumns

	c, err := scanConsult(r.db.QueryRowContext(ctx, query, id, doctorID, at))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.explainCompleteMiss(ctx, id, doctorID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to complete consult: %w", err)
	}
	return c, nil
}

func (r *Repository) explainCompleteMiss(ctx context.Context, id, doctorID string) error {
	var status string
	var assigned sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT status, assigned_doctor_id FROM consult_requests WHERE id = $1`, id,
	).Scan(&status, &assigned)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConsultNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read consult status: %w", err)
	}
	if assigned.Valid && assigned.String != doctorID {
		return ErrNotAssignedDoctor
	}
	return ErrInvalidTransition
}

// DeletePending removes a patient's own consult while nobody has accepted it.
func (r *Repository) DeletePending(ctx context.Context, id, patientEmail string) (*ConsultRequest, error) {
	query := `
		DELETE FROM consult_requests
		WHERE id = $1 AND patient_email = $2 AND status = 'pending'
		RETURNING ` + consultColumns

	c, err := scanConsult(r.db.QueryRowContext(ctx, query, id, patientEmail))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, r.explainDeleteMiss(ctx, id, patientEmail)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to delete consult: %w", err)
	}
	return c, nil
}

func (r *Repository) explainDeleteMiss(ctx context.Context, id, patientEmail string) error {
	var email string
	err := r.db.QueryRowContext(ctx,
		`SELECT patient_email FROM consult_requests WHERE id = $1`, id,
	).Scan(&email)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrConsultNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to read consult owner: %w", err)
	}
	if email != patientEmail {
		return ErrNotOwner
	}
	return ErrInvalidTransition
}

// DeleteCompletedBefore permanently removes completed consults older than cutoff.
func (r *Repository) DeleteCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		DELETE FROM consult_requests
		WHERE status = 'completed'
		AND completed_at < $1
	`
	result, err := r.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired consults: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

func (r *Repository) CountCompletedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		SELECT COUNT(*)
		FROM consult_requests
		WHERE status = 'completed'
		AND completed_at < $1
	`
	var n int64
	if err := r.db.QueryRowContext(ctx, query, cutoff).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count expired consults: %w", err)
	}
	return n, nil
}
