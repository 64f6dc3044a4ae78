package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/doctorsaathi/consult-service/internal/db"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(conn *sql.DB) *Repository {
	return &Repository{db: conn}
}

func (r *Repository) FindPatientByEmail(ctx context.Context, q db.Querier, email string) (*Patient, error) {
	query := `
		SELECT id, name, email, phone, gender, created_at
		FROM users
		WHERE email = $1
	`
	p := &Patient{}
	err := db.Or(q, r.db).QueryRowContext(ctx, query, normalizeEmail(email)).Scan(
		&p.ID,
		&p.Name,
		&p.Email,
		&p.Phone,
		&p.Gender,
		&p.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPatientNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get patient: %w", err)
	}
	return p, nil
}

func (r *Repository) FindDoctorByID(ctx context.Context, q db.Querier, id string) (*Doctor, error) {
	return r.findDoctor(ctx, q, "id", id)
}

func (r *Repository) FindDoctorByEmail(ctx context.Context, q db.Querier, email string) (*Doctor, error) {
	return r.findDoctor(ctx, q, "email", normalizeEmail(email))
}

// column is always one of the two literals above.
func (r *Repository) findDoctor(ctx context.Context, q db.Querier, column, value string) (*Doctor, error) {
	query := fmt.Sprintf(`
		SELECT id, name, email, specialist, hospital, created_at
		FROM doctors
		WHERE %s = $1
	`, column)

	d := &Doctor{}
	err := db.Or(q, r.db).QueryRowContext(ctx, query, value).Scan(
		&d.ID,
		&d.Name,
		&d.Email,
		&d.Specialist,
		&d.Hospital,
		&d.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDoctorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get doctor: %w", err)
	}
	return d, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
