package stats

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/doctorsaathi/consult-service/internal/accounts"
	"github.com/doctorsaathi/consult-service/internal/db"
	"github.com/google/uuid"
)

// DoctorDirectory resolves a doctor by email.
type DoctorDirectory interface {
	FindDoctorByEmail(ctx context.Context, q db.Querier, email string) (*accounts.Doctor, error)
}

type Service struct {
	repo      RepositoryInterface
	directory DoctorDirectory
	now       func() time.Time
}

func NewService(repo RepositoryInterface, directory DoctorDirectory) *Service {
	return &Service{repo: repo, directory: directory, now: time.Now}
}

// today returns [startOfDay, startOfNextDay) in server-local time.
func (s *Service) today() (time.Time, time.Time) {
	now := s.now().Local()
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	return start, start.AddDate(0, 0, 1)
}

func (s *Service) DoctorStats(ctx context.Context, doctorEmail string) (*DoctorStats, error) {
	if strings.TrimSpace(doctorEmail) == "" {
		return nil, ErrMissingEmail
	}
	from, to := s.today()
	return s.repo.DoctorStats(ctx, doctorEmail, from, to)
}

func (s *Service) TodayCount(ctx context.Context, doctorEmail string) (int64, error) {
	st, err := s.DoctorStats(ctx, doctorEmail)
	if err != nil {
		return 0, err
	}
	return st.TodayCount, nil
}

func (s *Service) TotalCount(ctx context.Context, doctorEmail string) (int64, error) {
	st, err := s.DoctorStats(ctx, doctorEmail)
	if err != nil {
		return 0, err
	}
	return st.TotalCount, nil
}

// AllDoctorsStats returns every doctor with at least one counter entry,
// ordered by sortBy descending when given.
func (s *Service) AllDoctorsStats(ctx context.Context, sortBy string) ([]DoctorStats, error) {
	if sortBy != SortNone && sortBy != SortToday && sortBy != SortTotal {
		return nil, ErrInvalidSort
	}
	from, to := s.today()
	all, err := s.repo.AllDoctorsStats(ctx, from, to)
	if err != nil {
		return nil, err
	}

	switch sortBy {
	case SortToday:
		sort.SliceStable(all, func(i, j int) bool { return all[i].TodayCount > all[j].TodayCount })
	case SortTotal:
		sort.SliceStable(all, func(i, j int) bool { return all[i].TotalCount > all[j].TotalCount })
	}
	return all, nil
}

// RecordConsult counts consultID for the doctor with this email. Accept
// already records its consult, so calling this afterwards changes nothing.
func (s *Service) RecordConsult(ctx context.Context, doctorEmail, consultID string) (*DoctorStats, error) {
	if strings.TrimSpace(doctorEmail) == "" {
		return nil, ErrMissingEmail
	}
	consultID = strings.TrimSpace(consultID)
	if consultID == "" {
		return nil, ErrMissingConsult
	}
	if _, err := uuid.Parse(consultID); err != nil {
		return nil, ErrConsultNotFound
	}
	doctor, err := s.directory.FindDoctorByEmail(ctx, nil, doctorEmail)
	if err != nil {
		return nil, err
	}
	if err := s.repo.AssignedTo(ctx, consultID, doctor.ID); err != nil {
		return nil, err
	}
	if err := s.repo.Record(ctx, nil, consultID, doctor.ID, doctor.Email, s.now()); err != nil {
		return nil, err
	}
	return s.DoctorStats(ctx, doctor.Email)
}
