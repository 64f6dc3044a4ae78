package stats

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*Repository, sqlmock.Sqlmock) {
	t.Helper()
	conn, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewRepository(conn), mock
}

func TestRepositoryRecord(t *testing.T) {
	repo, mock := newMockRepo(t)
	at := time.Now()

	insert := regexp.QuoteMeta("ON CONFLICT (consult_id) DO NOTHING")
	mock.ExpectExec(insert).
		WithArgs(sqlmock.AnyArg(), "d1", "rao@example.com", "c1", at).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(insert).
		WithArgs(sqlmock.AnyArg(), "d1", "rao@example.com", nil, at).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Record(context.Background(), nil, "c1", "d1", " Rao@Example.com", at))
	require.NoError(t, repo.Record(context.Background(), nil, "", "d1", "rao@example.com", at))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryAssignedTo(t *testing.T) {
	tests := []struct {
		name    string
		rows    *sqlmock.Rows
		wantErr error
	}{
		{"assigned", sqlmock.NewRows([]string{"status", "assigned_doctor_id"}).AddRow("approved", "d1"), nil},
		{"completed", sqlmock.NewRows([]string{"status", "assigned_doctor_id"}).AddRow("completed", "d1"), nil},
		{"other doctor", sqlmock.NewRows([]string{"status", "assigned_doctor_id"}).AddRow("approved", "d2"), ErrConsultNotAssigned},
		{"pending", sqlmock.NewRows([]string{"status", "assigned_doctor_id"}).AddRow("pending", nil), ErrConsultNotAssigned},
		{"missing", sqlmock.NewRows([]string{"status", "assigned_doctor_id"}), ErrConsultNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newMockRepo(t)
			mock.ExpectQuery(regexp.QuoteMeta("SELECT status, assigned_doctor_id FROM consult_requests")).
				WithArgs("c1").
				WillReturnRows(tt.rows)

			err := repo.AssignedTo(context.Background(), "c1", "d1")
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestRepositoryDoctorStats(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := time.Date(2024, 5, 10, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery(regexp.QuoteMeta("FILTER (WHERE created_at >= $2 AND created_at < $3)")).
		WithArgs("rao@example.com", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"today", "total"}).AddRow(int64(2), int64(9)))

	st, err := repo.DoctorStats(context.Background(), "rao@example.com", from, to)
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.TodayCount)
	assert.Equal(t, int64(9), st.TotalCount)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryAllDoctorsStats(t *testing.T) {
	repo, mock := newMockRepo(t)
	from := time.Date(2024, 5, 10, 0, 0, 0, 0, time.Local)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery(regexp.QuoteMeta("GROUP BY doctor_email")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"doctor_email", "doctor_id", "today", "total"}).
			AddRow("a@example.com", "d1", int64(0), int64(3)).
			AddRow("b@example.com", "d2", int64(2), int64(2)))

	all, err := repo.AllDoctorsStats(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "d2", all[1].DoctorID)
	assert.NoError(t, mock.ExpectationsWereMet())
}
