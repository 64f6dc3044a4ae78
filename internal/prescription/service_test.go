package prescription

import (
	"context"
	"errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/doctorsaathi/consult-service/internal/accounts"
	"github.com/doctorsaathi/consult-service/internal/consult"
	"github.com/doctorsaathi/consult-service/internal/db"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryRepo struct {
	mu    sync.Mutex
	items []Prescription
	err   error
}

func (m *memoryRepo) Create(ctx context.Context, p *Prescription) error {
	if m.err != nil {
		return m.err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = uuid.NewString()
	m.items = append(m.items, *p)
	return nil
}

func (m *memoryRepo) ListForPatient(ctx context.Context, patientEmail string) iter.Seq2[Prescription, error] {
	return func(yield func(Prescription, error) bool) {
		if m.err != nil {
			yield(Prescription{}, m.err)
			return
		}
		m.mu.Lock()
		var out []Prescription
		for i := len(m.items) - 1; i >= 0; i-- {
			if m.items[i].PatientEmail == patientEmail {
				out = append(out, m.items[i])
			}
		}
		m.mu.Unlock()
		for _, p := range out {
			if !yield(p, nil) {
				return
			}
		}
	}
}

type fakeConsults struct {
	consults map[string]*consult.ConsultRequest
	err      error
}

func (f *fakeConsults) Get(ctx context.Context, id string) (*consult.ConsultRequest, error) {
	if f.err != nil {
		return nil, f.err
	}
	if c, ok := f.consults[id]; ok {
		return c, nil
	}
	return nil, consult.ErrConsultNotFound
}

type fakeDirectory struct {
	patients map[string]*accounts.Patient
}

func (f *fakeDirectory) FindPatientByEmail(ctx context.Context, q db.Querier, email string) (*accounts.Patient, error) {
	if p, ok := f.patients[email]; ok {
		return p, nil
	}
	return nil, accounts.ErrPatientNotFound
}

type fixture struct {
	repo     *memoryRepo
	consults *fakeConsults
	service  *Service
	doctorID string
	patient  *accounts.Patient
}

func newFixture() *fixture {
	f := &fixture{
		repo:     &memoryRepo{},
		consults: &fakeConsults{consults: map[string]*consult.ConsultRequest{}},
		doctorID: uuid.NewString(),
		patient:  &accounts.Patient{ID: uuid.NewString(), Email: "asha@example.com", Name: "Asha"},
	}
	directory := &fakeDirectory{patients: map[string]*accounts.Patient{f.patient.Email: f.patient}}
	f.service = NewService(f.repo, f.consults, directory)
	f.service.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }
	return f
}

func (f *fixture) addConsult(status consult.Status, doctorID string) *consult.ConsultRequest {
	c := &consult.ConsultRequest{
		ID:           uuid.NewString(),
		PatientEmail: f.patient.Email,
		Specialist:   "Cardiologist",
		Status:       status,
	}
	if doctorID != "" {
		c.AssignedDoctorID = &doctorID
	}
	f.consults.consults[c.ID] = c
	return c
}

func TestService_Add(t *testing.T) {
	for _, status := range []consult.Status{consult.StatusApproved, consult.StatusCompleted} {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture()
			c := f.addConsult(status, f.doctorID)

			p, err := f.service.Add(context.Background(), f.doctorID, AddRequest{
				ConsultID:    " " + c.ID + " ",
				Prescription: " Paracetamol 500mg ",
			})

			require.NoError(t, err)
			assert.NotEmpty(t, p.ID)
			assert.Equal(t, f.patient.ID, p.PatientID)
			assert.Equal(t, f.patient.Email, p.PatientEmail)
			assert.Equal(t, "Paracetamol 500mg", p.Text)
			require.NotNil(t, p.ConsultID)
			assert.Equal(t, c.ID, *p.ConsultID)
			assert.Len(t, f.repo.items, 1)
		})
	}
}

func TestService_Add_Rejected(t *testing.T) {
	tests := []struct {
		name    string
		setup   func(f *fixture) (doctorID string, req AddRequest)
		wantErr error
	}{
		{
			name: "unknown consult",
			setup: func(f *fixture) (string, AddRequest) {
				return f.doctorID, AddRequest{ConsultID: uuid.NewString(), Prescription: "rest"}
			},
			wantErr: ErrConsultNotFound,
		},
		{
			name: "pending consult",
			setup: func(f *fixture) (string, AddRequest) {
				c := f.addConsult(consult.StatusPending, "")
				return f.doctorID, AddRequest{ConsultID: c.ID, Prescription: "rest"}
			},
			wantErr: ErrConsultNotActive,
		},
		{
			name: "another doctor's consult",
			setup: func(f *fixture) (string, AddRequest) {
				c := f.addConsult(consult.StatusApproved, uuid.NewString())
				return f.doctorID, AddRequest{ConsultID: c.ID, Prescription: "rest"}
			},
			wantErr: ErrNotAssignedDoctor,
		},
		{
			name: "malformed doctor id",
			setup: func(f *fixture) (string, AddRequest) {
				c := f.addConsult(consult.StatusApproved, f.doctorID)
				return "not-a-uuid", AddRequest{ConsultID: c.ID, Prescription: "rest"}
			},
			wantErr: ErrNotAssignedDoctor,
		},
		{
			name: "patient no longer registered",
			setup: func(f *fixture) (string, AddRequest) {
				c := f.addConsult(consult.StatusApproved, f.doctorID)
				c.PatientEmail = "gone@example.com"
				return f.doctorID, AddRequest{ConsultID: c.ID, Prescription: "rest"}
			},
			wantErr: accounts.ErrPatientNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture()
			doctorID, req := tt.setup(f)

			_, err := f.service.Add(context.Background(), doctorID, req)

			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, f.repo.items, "nothing is stored on rejection")
		})
	}
}

func TestService_Add_Validation(t *testing.T) {
	f := newFixture()

	_, err := f.service.Add(context.Background(), f.doctorID, AddRequest{Prescription: "   "})

	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"consultId", "prescription"}, ve.Fields)
}

func TestService_Add_StorageFailure(t *testing.T) {
	f := newFixture()
	c := f.addConsult(consult.StatusApproved, f.doctorID)
	f.repo.err = errors.New("disk full")

	_, err := f.service.Add(context.Background(), f.doctorID, AddRequest{ConsultID: c.ID, Prescription: "rest"})

	var se *StorageError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, "add", se.Op)
}

func TestService_ListForPatient(t *testing.T) {
	f := newFixture()
	c := f.addConsult(consult.StatusApproved, f.doctorID)
	for _, text := range []string{"first", "second"} {
		_, err := f.service.Add(context.Background(), f.doctorID, AddRequest{ConsultID: c.ID, Prescription: text})
		require.NoError(t, err)
	}

	var got []string
	for p, err := range f.service.ListForPatient(context.Background(), " Asha@Example.com ") {
		require.NoError(t, err)
		got = append(got, p.Text)
	}
	assert.Equal(t, []string{"second", "first"}, got)
}

func TestService_ListForPatient_Errors(t *testing.T) {
	f := newFixture()

	for _, err := range f.service.ListForPatient(context.Background(), "  ") {
		assert.ErrorIs(t, err, ErrMissingPrincipal)
	}

	f.repo.err = errors.New("connection refused")
	for _, err := range f.service.ListForPatient(context.Background(), "asha@example.com") {
		var se *StorageError
		assert.ErrorAs(t, err, &se)
	}
}
