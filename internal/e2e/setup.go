//go:build integration

package e2e

import (
	"crypto/rsa"
	"database/sql"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/doctorsaathi/consult-service/internal/accounts"
	"github.com/doctorsaathi/consult-service/internal/auth"
	"github.com/doctorsaathi/consult-service/internal/chat"
	"github.com/doctorsaathi/consult-service/internal/consult"
	httpserver "github.com/doctorsaathi/consult-service/internal/http"
	"github.com/doctorsaathi/consult-service/internal/prescription"
	"github.com/doctorsaathi/consult-service/internal/stats"
	"github.com/doctorsaathi/consult-service/internal/testutil"
)

// TestServer represents a complete E2E test environment
type TestServer struct {
	Server        *httptest.Server
	DB            *sql.DB
	MockPublisher *testutil.MockPublisher
	MockChat      *testutil.MockChatClient
	PrivateKey    *rsa.PrivateKey
}

// SetupE2ETest creates a complete test environment for E2E testing:
// a real PostgreSQL database, the real router with every route, and
// in-memory stand-ins for the event broker and the chat provider.
func SetupE2ETest(t *testing.T) *TestServer {
	t.Helper()

	db := testutil.SetupTestDB(t)
	testutil.CleanupTestDB(t, db)

	mockPublisher := testutil.NewMockPublisher()
	mockChat := testutil.NewMockChatClient()

	perms, err := auth.LoadPermissions("../../permissions.yml")
	if err != nil {
		t.Fatalf("Failed to load permissions: %v", err)
	}

	verifier, privateKey := testutil.CreateTestVerifier(t)

	provisioner := chat.NewProvisioner(mockChat, chat.NopChannelCache{}, time.Second, nil)
	accountsRepo := accounts.NewRepository(db)
	statsRepo := stats.NewRepository(db)
	consultService := consult.NewService(consult.NewRepository(db), accountsRepo, statsRepo, provisioner, mockPublisher, nil)
	prescriptionService := prescription.NewService(prescription.NewRepository(db), consultService, accountsRepo)

	router := httpserver.SetupRouter(httpserver.Dependencies{
		ServiceName:   "consult-service",
		DB:            db,
		Verifier:      verifier,
		Permissions:   perms,
		Consults:      consult.NewHandler(consultService),
		Stats:         stats.NewHandler(stats.NewService(statsRepo, accountsRepo)),
		Prescriptions: prescription.NewHandler(prescriptionService),
		Chat:          chat.NewHandler(provisioner, "test-api-key"),
	})

	return &TestServer{
		Server:        httptest.NewServer(router),
		DB:            db,
		MockPublisher: mockPublisher,
		MockChat:      mockChat,
		PrivateKey:    privateKey,
	}
}

// Cleanup cleans up all test resources
func (ts *TestServer) Cleanup(t *testing.T) {
	t.Helper()
	ts.Server.Close()
	testutil.CleanupTestDB(t, ts.DB)
}

// PatientClient registers a patient and returns a client authenticated as them.
func (ts *TestServer) PatientClient(t *testing.T, name, email string) *testutil.HTTPTestClient {
	t.Helper()
	id := testutil.CreateTestPatient(t, ts.DB, name, email)
	return ts.NewClient(testutil.GeneratePatientToken(t, ts.PrivateKey, id, email))
}

// DoctorClient registers a doctor and returns a client authenticated as them.
func (ts *TestServer) DoctorClient(t *testing.T, name, email, specialist string) *testutil.HTTPTestClient {
	t.Helper()
	id := testutil.CreateTestDoctor(t, ts.DB, name, email, specialist)
	return ts.NewClient(testutil.GenerateDoctorToken(t, ts.PrivateKey, id, email))
}

// AdminClient returns a client authenticated as an administrator.
func (ts *TestServer) AdminClient(t *testing.T) *testutil.HTTPTestClient {
	t.Helper()
	return ts.NewClient(testutil.GenerateAdminToken(t, ts.PrivateKey))
}

// NewClient creates a new HTTP test client for this server with the given token
func (ts *TestServer) NewClient(token string) *testutil.HTTPTestClient {
	return testutil.NewHTTPTestClient(ts.Server.URL, token)
}
