//go:build integration

package e2e

import (
	"encoding/json"
	"net/http"
	"testing"

	"github.com/doctorsaathi/consult-service/internal/consult"
	"github.com/doctorsaathi/consult-service/internal/messaging"
	"github.com/doctorsaathi/consult-service/internal/prescription"
	"github.com/doctorsaathi/consult-service/internal/testutil"
)

func bookingBody(email, specialist string) map[string]string {
	return map[string]string{
		"email":      email,
		"name":       "Asha",
		"age":        "34",
		"gender":     "female",
		"phone":      "9876543210",
		"symptoms":   "chest pain on exertion",
		"specialist": specialist,
	}
}

func decodeConsult(t *testing.T, env testutil.Envelope) consult.ConsultRequest {
	t.Helper()
	var c consult.ConsultRequest
	if err := json.Unmarshal(env.Data, &c); err != nil {
		t.Fatalf("Failed to decode consult: %v", err)
	}
	return c
}

func decodeList(t *testing.T, env testutil.Envelope) []consult.ConsultRequest {
	t.Helper()
	var items []consult.ConsultRequest
	if err := json.Unmarshal(env.Data, &items); err != nil {
		t.Fatalf("Failed to decode list: %v", err)
	}
	return items
}

// TestE2E_ConsultLifecycle_FullFlow books, accepts and completes a consult.
func TestE2E_ConsultLifecycle_FullFlow(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	patient := ts.PatientClient(t, "Asha", "asha@example.com")
	cardio := ts.DoctorClient(t, "Dr Rao", "rao@clinic.in", "Cardiologist")
	derm := ts.DoctorClient(t, "Dr Sen", "sen@clinic.in", "Dermatologist")

	resp := patient.POST(t, "/user/bookconsult", bookingBody("asha@example.com", "Cardiologist"))
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	booked := decodeConsult(t, testutil.DecodeEnvelope(t, resp))
	if booked.Status != consult.StatusPending {
		t.Fatalf("Expected pending, got %s", booked.Status)
	}

	// Only the matching specialty sees it
	if got := decodeList(t, testutil.DecodeEnvelope(t, cardio.GET(t, "/doctor/pendingConsults"))); len(got) != 1 {
		t.Fatalf("Expected 1 pending consult for cardiology, got %d", len(got))
	}
	if got := decodeList(t, testutil.DecodeEnvelope(t, derm.GET(t, "/doctor/pendingConsults"))); len(got) != 0 {
		t.Fatalf("Expected no pending consults for dermatology, got %d", len(got))
	}

	// Wrong specialty cannot take it
	resp = derm.PUT(t, "/doctor/consult/accept/"+booked.ID, nil)
	testutil.AssertStatusCode(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = cardio.PUT(t, "/doctor/consult/accept/"+booked.ID, nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var accepted consult.Acceptance
	if err := json.Unmarshal(testutil.DecodeEnvelope(t, resp).Data, &accepted); err != nil {
		t.Fatalf("Failed to decode acceptance: %v", err)
	}
	if ts.MockChat.GetChannel(accepted.Channel.ID) == nil {
		t.Error("Expected chat channel to be provisioned")
	}

	approved := decodeList(t, testutil.DecodeEnvelope(t, cardio.GET(t, "/doctor/approvedConsults")))
	if len(approved) != 1 || approved[0].ID != booked.ID {
		t.Fatalf("Expected the accepted consult in approved list, got %v", approved)
	}

	// Patient can no longer cancel
	resp = patient.DELETE(t, "/user/consults/"+booked.ID)
	testutil.AssertStatusCode(t, resp, http.StatusConflict)
	resp.Body.Close()

	resp = cardio.PUT(t, "/doctor/consult/complete/"+booked.ID, nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	if done := decodeConsult(t, testutil.DecodeEnvelope(t, resp)); done.CompletedAt == nil {
		t.Error("Expected completedAt to be set")
	}

	// Accept already counted this consult
	resp = cardio.POST(t, "/doctor/patient-consult/rao@clinic.in", map[string]string{"consultId": booked.ID})
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	resp = cardio.GET(t, "/doctor/patient-stats/rao@clinic.in")
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var st struct {
		TodayCount int64 `json:"todayCount"`
		TotalCount int64 `json:"totalCount"`
	}
	if err := json.Unmarshal(testutil.DecodeEnvelope(t, resp).Data, &st); err != nil {
		t.Fatalf("Failed to decode stats: %v", err)
	}
	if st.TodayCount != 1 || st.TotalCount != 1 {
		t.Errorf("Expected today=1 total=1, got today=%d total=%d", st.TodayCount, st.TotalCount)
	}

	ts.MockPublisher.AssertEventCount(t, messaging.EventConsultSubmitted, 1)
	ts.MockPublisher.AssertEventCount(t, messaging.EventConsultApproved, 1)
	ts.MockPublisher.AssertEventCount(t, messaging.EventConsultCompleted, 1)
}

// TestE2E_BookConsult_Validation rejects incomplete intake forms
func TestE2E_BookConsult_Validation(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	patient := ts.PatientClient(t, "Asha", "asha@example.com")

	body := bookingBody("asha@example.com", "")
	body["phone"] = ""
	resp := patient.POST(t, "/user/bookconsult", body)
	testutil.AssertStatusCode(t, resp, http.StatusBadRequest)

	env := testutil.DecodeEnvelope(t, resp)
	if env.Error == nil || env.Error.Code != "validation_error" || len(env.Error.Fields) != 2 {
		t.Errorf("Expected validation_error naming phone and specialist, got %+v", env.Error)
	}
	ts.MockPublisher.AssertEventNotPublished(t, messaging.EventConsultSubmitted)
}

// TestE2E_AcceptTwice_Conflict returns 409 to the second doctor
func TestE2E_AcceptTwice_Conflict(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	patient := ts.PatientClient(t, "Asha", "asha@example.com")
	first := ts.DoctorClient(t, "Dr Rao", "rao@clinic.in", "Cardiologist")
	second := ts.DoctorClient(t, "Dr Iyer", "iyer@clinic.in", "Cardiologist")

	resp := patient.POST(t, "/user/bookconsult", bookingBody("asha@example.com", "Cardiologist"))
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	booked := decodeConsult(t, testutil.DecodeEnvelope(t, resp))

	resp = first.PUT(t, "/doctor/consult/accept/"+booked.ID, nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = second.PUT(t, "/doctor/consult/accept/"+booked.ID, nil)
	testutil.AssertStatusCode(t, resp, http.StatusConflict)
	resp.Body.Close()

	resp = second.PUT(t, "/doctor/consult/complete/"+booked.ID, nil)
	testutil.AssertStatusCode(t, resp, http.StatusForbidden)
	resp.Body.Close()
}

// TestE2E_AdminListsAll sees every consult regardless of status
func TestE2E_AdminListsAll(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	patient := ts.PatientClient(t, "Asha", "asha@example.com")
	for _, specialist := range []string{"Cardiologist", "Dermatologist"} {
		resp := patient.POST(t, "/user/bookconsult", bookingBody("asha@example.com", specialist))
		testutil.AssertStatusCode(t, resp, http.StatusCreated)
		resp.Body.Close()
	}

	env := testutil.DecodeEnvelope(t, ts.AdminClient(t).GET(t, "/admin/allConsults"))
	if env.Count == nil || *env.Count != 2 {
		t.Errorf("Expected 2 consults, got %v", env.Count)
	}

	mine := decodeList(t, testutil.DecodeEnvelope(t, patient.GET(t, "/user/consults")))
	if len(mine) != 2 {
		t.Errorf("Expected 2 consults for the patient, got %d", len(mine))
	}
}

// TestE2E_Prescriptions lets the assigned doctor prescribe and the patient read it.
func TestE2E_Prescriptions(t *testing.T) {
	ts := SetupE2ETest(t)
	defer ts.Cleanup(t)

	patient := ts.PatientClient(t, "Asha", "asha@example.com")
	cardio := ts.DoctorClient(t, "Dr Rao", "rao@clinic.in", "Cardiologist")
	other := ts.DoctorClient(t, "Dr Iyer", "iyer@clinic.in", "Cardiologist")

	resp := patient.POST(t, "/user/bookconsult", bookingBody("asha@example.com", "Cardiologist"))
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	booked := decodeConsult(t, testutil.DecodeEnvelope(t, resp))

	body := map[string]string{"consultId": booked.ID, "prescription": "Aspirin 75mg once daily"}

	// Not accepted yet
	resp = cardio.POST(t, "/doctor/addPrescription", body)
	testutil.AssertStatusCode(t, resp, http.StatusConflict)
	resp.Body.Close()

	resp = cardio.PUT(t, "/doctor/consult/accept/"+booked.ID, nil)
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	resp.Body.Close()

	resp = other.POST(t, "/doctor/addPrescription", body)
	testutil.AssertStatusCode(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = cardio.POST(t, "/doctor/addPrescription", body)
	testutil.AssertStatusCode(t, resp, http.StatusCreated)
	resp.Body.Close()

	// Patients cannot prescribe
	resp = patient.POST(t, "/doctor/addPrescription", body)
	testutil.AssertStatusCode(t, resp, http.StatusForbidden)
	resp.Body.Close()

	resp = patient.GET(t, "/user/prescription")
	testutil.AssertStatusCode(t, resp, http.StatusOK)
	var items []prescription.Prescription
	if err := json.Unmarshal(testutil.DecodeEnvelope(t, resp).Data, &items); err != nil {
		t.Fatalf("Failed to decode prescriptions: %v", err)
	}
	if len(items) != 1 || items[0].Text != "Aspirin 75mg once daily" {
		t.Fatalf("Expected the one prescription, got %+v", items)
	}
}
