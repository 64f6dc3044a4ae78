package chat

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
)

// ChannelType is the provider channel type used for every consult channel.
const ChannelType = "messaging"

// DoctorUserID is the chat identity of a local doctor.
func DoctorUserID(doctorID string) string { return "doctor-" + doctorID }

// PatientUserID is the chat identity of a local patient.
func PatientUserID(patientID string) string { return "patient-" + patientID }

// ChannelID derives the channel id for a pair of chat users. The result does
// not depend on argument order and stays within the provider's 64 char limit.
func ChannelID(a, b string) string {
	pair := []string{a, b}
	sort.Strings(pair)
	sum := sha256.Sum256([]byte(pair[0] + "|" + pair[1]))
	return "consult-" + hex.EncodeToString(sum[:])[:40]
}
