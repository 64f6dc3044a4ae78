package testutil

import (
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/doctorsaathi/consult-service/internal/auth"
	"github.com/golang-jwt/jwt/v4"
)

// TestIssuer is the issuer CreateTestVerifier accepts.
const TestIssuer = "https://id.doctorsaathi.test/realms/doctorsaathi"

const testKeyID = "test-key-id"

// GenerateTestKeyPair generates an RSA key pair for testing JWT tokens
func GenerateTestKeyPair(t *testing.T) (*rsa.PrivateKey, *rsa.PublicKey) {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Failed to generate RSA key: %v", err)
	}
	return privateKey, &privateKey.PublicKey
}

// CreateTestVerifier returns a verifier and the private key that signs tokens it accepts.
func CreateTestVerifier(t *testing.T) (*auth.Verifier, *rsa.PrivateKey) {
	t.Helper()

	privateKey, publicKey := GenerateTestKeyPair(t)
	keys := auth.NewStaticJWKS(map[string]*rsa.PublicKey{testKeyID: publicKey})
	return auth.NewVerifier(auth.Config{Issuer: TestIssuer}, keys), privateKey
}

// GenerateTestJWT creates a signed token for userID with the given email and roles.
func GenerateTestJWT(t *testing.T, privateKey *rsa.PrivateKey, userID, email string, roles []string) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub": userID,
		"iss": TestIssuer,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
		"realm_access": map[string]interface{}{
			"roles": interfaceSlice(roles),
		},
	}
	if email != "" {
		claims["email"] = email
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID

	tokenString, err := token.SignedString(privateKey)
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return tokenString
}

// GeneratePatientToken creates a user token for testing
func GeneratePatientToken(t *testing.T, privateKey *rsa.PrivateKey, userID, email string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, userID, email, []string{auth.RoleUser})
}

// GenerateDoctorToken creates a doctor token for testing
func GenerateDoctorToken(t *testing.T, privateKey *rsa.PrivateKey, doctorID, email string) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, doctorID, email, []string{auth.RoleDoctor})
}

// GenerateAdminToken creates an admin token for testing
func GenerateAdminToken(t *testing.T, privateKey *rsa.PrivateKey) string {
	t.Helper()
	return GenerateTestJWT(t, privateKey, "admin-123", "admin@doctorsaathi.test", []string{auth.RoleAdmin})
}

// interfaceSlice converts []string to []interface{} for JWT claims
func interfaceSlice(strings []string) []interface{} {
	result := make([]interface{}, len(strings))
	for i, s := range strings {
		result[i] = s
	}
	return result
}
