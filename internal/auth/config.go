package auth

// Config holds auth configuration
type Config struct {
	Issuer   string
	JWKSURL  string
	Audience string // optional
}

// Roles issued by the DoctorSaathi identity service.
const (
	RoleUser   = "user"
	RoleDoctor = "doctor"
	RoleAdmin  = "admin"
)
