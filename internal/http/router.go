package http

import (
	"context"
	"net/http"
	"time"

	"github.com/doctorsaathi/consult-service/internal/auth"
	"github.com/doctorsaathi/consult-service/internal/chat"
	"github.com/doctorsaathi/consult-service/internal/consult"
	"github.com/doctorsaathi/consult-service/internal/prescription"
	"github.com/doctorsaathi/consult-service/internal/response"
	"github.com/doctorsaathi/consult-service/internal/stats"
	"github.com/gorilla/mux"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// PingFunc adapts a plain function, such as a Redis ping, to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) PingContext(ctx context.Context) error { return f(ctx) }

// Metrics is satisfied by *telemetry.Metrics.
type Metrics interface {
	HTTPMetrics
	auth.MetricsRecorder
	auth.PermissionMetricsRecorder
}

// Dependencies are the wired components the router serves.
type Dependencies struct {
	ServiceName    string
	DB             Pinger
	Cache          Pinger
	Verifier       auth.TokenVerifier
	Permissions    auth.Permissions
	Metrics        Metrics
	Consults       *consult.Handler
	Stats          *stats.Handler
	Prescriptions  *prescription.Handler
	Chat           *chat.Handler
	BookingLimiter *RateLimiter
	AllowedOrigins []string
}

// SetupRouter initializes all routes for the application
func SetupRouter(deps Dependencies) http.Handler {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware(deps.ServiceName))
	r.Use(WithMetrics(deps.Metrics))

	// Public health endpoints
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, http.StatusOK, map[string]string{"status": "ok", "service": deps.ServiceName})
	}).Methods(http.MethodGet)

	r.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		for name, p := range map[string]Pinger{"database": deps.DB, "redis": deps.Cache} {
			if p == nil {
				continue
			}
			if err := p.PingContext(ctx); err != nil {
				response.Error(w, http.StatusServiceUnavailable, response.CodeNotReady, name+" unavailable")
				return
			}
		}
		response.JSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}).Methods(http.MethodGet)

	authn := auth.MiddlewareWithMetrics(deps.Verifier, deps.Metrics)
	protect := func(path, permission string, h http.HandlerFunc, method string, extra ...Middleware) {
		m := append([]Middleware{authn, auth.RequirePermissionWithMetrics(permission, deps.Permissions, deps.Metrics)}, extra...)
		r.Handle(path, Chain(h, m...)).Methods(method)
	}

	var booking []Middleware
	if deps.BookingLimiter != nil {
		booking = append(booking, deps.BookingLimiter.Middleware)
	}

	// Patient routes
	protect("/user/bookconsult", "consult:create", deps.Consults.Submit, http.MethodPost, booking...)
	protect("/user/consults", "consult:view_own", deps.Consults.ListMine, http.MethodGet)
	protect("/user/consults/{id}", "consult:view_own", deps.Consults.GetMine, http.MethodGet)
	protect("/user/consults/{id}", "consult:cancel", deps.Consults.Cancel, http.MethodDelete)
	protect("/user/prescription", "prescription:view_own", deps.Prescriptions.ListMine, http.MethodGet)

	// Doctor routes
	protect("/doctor/pendingConsults", "consult:view_pending", deps.Consults.ListPending, http.MethodGet)
	protect("/doctor/consult/accept/{id}", "consult:accept", deps.Consults.Accept, http.MethodPut)
	protect("/doctor/consult/complete/{id}", "consult:complete", deps.Consults.Complete, http.MethodPut)
	protect("/doctor/approvedConsults", "consult:view_assigned", deps.Consults.ListApproved, http.MethodGet)
	protect("/doctor/patient-stats/{doctorEmail}", "stats:view_own", deps.Stats.GetDoctorStats, http.MethodGet)
	protect("/doctor/patient-consult/{doctorEmail}", "stats:record", deps.Stats.RecordConsult, http.MethodPost)
	protect("/doctor/addPrescription", "prescription:create", deps.Prescriptions.Add, http.MethodPost)

	// Admin routes
	protect("/admin/allConsults", "consult:view_all", deps.Consults.ListAll, http.MethodGet)
	protect("/admin/alldoctors-stats", "stats:view_all", deps.Stats.AllDoctorsStats, http.MethodGet)

	// Chat
	protect("/chat/token", "chat:token", deps.Chat.Token, http.MethodGet)

	return Chain(r, WithRequestID, WithAccessLog, CORS(deps.AllowedOrigins))
}
