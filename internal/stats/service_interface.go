package stats

import "context"

// ServiceInterface defines the contract for statistics
type ServiceInterface interface {
	DoctorStats(ctx context.Context, doctorEmail string) (*DoctorStats, error)
	TodayCount(ctx context.Context, doctorEmail string) (int64, error)
	TotalCount(ctx context.Context, doctorEmail string) (int64, error)
	AllDoctorsStats(ctx context.Context, sortBy string) ([]DoctorStats, error)
	RecordConsult(ctx context.Context, doctorEmail, consultID string) (*DoctorStats, error)
}

// Ensure Service implements ServiceInterface
var _ ServiceInterface = (*Service)(nil)
