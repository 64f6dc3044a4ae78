package stats

// DoctorStats is the consult count of one doctor. A doctor without counter
// entries reports zeros.
type DoctorStats struct {
	DoctorID    string `json:"doctorId,omitempty"`
	DoctorEmail string `json:"doctorEmail"`
	TodayCount  int64  `json:"todayCount"`
	TotalCount  int64  `json:"totalCount"`
}

// Sort orders for AllDoctorsStats.
const (
	SortNone  = ""
	SortToday = "today"
	SortTotal = "total"
)
