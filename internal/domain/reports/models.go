package reports

import (
	"time"

	"hrengine/internal/domain/compensation"
)

// Dashboard is the operational snapshot: headcounts, department sizes and
// the near-term leave picture.
type Dashboard struct {
	GeneratedAt     time.Time        `json:"generatedAt"`
	HeadcountTotal  int64            `json:"headcountTotal"`
	ByStatus        map[string]int64 `json:"byStatus"`
	ByDepartment    map[string]int64 `json:"byDepartment"`
	RecentHires     int64            `json:"recentHires"`
	PendingRequests int64            `json:"pendingRequests"`
	UpcomingLeave   int64            `json:"upcomingLeave"`
}

// TurnoverRow is one month of hire and termination counts. Terminations
// come from the audit trail, which records the status transition.
type TurnoverRow struct {
	Month        string `json:"month"`
	Hires        int64  `json:"hires"`
	Terminations int64  `json:"terminations"`
}

// OrgNode is one employee in the reporting tree.
type OrgNode struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	Title   string    `json:"title,omitempty"`
	Reports []OrgNode `json:"reports,omitempty"`
}

// DepartmentCompensation pairs a department with its current-salary stats.
type DepartmentCompensation struct {
	Department string             `json:"department"`
	Stats      compensation.Stats `json:"stats"`
}
