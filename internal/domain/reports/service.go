package reports

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"hrengine/internal/db"
	"hrengine/internal/domain/compensation"
	"hrengine/internal/platform/metrics"
)

// Service produces read-only aggregations over the directory and the
// ledgers. Nothing here mutates state or writes audit entries.
type Service struct {
	DB           db.Pool
	Store        *Store
	Compensation *compensation.Store
	Log          *slog.Logger
	Metrics      *metrics.Metrics
}

func NewService(pool db.Pool, log *slog.Logger, m *metrics.Metrics) *Service {
	return &Service{
		DB:           pool,
		Store:        &Store{},
		Compensation: &compensation.Store{},
		Log:          log,
		Metrics:      m,
	}
}

const (
	recentHireWindow    = 90 * 24 * time.Hour
	upcomingLeaveWindow = 30 * 24 * time.Hour
)

func (s *Service) Dashboard(ctx context.Context) (Dashboard, error) {
	start := time.Now()
	dash, err := s.dashboard(ctx)
	s.Metrics.ObserveOp("dashboard", start, err)
	return dash, err
}

func (s *Service) dashboard(ctx context.Context) (Dashboard, error) {
	now := time.Now().UTC()
	dash := Dashboard{GeneratedAt: now}

	byStatus, err := s.Store.CountByStatus(ctx, s.DB)
	if err != nil {
		return Dashboard{}, err
	}
	dash.ByStatus = byStatus
	for _, n := range byStatus {
		dash.HeadcountTotal += n
	}

	if dash.ByDepartment, err = s.Store.ActiveByDepartment(ctx, s.DB); err != nil {
		return Dashboard{}, err
	}
	if dash.RecentHires, err = s.Store.HiresSince(ctx, s.DB, now.Add(-recentHireWindow)); err != nil {
		return Dashboard{}, err
	}
	if dash.PendingRequests, err = s.Store.PendingLeaveRequests(ctx, s.DB); err != nil {
		return Dashboard{}, err
	}
	if dash.UpcomingLeave, err = s.Store.ApprovedLeaveStarting(ctx, s.DB, now, now.Add(upcomingLeaveWindow)); err != nil {
		return Dashboard{}, err
	}
	return dash, nil
}

// Turnover reports hires and terminations per calendar month for the last
// `months` months, oldest first.
func (s *Service) Turnover(ctx context.Context, months int) ([]TurnoverRow, error) {
	if months <= 0 {
		months = 12
	}
	now := time.Now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -(months - 1), 0)

	hires, err := s.Store.MonthlyHires(ctx, s.DB, from, now)
	if err != nil {
		return nil, err
	}
	terms, err := s.Store.MonthlyTerminations(ctx, s.DB, from, now)
	if err != nil {
		return nil, err
	}

	out := make([]TurnoverRow, 0, months)
	for i := 0; i < months; i++ {
		month := from.AddDate(0, i, 0).Format("2006-01")
		out = append(out, TurnoverRow{
			Month:        month,
			Hires:        hires[month],
			Terminations: terms[month],
		})
	}
	return out, nil
}

// OrgChart builds the reporting tree over active employees. Employees
// whose manager is inactive or unset become roots.
func (s *Service) OrgChart(ctx context.Context) ([]OrgNode, error) {
	rows, err := s.Store.OrgRows(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	active := make(map[string]bool, len(rows))
	for _, r := range rows {
		active[r.id] = true
	}

	children := make(map[string][]orgRow)
	var roots []orgRow
	for _, r := range rows {
		if r.managerID == "" || !active[r.managerID] {
			roots = append(roots, r)
			continue
		}
		children[r.managerID] = append(children[r.managerID], r)
	}

	var build func(r orgRow) OrgNode
	build = func(r orgRow) OrgNode {
		node := OrgNode{ID: r.id, Name: r.name, Title: r.title}
		for _, child := range children[r.id] {
			node.Reports = append(node.Reports, build(child))
		}
		return node
	}

	out := make([]OrgNode, 0, len(roots))
	for _, r := range roots {
		out = append(out, build(r))
	}
	return out, nil
}

// CompensationByDepartment aggregates current salaries per department,
// sorted by department name.
func (s *Service) CompensationByDepartment(ctx context.Context) ([]DepartmentCompensation, error) {
	departments, err := s.Store.DepartmentNames(ctx, s.DB)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	out := make([]DepartmentCompensation, 0, len(departments))
	for id, name := range departments {
		stats, err := s.Compensation.Aggregate(ctx, s.DB, compensation.ReportFilter{DepartmentID: id}, now)
		if err != nil {
			return nil, fmt.Errorf("aggregate department %s: %w", name, err)
		}
		out = append(out, DepartmentCompensation{Department: name, Stats: stats})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Department < out[j].Department })
	return out, nil
}
