package http

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"hrengine/internal/apperror"
	"hrengine/internal/auth"
	"hrengine/internal/domain/audit"
	"hrengine/internal/domain/compensation"
	"hrengine/internal/domain/directory"
	"hrengine/internal/domain/leave"
	"hrengine/internal/domain/performance"
	"hrengine/internal/domain/reports"
	"hrengine/internal/facade"
	"hrengine/internal/platform/config"
)

const tokenTTL = 12 * time.Hour

type Handler struct {
	Config       config.Config
	Log          *slog.Logger
	Directory    *directory.Service
	Leave        *leave.Service
	Compensation *compensation.Service
	Performance  *performance.Service
	Reports      *reports.Service
	Audit        *audit.Trail
	Facade       *facade.Facade
}

// parseDate accepts RFC3339 or YYYY-MM-DD.
func parseDate(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed, nil
	}
	return time.Parse("2006-01-02", value)
}

func decode(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperror.Validation("malformed request body: %v", err)
	}
	return nil
}

func (h *Handler) HandleToken(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if h.Config.AdminPasswordHash == "" ||
		auth.CheckPassword(h.Config.AdminPasswordHash, req.Password) != nil {
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}
	token, err := auth.GenerateToken(h.Config.JWTSecret,
		auth.Claims{Subject: "ops", Role: auth.RoleAdmin}, tokenTTL)
	if err != nil {
		writeError(w, h.Log, apperror.Internal("issue token", err))
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) HandleAddEmployee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name       string `json:"name"`
		Email      string `json:"email"`
		Phone      string `json:"phone"`
		Department string `json:"department"`
		Position   string `json:"position"`
		HireDate   string `json:"hireDate"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	hireDate, err := parseDate(req.HireDate)
	if err != nil {
		writeError(w, h.Log, apperror.Validation("invalid hire date %q", req.HireDate))
		return
	}

	emp, err := h.Facade.AddEmployee(r.Context(), facade.NewEmployeeByNames{
		Name:       req.Name,
		Email:      req.Email,
		Phone:      req.Phone,
		Department: req.Department,
		Position:   req.Position,
		HireDate:   hireDate,
	}, Actor(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, emp)
}

func (h *Handler) HandleGetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Directory.GetEmployee(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (h *Handler) HandleSearchEmployees(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	hiredFrom, err := parseDate(q.Get("hiredFrom"))
	if err != nil {
		writeError(w, h.Log, apperror.Validation("invalid hiredFrom"))
		return
	}
	hiredTo, err := parseDate(q.Get("hiredTo"))
	if err != nil {
		writeError(w, h.Log, apperror.Validation("invalid hiredTo"))
		return
	}

	filter := directory.SearchFilter{
		DepartmentID: q.Get("departmentId"),
		PositionID:   q.Get("positionId"),
		Status:       q.Get("status"),
		HiredFrom:    hiredFrom,
		HiredTo:      hiredTo,
	}

	employees := make([]directory.Employee, 0, 16)
	for emp, err := range h.Directory.Search(r.Context(), filter) {
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		employees = append(employees, emp)
	}
	writeJSON(w, http.StatusOK, employees)
}

func (h *Handler) HandleUpdateEmployee(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         *string `json:"name"`
		Email        *string `json:"email"`
		Phone        *string `json:"phone"`
		DepartmentID *string `json:"departmentId"`
		PositionID   *string `json:"positionId"`
		ManagerID    *string `json:"managerId"`
		HireDate     *string `json:"hireDate"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}

	upd := directory.EmployeeUpdate{
		Name:         req.Name,
		Email:        req.Email,
		Phone:        req.Phone,
		DepartmentID: req.DepartmentID,
		PositionID:   req.PositionID,
		ManagerID:    req.ManagerID,
	}
	if req.HireDate != nil {
		parsed, err := parseDate(*req.HireDate)
		if err != nil || parsed.IsZero() {
			writeError(w, h.Log, apperror.Validation("invalid hire date %q", *req.HireDate))
			return
		}
		upd.HireDate = &parsed
	}

	emp, err := h.Directory.UpdateEmployee(r.Context(), chi.URLParam(r, "id"), upd, Actor(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, emp)
}

func (h *Handler) HandleTerminateEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.TerminateEmployee(r.Context(), chi.URLParam(r, "id"), Actor(r.Context())); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleReactivateEmployee(w http.ResponseWriter, r *http.Request) {
	if err := h.Directory.ReactivateEmployee(r.Context(), chi.URLParam(r, "id"), Actor(r.Context())); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	id, err := h.Directory.ResolveByName(r.Context(), q.Get("name"), directory.ResolveOptions{
		Department: q.Get("department"),
		Fuzzy:      q.Get("fuzzy") == "true",
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"id": id})
}

func (h *Handler) HandleCreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		ParentID string `json:"parentId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	dep, err := h.Directory.CreateDepartment(r.Context(), req.Name, req.ParentID, Actor(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, dep)
}

func (h *Handler) HandleUpdateDepartment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     *string `json:"name"`
		ParentID *string `json:"parentId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	dep, err := h.Directory.UpdateDepartment(r.Context(), chi.URLParam(r, "id"), directory.DepartmentUpdate{
		Name:     req.Name,
		ParentID: req.ParentID,
	}, Actor(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, dep)
}

func (h *Handler) HandleMergeDepartments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TargetID string `json:"targetId"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	if err := h.Directory.MergeDepartments(r.Context(), chi.URLParam(r, "id"), req.TargetID, Actor(r.Context())); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleCreatePosition(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title     string `json:"title"`
		MinSalary string `json:"minSalary"`
		MaxSalary string `json:"maxSalary"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	parseBound := func(raw string) (*decimal.Decimal, error) {
		if raw == "" {
			return nil, nil
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, apperror.Validation("invalid salary bound %q", raw)
		}
		return &d, nil
	}
	minSalary, err := parseBound(req.MinSalary)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	maxSalary, err := parseBound(req.MaxSalary)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	pos, err := h.Directory.CreatePosition(r.Context(), req.Title, minSalary, maxSalary, Actor(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, pos)
}

func (h *Handler) HandleLeaveBalances(w http.ResponseWriter, r *http.Request) {
	year, _ := strconv.Atoi(r.URL.Query().Get("year"))
	balances, err := h.Leave.Balances(r.Context(), chi.URLParam(r, "id"), year)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, balances)
}

func (h *Handler) HandleSubmitLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID string `json:"employeeId"`
		Type       string `json:"type"`
		StartDate  string `json:"startDate"`
		EndDate    string `json:"endDate"`
		Reason     string `json:"reason"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	start, err := parseDate(req.StartDate)
	if err != nil {
		writeError(w, h.Log, apperror.Validation("invalid start date %q", req.StartDate))
		return
	}
	end, err := parseDate(req.EndDate)
	if err != nil {
		writeError(w, h.Log, apperror.Validation("invalid end date %q", req.EndDate))
		return
	}
	lt, err := h.Leave.TypeByName(r.Context(), req.Type)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}

	created, err := h.Leave.Submit(r.Context(), leave.NewRequest{
		EmployeeID:  req.EmployeeID,
		LeaveTypeID: lt.ID,
		StartDate:   start,
		EndDate:     end,
		Reason:      req.Reason,
	}, Actor(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) HandleApproveLeave(w http.ResponseWriter, r *http.Request) {
	req, err := h.Leave.Approve(r.Context(), chi.URLParam(r, "id"), Actor(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) HandleRejectLeave(w http.ResponseWriter, r *http.Request) {
	req, err := h.Leave.Reject(r.Context(), chi.URLParam(r, "id"), Actor(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) HandleCancelLeave(w http.ResponseWriter, r *http.Request) {
	req, err := h.Leave.Cancel(r.Context(), chi.URLParam(r, "id"), Actor(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

func (h *Handler) HandleListLeaveRequests(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	requests, err := h.Leave.Requests(r.Context(), q.Get("employeeId"), q.Get("status"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, requests)
}

func (h *Handler) HandleUpdateSalary(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Amount        string `json:"amount"`
		Currency      string `json:"currency"`
		EffectiveDate string `json:"effectiveDate"`
		Reason        string `json:"reason"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, h.Log, apperror.Validation("invalid amount %q", req.Amount))
		return
	}
	effective, err := parseDate(req.EffectiveDate)
	if err != nil {
		writeError(w, h.Log, apperror.Validation("invalid effective date %q", req.EffectiveDate))
		return
	}

	rec, err := h.Compensation.UpdateSalary(r.Context(), compensation.NewSalary{
		EmployeeID:    chi.URLParam(r, "id"),
		Amount:        amount,
		Currency:      req.Currency,
		EffectiveDate: effective,
		Reason:        req.Reason,
	}, Actor(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) HandleCurrentSalary(w http.ResponseWriter, r *http.Request) {
	if at := r.URL.Query().Get("at"); at != "" {
		parsed, err := parseDate(at)
		if err != nil {
			writeError(w, h.Log, apperror.Validation("invalid at date %q", at))
			return
		}
		rec, err := h.Compensation.SalaryAsOf(r.Context(), chi.URLParam(r, "id"), parsed)
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, rec)
		return
	}

	rec, err := h.Compensation.CurrentSalary(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) HandleSalaryHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.Compensation.History(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func (h *Handler) HandleCreateReview(w http.ResponseWriter, r *http.Request) {
	var req struct {
		EmployeeID  string `json:"employeeId"`
		ReviewerID  string `json:"reviewerId"`
		PeriodStart string `json:"periodStart"`
		PeriodEnd   string `json:"periodEnd"`
		Rating      *int   `json:"rating"`
		Comments    string `json:"comments"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, h.Log, err)
		return
	}
	start, err := parseDate(req.PeriodStart)
	if err != nil {
		writeError(w, h.Log, apperror.Validation("invalid period start %q", req.PeriodStart))
		return
	}
	end, err := parseDate(req.PeriodEnd)
	if err != nil {
		writeError(w, h.Log, apperror.Validation("invalid period end %q", req.PeriodEnd))
		return
	}

	review, err := h.Performance.CreateReview(r.Context(), performance.NewReview{
		EmployeeID:  req.EmployeeID,
		ReviewerID:  req.ReviewerID,
		PeriodStart: start,
		PeriodEnd:   end,
		Rating:      req.Rating,
		Comments:    req.Comments,
	}, Actor(r.Context()))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

func (h *Handler) HandleListReviews(w http.ResponseWriter, r *http.Request) {
	reviews, err := h.Performance.Reviews(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

func (h *Handler) HandleAuditQuery(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, err := parseDate(q.Get("from"))
	if err != nil {
		writeError(w, h.Log, apperror.Validation("invalid from date"))
		return
	}
	to, err := parseDate(q.Get("to"))
	if err != nil {
		writeError(w, h.Log, apperror.Validation("invalid to date"))
		return
	}

	entries, err := h.Audit.List(r.Context(), audit.Filter{
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		From:       from,
		To:         to,
	})
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.Reports.Dashboard(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (h *Handler) HandleTurnover(w http.ResponseWriter, r *http.Request) {
	months, _ := strconv.Atoi(r.URL.Query().Get("months"))
	rows, err := h.Reports.Turnover(r.Context(), months)
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *Handler) HandleOrgChart(w http.ResponseWriter, r *http.Request) {
	chart, err := h.Reports.OrgChart(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, chart)
}

// HandleCompensationReport returns salary stats for one department or
// position when a filter is given, and a per-department breakdown otherwise.
func (h *Handler) HandleCompensationReport(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if dep, pos := q.Get("department"), q.Get("position"); dep != "" || pos != "" {
		stats, err := h.Compensation.Report(r.Context(), compensation.ReportFilter{
			DepartmentID: dep,
			PositionID:   pos,
		})
		if err != nil {
			writeError(w, h.Log, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
		return
	}
	breakdown, err := h.Reports.CompensationByDepartment(r.Context())
	if err != nil {
		writeError(w, h.Log, err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (h *Handler) HandleCompensationPDF(w http.ResponseWriter, r *http.Request) {
	// Render fully before touching the response so a mid-render failure
	// still produces an error status instead of a truncated 200 body.
	var buf bytes.Buffer
	if err := h.Reports.CompensationPDF(r.Context(), &buf); err != nil {
		writeError(w, h.Log, err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="compensation-report.pdf"`)
	if _, err := w.Write(buf.Bytes()); err != nil && h.Log != nil {
		h.Log.Error("compensation pdf write failed", slog.String("error", err.Error()))
	}
}
