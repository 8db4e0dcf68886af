package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/mulyahr/timesheet-backend/internal/middleware"
	"github.com/mulyahr/timesheet-backend/internal/service"
	"github.com/shopspring/decimal"
)

// TimesheetHandler handles timesheet HTTP requests
type TimesheetHandler struct {
	timesheetService *service.TimesheetService
}

// NewTimesheetHandler creates a new TimesheetHandler
func NewTimesheetHandler(timesheetService *service.TimesheetService) *TimesheetHandler {
	return &TimesheetHandler{timesheetService: timesheetService}
}

// EntryRequest is one entry in a submission
type EntryRequest struct {
	Date        string          `json:"date"`
	Project     string          `json:"project"`
	Hours       decimal.Decimal `json:"hours"`
	Description string          `json:"description"`
}

// EntryPatchRequest is one field-level entry patch
type EntryPatchRequest struct {
	Date        string           `json:"date"`
	Project     *string          `json:"project"`
	Hours       *decimal.Decimal `json:"hours"`
	Description *string          `json:"description"`
}

// SubmitEntriesRequest is the body of POST /timesheets/entries
type SubmitEntriesRequest struct {
	Date       string         `json:"date"`
	Working    []EntryRequest `json:"workingEntries"`
	NonWorking []EntryRequest `json:"nonWorkingEntries"`
	Notes      string         `json:"notes"`
}

// MergeEntriesRequest is the body of PATCH /timesheets/:id/entries
type MergeEntriesRequest struct {
	Working    []EntryPatchRequest `json:"workingEntries"`
	NonWorking []EntryPatchRequest `json:"nonWorkingEntries"`
}

// ApproveRequest is the body of POST /timesheets/:id/approve
type ApproveRequest struct {
	OTP string `json:"otp"`
}

// RejectRequest is the body of POST /timesheets/:id/reject
type RejectRequest struct {
	Reason string `json:"reason"`
}

// MonthActionRequest is the body of the bulk month operations
type MonthActionRequest struct {
	EmployeeID string `json:"employeeId"`
	Month      string `json:"month"` // first day of the month, e.g. 2024-06-01
	Reason     string `json:"reason,omitempty"`
}

// EntryResponse is one entry in API responses
type EntryResponse struct {
	Date        string `json:"date"`
	Project     string `json:"project,omitempty"`
	Hours       string `json:"hours"`
	Description string `json:"description,omitempty"`
}

// TimesheetResponse represents a timesheet in API responses
type TimesheetResponse struct {
	TimesheetID     string          `json:"timesheetId"`
	EmployeeID      string          `json:"employeeId"`
	RecordKind      string          `json:"recordKind"`
	WeekStart       string          `json:"weekStart"`
	WeekEnd         string          `json:"weekEnd"`
	EmploymentType  string          `json:"employmentType"`
	Working         []EntryResponse `json:"workingEntries"`
	NonWorking      []EntryResponse `json:"nonWorkingEntries"`
	Percentage      float64         `json:"percentageOfTarget"`
	Status          string          `json:"status"`
	ApprovedBy      string          `json:"approvedBy,omitempty"`
	ApprovedAt      string          `json:"approvedAt,omitempty"`
	RejectionReason string          `json:"rejectionReason,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       string          `json:"createdAt"`
	UpdatedAt       string          `json:"updatedAt"`
}

// SubmitEntries handles POST /api/v1/timesheets/entries
func (h *TimesheetHandler) SubmitEntries(c echo.Context) error {
	employeeID := middleware.GetEmployeeID(c)
	if employeeID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req SubmitEntriesRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var v domain.ValidationErrors
	date, ok := parseDate(&v, "date", req.Date)
	working := parseEntries(&v, "workingEntries", req.Working)
	nonWorking := parseEntries(&v, "nonWorkingEntries", req.NonWorking)
	if !ok || v.HasErrors() {
		return respondDomainError(c, &v)
	}

	ts, err := h.timesheetService.SubmitEntries(c.Request().Context(), employeeID, service.SubmitRequest{
		Date:       date,
		Working:    working,
		NonWorking: nonWorking,
		Notes:      req.Notes,
	})
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toTimesheetResponse(ts))
}

// MergeEntries handles PATCH /api/v1/timesheets/:id/entries
func (h *TimesheetHandler) MergeEntries(c echo.Context) error {
	employeeID := middleware.GetEmployeeID(c)
	if employeeID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req MergeEntriesRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var v domain.ValidationErrors
	working := parsePatches(&v, "workingEntries", req.Working)
	nonWorking := parsePatches(&v, "nonWorkingEntries", req.NonWorking)
	if v.HasErrors() {
		return respondDomainError(c, &v)
	}

	ts, err := h.timesheetService.MergeEntryFields(c.Request().Context(), c.Param("id"), employeeID, working, nonWorking)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toTimesheetResponse(ts))
}

// Submit handles POST /api/v1/timesheets/:id/submit
func (h *TimesheetHandler) Submit(c echo.Context) error {
	employeeID := middleware.GetEmployeeID(c)
	if employeeID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	ts, err := h.timesheetService.SubmitForApproval(c.Request().Context(), c.Param("id"), employeeID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toTimesheetResponse(ts))
}

// Approve handles POST /api/v1/timesheets/:id/approve
func (h *TimesheetHandler) Approve(c echo.Context) error {
	approverID := middleware.GetEmployeeID(c)
	if approverID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req ApproveRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	ts, err := h.timesheetService.Approve(c.Request().Context(), c.Param("id"), approverID, req.OTP)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toTimesheetResponse(ts))
}

// Reject handles POST /api/v1/timesheets/:id/reject
func (h *TimesheetHandler) Reject(c echo.Context) error {
	approverID := middleware.GetEmployeeID(c)
	if approverID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req RejectRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	ts, err := h.timesheetService.Reject(c.Request().Context(), c.Param("id"), approverID, req.Reason)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toTimesheetResponse(ts))
}

// GetByID handles GET /api/v1/timesheets/:id
func (h *TimesheetHandler) GetByID(c echo.Context) error {
	ts, err := h.timesheetService.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toTimesheetResponse(ts))
}

// List handles GET /api/v1/timesheets. Without a status filter it lists the
// caller's own records; with one it lists the approval queue.
func (h *TimesheetHandler) List(c echo.Context) error {
	employeeID := middleware.GetEmployeeID(c)
	if employeeID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var (
		records []*domain.Timesheet
		err     error
	)
	if statusParam := c.QueryParam("status"); statusParam != "" {
		status, perr := domain.ParseStatus(statusParam)
		if perr != nil {
			return NewValidationError(c, "Invalid status", []ValidationError{
				{Field: "status", Message: perr.Error()},
			})
		}
		records, err = h.timesheetService.ListByStatus(c.Request().Context(), status)
	} else {
		records, err = h.timesheetService.ListByEmployee(c.Request().Context(), employeeID)
	}
	if err != nil {
		return respondDomainError(c, err)
	}

	response := make([]TimesheetResponse, len(records))
	for i, ts := range records {
		response[i] = toTimesheetResponse(ts)
	}
	return c.JSON(http.StatusOK, response)
}

// SubmitMonth handles POST /api/v1/timesheets/month/submit
func (h *TimesheetHandler) SubmitMonth(c echo.Context) error {
	employeeID := middleware.GetEmployeeID(c)
	if employeeID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req MonthActionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	var v domain.ValidationErrors
	monthStart, ok := parseDate(&v, "month", req.Month)
	if !ok {
		return respondDomainError(c, &v)
	}

	records, err := h.timesheetService.SubmitMonth(c.Request().Context(), employeeID, monthStart)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toTimesheetResponses(records))
}

// ApproveMonth handles POST /api/v1/timesheets/month/approve
func (h *TimesheetHandler) ApproveMonth(c echo.Context) error {
	approverID := middleware.GetEmployeeID(c)
	if approverID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req MonthActionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	var v domain.ValidationErrors
	monthStart, ok := parseDate(&v, "month", req.Month)
	if !ok {
		return respondDomainError(c, &v)
	}
	if monthStart.Day() != 1 {
		v.Add("month", "must be the first day of the month")
		return respondDomainError(c, &v)
	}
	monthEnd := monthStart.AddDate(0, 1, -1)

	records, err := h.timesheetService.ApproveMonth(c.Request().Context(), req.EmployeeID, monthStart, monthEnd, approverID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toTimesheetResponses(records))
}

// RejectMonth handles POST /api/v1/timesheets/month/reject
func (h *TimesheetHandler) RejectMonth(c echo.Context) error {
	approverID := middleware.GetEmployeeID(c)
	if approverID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req MonthActionRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}
	var v domain.ValidationErrors
	monthStart, ok := parseDate(&v, "month", req.Month)
	if !ok {
		return respondDomainError(c, &v)
	}
	if monthStart.Day() != 1 {
		v.Add("month", "must be the first day of the month")
		return respondDomainError(c, &v)
	}
	monthEnd := monthStart.AddDate(0, 1, -1)

	records, err := h.timesheetService.RejectMonth(c.Request().Context(), req.EmployeeID, monthStart, monthEnd, approverID, req.Reason)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toTimesheetResponses(records))
}

func parseDate(v *domain.ValidationErrors, field, value string) (time.Time, bool) {
	if value == "" {
		v.Add(field, "is required")
		return time.Time{}, false
	}
	d, err := time.ParseInLocation(domain.DateLayout, value, time.UTC)
	if err != nil {
		v.Add(field, "must be a date in the form %s", domain.DateLayout)
		return time.Time{}, false
	}
	return d, true
}

func parseEntries(v *domain.ValidationErrors, field string, entries []EntryRequest) []domain.Entry {
	out := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		d, ok := parseDate(v, field, e.Date)
		if !ok {
			continue
		}
		out = append(out, domain.Entry{
			Date:        d,
			Project:     e.Project,
			Hours:       e.Hours,
			Description: e.Description,
		})
	}
	return out
}

func parsePatches(v *domain.ValidationErrors, field string, patches []EntryPatchRequest) []domain.EntryPatch {
	out := make([]domain.EntryPatch, 0, len(patches))
	for _, p := range patches {
		d, ok := parseDate(v, field, p.Date)
		if !ok {
			continue
		}
		out = append(out, domain.EntryPatch{
			Date:        d,
			Project:     p.Project,
			Hours:       p.Hours,
			Description: p.Description,
		})
	}
	return out
}

func toEntryResponses(entries domain.EntryList) []EntryResponse {
	out := make([]EntryResponse, len(entries))
	for i, e := range entries {
		out[i] = EntryResponse{
			Date:        e.Date.Format(domain.DateLayout),
			Project:     e.Project,
			Hours:       e.Hours.StringFixed(2),
			Description: e.Description,
		}
	}
	return out
}

func toTimesheetResponse(ts *domain.Timesheet) TimesheetResponse {
	resp := TimesheetResponse{
		TimesheetID:     ts.ID,
		EmployeeID:      ts.EmployeeID,
		RecordKind:      string(ts.Kind),
		WeekStart:       ts.WeekStart.Format(domain.DateLayout),
		WeekEnd:         ts.WeekEnd.Format(domain.DateLayout),
		EmploymentType:  ts.EmploymentType,
		Working:         toEntryResponses(ts.Working),
		NonWorking:      toEntryResponses(ts.NonWorking),
		Percentage:      ts.Percentage,
		Status:          string(ts.Status),
		ApprovedBy:      ts.ApprovedBy,
		RejectionReason: ts.RejectionReason,
		Notes:           ts.Notes,
		CreatedAt:       ts.CreatedAt.Format(time.RFC3339),
		UpdatedAt:       ts.UpdatedAt.Format(time.RFC3339),
	}
	if ts.ApprovedAt != nil {
		resp.ApprovedAt = ts.ApprovedAt.Format(time.RFC3339)
	}
	return resp
}

func toTimesheetResponses(records []*domain.Timesheet) []TimesheetResponse {
	out := make([]TimesheetResponse, len(records))
	for i, ts := range records {
		out[i] = toTimesheetResponse(ts)
	}
	return out
}
