package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mulyahr/timesheet-backend/internal/middleware"
	"github.com/mulyahr/timesheet-backend/internal/service"
	"github.com/mulyahr/timesheet-backend/internal/util"
)

// ReportHandler handles reporting HTTP requests
type ReportHandler struct {
	summaryService *service.SummaryService
}

// NewReportHandler creates a new ReportHandler
func NewReportHandler(summaryService *service.SummaryService) *ReportHandler {
	return &ReportHandler{summaryService: summaryService}
}

// MonthlyReport handles GET /api/v1/reports/monthly/:year/:month
func (h *ReportHandler) MonthlyReport(c echo.Context) error {
	monthStart, ok, resp := parseYearMonth(c)
	if !ok {
		return resp
	}

	report, err := h.summaryService.MonthlyReport(c.Request().Context(), monthStart)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, report)
}

// EmployeeMonth handles GET /api/v1/reports/employees/:employeeId/:year/:month
func (h *ReportHandler) EmployeeMonth(c echo.Context) error {
	monthStart, ok, resp := parseYearMonth(c)
	if !ok {
		return resp
	}

	view, err := h.summaryService.EmployeeMonth(c.Request().Context(), c.Param("employeeId"), monthStart)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

// RunMonthEnd handles POST /api/v1/reports/month-end/:year/:month
func (h *ReportHandler) RunMonthEnd(c echo.Context) error {
	actor := middleware.GetEmployeeID(c)
	if actor == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}
	monthStart, ok, resp := parseYearMonth(c)
	if !ok {
		return resp
	}

	n, err := h.summaryService.RecomputeMonthEnd(c.Request().Context(), monthStart, actor)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]int{"recomputed": n})
}

// parseYearMonth reads the :year/:month path params. When they are invalid the
// problem response has already been written and ok is false.
func parseYearMonth(c echo.Context) (monthStart time.Time, ok bool, resp error) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 2000 || year > 2100 {
		return time.Time{}, false, NewValidationError(c, "Invalid year", []ValidationError{
			{Field: "year", Message: "Year must be between 2000 and 2100"},
		})
	}
	monthNum, err := strconv.Atoi(c.Param("month"))
	if err != nil || monthNum < 1 || monthNum > 12 {
		return time.Time{}, false, NewValidationError(c, "Invalid month", []ValidationError{
			{Field: "month", Message: "Month must be between 1 and 12"},
		})
	}
	return util.Date(year, time.Month(monthNum), 1), true, nil
}
