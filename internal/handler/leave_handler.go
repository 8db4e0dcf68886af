package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/mulyahr/timesheet-backend/internal/middleware"
	"github.com/mulyahr/timesheet-backend/internal/service"
)

// LeaveHandler handles leave ledger HTTP requests
type LeaveHandler struct {
	leaveService *service.LeaveService
}

// NewLeaveHandler creates a new LeaveHandler
func NewLeaveHandler(leaveService *service.LeaveService) *LeaveHandler {
	return &LeaveHandler{leaveService: leaveService}
}

// InitializeLeaveRequest is the body of POST /leave/initialize
type InitializeLeaveRequest struct {
	EmployeeID     string `json:"employeeId"`
	EmployeeName   string `json:"employeeName"`
	EmploymentType string `json:"employmentType"`
	JoiningDate    string `json:"joiningDate"`
}

// LeaveBalanceResponse represents a leave ledger row in API responses
type LeaveBalanceResponse struct {
	EmployeeID      string `json:"employeeId"`
	EmployeeName    string `json:"employeeName,omitempty"`
	AvailableLeaves int    `json:"availableLeaves"`
	TakenLeaves     int    `json:"takenLeaves"`
	Balance         int    `json:"balance"`
	Entitled        bool   `json:"entitled"`
	UpdatedBy       string `json:"updatedBy,omitempty"`
	UpdatedAt       string `json:"updatedAt"`
}

// GetOwnBalance handles GET /api/v1/leave/balance
func (h *LeaveHandler) GetOwnBalance(c echo.Context) error {
	employeeID := middleware.GetEmployeeID(c)
	if employeeID == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}
	return h.respondBalance(c, employeeID)
}

// GetBalance handles GET /api/v1/leave/balance/:employeeId
func (h *LeaveHandler) GetBalance(c echo.Context) error {
	return h.respondBalance(c, c.Param("employeeId"))
}

func (h *LeaveHandler) respondBalance(c echo.Context, employeeID string) error {
	balance, err := h.leaveService.Balance(c.Request().Context(), employeeID)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toLeaveBalanceResponse(balance))
}

// Initialize handles POST /api/v1/leave/initialize
func (h *LeaveHandler) Initialize(c echo.Context) error {
	actor := middleware.GetEmployeeID(c)
	if actor == "" {
		return NewUnauthorizedError(c, "Authentication required")
	}

	var req InitializeLeaveRequest
	if err := c.Bind(&req); err != nil {
		return NewValidationError(c, "Invalid request body", nil)
	}

	var v domain.ValidationErrors
	if req.EmployeeID == "" {
		v.Add("employeeId", "is required")
	}
	joiningDate, ok := parseDate(&v, "joiningDate", req.JoiningDate)
	if !ok || v.HasErrors() {
		return respondDomainError(c, &v)
	}

	balance, err := h.leaveService.Initialize(c.Request().Context(), req.EmployeeID, req.EmployeeName, req.EmploymentType, joiningDate, actor)
	if err != nil {
		return respondDomainError(c, err)
	}
	return c.JSON(http.StatusOK, toLeaveBalanceResponse(balance))
}

func toLeaveBalanceResponse(b *domain.LeaveBalance) LeaveBalanceResponse {
	return LeaveBalanceResponse{
		EmployeeID:      b.EmployeeID,
		EmployeeName:    b.EmployeeName,
		AvailableLeaves: b.Available,
		TakenLeaves:     b.Taken,
		Balance:         b.Balance(),
		Entitled:        b.Entitled(),
		UpdatedBy:       b.UpdatedBy,
		UpdatedAt:       b.UpdatedAt.Format(time.RFC3339),
	}
}
