package domain

import (
	"context"
	"strings"
	"time"
)

// ApproverRole is the directory role whose members may approve timesheets.
const ApproverRole = "ACCOUNTS"

// FullTimeEmploymentType is the placement employment type that carries full
// paid-leave entitlement. Matching is case-insensitive.
const FullTimeEmploymentType = "Full-time"

// Employee is the slice of directory data this service consumes.
type Employee struct {
	ID    string `json:"userId"`
	Name  string `json:"userName"`
	Role  string `json:"role"`
	Email string `json:"email"`
}

// Placement is the slice of placement-service data this service consumes.
type Placement struct {
	EmploymentType string    `json:"employeeType"`
	WorkingCadence string    `json:"employeeWorkingType"`
	StartDate      time.Time `json:"startDate"`
	ClientName     string    `json:"clientName"`
}

// Classification is the employment profile derived from an employee's first
// placement. When no placement can be resolved the zero-value defaults apply:
// weekly cadence and unknown (not fully entitled) employment type.
type Classification struct {
	Cadence        RecordKind
	EmploymentType string
	JoiningDate    time.Time
	ClientName     string
}

// DefaultClassification is the degraded profile used when the placement
// lookup fails or returns nothing. The submission proceeds on it.
func DefaultClassification() Classification {
	return Classification{Cadence: RecordWeekly, EmploymentType: "Unknown"}
}

// FullTime reports whether the employment type carries full paid-leave
// entitlement, which also controls whether leave hours count toward the
// utilization target.
func (c Classification) FullTime() bool {
	return IsFullTimeType(c.EmploymentType)
}

// IsFullTimeType reports whether an employment type string denotes full
// entitlement.
func IsFullTimeType(employmentType string) bool {
	return strings.EqualFold(employmentType, FullTimeEmploymentType)
}

// ClassificationFromPlacements derives the employment profile from the first
// placement, matching the upstream system's behavior of trusting placement
// order.
func ClassificationFromPlacements(placements []Placement) Classification {
	if len(placements) == 0 {
		return DefaultClassification()
	}
	p := placements[0]
	c := Classification{
		Cadence:        RecordWeekly,
		EmploymentType: p.EmploymentType,
		JoiningDate:    p.StartDate,
		ClientName:     p.ClientName,
	}
	if strings.EqualFold(p.WorkingCadence, string(RecordDaily)) {
		c.Cadence = RecordDaily
	}
	if c.EmploymentType == "" {
		c.EmploymentType = "Unknown"
	}
	return c
}

// DirectoryClient resolves employee identity and role data from the upstream
// directory service. Implementations must be timeout-bounded; callers treat
// failures as recoverable wherever degraded operation is acceptable.
type DirectoryClient interface {
	GetEmployeeByID(ctx context.Context, id string) (*Employee, error)
	GetEmployeesByRole(ctx context.Context, role string) ([]Employee, error)
	GetEmployeeEmail(ctx context.Context, id string) (string, error)
}

// PlacementClient resolves placement data from the upstream placement service.
type PlacementClient interface {
	GetPlacementsByEmail(ctx context.Context, email string) ([]Placement, error)
}

// Notifier delivers workflow notifications. Message formatting and transport
// live outside this core; the default implementation only logs.
type Notifier interface {
	ApprovalRequested(ctx context.Context, ts *Timesheet, approverEmail, approverName, employeeName, otp string)
	TimesheetApproved(ctx context.Context, email, employeeName string, weekStart, weekEnd time.Time)
	TimesheetRejected(ctx context.Context, email, employeeName string, weekStart, weekEnd time.Time, reason string)
	MonthApproved(ctx context.Context, email, employeeName string, monthStart, monthEnd time.Time)
	MonthRejected(ctx context.Context, email, employeeName string, monthStart, monthEnd time.Time, reason string)
}
