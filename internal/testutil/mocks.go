package testutil

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/mulyahr/timesheet-backend/internal/domain"
	"github.com/mulyahr/timesheet-backend/internal/websocket"
)

// MockTimesheetRepo is a map-backed implementation of
// domain.TimesheetRepository with version-checked updates, so service tests
// exercise the same conflict behavior as the real store.
type MockTimesheetRepo struct {
	Records  map[string]*domain.Timesheet
	Seq      int
	UpdateFn func(ctx context.Context, ts *domain.Timesheet) error
}

// NewMockTimesheetRepo creates a new MockTimesheetRepo
func NewMockTimesheetRepo() *MockTimesheetRepo {
	return &MockTimesheetRepo{Records: make(map[string]*domain.Timesheet)}
}

// Add seeds a record (helper for tests)
func (m *MockTimesheetRepo) Add(ts *domain.Timesheet) {
	cp := *ts
	m.Records[ts.ID] = &cp
}

// Create inserts a new record
func (m *MockTimesheetRepo) Create(ctx context.Context, ts *domain.Timesheet) error {
	for _, existing := range m.Records {
		if existing.EmployeeID == ts.EmployeeID && existing.WeekStart.Equal(ts.WeekStart) {
			return fmt.Errorf("%w: timesheet for employee %s week %s",
				domain.ErrAlreadyExists, ts.EmployeeID, ts.WeekStart.Format(domain.DateLayout))
		}
	}
	ts.Version = 1
	ts.CreatedAt = time.Now().UTC()
	ts.UpdatedAt = ts.CreatedAt
	cp := *ts
	m.Records[ts.ID] = &cp
	return nil
}

// Update rewrites a record, enforcing optimistic concurrency
func (m *MockTimesheetRepo) Update(ctx context.Context, ts *domain.Timesheet) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, ts)
	}
	existing, ok := m.Records[ts.ID]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrTimesheetNotFound, ts.ID)
	}
	if existing.Version != ts.Version {
		return fmt.Errorf("%w: timesheet %s", domain.ErrConflict, ts.ID)
	}
	ts.Version++
	ts.UpdatedAt = time.Now().UTC()
	cp := *ts
	m.Records[ts.ID] = &cp
	return nil
}

// GetByID retrieves a record by ID
func (m *MockTimesheetRepo) GetByID(ctx context.Context, id string) (*domain.Timesheet, error) {
	if ts, ok := m.Records[id]; ok {
		cp := *ts
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrTimesheetNotFound, id)
}

// GetByEmployeeWeek retrieves the record for an employee and week start
func (m *MockTimesheetRepo) GetByEmployeeWeek(ctx context.Context, employeeID string, weekStart time.Time) (*domain.Timesheet, error) {
	for _, ts := range m.Records {
		if ts.EmployeeID == employeeID && ts.WeekStart.Equal(weekStart) {
			cp := *ts
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("%w: employee %s week %s",
		domain.ErrTimesheetNotFound, employeeID, weekStart.Format(domain.DateLayout))
}

// ListByEmployee returns all of an employee's records
func (m *MockTimesheetRepo) ListByEmployee(ctx context.Context, employeeID string) ([]*domain.Timesheet, error) {
	var out []*domain.Timesheet
	for _, ts := range m.Records {
		if ts.EmployeeID == employeeID {
			cp := *ts
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListByStatus returns all records in a status
func (m *MockTimesheetRepo) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Timesheet, error) {
	var out []*domain.Timesheet
	for _, ts := range m.Records {
		if ts.Status == status {
			cp := *ts
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListOverlappingMonth returns an employee's records intersecting the month
func (m *MockTimesheetRepo) ListOverlappingMonth(ctx context.Context, employeeID string, monthStart, monthEnd time.Time) ([]*domain.Timesheet, error) {
	var out []*domain.Timesheet
	for _, ts := range m.Records {
		if ts.EmployeeID == employeeID && !ts.WeekStart.After(monthEnd) && !ts.WeekEnd.Before(monthStart) {
			cp := *ts
			out = append(out, &cp)
		}
	}
	return out, nil
}

// ListByWeekStartBetween returns every record whose week starts inside [from, to]
func (m *MockTimesheetRepo) ListByWeekStartBetween(ctx context.Context, from, to time.Time) ([]*domain.Timesheet, error) {
	var out []*domain.Timesheet
	for _, ts := range m.Records {
		if !ts.WeekStart.Before(from) && !ts.WeekStart.After(to) {
			cp := *ts
			out = append(out, &cp)
		}
	}
	return out, nil
}

// NextSequence returns the next timesheet identifier sequence value
func (m *MockTimesheetRepo) NextSequence(ctx context.Context) (int, error) {
	m.Seq++
	return m.Seq, nil
}

// MockLeaveRepo is a map-backed implementation of domain.LeaveBalanceRepository
type MockLeaveRepo struct {
	Balances map[string]*domain.LeaveBalance
	SaveFn   func(ctx context.Context, balance *domain.LeaveBalance) error
}

// NewMockLeaveRepo creates a new MockLeaveRepo
func NewMockLeaveRepo() *MockLeaveRepo {
	return &MockLeaveRepo{Balances: make(map[string]*domain.LeaveBalance)}
}

// Get returns the ledger row for one employee
func (m *MockLeaveRepo) Get(ctx context.Context, employeeID string) (*domain.LeaveBalance, error) {
	if b, ok := m.Balances[employeeID]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: employee %s", domain.ErrLeaveBalanceNotFound, employeeID)
}

// ListByEmployeeIDs returns ledger rows for the given employees
func (m *MockLeaveRepo) ListByEmployeeIDs(ctx context.Context, employeeIDs []string) ([]*domain.LeaveBalance, error) {
	var out []*domain.LeaveBalance
	for _, id := range employeeIDs {
		if b, ok := m.Balances[id]; ok {
			cp := *b
			out = append(out, &cp)
		}
	}
	return out, nil
}

// Save upserts the ledger row
func (m *MockLeaveRepo) Save(ctx context.Context, balance *domain.LeaveBalance) error {
	if m.SaveFn != nil {
		return m.SaveFn(ctx, balance)
	}
	cp := *balance
	m.Balances[balance.EmployeeID] = &cp
	return nil
}

// MockCarryForwardRepo is a map-backed implementation of domain.CarryForwardRepository
type MockCarryForwardRepo struct {
	Snapshots map[string]*domain.CarryForwardSnapshot
}

// NewMockCarryForwardRepo creates a new MockCarryForwardRepo
func NewMockCarryForwardRepo() *MockCarryForwardRepo {
	return &MockCarryForwardRepo{Snapshots: make(map[string]*domain.CarryForwardSnapshot)}
}

// Get returns the employee's snapshot
func (m *MockCarryForwardRepo) Get(ctx context.Context, employeeID string) (*domain.CarryForwardSnapshot, error) {
	if s, ok := m.Snapshots[employeeID]; ok {
		cp := *s
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: carry-forward for employee %s", domain.ErrNotFound, employeeID)
}

// Save upserts the snapshot row
func (m *MockCarryForwardRepo) Save(ctx context.Context, snapshot *domain.CarryForwardSnapshot) error {
	cp := *snapshot
	m.Snapshots[snapshot.EmployeeID] = &cp
	return nil
}

// MockAttachmentRepo is a map-backed implementation of domain.AttachmentRepository
type MockAttachmentRepo struct {
	Attachments map[uuid.UUID]*domain.Attachment
}

// NewMockAttachmentRepo creates a new MockAttachmentRepo
func NewMockAttachmentRepo() *MockAttachmentRepo {
	return &MockAttachmentRepo{Attachments: make(map[uuid.UUID]*domain.Attachment)}
}

// Create inserts an attachment row
func (m *MockAttachmentRepo) Create(ctx context.Context, att *domain.Attachment) error {
	cp := *att
	m.Attachments[att.ID] = &cp
	return nil
}

// GetByID returns one attachment
func (m *MockAttachmentRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Attachment, error) {
	if att, ok := m.Attachments[id]; ok {
		cp := *att
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: attachment %s", domain.ErrNotFound, id)
}

// ListByTimesheet returns a record's attachments
func (m *MockAttachmentRepo) ListByTimesheet(ctx context.Context, timesheetID string) ([]*domain.Attachment, error) {
	var out []*domain.Attachment
	for _, att := range m.Attachments {
		if att.TimesheetID == timesheetID {
			cp := *att
			out = append(out, &cp)
		}
	}
	return out, nil
}

// MockAttachmentStore is an in-memory implementation of domain.AttachmentStore
type MockAttachmentStore struct {
	Objects      map[string][]byte
	ContentTypes map[string]string
}

// NewMockAttachmentStore creates a new MockAttachmentStore
func NewMockAttachmentStore() *MockAttachmentStore {
	return &MockAttachmentStore{
		Objects:      make(map[string][]byte),
		ContentTypes: make(map[string]string),
	}
}

// Put stores an object
func (m *MockAttachmentStore) Put(ctx context.Context, key, contentType string, body []byte) error {
	m.Objects[key] = body
	m.ContentTypes[key] = contentType
	return nil
}

// Get fetches an object
func (m *MockAttachmentStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	body, ok := m.Objects[key]
	if !ok {
		return nil, "", fmt.Errorf("%w: object %s", domain.ErrNotFound, key)
	}
	return body, m.ContentTypes[key], nil
}

// MockDirectoryClient is a map-backed implementation of domain.DirectoryClient
type MockDirectoryClient struct {
	Employees map[string]*domain.Employee
	Err       error
}

// NewMockDirectoryClient creates a new MockDirectoryClient
func NewMockDirectoryClient() *MockDirectoryClient {
	return &MockDirectoryClient{Employees: make(map[string]*domain.Employee)}
}

// Add seeds an employee (helper for tests)
func (m *MockDirectoryClient) Add(emp domain.Employee) {
	m.Employees[emp.ID] = &emp
}

// GetEmployeeByID retrieves one employee
func (m *MockDirectoryClient) GetEmployeeByID(ctx context.Context, id string) (*domain.Employee, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if emp, ok := m.Employees[id]; ok {
		cp := *emp
		return &cp, nil
	}
	return nil, fmt.Errorf("%w: %s", domain.ErrEmployeeNotFound, id)
}

// GetEmployeesByRole retrieves employees holding a role
func (m *MockDirectoryClient) GetEmployeesByRole(ctx context.Context, role string) ([]domain.Employee, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	var out []domain.Employee
	for _, emp := range m.Employees {
		if emp.Role == role {
			out = append(out, *emp)
		}
	}
	return out, nil
}

// GetEmployeeEmail resolves an employee's email
func (m *MockDirectoryClient) GetEmployeeEmail(ctx context.Context, id string) (string, error) {
	emp, err := m.GetEmployeeByID(ctx, id)
	if err != nil {
		return "", err
	}
	return emp.Email, nil
}

// MockPlacementClient is a map-backed implementation of domain.PlacementClient
// keyed by employee email
type MockPlacementClient struct {
	Placements map[string][]domain.Placement
	Err        error
}

// NewMockPlacementClient creates a new MockPlacementClient
func NewMockPlacementClient() *MockPlacementClient {
	return &MockPlacementClient{Placements: make(map[string][]domain.Placement)}
}

// GetPlacementsByEmail retrieves an employee's placements
func (m *MockPlacementClient) GetPlacementsByEmail(ctx context.Context, email string) ([]domain.Placement, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Placements[email], nil
}

// MockNotifier records workflow notifications for assertions
type MockNotifier struct {
	mu                sync.Mutex
	ApprovalRequests  []string
	Approved          []string
	Rejected          []string
	MonthApprovals    []string
	MonthRejections   []string
	LastOTP           string
	LastRejectionNote string
}

// NewMockNotifier creates a new MockNotifier
func NewMockNotifier() *MockNotifier { return &MockNotifier{} }

func (m *MockNotifier) ApprovalRequested(ctx context.Context, ts *domain.Timesheet, approverEmail, approverName, employeeName, otp string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ApprovalRequests = append(m.ApprovalRequests, ts.ID)
	m.LastOTP = otp
}

func (m *MockNotifier) TimesheetApproved(ctx context.Context, email, employeeName string, weekStart, weekEnd time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Approved = append(m.Approved, email)
}

func (m *MockNotifier) TimesheetRejected(ctx context.Context, email, employeeName string, weekStart, weekEnd time.Time, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Rejected = append(m.Rejected, email)
	m.LastRejectionNote = reason
}

func (m *MockNotifier) MonthApproved(ctx context.Context, email, employeeName string, monthStart, monthEnd time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MonthApprovals = append(m.MonthApprovals, email)
}

func (m *MockNotifier) MonthRejected(ctx context.Context, email, employeeName string, monthStart, monthEnd time.Time, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MonthRejections = append(m.MonthRejections, email)
	m.LastRejectionNote = reason
}

// MockTransactor runs the function directly without a database
type MockTransactor struct{}

// InTx runs fn with the given context
func (MockTransactor) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// CapturingPublisher records published WebSocket events
type CapturingPublisher struct {
	mu     sync.Mutex
	Events []websocket.Event
}

// Publish records the event
func (p *CapturingPublisher) Publish(employeeID string, event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
}

// Types records the published event types in order
func (p *CapturingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.Events))
	for i, e := range p.Events {
		out[i] = e.Type
	}
	return out
}
