package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/mulyahr/timesheet-backend/internal/domain"
)

const defaultClientTimeout = 5 * time.Second

// DirectoryClient talks to the employee directory service over HTTP.
type DirectoryClient struct {
	baseURL string
	http    *http.Client
}

// NewDirectoryClient creates a directory client with a bounded timeout.
func NewDirectoryClient(baseURL string) *DirectoryClient {
	return &DirectoryClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultClientTimeout},
	}
}

// GetEmployeeByID fetches one employee record.
func (c *DirectoryClient) GetEmployeeByID(ctx context.Context, id string) (*domain.Employee, error) {
	var emp domain.Employee
	err := c.getJSON(ctx, fmt.Sprintf("%s/api/users/%s", c.baseURL, url.PathEscape(id)),
		fmt.Errorf("%w: %s", domain.ErrEmployeeNotFound, id), &emp)
	if err != nil {
		return nil, err
	}
	return &emp, nil
}

// GetEmployeesByRole fetches every employee holding a directory role.
func (c *DirectoryClient) GetEmployeesByRole(ctx context.Context, role string) ([]domain.Employee, error) {
	var emps []domain.Employee
	err := c.getJSON(ctx, fmt.Sprintf("%s/api/users?role=%s", c.baseURL, url.QueryEscape(role)),
		fmt.Errorf("%w: no employees with role %s", domain.ErrEmployeeNotFound, role), &emps)
	if err != nil {
		return nil, err
	}
	return emps, nil
}

// GetEmployeeEmail resolves an employee's email address.
func (c *DirectoryClient) GetEmployeeEmail(ctx context.Context, id string) (string, error) {
	emp, err := c.GetEmployeeByID(ctx, id)
	if err != nil {
		return "", err
	}
	return emp.Email, nil
}

func (c *DirectoryClient) getJSON(ctx context.Context, url string, notFoundErr error, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("build directory request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: directory service: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return notFoundErr
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("%w: directory service returned %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decoding directory response: %v", domain.ErrUpstreamUnavailable, err)
	}
	return nil
}

var _ domain.DirectoryClient = (*DirectoryClient)(nil)
