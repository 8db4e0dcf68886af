package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/mulyahr/timesheet-backend/internal/domain"
)

// PlacementClient talks to the placement service over HTTP.
type PlacementClient struct {
	baseURL string
	http    *http.Client
}

// NewPlacementClient creates a placement client with a bounded timeout.
func NewPlacementClient(baseURL string) *PlacementClient {
	return &PlacementClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: defaultClientTimeout},
	}
}

// GetPlacementsByEmail fetches an employee's placements. A 404 maps to an
// empty list rather than an error: having no placement is a normal state that
// callers resolve with the default classification.
func (c *PlacementClient) GetPlacementsByEmail(ctx context.Context, email string) ([]domain.Placement, error) {
	reqURL := fmt.Sprintf("%s/api/placements?email=%s", c.baseURL, url.QueryEscape(email))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build placement request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: placement service: %v", domain.ErrUpstreamUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, nil
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: placement service returned %d", domain.ErrUpstreamUnavailable, resp.StatusCode)
	}

	var placements []domain.Placement
	if err := json.NewDecoder(resp.Body).Decode(&placements); err != nil {
		return nil, fmt.Errorf("%w: decoding placement response: %v", domain.ErrUpstreamUnavailable, err)
	}
	return placements, nil
}

var _ domain.PlacementClient = (*PlacementClient)(nil)
