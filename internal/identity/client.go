package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	id "domio/pkg/domain"
	"domio/pkg/platform/sentinel"
)

// Client calls the identity system over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient overrides the underlying HTTP client (tests, custom TLS).
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(c *Client) { c.http = httpClient }
}

// NewClient constructs a Directory client against the given base URL.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type resetRoleRequest struct {
	UserID string `json:"user_id"`
}

// ResetResidentialRole invokes the identity system's role-reset operation.
func (c *Client) ResetResidentialRole(ctx context.Context, userID id.UserID) error {
	body, err := json.Marshal(resetRoleRequest{UserID: userID.String()})
	if err != nil {
		return fmt.Errorf("marshal reset request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/roles/reset", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build reset request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("reset residential role: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("user %s unknown to identity system: %w", userID, sentinel.ErrNotFound)
	case resp.StatusCode >= 500:
		return fmt.Errorf("identity system returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	default:
		return fmt.Errorf("identity system rejected role reset: status %d", resp.StatusCode)
	}
}
