// Package grievance provides a client for the grievance-workflow dashboard
// API. The ledger never mutates grievance status directly: it reads statuses
// to decide reviewability and signals outcomes for the workflow to apply.
package grievance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

const (
	requestTimeout = 10 * time.Second
	maxBodySize    = 1 << 20 // 1 MB
)

var (
	// ErrUnauthorized indicates the API token is expired or invalid.
	ErrUnauthorized = errors.New("grievance: unauthorized (api token expired or invalid)")
	// ErrNotFound indicates the grievance does not exist upstream.
	ErrNotFound = errors.New("grievance: not found")
)

// Client talks to the grievance dashboard API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewClient creates a client for the given base URL and token.
// Returns nil if either is empty.
func NewClient(baseURL, token string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	token = strings.TrimSpace(token)
	if baseURL == "" || token == "" {
		return nil
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil

	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    rc.StandardClient(),
	}
}

type grievanceResponse struct {
	Ref      string `json:"ref"`
	Status   string `json:"status"`
	Category string `json:"category"`
}

// Status returns the workflow status of one grievance ("in_progress",
// "resolved", "closed", ...).
func (c *Client) Status(ctx context.Context, grievanceRef string) (string, error) {
	body, err := c.do(ctx, http.MethodGet, fmt.Sprintf("/grievances/%s", grievanceRef), nil)
	if err != nil {
		return "", err
	}

	var g grievanceResponse
	if err := json.Unmarshal(body, &g); err != nil {
		return "", fmt.Errorf("grievance: parsing response: %w", err)
	}
	return g.Status, nil
}

type signalRequest struct {
	Outcome string `json:"outcome"`
	Notes   string `json:"notes,omitempty"`
}

// SignalSettled tells the workflow a binding settled so it can close the
// grievance. The workflow owns the status transition.
func (c *Client) SignalSettled(ctx context.Context, grievanceRef, notes string) error {
	return c.signal(ctx, grievanceRef, "settled", notes)
}

// SignalRework tells the workflow to return the grievance to in-progress.
func (c *Client) SignalRework(ctx context.Context, grievanceRef, notes string) error {
	return c.signal(ctx, grievanceRef, "rework", notes)
}

func (c *Client) signal(ctx context.Context, grievanceRef, outcome, notes string) error {
	payload, err := json.Marshal(signalRequest{Outcome: outcome, Notes: notes})
	if err != nil {
		return fmt.Errorf("grievance: encoding signal: %w", err)
	}
	_, err = c.do(ctx, http.MethodPost, fmt.Sprintf("/grievances/%s/review", grievanceRef), payload)
	return err
}

// do performs an authenticated request and returns the response body.
func (c *Client) do(ctx context.Context, method, path string, payload []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("grievance: creating request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("grievance: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return nil, ErrUnauthorized
	case http.StatusNotFound:
		return nil, ErrNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("grievance: unexpected status %d", resp.StatusCode)
	}

	out, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("grievance: reading response: %w", err)
	}
	return out, nil
}
