package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"grantbot/types"
)

// Client is a thin HTTP client for the grantbot API
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

// GetStatus fetches the discovery run status
func (c *Client) GetStatus() (*types.StatusResponse, error) {
	var status types.StatusResponse
	if err := c.get("/api/discovery/status", &status); err != nil {
		return nil, fmt.Errorf("failed to get status: %w", err)
	}
	return &status, nil
}

// ListCandidates fetches candidates with the given status, best first
func (c *Client) ListCandidates(status types.CandidateStatus, limit int) ([]types.Candidate, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", string(status))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var resp struct {
		Candidates []types.Candidate `json:"candidates"`
	}
	if err := c.get("/api/candidates?"+q.Encode(), &resp); err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return resp.Candidates, nil
}

// StartRun triggers a discovery run
func (c *Client) StartRun() error {
	resp, err := c.client.Post(c.baseURL+"/api/discovery/run", "application/json", bytes.NewReader([]byte("{}")))
	if err != nil {
		return fmt.Errorf("failed to start run: %w", err)
	}
	defer resp.Body.Close()
	return expect(resp, http.StatusAccepted)
}

// SetStatus records a review decision for a candidate
func (c *Client) SetStatus(id string, status types.CandidateStatus) error {
	body, err := json.Marshal(map[string]string{"status": string(status)})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPatch, c.baseURL+"/api/candidates/"+url.PathEscape(id), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to update candidate: %w", err)
	}
	defer resp.Body.Close()
	return expect(resp, http.StatusOK)
}

func (c *Client) get(path string, v any) error {
	resp, err := c.client.Get(c.baseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if err := expect(resp, http.StatusOK); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func expect(resp *http.Response, code int) error {
	if resp.StatusCode == code {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, string(bytes.TrimSpace(body)))
}
