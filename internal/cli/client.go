package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hyperjump/gitaguide/internal/models"
)

// APIError is a non-2xx response from the gitaguide server.
type APIError struct {
	Status      int
	Message     string
	Keywords    []string
	Suggestions []string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.Status, e.Message)
}

// NoMatch reports whether the server could not ground the question in any verse.
func (e *APIError) NoMatch() bool {
	return e.Status == http.StatusNotFound
}

// Client talks to a running gitaguide server, so the CLI does not open the
// SQLite database and Bleve index the server holds.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL. Guidance requests wait for the LLM, so
// the timeout is generous.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 2 * time.Minute},
	}
}

// Guidance calls POST /api/v1/guidance.
func (c *Client) Guidance(ctx context.Context, q *models.GuidanceQuery) (*models.Guidance, error) {
	var out models.Guidance
	if err := c.do(ctx, http.MethodPost, "/api/v1/guidance", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Search calls POST /api/v1/verses/search.
func (c *Client) Search(ctx context.Context, q *models.GuidanceQuery) (*models.RetrievalResult, error) {
	var out models.RetrievalResult
	if err := c.do(ctx, http.MethodPost, "/api/v1/verses/search", q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Status calls GET /api/v1/status.
func (c *Client) Status(ctx context.Context) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := c.do(ctx, http.MethodGet, "/api/v1/status", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Reload calls POST /api/v1/admin/reload.
func (c *Client) Reload(ctx context.Context) (map[string]interface{}, error) {
	out := map[string]interface{}{}
	if err := c.do(ctx, http.MethodPost, "/api/v1/admin/reload", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(b))}
		var e struct {
			Error       string   `json:"error"`
			Keywords    []string `json:"keywords"`
			Suggestions []string `json:"suggestions"`
		}
		if json.Unmarshal(b, &e) == nil && e.Error != "" {
			apiErr.Message = e.Error
			apiErr.Keywords = e.Keywords
			apiErr.Suggestions = e.Suggestions
		}
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
