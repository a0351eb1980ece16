// Package client talks to the report schedules HTTP API on behalf of one tenant.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zenGate-Global/palmyra-reports/domains/reportschedules/api"
)

// ErrNotFound is returned when the API answers 404.
var ErrNotFound = errors.New("report schedule not found")

// APIError is a decoded problem document from a non-2xx response.
type APIError struct {
	Status  int
	Problem api.ProblemDetails
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("report schedules api responded %d", e.Status)
	if e.Problem.Title != "" {
		msg += ": " + e.Problem.Title
	}
	if e.Problem.Detail != nil && *e.Problem.Detail != "" {
		msg += " (" + *e.Problem.Detail + ")"
	}
	return msg
}

// Is lets errors.Is(err, ErrNotFound) match 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// FieldErrors returns per-field validation messages, if any.
func (e *APIError) FieldErrors() map[string][]string {
	if e.Problem.Errors == nil {
		return nil
	}
	return *e.Problem.Errors
}

// Config configures a Client.
type Config struct {
	BaseURL     string
	TenantEmail string
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// Client is a thin typed wrapper over the report schedules endpoints.
type Client struct {
	baseURL string
	email   string
	http    *http.Client
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("api base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("parse api base url: %w", err)
	}
	if !strings.Contains(cfg.TenantEmail, "@") {
		return nil, errors.New("tenant email is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if cfg.Timeout > 0 {
		httpClient.Timeout = cfg.Timeout
	}

	return &Client{baseURL: base + api.BasePath, email: cfg.TenantEmail, http: httpClient}, nil
}

func (c *Client) List(ctx context.Context) ([]api.ReportSchedule, error) {
	var out api.ReportScheduleList
	if err := c.do(ctx, http.MethodGet, "", nil, nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

func (c *Client) Get(ctx context.Context, id uuid.UUID) (api.ReportSchedule, error) {
	var out api.ReportSchedule
	err := c.do(ctx, http.MethodGet, "/"+id.String(), nil, nil, &out)
	return out, err
}

func (c *Client) Create(ctx context.Context, cfg api.ReportConfiguration) (api.ReportSchedule, error) {
	var out api.ReportSchedule
	err := c.do(ctx, http.MethodPost, "", nil, cfg, &out)
	return out, err
}

func (c *Client) Update(ctx context.Context, id uuid.UUID, partition string, cfg api.ReportConfiguration) (api.ReportSchedule, error) {
	var out api.ReportSchedule
	err := c.do(ctx, http.MethodPut, "/"+id.String(), partitionQuery(partition), cfg, &out)
	return out, err
}

func (c *Client) Toggle(ctx context.Context, id uuid.UUID, partition string) (api.ReportSchedule, error) {
	var out api.ReportSchedule
	err := c.do(ctx, http.MethodPost, "/"+id.String()+"/toggle", partitionQuery(partition), nil, &out)
	return out, err
}

func (c *Client) Delete(ctx context.Context, id uuid.UUID, partition string) error {
	return c.do(ctx, http.MethodDelete, "/"+id.String(), partitionQuery(partition), nil, nil)
}

// SendTest asks the server to send a one-off test report for cfg.
func (c *Client) SendTest(ctx context.Context, cfg api.ReportConfiguration) error {
	return c.do(ctx, http.MethodPost, "/test-send", nil, cfg, nil)
}

func partitionQuery(partition string) url.Values {
	return url.Values{"partition": []string{partition}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(api.TenantEmailHeader, c.email)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &apiErr.Problem); err != nil || apiErr.Problem.Title == "" {
		apiErr.Problem = api.ProblemDetails{Title: http.StatusText(resp.StatusCode), Status: resp.StatusCode}
	}
	return apiErr
}
