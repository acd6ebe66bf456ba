package fhir

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
)

const fhirJSON = "application/fhir+json"

// RequestObserver receives one observation per completed store request.
type RequestObserver interface {
	ObserveFHIRRequest(resourceType, method, status string, seconds float64)
}

// Client talks to a FHIR R4 record store over its REST API.
type Client struct {
	baseURL     string
	bearerToken string
	httpClient  *http.Client
	observer    RequestObserver
}

// Config holds configuration for the FHIR client
type Config struct {
	BaseURL     string // e.g. "https://hapi.fhir.org/baseR4"
	BearerToken string // optional
	// Timeout bounds each HTTP exchange. Zero means no timeout: a hung store
	// call stays pending until the server answers.
	Timeout    time.Duration
	HTTPClient *http.Client
	Observer   RequestObserver
}

// New creates a new FHIR client
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("fhir: BaseURL is required")
	}
	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("fhir: invalid BaseURL: %w", err)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/"),
		bearerToken: cfg.BearerToken,
		httpClient:  httpClient,
		observer:    cfg.Observer,
	}, nil
}

// Search runs a type-level search and returns the first page of results.
// FHIR: GET /{type}?{params}
func (c *Client) Search(ctx context.Context, resourceType string, params url.Values) (*Bundle, error) {
	path := "/" + resourceType
	if len(params) > 0 {
		path += "?" + params.Encode()
	}
	var bundle Bundle
	if err := c.do(ctx, resourceType, http.MethodGet, path, nil, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// Everything returns the patient's complete record.
// FHIR: GET /Patient/{id}/$everything
func (c *Client) Everything(ctx context.Context, patientID string) (*Bundle, error) {
	if strings.TrimSpace(patientID) == "" {
		return nil, fmt.Errorf("fhir: patient id is required")
	}
	var bundle Bundle
	path := fmt.Sprintf("/Patient/%s/$everything", url.PathEscape(patientID))
	if err := c.do(ctx, "Patient", http.MethodGet, path, nil, &bundle); err != nil {
		return nil, err
	}
	return &bundle, nil
}

// Read retrieves a resource by type and id. Missing resources yield ErrNotFound.
// FHIR: GET /{type}/{id}
func (c *Client) Read(ctx context.Context, resourceType, id string) (Resource, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("fhir: %s id is required", resourceType)
	}
	var res Resource
	path := fmt.Sprintf("/%s/%s", resourceType, url.PathEscape(id))
	if err := c.do(ctx, resourceType, http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}
	return res, nil
}

// Create posts a new resource and returns the stored version.
// FHIR: POST /{type}
func (c *Client) Create(ctx context.Context, resource Resource) (Resource, error) {
	resourceType := resource.Type()
	if resourceType == "" {
		return nil, fmt.Errorf("fhir: resourceType is required")
	}
	var created Resource
	if err := c.do(ctx, resourceType, http.MethodPost, "/"+resourceType, resource, &created); err != nil {
		return nil, err
	}
	return created, nil
}

// Update overwrites the full resource stored under id.
// FHIR: PUT /{type}/{id}
func (c *Client) Update(ctx context.Context, resourceType, id string, resource Resource) (Resource, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("fhir: %s id is required", resourceType)
	}
	body := resource.Clone()
	if body == nil {
		body = Resource{}
	}
	body["resourceType"] = resourceType
	body["id"] = id

	var updated Resource
	path := fmt.Sprintf("/%s/%s", resourceType, url.PathEscape(id))
	if err := c.do(ctx, resourceType, http.MethodPut, path, body, &updated); err != nil {
		return nil, err
	}
	return updated, nil
}

func (c *Client) do(ctx context.Context, resourceType, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("fhir: failed to marshal %s: %w", resourceType, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("fhir: failed to create request: %w", err)
	}
	req.Header.Set("Accept", fhirJSON)
	if body != nil {
		req.Header.Set("Content-Type", fhirJSON)
	}
	if c.bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(resourceType, method, "transport_error", start)
		return fmt.Errorf("fhir: request failed: %w", err)
	}
	defer resp.Body.Close()
	c.observe(resourceType, method, fmt.Sprintf("%d", resp.StatusCode), start)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	// Stores answering with Prefer: return=minimal send an empty body.
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("fhir: failed to decode response: %w", err)
	}
	return nil
}

func (c *Client) observe(resourceType, method, status string, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveFHIRRequest(resourceType, method, status, time.Since(start).Seconds())
}
