package summarizer

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

	"github.com/wolfman30/chart-console/internal/fhir"
)

// SummaryRequest is the body of the summary endpoint.
type SummaryRequest struct {
	Bundle *fhir.Bundle `json:"bundle"`
}

// SummaryResponse is its answer: a summary on success, an error otherwise.
type SummaryResponse struct {
	Summary string `json:"summary,omitempty"`
	Error   string `json:"error,omitempty"`
}

// RemoteClient calls a summary endpoint (POST {bundle} -> {summary}) served
// by another instance of this service.
type RemoteClient struct {
	url        string
	httpClient *http.Client
}

// NewRemoteClient builds a client for the endpoint URL. A zero timeout means none.
func NewRemoteClient(endpoint string, timeout time.Duration) (*RemoteClient, error) {
	if strings.TrimSpace(endpoint) == "" {
		return nil, errors.New("summarizer: remote summary URL is required")
	}
	return &RemoteClient{url: endpoint, httpClient: &http.Client{Timeout: timeout}}, nil
}

func (c *RemoteClient) Summarize(ctx context.Context, bundle *fhir.Bundle) (string, error) {
	body, err := json.Marshal(SummaryRequest{Bundle: bundle})
	if err != nil {
		return "", fmt.Errorf("summarizer: failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("summarizer: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer: request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("summarizer: failed to read response: %w", err)
	}
	var out SummaryResponse
	decodeErr := json.Unmarshal(data, &out)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := out.Error
		if decodeErr != nil || msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return "", &ServiceError{StatusCode: resp.StatusCode, Message: msg}
	}
	if decodeErr != nil {
		return "", fmt.Errorf("summarizer: failed to decode response: %w", decodeErr)
	}
	if strings.TrimSpace(out.Summary) == "" {
		return NoSummary, nil
	}
	return out.Summary, nil
}
