// Package summarizer produces narrative chart summaries from sanitized record
// bundles, either through an LLM provider or a remote summary service.
package summarizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/wolfman30/chart-console/internal/fhir"
	"github.com/wolfman30/chart-console/pkg/logging"
)

// Prompt instructs the model; the bundle JSON follows it after a blank line.
const Prompt = "You are an expert clinician. Review the following FHIR JSON data for a patient. " +
	"Provide an informative clinical summary suitable for a healthcare provider reading a chart. " +
	"Make logical inferences about the patient's condition based on the data provided. " +
	"Focus on conditions, medications, procedures, immunizations and allergies. " +
	"Do not mention specific IDs. " +
	"Structure with clear headings using markdown (e.g. ## for section headers, ** for bold)."

// NoSummary is returned when the model answers without text.
const NoSummary = "No summary generated."

// Service summarizes bundles with an LLM.
type Service struct {
	llm    LLMClient
	logger *logging.Logger
}

func NewService(llm LLMClient, logger *logging.Logger) *Service {
	if llm == nil {
		panic("summarizer: llm client cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{llm: llm, logger: logger}
}

// Summarize sends the bundle to the model and returns its narrative. The bundle
// must already be sanitized.
func (s *Service) Summarize(ctx context.Context, bundle *fhir.Bundle) (string, error) {
	if bundle == nil {
		return "", errors.New("summarizer: bundle is required")
	}
	data, err := json.Marshal(bundle)
	if err != nil {
		return "", fmt.Errorf("summarizer: failed to marshal bundle: %w", err)
	}

	resp, err := s.llm.Complete(ctx, LLMRequest{Prompt: Prompt + "\n\n" + string(data)})
	if err != nil {
		return "", err
	}
	s.logger.Debug("summary completed",
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"stop_reason", resp.StopReason,
	)
	if strings.TrimSpace(resp.Text) == "" {
		return NoSummary, nil
	}
	return resp.Text, nil
}
