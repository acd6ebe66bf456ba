package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"

	"github.com/wolfman30/chart-console/internal/clinical"
	appconfig "github.com/wolfman30/chart-console/internal/config"
	"github.com/wolfman30/chart-console/internal/summarizer"
	"github.com/wolfman30/chart-console/pkg/logging"
)

// Summary providers accepted in SUMMARY_PROVIDER and SUMMARY_FALLBACK_PROVIDER.
const (
	ProviderGemini  = "gemini"
	ProviderBedrock = "bedrock"
	ProviderRemote  = "remote"
	ProviderNone    = "none"
)

// AWSConfigLoader resolves the AWS SDK configuration for Bedrock.
type AWSConfigLoader func(ctx context.Context, cfg *appconfig.Config) (aws.Config, error)

// BuildSummarizer wires the configured summary provider. A nil summarizer with
// a nil error means summarization is switched off or missing credentials;
// summary loads then fail with clinical.ErrSummaryUnavailable.
func BuildSummarizer(ctx context.Context, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) (clinical.Summarizer, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	provider := strings.ToLower(strings.TrimSpace(cfg.SummaryProvider))
	switch provider {
	case "", ProviderNone:
		logger.Warn("no summary provider configured; summaries disabled")
		return nil, nil
	case ProviderRemote:
		client, err := summarizer.NewRemoteClient(cfg.SummaryServiceURL, 0)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: remote summarizer: %w", err)
		}
		logger.Info("using remote summary service", "url", cfg.SummaryServiceURL)
		return client, nil
	}

	primary, err := buildLLMClient(ctx, provider, cfg, loadAWS, logger)
	if err != nil {
		return nil, err
	}
	if primary == nil {
		return nil, nil
	}

	fallbackProvider := strings.ToLower(strings.TrimSpace(cfg.SummaryFallbackProvider))
	if fallbackProvider != "" && fallbackProvider != ProviderNone && fallbackProvider != provider {
		fallback, err := buildLLMClient(ctx, fallbackProvider, cfg, loadAWS, logger)
		if err != nil {
			return nil, err
		}
		if fallback != nil {
			logger.Info("summary fallback provider enabled", "primary", provider, "fallback", fallbackProvider)
			primary = summarizer.NewFallbackClient(primary, fallback, logger)
		}
	}

	logger.Info("using LLM summary provider", "provider", provider)
	return summarizer.NewService(primary, logger), nil
}

// buildLLMClient returns nil without error when the provider lacks credentials.
func buildLLMClient(ctx context.Context, provider string, cfg *appconfig.Config, loadAWS AWSConfigLoader, logger *logging.Logger) (summarizer.LLMClient, error) {
	switch provider {
	case ProviderGemini:
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			logger.Warn("gemini selected but GEMINI_API_KEY is empty; provider disabled")
			return nil, nil
		}
		client, err := summarizer.NewGeminiClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModelID)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini client: %w", err)
		}
		return client, nil
	case ProviderBedrock:
		if strings.TrimSpace(cfg.BedrockModelID) == "" {
			logger.Warn("bedrock selected but BEDROCK_MODEL_ID is empty; provider disabled")
			return nil, nil
		}
		if loadAWS == nil {
			return nil, fmt.Errorf("bootstrap: aws config loader is required for bedrock")
		}
		awsCfg, err := loadAWS(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: load aws config: %w", err)
		}
		return summarizer.NewBedrockClient(bedrockruntime.NewFromConfig(awsCfg), cfg.BedrockModelID), nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown summary provider %q", provider)
	}
}
