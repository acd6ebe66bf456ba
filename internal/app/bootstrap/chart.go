package bootstrap

import (
	"fmt"

	"github.com/wolfman30/chart-console/internal/clinical"
	appconfig "github.com/wolfman30/chart-console/internal/config"
	"github.com/wolfman30/chart-console/internal/fhir"
	"github.com/wolfman30/chart-console/internal/observability/metrics"
	"github.com/wolfman30/chart-console/pkg/logging"
)

// ChartDeps are the optional collaborators of a chart session.
type ChartDeps struct {
	Summarizer clinical.Summarizer
	Narratives clinical.NarrativeStore
	Metrics    *metrics.ChartMetrics
}

// Chart is one operator session: the record store client and the section
// cache with everything that reads or writes it.
type Chart struct {
	FHIR        *fhir.Client
	Gateway     *clinical.FHIRGateway
	Pipeline    *clinical.SummaryPipeline // nil when summaries are disabled
	Store       *clinical.Store
	Browser     *clinical.Browser
	Coordinator *clinical.Coordinator
}

// BuildChart wires a chart session from config.
func BuildChart(cfg *appconfig.Config, deps ChartDeps, logger *logging.Logger) (*Chart, error) {
	if cfg == nil {
		return nil, fmt.Errorf("bootstrap: config is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	fhirCfg := fhir.Config{
		BaseURL:     cfg.FHIRBaseURL,
		BearerToken: cfg.FHIRBearerToken,
		Timeout:     cfg.FHIRTimeout,
	}
	var chartMetrics clinical.Metrics
	if deps.Metrics != nil {
		fhirCfg.Observer = deps.Metrics
		chartMetrics = deps.Metrics
	}
	client, err := fhir.New(fhirCfg)
	if err != nil {
		return nil, fmt.Errorf("bootstrap: fhir client: %w", err)
	}

	unsorted, err := parseCategories(cfg.FHIRUnsortedCategories)
	if err != nil {
		return nil, err
	}
	gateway := clinical.NewFHIRGateway(client, unsorted)

	var pipeline *clinical.SummaryPipeline
	if deps.Summarizer != nil {
		pipeline, err = clinical.NewSummaryPipeline(clinical.SummaryPipelineConfig{
			Gateway:    gateway,
			Summarizer: deps.Summarizer,
			Narratives: deps.Narratives,
			Logger:     logger,
			Metrics:    chartMetrics,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: summary pipeline: %w", err)
		}
	}

	store, err := clinical.NewStore(clinical.StoreConfig{
		Gateway: gateway,
		Summary: pipeline,
		Logger:  logger,
		Metrics: chartMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap: section store: %w", err)
	}

	logger.Info("chart session ready",
		"fhir_base_url", cfg.FHIRBaseURL,
		"summaries", pipeline != nil,
		"narrative_mirror", deps.Narratives != nil,
	)
	return &Chart{
		FHIR:        client,
		Gateway:     gateway,
		Pipeline:    pipeline,
		Store:       store,
		Browser:     clinical.NewBrowser(store),
		Coordinator: clinical.NewCoordinator(store),
	}, nil
}

// parseCategories keeps nil distinct from empty: nil selects the gateway
// default, empty sorts every category.
func parseCategories(names []string) ([]clinical.Category, error) {
	if names == nil {
		return nil, nil
	}
	out := make([]clinical.Category, 0, len(names))
	for _, name := range names {
		c, err := clinical.ParseCategory(name)
		if err != nil {
			return nil, fmt.Errorf("bootstrap: FHIR_UNSORTED_CATEGORIES: %w", err)
		}
		out = append(out, c)
	}
	return out, nil
}
