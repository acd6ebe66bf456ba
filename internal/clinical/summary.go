package clinical

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/chart-console/internal/fhir"
	"github.com/wolfman30/chart-console/pkg/logging"
)

// Summarizer turns a sanitized record bundle into narrative text.
type Summarizer interface {
	Summarize(ctx context.Context, bundle *fhir.Bundle) (string, error)
}

// NarrativeStore mirrors finished narratives for the rest of the session.
type NarrativeStore interface {
	LoadNarrative(ctx context.Context, patientID string) (string, bool, error)
	SaveNarrative(ctx context.Context, patientID, narrative string) error
}

// Stage is where a patient's summary pipeline currently is.
type Stage string

const (
	StageIdle        Stage = "idle"
	StageFetching    Stage = "fetching"
	StageSanitizing  Stage = "sanitizing"
	StageSummarizing Stage = "summarizing"
	StageDone        Stage = "done"
	StageFailed      Stage = "failed"
)

// Step names a pipeline step for error attribution.
type Step string

const (
	StepFetch     Step = "fetch"
	StepSanitize  Step = "sanitize"
	StepSummarize Step = "summarize"
)

var stepMessages = map[Step]string{
	StepFetch:     "could not retrieve record",
	StepSanitize:  "could not prepare record",
	StepSummarize: "could not generate narrative",
}

// StepError attributes a pipeline failure to the step that produced it.
type StepError struct {
	Step Step
	Err  error
}

func (e *StepError) Error() string {
	msg := stepMessages[e.Step]
	if e.Err == nil {
		return msg
	}
	return msg + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error { return e.Err }

// FailedStep returns the step a pipeline error came from.
func FailedStep(err error) (Step, bool) {
	var stepErr *StepError
	if errors.As(err, &stepErr) {
		return stepErr.Step, true
	}
	return "", false
}

// SummaryPipelineConfig wires a SummaryPipeline.
type SummaryPipelineConfig struct {
	Gateway    Gateway
	Summarizer Summarizer
	Narratives NarrativeStore // optional
	Logger     *logging.Logger
	Metrics    Metrics
	Tracer     trace.Tracer
}

// SummaryPipeline loads the summary category: fetch the full record, strip
// identifying Patient fields, then summarize. Steps are sequential per
// patient; different patients run independently.
type SummaryPipeline struct {
	gateway    Gateway
	summarizer Summarizer
	narratives NarrativeStore
	logger     *logging.Logger
	metrics    Metrics
	tracer     trace.Tracer

	mu     sync.Mutex
	stages map[string]Stage
}

// NewSummaryPipeline builds a pipeline.
func NewSummaryPipeline(cfg SummaryPipelineConfig) (*SummaryPipeline, error) {
	if cfg.Gateway == nil {
		return nil, errors.New("clinical: gateway is required")
	}
	if cfg.Summarizer == nil {
		return nil, ErrSummaryUnavailable
	}
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	if cfg.Tracer == nil {
		cfg.Tracer = otel.Tracer("chart-console.internal.clinical.summary")
	}
	return &SummaryPipeline{
		gateway:    cfg.Gateway,
		summarizer: cfg.Summarizer,
		narratives: cfg.Narratives,
		logger:     cfg.Logger,
		metrics:    cfg.Metrics,
		tracer:     cfg.Tracer,
		stages:     make(map[string]Stage),
	}, nil
}

// Stage reports the patient's current pipeline stage.
func (p *SummaryPipeline) Stage(patientID string) Stage {
	p.mu.Lock()
	defer p.mu.Unlock()
	if stage, ok := p.stages[patientID]; ok {
		return stage
	}
	return StageIdle
}

func (p *SummaryPipeline) setStage(patientID string, stage Stage) {
	p.mu.Lock()
	p.stages[patientID] = stage
	p.mu.Unlock()
}

// Load runs the pipeline for one patient and returns the narrative. A
// narrative already mirrored for this session is returned without running
// the steps. Errors are *StepError.
func (p *SummaryPipeline) Load(ctx context.Context, patientID string) (string, error) {
	ctx, span := p.tracer.Start(ctx, "clinical.summary",
		trace.WithAttributes(attribute.String("patient.id", patientID)))
	defer span.End()

	if narrative, ok := p.mirrored(ctx, patientID); ok {
		span.SetAttributes(attribute.Bool("summary.mirrored", true))
		p.setStage(patientID, StageDone)
		return narrative, nil
	}

	p.setStage(patientID, StageFetching)
	var bundle *fhir.Bundle
	err := p.step(ctx, StepFetch, func(ctx context.Context) error {
		var err error
		bundle, err = p.gateway.FetchEverything(ctx, patientID)
		return err
	})
	if err != nil {
		return p.fail(span, patientID, err)
	}

	p.setStage(patientID, StageSanitizing)
	var sanitized *fhir.Bundle
	err = p.step(ctx, StepSanitize, func(context.Context) error {
		var err error
		sanitized, err = Sanitize(bundle)
		return err
	})
	if err != nil {
		return p.fail(span, patientID, err)
	}

	p.setStage(patientID, StageSummarizing)
	var narrative string
	err = p.step(ctx, StepSummarize, func(ctx context.Context) error {
		var err error
		narrative, err = p.summarizer.Summarize(ctx, sanitized)
		return err
	})
	if err != nil {
		return p.fail(span, patientID, err)
	}

	p.setStage(patientID, StageDone)
	if p.narratives != nil {
		if err := p.narratives.SaveNarrative(ctx, patientID, narrative); err != nil {
			p.logger.Warn("narrative mirror write failed", "patient_id", patientID, "error", err)
		}
	}
	p.logger.Info("summary generated",
		"patient_id", patientID,
		"entries", len(sanitized.Entry),
	)
	return narrative, nil
}

func (p *SummaryPipeline) step(ctx context.Context, step Step, fn func(context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "clinical.summary."+string(step))
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	p.metrics.ObserveSummaryStep(string(step), outcomeOf(err), time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		return &StepError{Step: step, Err: err}
	}
	return nil
}

func (p *SummaryPipeline) fail(span trace.Span, patientID string, err error) (string, error) {
	span.RecordError(err)
	p.setStage(patientID, StageFailed)
	step, _ := FailedStep(err)
	p.logger.Warn("summary pipeline failed",
		"patient_id", patientID,
		"step", string(step),
		"error", err,
	)
	return "", err
}

func (p *SummaryPipeline) mirrored(ctx context.Context, patientID string) (string, bool) {
	if p.narratives == nil {
		return "", false
	}
	narrative, ok, err := p.narratives.LoadNarrative(ctx, patientID)
	if err != nil {
		p.logger.Warn("narrative mirror read failed", "patient_id", patientID, "error", err)
		return "", false
	}
	return narrative, ok
}
