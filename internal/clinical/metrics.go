package clinical

// Metrics receives section-cache and pipeline observations. Outcomes are
// "success" or "error".
type Metrics interface {
	ObserveSectionLoad(category, outcome string, seconds float64)
	ObserveSummaryStep(step, outcome string, seconds float64)
	IncCancellation(outcome string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveSectionLoad(string, string, float64) {}
func (noopMetrics) ObserveSummaryStep(string, string, float64) {}
func (noopMetrics) IncCancellation(string)                     {}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
