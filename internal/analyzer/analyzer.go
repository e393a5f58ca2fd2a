package analyzer

import (
	"strings"

	"github.com/jacobarthurs/pgreview/internal/plan"
)

// Analyze parses EXPLAIN JSON text and assesses it. Failures are reported in
// Result.Error so callers can carry on without metrics.
func Analyze(text string) Result {
	if strings.TrimSpace(text) == "" {
		return Result{Error: "empty EXPLAIN output"}
	}

	plans, err := plan.ParseJSONPlan([]byte(text))
	if err != nil {
		return Result{Error: err.Error()}
	}
	return AnalyzeOutput(plans[0])
}

func AnalyzeOutput(output plan.ExplainOutput) Result {
	m := ExtractMetrics(&output.Plan)
	a := Assess(m)
	return Result{Metrics: &m, Assessment: &a}
}
