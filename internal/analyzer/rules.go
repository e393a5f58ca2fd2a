package analyzer

import "fmt"

const (
	SeqScanRowsThreshold    = 1000
	NestedLoopRowsThreshold = 10000
	HighCostThreshold       = 10000.0
	DeepPlanThreshold       = 5

	IssuePenalty       = 15
	CostPenaltyFloor   = 1000.0
	CostPenaltyStep    = 1000.0
	CostPenaltyPerStep = 5
	CostPenaltyCap     = 30
	IndexScanBonus     = 10
	SeqScanPenalty     = 20
)

// Rule inspects metrics and returns a finding, or ok=false when it does not
// apply. floor is the minimum severity the finding raises the plan to.
type Rule func(m Metrics) (issue, suggestion string, floor Severity, ok bool)

// Evaluated in order; the order fixes the order of issues in an Assessment.
var defaultRules = []Rule{
	checkLargeSeqScan,
	checkNestedLoopRows,
	checkHighCost,
	checkDeepPlan,
}

func checkLargeSeqScan(m Metrics) (string, string, Severity, bool) {
	if !m.HasSeqScan || m.PlanRows <= SeqScanRowsThreshold {
		return "", "", Low, false
	}
	return fmt.Sprintf("Sequential scan on large table (%d estimated rows)", m.PlanRows),
		"Create an index on the columns used in WHERE and JOIN conditions",
		High, true
}

func checkNestedLoopRows(m Metrics) (string, string, Severity, bool) {
	if !m.HasNestedLoop || m.PlanRows <= NestedLoopRowsThreshold {
		return "", "", Low, false
	}
	return fmt.Sprintf("Nested loop at high row count (%d estimated rows)", m.PlanRows),
		"Consider a Hash Join or Merge Join; check join column indexes and statistics",
		Medium, true
}

func checkHighCost(m Metrics) (string, string, Severity, bool) {
	if m.TotalCost <= HighCostThreshold {
		return "", "", Low, false
	}
	return fmt.Sprintf("High query cost (%.2f)", m.TotalCost),
		"Narrow the filter conditions to reduce the number of rows scanned",
		Medium, true
}

func checkDeepPlan(m Metrics) (string, string, Severity, bool) {
	if m.MaxDepth <= DeepPlanThreshold {
		return "", "", Low, false
	}
	return fmt.Sprintf("Deeply nested plan (%d levels)", m.MaxDepth),
		"Simplify the query or split nested subqueries",
		Medium, true
}

// Assess runs the default rules. Severity starts at Low and is only ever
// raised.
func Assess(m Metrics) Assessment {
	return assessWith(m, defaultRules)
}

func assessWith(m Metrics, rules []Rule) Assessment {
	a := Assessment{
		Severity:    Low,
		Issues:      []string{},
		Suggestions: []string{},
	}
	for _, rule := range rules {
		issue, suggestion, floor, ok := rule(m)
		if !ok {
			continue
		}
		a.Issues = append(a.Issues, issue)
		a.Suggestions = append(a.Suggestions, suggestion)
		if floor > a.Severity {
			a.Severity = floor
		}
	}
	a.Score = Score(m, a.Issues)
	return a
}

// Score computes the 0-100 performance score.
func Score(m Metrics, issues []string) int {
	score := 100 - IssuePenalty*len(issues)

	if m.TotalCost > CostPenaltyFloor {
		steps := int(m.TotalCost / CostPenaltyStep)
		score -= min(CostPenaltyCap, steps*CostPenaltyPerStep)
	}
	if m.HasIndexScan {
		score += IndexScanBonus
	}
	if m.HasSeqScan && m.PlanRows > SeqScanRowsThreshold {
		score -= SeqScanPenalty
	}

	return max(0, min(100, score))
}
