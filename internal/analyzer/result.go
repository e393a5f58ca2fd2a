package analyzer

import "fmt"

type Severity int

const (
	Low    Severity = 0
	Medium Severity = 1
	High   Severity = 2
)

func (s Severity) String() string {
	switch s {
	case Low:
		return "low"
	case Medium:
		return "medium"
	case High:
		return "high"
	default:
		return "unknown"
	}
}

func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Severity) UnmarshalText(b []byte) error {
	switch string(b) {
	case "low":
		*s = Low
	case "medium":
		*s = Medium
	case "high":
		*s = High
	default:
		return fmt.Errorf("unknown severity %q", b)
	}
	return nil
}

// Metrics is a snapshot of the signals extracted from one plan tree. Cost,
// row and width figures are the root node's own estimates.
type Metrics struct {
	TotalCost     float64  `json:"total_cost"`
	StartupCost   float64  `json:"startup_cost"`
	PlanRows      int64    `json:"plan_rows"`
	PlanWidth     int      `json:"plan_width"`
	NodeType      string   `json:"node_type"`
	ScanTypes     []string `json:"scan_types"`
	JoinTypes     []string `json:"join_types"`
	HasIndexScan  bool     `json:"has_index_scan"`
	HasSeqScan    bool     `json:"has_seq_scan"`
	HasNestedLoop bool     `json:"has_nested_loop"`
	MaxDepth      int      `json:"max_depth"`
	// Relations lists the tables and views the plan reads, in plan order.
	Relations []string `json:"relations,omitempty"`
}

type Assessment struct {
	Severity    Severity `json:"severity"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
	Score       int      `json:"score"`
}

// Result is what gets stored alongside a check. Error is set instead of
// Metrics/Assessment when the plan could not be analyzed.
type Result struct {
	Metrics    *Metrics    `json:"metrics,omitempty"`
	Assessment *Assessment `json:"assessment,omitempty"`
	Error      string      `json:"error,omitempty"`
}

func (r Result) OK() bool {
	return r.Error == "" && r.Metrics != nil
}
