package analyzer

import (
	"strings"
	"testing"
)

func TestAssess_SeqScanScenario(t *testing.T) {
	m := Metrics{HasSeqScan: true, PlanRows: 5000, TotalCost: 500, MaxDepth: 1}

	a := Assess(m)

	if a.Severity != High {
		t.Errorf("severity = %v, want high", a.Severity)
	}
	if len(a.Issues) != 1 || !strings.Contains(a.Issues[0], "Sequential scan") {
		t.Errorf("issues = %v, want single seq scan issue", a.Issues)
	}
	if len(a.Suggestions) != len(a.Issues) {
		t.Errorf("suggestions %d != issues %d", len(a.Suggestions), len(a.Issues))
	}
	if a.Score != 65 {
		t.Errorf("score = %d, want 65", a.Score)
	}
}

func TestAssess_Clean(t *testing.T) {
	a := Assess(Metrics{HasIndexScan: true, PlanRows: 10, TotalCost: 8.3, MaxDepth: 2})
	if a.Severity != Low {
		t.Errorf("severity = %v, want low", a.Severity)
	}
	if len(a.Issues) != 0 {
		t.Errorf("issues = %v, want none", a.Issues)
	}
	if a.Score != 100 {
		t.Errorf("score = %d, want 100", a.Score)
	}
}

func TestAssess_Thresholds(t *testing.T) {
	tests := []struct {
		name   string
		m      Metrics
		issues int
		sev    Severity
	}{
		{"seq scan at threshold", Metrics{HasSeqScan: true, PlanRows: 1000, MaxDepth: 1}, 0, Low},
		{"seq scan above threshold", Metrics{HasSeqScan: true, PlanRows: 1001, MaxDepth: 1}, 1, High},
		{"nested loop at threshold", Metrics{HasNestedLoop: true, PlanRows: 10000, MaxDepth: 3}, 0, Low},
		{"nested loop above threshold", Metrics{HasNestedLoop: true, PlanRows: 10001, MaxDepth: 3}, 1, Medium},
		{"cost at threshold", Metrics{TotalCost: 10000, MaxDepth: 1}, 0, Low},
		{"cost above threshold", Metrics{TotalCost: 10000.01, MaxDepth: 1}, 1, Medium},
		{"depth at threshold", Metrics{MaxDepth: 5}, 0, Low},
		{"depth above threshold", Metrics{MaxDepth: 6}, 1, Medium},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := Assess(tt.m)
			if len(a.Issues) != tt.issues {
				t.Errorf("issues = %v, want %d", a.Issues, tt.issues)
			}
			if a.Severity != tt.sev {
				t.Errorf("severity = %v, want %v", a.Severity, tt.sev)
			}
		})
	}
}

func TestAssess_RuleOrderAndNoDowngrade(t *testing.T) {
	m := Metrics{
		HasSeqScan:    true,
		HasNestedLoop: true,
		PlanRows:      50000,
		TotalCost:     25000,
		MaxDepth:      7,
	}

	a := Assess(m)

	if a.Severity != High {
		t.Errorf("severity = %v, want high after later medium rules", a.Severity)
	}
	want := []string{"Sequential scan", "Nested loop", "High query cost", "Deeply nested"}
	if len(a.Issues) != len(want) {
		t.Fatalf("issues = %v", a.Issues)
	}
	for i, prefix := range want {
		if !strings.HasPrefix(a.Issues[i], prefix) {
			t.Errorf("issue[%d] = %q, want prefix %q", i, a.Issues[i], prefix)
		}
	}
	if a.Score != 0 {
		t.Errorf("score = %d, want 0", a.Score)
	}
}

func TestAssessWith_SeverityOnlyEscalates(t *testing.T) {
	raise := func(s Severity) Rule {
		return func(Metrics) (string, string, Severity, bool) { return "x", "y", s, true }
	}

	a := assessWith(Metrics{}, []Rule{raise(High), raise(Low), raise(Medium)})
	if a.Severity != High {
		t.Errorf("severity = %v, want high", a.Severity)
	}
}

func TestScore_CostPenalty(t *testing.T) {
	tests := []struct {
		cost float64
		want int
	}{
		{1000, 100},
		{1999, 95},
		{2500, 90},
		{5999, 75},
		{6000, 70},
		{1e9, 70},
	}
	for _, tt := range tests {
		if got := Score(Metrics{TotalCost: tt.cost}, nil); got != tt.want {
			t.Errorf("Score(cost=%v) = %d, want %d", tt.cost, got, tt.want)
		}
	}
}

func TestScore_Bounds(t *testing.T) {
	issues := []string{"a", "b", "c", "d", "e", "f", "g", "h"}
	for _, m := range []Metrics{
		{},
		{HasIndexScan: true},
		{HasSeqScan: true, PlanRows: 1 << 40, TotalCost: 1e12},
		{HasIndexScan: true, HasSeqScan: true, PlanRows: 2000, TotalCost: 3000},
	} {
		for n := 0; n <= len(issues); n++ {
			got := Score(m, issues[:n])
			if got < 0 || got > 100 {
				t.Errorf("Score(%+v, %d issues) = %d, out of range", m, n, got)
			}
		}
	}
}

func TestScore_IndexBonusCapped(t *testing.T) {
	if got := Score(Metrics{HasIndexScan: true}, nil); got != 100 {
		t.Errorf("score = %d, want 100", got)
	}
	if got := Score(Metrics{HasIndexScan: true}, []string{"x"}); got != 95 {
		t.Errorf("score = %d, want 95", got)
	}
}

func TestSeverity_Text(t *testing.T) {
	for _, s := range []Severity{Low, Medium, High} {
		b, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText: %v", err)
		}
		var got Severity
		if err := got.UnmarshalText(b); err != nil {
			t.Fatalf("UnmarshalText(%q): %v", b, err)
		}
		if got != s {
			t.Errorf("round trip %v -> %v", s, got)
		}
	}

	var s Severity
	if err := s.UnmarshalText([]byte("critical")); err == nil {
		t.Error("expected error for unknown severity")
	}
}
