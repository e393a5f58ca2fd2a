package analyzer

import (
	"slices"
	"strings"

	"github.com/jacobarthurs/pgreview/internal/plan"
)

// ExtractMetrics walks the tree once, depth first, using an explicit stack so
// pathological plans cannot exhaust the goroutine stack.
func ExtractMetrics(root *plan.PlanNode) Metrics {
	m := Metrics{
		TotalCost:   root.TotalCost,
		StartupCost: root.StartupCost,
		PlanRows:    root.PlanRows,
		PlanWidth:   root.PlanWidth,
		NodeType:    root.NodeType,
		ScanTypes:   []string{},
		JoinTypes:   []string{},
	}

	type frame struct {
		node  *plan.PlanNode
		depth int
	}

	scans := make(map[string]bool)
	joins := make(map[string]bool)
	rels := make(map[string]bool)
	stack := []frame{{node: root, depth: 1}}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		nt := f.node.NodeType
		if strings.Contains(nt, "Scan") && !scans[nt] {
			scans[nt] = true
			m.ScanTypes = append(m.ScanTypes, nt)
		}
		if (strings.Contains(nt, "Join") || strings.Contains(nt, "Loop")) && !joins[nt] {
			joins[nt] = true
			m.JoinTypes = append(m.JoinTypes, nt)
		}
		if strings.Contains(nt, "Index Scan") {
			m.HasIndexScan = true
		}
		if strings.Contains(nt, "Seq Scan") {
			m.HasSeqScan = true
		}
		if strings.Contains(nt, "Nested Loop") {
			m.HasNestedLoop = true
		}

		if rel := f.node.RelationName; rel != "" && !rels[rel] {
			rels[rel] = true
			m.Relations = append(m.Relations, rel)
		}

		if f.depth > m.MaxDepth {
			m.MaxDepth = f.depth
		}

		// Push in reverse so children are visited in plan order.
		for i := len(f.node.Plans) - 1; i >= 0; i-- {
			stack = append(stack, frame{node: &f.node.Plans[i], depth: f.depth + 1})
		}
	}

	slices.Sort(m.ScanTypes)
	slices.Sort(m.JoinTypes)
	return m
}
