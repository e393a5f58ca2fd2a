package analyzer

import (
	"slices"
	"testing"

	"github.com/jacobarthurs/pgreview/internal/plan"
)

func leaf(nodeType string) plan.PlanNode {
	return plan.PlanNode{NodeType: nodeType}
}

func node(nodeType string, children ...plan.PlanNode) plan.PlanNode {
	return plan.PlanNode{NodeType: nodeType, Plans: children}
}

func TestExtractMetrics_DepthSingleNode(t *testing.T) {
	root := leaf("Seq Scan")
	m := ExtractMetrics(&root)
	if m.MaxDepth != 1 {
		t.Errorf("MaxDepth = %d, want 1", m.MaxDepth)
	}
}

func TestExtractMetrics_DepthTwoLevels(t *testing.T) {
	root := node("Hash Join", leaf("Seq Scan"), leaf("Index Scan"))
	m := ExtractMetrics(&root)
	if m.MaxDepth != 2 {
		t.Errorf("MaxDepth = %d, want 2", m.MaxDepth)
	}
}

func TestExtractMetrics_DepthFourLevelsUneven(t *testing.T) {
	root := node("Limit",
		leaf("Result"),
		node("Sort",
			node("Nested Loop",
				leaf("Seq Scan"),
				leaf("Index Scan"),
			),
		),
	)
	m := ExtractMetrics(&root)
	if m.MaxDepth != 4 {
		t.Errorf("MaxDepth = %d, want 4", m.MaxDepth)
	}
}

func TestExtractMetrics_DepthMatchesChildren(t *testing.T) {
	child := node("Sort", node("Hash", leaf("Seq Scan")))
	root := node("Limit", child, leaf("Result"))

	parent := ExtractMetrics(&root)
	sub := ExtractMetrics(&child)
	if parent.MaxDepth != sub.MaxDepth+1 {
		t.Errorf("parent depth %d != 1 + child depth %d", parent.MaxDepth, sub.MaxDepth)
	}
}

func TestExtractMetrics_RootFieldsOnly(t *testing.T) {
	root := plan.PlanNode{
		NodeType:    "Aggregate",
		StartupCost: 10,
		TotalCost:   42.5,
		PlanRows:    1,
		PlanWidth:   8,
		Plans: []plan.PlanNode{
			{NodeType: "Seq Scan", TotalCost: 40000, PlanRows: 900000, PlanWidth: 200},
		},
	}

	m := ExtractMetrics(&root)
	if m.NodeType != "Aggregate" {
		t.Errorf("NodeType = %q", m.NodeType)
	}
	if m.TotalCost != 42.5 || m.StartupCost != 10 {
		t.Errorf("costs = %f/%f, want 10/42.5", m.StartupCost, m.TotalCost)
	}
	if m.PlanRows != 1 || m.PlanWidth != 8 {
		t.Errorf("rows/width = %d/%d, want 1/8", m.PlanRows, m.PlanWidth)
	}
}

func TestExtractMetrics_TypeSets(t *testing.T) {
	root := node("Nested Loop",
		node("Hash Join", leaf("Seq Scan"), node("Hash", leaf("Seq Scan"))),
		leaf("Bitmap Index Scan"),
	)

	m := ExtractMetrics(&root)

	if !slices.Equal(m.ScanTypes, []string{"Bitmap Index Scan", "Seq Scan"}) {
		t.Errorf("ScanTypes = %v", m.ScanTypes)
	}
	if !slices.Equal(m.JoinTypes, []string{"Hash Join", "Nested Loop"}) {
		t.Errorf("JoinTypes = %v", m.JoinTypes)
	}
	if !m.HasSeqScan || !m.HasNestedLoop || !m.HasIndexScan {
		t.Errorf("flags = seq:%v loop:%v index:%v, want all true", m.HasSeqScan, m.HasNestedLoop, m.HasIndexScan)
	}
}

func TestExtractMetrics_Relations(t *testing.T) {
	orders := leaf("Seq Scan")
	orders.RelationName = "orders"
	users := leaf("Index Scan")
	users.RelationName = "users"
	again := leaf("Seq Scan")
	again.RelationName = "orders"

	root := node("Hash Join", orders, node("Hash", users), again)
	m := ExtractMetrics(&root)

	if !slices.Equal(m.Relations, []string{"orders", "users"}) {
		t.Errorf("Relations = %v, want [orders users]", m.Relations)
	}
}

func TestExtractMetrics_NoScans(t *testing.T) {
	root := leaf("Result")
	m := ExtractMetrics(&root)
	if len(m.ScanTypes) != 0 || len(m.JoinTypes) != 0 {
		t.Errorf("expected empty type sets, got %v / %v", m.ScanTypes, m.JoinTypes)
	}
	if m.HasSeqScan || m.HasIndexScan || m.HasNestedLoop {
		t.Error("expected all flags false")
	}
}

func TestExtractMetrics_DeepChain(t *testing.T) {
	root := leaf("Seq Scan")
	for range 10000 {
		root = node("Subquery Scan", root)
	}
	m := ExtractMetrics(&root)
	if m.MaxDepth != 10001 {
		t.Errorf("MaxDepth = %d, want 10001", m.MaxDepth)
	}
}
