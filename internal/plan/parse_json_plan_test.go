package plan

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestParseJSONPlan_ValidPlan(t *testing.T) {
	input := `[{
		"Plan": {
			"Node Type": "Seq Scan",
			"Relation Name": "users",
			"Schema": "public",
			"Alias": "u",
			"Startup Cost": 0.00,
			"Total Cost": 20.00,
			"Plan Rows": 1000,
			"Plan Width": 8,
			"Filter": "(active = true)"
		},
		"Planning Time": 0.085
	}]`

	plans, err := ParseJSONPlan([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(plans) != 1 {
		t.Fatalf("expected 1 plan, got %d", len(plans))
	}

	p := plans[0]
	if p.PlanningTime != 0.085 {
		t.Errorf("PlanningTime = %f, want 0.085", p.PlanningTime)
	}

	node := p.Plan
	if node.NodeType != "Seq Scan" {
		t.Errorf("NodeType = %q, want %q", node.NodeType, "Seq Scan")
	}
	if node.RelationName != "users" {
		t.Errorf("RelationName = %q, want %q", node.RelationName, "users")
	}
	if node.Schema != "public" {
		t.Errorf("Schema = %q, want %q", node.Schema, "public")
	}
	if node.TotalCost != 20.00 {
		t.Errorf("TotalCost = %f, want 20.00", node.TotalCost)
	}
	if node.PlanRows != 1000 {
		t.Errorf("PlanRows = %d, want 1000", node.PlanRows)
	}
	if node.PlanWidth != 8 {
		t.Errorf("PlanWidth = %d, want 8", node.PlanWidth)
	}
	if node.Filter != "(active = true)" {
		t.Errorf("Filter = %q", node.Filter)
	}
}

func TestParseJSONPlan_NestedPlan(t *testing.T) {
	input := `[{
		"Plan": {
			"Node Type": "Hash Join",
			"Join Type": "Inner",
			"Hash Cond": "(o.user_id = u.id)",
			"Startup Cost": 30.0,
			"Total Cost": 250.0,
			"Plan Rows": 5000,
			"Plan Width": 64,
			"Plans": [
				{
					"Node Type": "Seq Scan",
					"Parent Relationship": "Outer",
					"Relation Name": "orders",
					"Alias": "o",
					"Startup Cost": 0.0,
					"Total Cost": 150.0,
					"Plan Rows": 5000,
					"Plan Width": 32
				},
				{
					"Node Type": "Hash",
					"Parent Relationship": "Inner",
					"Startup Cost": 20.0,
					"Total Cost": 20.0,
					"Plan Rows": 1000,
					"Plan Width": 32,
					"Plans": [
						{
							"Node Type": "Index Scan",
							"Parent Relationship": "Outer",
							"Relation Name": "users",
							"Index Name": "users_pkey",
							"Startup Cost": 0.0,
							"Total Cost": 20.0,
							"Plan Rows": 1000,
							"Plan Width": 32
						}
					]
				}
			]
		}
	}]`

	plans, err := ParseJSONPlan([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	root := plans[0].Plan
	if root.NodeType != "Hash Join" {
		t.Errorf("root NodeType = %q", root.NodeType)
	}
	if root.JoinType != "Inner" {
		t.Errorf("JoinType = %q, want Inner", root.JoinType)
	}
	if len(root.Plans) != 2 {
		t.Fatalf("expected 2 children, got %d", len(root.Plans))
	}
	if root.Plans[0].RelationName != "orders" {
		t.Errorf("outer relation = %q", root.Plans[0].RelationName)
	}
	hash := root.Plans[1]
	if len(hash.Plans) != 1 || hash.Plans[0].IndexName != "users_pkey" {
		t.Errorf("expected index scan on users_pkey under Hash, got %+v", hash.Plans)
	}
}

func TestParseJSONPlan_EmptyInput(t *testing.T) {
	_, err := ParseJSONPlan([]byte("[]"))
	if err == nil {
		t.Fatal("expected error for empty plan")
	}
}

func TestParseJSONPlan_InvalidJSON(t *testing.T) {
	_, err := ParseJSONPlan([]byte("not json"))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}

func TestParseJSONPlan_MissingPlanField(t *testing.T) {
	input := `[{"Planning Time": 1.0, "Execution Time": 2.0}]`
	_, err := ParseJSONPlan([]byte(input))
	if err == nil {
		t.Fatal("expected error for entry without Plan")
	}
	if !strings.Contains(err.Error(), "shape") {
		t.Errorf("expected shape error, got: %v", err)
	}
}

func TestParseJSONPlan_ChildWithoutNodeType(t *testing.T) {
	input := `[{"Plan": {"Node Type": "Limit", "Plans": [{"Total Cost": 1.0}]}}]`
	_, err := ParseJSONPlan([]byte(input))
	if err == nil {
		t.Fatal("expected error for child node without Node Type")
	}
}

func TestParseJSONPlan_WrongFieldType(t *testing.T) {
	input := `[{"Plan": {"Node Type": "Seq Scan", "Total Cost": "cheap"}}]`
	_, err := ParseJSONPlan([]byte(input))
	if err == nil {
		t.Fatal("expected error for string Total Cost")
	}
}

func TestParseJSONPlan_SubplanName(t *testing.T) {
	input := `[{
		"Plan": {
			"Node Type": "Append",
			"Parent Relationship": "InitPlan",
			"Subplan Name": "CTE test_updates",
			"Startup Cost": 0.42,
			"Total Cost": 100.0,
			"Plan Rows": 250,
			"Plan Width": 120,
			"Plans": []
		}
	}]`

	plans, err := ParseJSONPlan([]byte(input))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	node := plans[0].Plan
	if node.SubplanName != "CTE test_updates" {
		t.Errorf("SubplanName = %q, want %q", node.SubplanName, "CTE test_updates")
	}
	if node.ParentRelationship != "InitPlan" {
		t.Errorf("ParentRelationship = %q, want %q", node.ParentRelationship, "InitPlan")
	}
}

func TestParseJSONPlan_RoundTrip(t *testing.T) {
	original := ExplainOutput{
		Plan: PlanNode{
			NodeType:  "Seq Scan",
			TotalCost: 100.0,
			PlanRows:  500,
		},
		PlanningTime: 1.5,
	}

	data, err := json.Marshal([]ExplainOutput{original})
	if err != nil {
		t.Fatalf("marshal error: %v", err)
	}

	plans, err := ParseJSONPlan(data)
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}

	got := plans[0]
	if got.Plan.NodeType != original.Plan.NodeType {
		t.Errorf("NodeType = %q, want %q", got.Plan.NodeType, original.Plan.NodeType)
	}
	if got.Plan.TotalCost != original.Plan.TotalCost {
		t.Errorf("TotalCost = %f, want %f", got.Plan.TotalCost, original.Plan.TotalCost)
	}
	if got.PlanningTime != original.PlanningTime {
		t.Errorf("PlanningTime = %f, want %f", got.PlanningTime, original.PlanningTime)
	}
}
