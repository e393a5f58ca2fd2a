package plan

// PlanNode is one node of a PostgreSQL EXPLAIN (FORMAT JSON) tree. Field
// names follow the keys PostgreSQL emits.
type PlanNode struct {
	NodeType           string `json:"Node Type"`
	ParentRelationship string `json:"Parent Relationship,omitempty"`
	Strategy           string `json:"Strategy,omitempty"`

	// Planner estimates
	StartupCost float64 `json:"Startup Cost"`
	TotalCost   float64 `json:"Total Cost"`
	PlanRows    int64   `json:"Plan Rows"`
	PlanWidth   int     `json:"Plan Width"`

	Schema       string `json:"Schema,omitempty"`
	RelationName string `json:"Relation Name,omitempty"`
	Alias        string `json:"Alias,omitempty"`
	IndexName    string `json:"Index Name,omitempty"`

	IndexCond string `json:"Index Cond,omitempty"`
	Filter    string `json:"Filter,omitempty"`

	JoinType string `json:"Join Type,omitempty"`
	HashCond string `json:"Hash Cond,omitempty"`

	Output []string `json:"Output,omitempty"`

	Plans []PlanNode `json:"Plans,omitempty"`

	SubplanName string `json:"Subplan Name,omitempty"`
}

// ExplainOutput is one entry of the top-level EXPLAIN JSON array.
type ExplainOutput struct {
	Plan          PlanNode `json:"Plan"`
	PlanningTime  float64  `json:"Planning Time,omitempty"`
	ExecutionTime float64  `json:"Execution Time,omitempty"`
}
