package llm

import "strings"

const (
	NoExplainPlaceholder = "No EXPLAIN result available"

	DefaultSystemPrompt = "You are a senior PostgreSQL DBA. Review SQL statements for correctness, " +
		"performance and maintainability, and answer with concrete, actionable findings."

	DefaultPromptTemplate = `Review the following PostgreSQL statement.

SQL:
{{SQL_STATEMENT}}

Execution plan (EXPLAIN, FORMAT JSON):
{{EXPLAIN_RESULT}}

Table schema:
{{TABLE_SCHEMA}}

Report:
1. Syntax or semantic problems
2. Performance risks, referring to the plan where available
3. Index recommendations
4. A rewritten statement if it can be improved`
)

// BuildPrompt fills the template placeholders from req. An empty template
// falls back to DefaultPromptTemplate.
func BuildPrompt(template string, req Request) string {
	if strings.TrimSpace(template) == "" {
		template = DefaultPromptTemplate
	}

	explain := req.Explain
	if explain == "" {
		explain = NoExplainPlaceholder
	}

	return strings.NewReplacer(
		"{{SQL_STATEMENT}}", req.SQL,
		"{{EXPLAIN_RESULT}}", explain,
		"{{TABLE_SCHEMA}}", req.Schema,
	).Replace(template)
}
