package plan

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/xeipuuv/gojsonschema"
)

// explainSchema describes the subset of the EXPLAIN document the analyzer
// reads. Anything else PostgreSQL adds is accepted and ignored.
const explainSchema = `{
	"type": "array",
	"items": {
		"type": "object",
		"required": ["Plan"],
		"properties": {
			"Plan": {"$ref": "#/definitions/node"},
			"Planning Time": {"type": "number"},
			"Execution Time": {"type": "number"}
		}
	},
	"definitions": {
		"node": {
			"type": "object",
			"required": ["Node Type"],
			"properties": {
				"Node Type": {"type": "string"},
				"Startup Cost": {"type": "number"},
				"Total Cost": {"type": "number"},
				"Plan Rows": {"type": "number"},
				"Plan Width": {"type": "number"},
				"Plans": {"type": "array", "items": {"$ref": "#/definitions/node"}}
			}
		}
	}
}`

var loadSchema = sync.OnceValues(func() (*gojsonschema.Schema, error) {
	return gojsonschema.NewSchema(gojsonschema.NewStringLoader(explainSchema))
})

func ParseJSONPlan(data []byte) ([]ExplainOutput, error) {
	if err := validateShape(data); err != nil {
		return nil, err
	}

	var plans []ExplainOutput
	if err := json.Unmarshal(data, &plans); err != nil {
		return nil, fmt.Errorf("invalid EXPLAIN JSON: %w", err)
	}
	if len(plans) == 0 {
		return nil, fmt.Errorf("empty EXPLAIN output")
	}
	return plans, nil
}

func validateShape(data []byte) error {
	schema, err := loadSchema()
	if err != nil {
		return fmt.Errorf("loading EXPLAIN schema: %w", err)
	}

	result, err := schema.Validate(gojsonschema.NewBytesLoader(data))
	if err != nil {
		return fmt.Errorf("invalid EXPLAIN JSON: %w", err)
	}
	if result.Valid() {
		return nil
	}

	msgs := make([]string, 0, len(result.Errors()))
	for _, desc := range result.Errors() {
		msgs = append(msgs, desc.String())
	}
	return fmt.Errorf("unexpected EXPLAIN document shape: %s", strings.Join(msgs, "; "))
}
