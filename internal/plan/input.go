package plan

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"strings"
)

type InputType string

const (
	InputJSON    InputType = "json"
	InputSQL     InputType = "sql"
	InputText    InputType = "text"
	InputUnknown InputType = "unknown"
)

// Fetcher turns a raw SQL statement into EXPLAIN JSON text.
type Fetcher interface {
	FetchPlan(ctx context.Context, sql string) (string, error)
}

// Resolve reads input (a path, "-" for stdin, or "" for interactive) and
// returns the first plan it contains together with the raw JSON text. SQL
// input is explained through fetcher, which may be nil when no target is
// configured.
func Resolve(ctx context.Context, input string, fetcher Fetcher) (ExplainOutput, string, error) {
	data, err := ReadInput(input, "EXPLAIN (FORMAT JSON) output or SQL query")
	if err != nil {
		return ExplainOutput{}, "", err
	}

	raw := data
	switch DetectType(data, input) {
	case InputJSON:
	case InputSQL:
		if IsExplainPrefixed(string(data)) {
			return ExplainOutput{}, "", fmt.Errorf("input should not include EXPLAIN prefix - provide the raw query only")
		}
		if fetcher == nil {
			return ExplainOutput{}, "", fmt.Errorf("SQL input requires a target database")
		}
		text, err := fetcher.FetchPlan(ctx, string(data))
		if err != nil {
			return ExplainOutput{}, "", err
		}
		raw = []byte(text)
	case InputText:
		return ExplainOutput{}, "", fmt.Errorf(`text format not supported - use JSON format:

EXPLAIN (FORMAT JSON) <your query>

Then provide the complete JSON output.`)
	default:
		return ExplainOutput{}, "", fmt.Errorf("unable to detect input type: expected JSON plan, SQL query, or .json/.sql file")
	}

	plans, err := ParseJSONPlan(raw)
	if err != nil {
		return ExplainOutput{}, "", err
	}
	return plans[0], string(raw), nil
}

// ReadInput reads a path, stdin ("-") or an interactive paste ("").
func ReadInput(input string, what string) ([]byte, error) {
	switch input {
	case "":
		return readInteractive(what)
	case "-":
		return io.ReadAll(os.Stdin)
	default:
		return os.ReadFile(input)
	}
}

func readInteractive(what string) ([]byte, error) {
	fmt.Printf("Paste %s", what)
	if runtime.GOOS == "windows" {
		fmt.Print(" (Ctrl+Z, Enter to submit)\n")
	} else {
		fmt.Print(" (Ctrl+D to submit)\n")
	}

	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return nil, err
	}

	trimmed := strings.TrimSpace(string(data))
	if (strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{")) && !json.Valid(data) {
		return nil, fmt.Errorf("input appears truncated; for large inputs pass a file path instead")
	}

	return data, nil
}

func DetectType(data []byte, filename string) InputType {
	switch {
	case strings.HasSuffix(filename, ".json"):
		return InputJSON
	case strings.HasSuffix(filename, ".sql"):
		return InputSQL
	case strings.HasSuffix(filename, ".txt"):
		return InputText
	}

	trimmed := strings.TrimSpace(string(data))

	if strings.HasPrefix(trimmed, "[") || strings.HasPrefix(trimmed, "{") {
		return InputJSON
	}
	if strings.Contains(trimmed, "(cost=") {
		return InputText
	}

	upper := strings.ToUpper(trimmed)
	for _, kw := range []string{"SELECT", "WITH", "INSERT", "UPDATE", "DELETE", "EXPLAIN"} {
		if strings.HasPrefix(upper, kw) {
			return InputSQL
		}
	}
	return InputUnknown
}

// IsSelect reports whether the statement is eligible for a live EXPLAIN.
func IsSelect(sql string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "SELECT")
}

func IsExplainPrefixed(sql string) bool {
	return strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "EXPLAIN")
}
