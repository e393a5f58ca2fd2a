package livedb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

var ErrNotSelect = errors.New("only SELECT statements are explained")

const explainPrefix = "EXPLAIN (ANALYZE false, VERBOSE, BUFFERS, FORMAT JSON) "

// db is the subset of *pgxpool.Pool a Source uses.
type db interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Source runs read-only queries against one target.
type Source struct {
	db db
}

// FetchPlan returns the estimated plan for a SELECT statement as indented
// EXPLAIN JSON. The statement is never executed.
func (s *Source) FetchPlan(ctx context.Context, sql string) (string, error) {
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(sql)), "SELECT") {
		return "", ErrNotSelect
	}

	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
	if err != nil {
		return "", fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var jsonStr string
	if err := tx.QueryRow(ctx, explainPrefix+sql).Scan(&jsonStr); err != nil {
		return "", fmt.Errorf("executing EXPLAIN: %w", err)
	}

	var buf bytes.Buffer
	if err := json.Indent(&buf, []byte(jsonStr), "", "  "); err != nil {
		return "", fmt.Errorf("formatting EXPLAIN output: %w", err)
	}
	return buf.String(), nil
}

// FetchStatements runs query and returns the first column of every row that
// holds non-blank text.
func (s *Source) FetchStatements(ctx context.Context, query string) ([]string, error) {
	rows, err := s.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying statements: %w", err)
	}

	stmts, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (string, error) {
		vals, err := row.Values()
		if err != nil {
			return "", err
		}
		if len(vals) == 0 || vals[0] == nil {
			return "", nil
		}
		if str, ok := vals[0].(string); ok {
			return strings.TrimSpace(str), nil
		}
		return strings.TrimSpace(fmt.Sprint(vals[0])), nil
	})
	if err != nil {
		return nil, fmt.Errorf("reading statements: %w", err)
	}

	out := stmts[:0]
	for _, stmt := range stmts {
		if stmt != "" {
			out = append(out, stmt)
		}
	}
	return out, nil
}

func (s *Source) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("testing connection: %w", err)
	}
	return nil
}
