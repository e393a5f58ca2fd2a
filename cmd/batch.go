/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/jacobarthurs/pgreview/internal/checker"
	"github.com/jacobarthurs/pgreview/internal/models"
	"github.com/jacobarthurs/pgreview/internal/output"
)

// batchFile is the YAML layout accepted by the batch command.
type batchFile struct {
	Items []checker.BatchItem `yaml:"items"`
}

func loadBatchFile(path string) ([]checker.BatchItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f batchFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing batch file %s: %w", path, err)
	}
	return f.Items, nil
}

var batchCmd = &cobra.Command{
	Use:   "batch <file.yaml>",
	Short: "Review a list of SQL statements",
	Long: `Review every statement listed in a YAML file, one after another.

Each item has an "sql" field and an optional "explain" field with EXPLAIN
(FORMAT JSON) output. An item with an empty "sql" rejects the whole file.
A failing statement is recorded and the batch moves on to the next one.
Interrupting the command fails the remaining items.`,
	Example: `  # batch.yaml
  # items:
  #   - sql: SELECT * FROM orders WHERE customer_id = 42
  #   - sql: UPDATE carts SET paid = true WHERE id = 7

  pgreview batch batch.yaml --model 1 --target 2`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modelID, _ := cmd.Flags().GetInt64("model")
		targetID, _ := cmd.Flags().GetInt64("target")
		format, _ := cmd.Flags().GetString("format")

		if err := validateFormat(format); err != nil {
			return err
		}

		items, err := loadBatchFile(args[0])
		if err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			b, err := a.checker.StartBatch(ctx, checker.BatchRequest{Items: items, ModelID: modelID, TargetID: targetID})
			if err != nil {
				return err
			}
			return runBatch(ctx, a, b, format)
		})
	},
}

// runBatch runs b in the foreground, reporting progress on stderr, then
// prints the summary.
func runBatch(ctx context.Context, a *app, b *checker.Batch, format string) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Batch %s: %d statements\n", b.ID(), b.Summary.TotalCount)

	done := make(chan *models.BatchSummary, 1)
	go func() { done <- b.Run(ctx) }()

	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	var sum *models.BatchSummary
	for sum == nil {
		select {
		case sum = <-done:
		case <-ticker.C:
			if p, err := a.checker.Progress(context.WithoutCancel(ctx), b.ID()); err == nil {
				output.RenderProgressText(os.Stderr, p)
			}
		}
	}

	recs, err := a.store.BatchRecords(context.WithoutCancel(ctx), b.ID())
	if err != nil {
		return err
	}

	if format == "json" {
		return output.RenderJSON(os.Stdout, map[string]any{"summary": sum, "records": recs})
	}
	return output.RenderSummaryText(os.Stdout, sum, recs)
}

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Review every statement listed by a target",
	Long: `Run the target's statement query and review each statement it returns.

Plans are fetched from the same target for SELECT statements unless
--no-explain is given.`,
	Example: `  pgreview all --target 1
  pgreview all --target 1 --model 2 --no-explain`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		targetID, _ := cmd.Flags().GetInt64("target")
		modelID, _ := cmd.Flags().GetInt64("model")
		noExplain, _ := cmd.Flags().GetBool("no-explain")
		format, _ := cmd.Flags().GetString("format")

		if err := validateFormat(format); err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			b, err := a.checker.FetchAll(ctx, targetID, modelID, !noExplain)
			if err != nil {
				return err
			}
			return runBatch(ctx, a, b, format)
		})
	},
}

func init() {
	rootCmd.AddCommand(batchCmd)
	batchCmd.Flags().Int64P("model", "m", 0, "Model id (default model when omitted)")
	batchCmd.Flags().Int64P("target", "t", 0, "Target id to fetch EXPLAIN plans from")
	batchCmd.Flags().StringP("format", "f", "text", "Output format: text, json")

	rootCmd.AddCommand(allCmd)
	allCmd.Flags().Int64P("target", "t", 0, "Target id to read statements from")
	allCmd.Flags().Int64P("model", "m", 0, "Model id (default model when omitted)")
	allCmd.Flags().Bool("no-explain", false, "Do not fetch EXPLAIN plans")
	allCmd.Flags().StringP("format", "f", "text", "Output format: text, json")
	allCmd.MarkFlagRequired("target")
}
