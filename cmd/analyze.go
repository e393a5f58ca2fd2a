/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/jacobarthurs/pgreview/internal/analyzer"
	"github.com/jacobarthurs/pgreview/internal/output"
	"github.com/jacobarthurs/pgreview/internal/plan"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze [file]",
	Short: "Analyze a query plan without AI review",
	Long: `Analyze a PostgreSQL query plan and score it.

Input can be a JSON file (EXPLAIN output) or a SQL file. SQL input needs
--target so the plan can be fetched. Use "-" to read from stdin. If no file
is provided, enters interactive mode.

Nothing is recorded and no AI model is called.`,
	Example: `  # Analyze from file
  pgreview analyze plan.json

  # Fetch the plan from a target
  pgreview analyze query.sql --target 1

  # Read from stdin
  cat plan.json | pgreview analyze -`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		targetID, _ := cmd.Flags().GetInt64("target")
		format, _ := cmd.Flags().GetString("format")

		if err := validateFormat(format); err != nil {
			return err
		}

		var file string
		if len(args) > 0 {
			file = args[0]
		}

		render := func(result analyzer.Result) error {
			if format == "json" {
				return output.RenderJSON(os.Stdout, result)
			}
			return output.RenderAnalysisText(os.Stdout, result)
		}

		if targetID == 0 {
			out, _, err := plan.Resolve(cmd.Context(), file, nil)
			if err != nil {
				return err
			}
			return render(analyzer.AnalyzeOutput(out))
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			t, err := a.store.GetTarget(ctx, targetID)
			if err != nil {
				return err
			}
			src, err := a.sources.Open(ctx, t)
			if err != nil {
				return err
			}

			out, _, err := plan.Resolve(ctx, file, src)
			if err != nil {
				return err
			}
			return render(analyzer.AnalyzeOutput(out))
		})
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().Int64P("target", "t", 0, "Target id to fetch the plan from for SQL input")
	analyzeCmd.Flags().StringP("format", "f", "text", "Output format: text, json")
}
