/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jacobarthurs/pgreview/internal/checker"
	"github.com/jacobarthurs/pgreview/internal/output"
	"github.com/jacobarthurs/pgreview/internal/plan"
)

var checkCmd = &cobra.Command{
	Use:   "check [file]",
	Short: "Review a single SQL statement",
	Long: `Review one SQL statement with an AI model.

The plan given with --explain is analyzed and sent along with the statement.
Without it, a plan is fetched from --target when the statement is a SELECT.
Use "-" to read from stdin. If no file is provided, enters interactive mode.`,
	Example: `  # Review with the default model
  pgreview check query.sql

  # Use a specific model and fetch the plan from a target
  pgreview check query.sql --model 2 --target 1

  # Stream the review as it is written
  cat query.sql | pgreview check - --stream`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		modelID, _ := cmd.Flags().GetInt64("model")
		targetID, _ := cmd.Flags().GetInt64("target")
		explainFile, _ := cmd.Flags().GetString("explain")
		stream, _ := cmd.Flags().GetBool("stream")
		format, _ := cmd.Flags().GetString("format")

		if err := validateFormat(format); err != nil {
			return err
		}

		var file string
		if len(args) > 0 {
			file = args[0]
		}
		data, err := plan.ReadInput(file, "SQL statement")
		if err != nil {
			return err
		}

		req := checker.SingleRequest{SQL: string(data), ModelID: modelID, TargetID: targetID}
		if explainFile != "" {
			explain, err := os.ReadFile(explainFile)
			if err != nil {
				return err
			}
			req.Explain = string(explain)
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			if !stream {
				rec, err := a.checker.SubmitSingle(ctx, req)
				if err != nil {
					return err
				}
				if format == "json" {
					return output.RenderJSON(os.Stdout, rec)
				}
				return output.RenderRecordText(os.Stdout, rec)
			}

			rec, err := a.checker.SubmitSingleStream(ctx, req, printEvent(format))
			if err != nil {
				return err
			}
			if format == "json" {
				return output.RenderJSON(os.Stdout, rec)
			}
			if rec.Performance != nil {
				fmt.Println()
				return output.RenderAnalysisText(os.Stdout, *rec.Performance)
			}
			return nil
		})
	},
}

// printEvent writes streamed review text to stdout and progress to stderr.
// With JSON output only the final record is printed.
func printEvent(format string) func(checker.Event) {
	return func(e checker.Event) {
		switch e.Type {
		case checker.EventStatus:
			fmt.Fprintf(os.Stderr, "%s...\n", strings.TrimSuffix(e.Message, "..."))
		case checker.EventContent:
			if format == "text" {
				fmt.Print(e.Content)
			}
		case checker.EventDone:
			if format == "text" {
				fmt.Println()
			}
		case checker.EventError:
			fmt.Fprintf(os.Stderr, "\nError: %s\n", e.Message)
		}
	}
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().Int64P("model", "m", 0, "Model id (default model when omitted)")
	checkCmd.Flags().Int64P("target", "t", 0, "Target id to fetch the EXPLAIN plan from")
	checkCmd.Flags().StringP("explain", "e", "", "File with EXPLAIN (FORMAT JSON) output for the statement")
	checkCmd.Flags().BoolP("stream", "s", false, "Stream the review as it is generated")
	checkCmd.Flags().StringP("format", "f", "text", "Output format: text, json")
	checkCmd.MarkFlagsMutuallyExclusive("explain", "target")
}
