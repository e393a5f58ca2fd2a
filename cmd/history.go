/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jacobarthurs/pgreview/internal/export"
	"github.com/jacobarthurs/pgreview/internal/models"
	"github.com/jacobarthurs/pgreview/internal/output"
)

var progressCmd = &cobra.Command{
	Use:     "progress <batch-id>",
	Short:   "Show how far a batch has got",
	Example: `  pgreview progress batch_20260314_092653_1a2b3c4d`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		format, _ := cmd.Flags().GetString("format")
		if err := validateFormat(format); err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			p, err := a.checker.Progress(ctx, args[0])
			if err != nil {
				return err
			}
			if format == "json" {
				return output.RenderJSON(os.Stdout, p)
			}
			return output.RenderProgressText(os.Stdout, p)
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Browse past checks",
	Long: `List recent batches, or the records of one batch with --batch.

With --status or --records, individual records across all batches are
listed instead.`,
	Example: `  # Recent batches
  pgreview history

  # One batch with its records
  pgreview history --batch batch_20260314_092653_1a2b3c4d

  # Failed records
  pgreview history --status failed --limit 20`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		batchID, _ := cmd.Flags().GetString("batch")
		status, _ := cmd.Flags().GetString("status")
		records, _ := cmd.Flags().GetBool("records")
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")
		format, _ := cmd.Flags().GetString("format")

		if err := validateFormat(format); err != nil {
			return err
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			switch {
			case batchID != "" && status == "":
				sum, err := a.store.GetSummary(ctx, batchID)
				if err != nil {
					return err
				}
				recs, err := a.store.BatchRecords(ctx, batchID)
				if err != nil {
					return err
				}
				if format == "json" {
					return output.RenderJSON(os.Stdout, map[string]any{"summary": sum, "records": recs})
				}
				return output.RenderSummaryText(os.Stdout, sum, recs)

			case records || status != "" || batchID != "":
				recs, total, err := a.store.ListRecords(ctx, models.RecordFilter{
					BatchID: batchID,
					Status:  models.CheckStatus(status),
					Limit:   limit,
					Offset:  offset,
				})
				if err != nil {
					return err
				}
				if format == "json" {
					return output.RenderJSON(os.Stdout, map[string]any{"total": total, "items": recs})
				}
				return output.RenderRecordsText(os.Stdout, recs, total)

			default:
				sums, total, err := a.store.ListSummaries(ctx, models.SummaryFilter{Limit: limit, Offset: offset})
				if err != nil {
					return err
				}
				if format == "json" {
					return output.RenderJSON(os.Stdout, map[string]any{"total": total, "items": sums})
				}
				return output.RenderSummariesText(os.Stdout, sums, total)
			}
		})
	},
}

var exportCmd = &cobra.Command{
	Use:   "export <batch-id>",
	Short: "Export a batch to an Excel workbook or a PDF report",
	Example: `  pgreview export batch_20260314_092653_1a2b3c4d
  pgreview export batch_20260314_092653_1a2b3c4d -o report.xlsx
  pgreview export batch_20260314_092653_1a2b3c4d --format pdf`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out, _ := cmd.Flags().GetString("output")
		format, _ := cmd.Flags().GetString("format")

		render := export.Excel
		switch format {
		case "xlsx":
		case "pdf":
			render = export.PDF
		default:
			return fmt.Errorf("unsupported export format %q (supported: xlsx, pdf)", format)
		}
		if out == "" {
			out = "sql_check_" + args[0] + "." + format
		}

		return withApp(cmd, func(ctx context.Context, a *app) error {
			sum, err := a.store.GetSummary(ctx, args[0])
			if err != nil {
				return err
			}
			recs, err := a.store.BatchRecords(ctx, args[0])
			if err != nil {
				return err
			}

			data, err := render(sum, recs)
			if err != nil {
				return err
			}
			if err := os.WriteFile(out, data, 0644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			fmt.Printf("Exported %d records to %s\n", len(recs), out)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(progressCmd)
	progressCmd.Flags().StringP("format", "f", "text", "Output format: text, json")

	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringP("batch", "b", "", "Batch id")
	historyCmd.Flags().String("status", "", "Record status: pending, success, failed")
	historyCmd.Flags().BoolP("records", "r", false, "List records instead of batches")
	historyCmd.Flags().IntP("limit", "n", 0, "Maximum number of entries")
	historyCmd.Flags().Int("offset", 0, "Entries to skip")
	historyCmd.Flags().StringP("format", "f", "text", "Output format: text, json")

	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringP("output", "o", "", "Output file (default sql_check_<batch-id>.<format>)")
	exportCmd.Flags().StringP("format", "f", "xlsx", "Report format: xlsx, pdf")
}
