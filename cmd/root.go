/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"fmt"
	"os"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var Version = "dev"

func init() {
	if Version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "(devel)" {
			Version = info.Main.Version
		}
	}
	rootCmd.Version = Version
	rootCmd.PersistentFlags().String("config", "", "Config file (default is <user config dir>/pgreview/config.yaml)")
}

var rootCmd = &cobra.Command{
	Use:          "pgreview",
	SilenceUsage: true,
	Short:        "AI-assisted review of PostgreSQL SQL statements",
	Long: `pgreview sends SQL statements to an AI model for review, together with an
EXPLAIN plan analysis when one is available.

Statements can be checked one at a time, in batches from a file, or pulled
from a live target database. Every check is recorded and can be browsed,
tracked while running, and exported to Excel. The same features are served
over HTTP by 'pgreview serve'.`,
	Example: `  # Create the config file with a fresh encryption key
  pgreview init

  # Register a provider and a default model
  pgreview provider add openai --key sk-...
  pgreview model add 1 gpt-4o --default

  # Review a query
  pgreview check query.sql

  # Analyze a plan locally without AI
  pgreview analyze plan.json`,
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func validateFormat(format string) error {
	if format != "text" && format != "json" {
		return fmt.Errorf("invalid output format %q: must be \"text\" or \"json\"", format)
	}
	return nil
}
