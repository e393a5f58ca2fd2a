/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacobarthurs/pgreview/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create config file with a generated encryption key",
	Long: `Create <user config dir>/pgreview/config.yaml from a template.

The template carries a freshly generated encryption key used to protect
provider API keys and target passwords at rest. Changing the key later makes
stored credentials unreadable. If a config file already exists, it will not
be overwritten unless --force is given.`,
	Example: `  # Create default config
  pgreview init

  # Overwrite existing config
  pgreview init --force`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		force, _ := cmd.Flags().GetBool("force")
		path, _ := cmd.Flags().GetString("config")

		written, err := config.WriteTemplate(path, force)
		if err != nil {
			return err
		}

		fmt.Printf("Config written to %s\n", written)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
	initCmd.Flags().BoolP("force", "f", false, "Overwrite existing config file")
}
