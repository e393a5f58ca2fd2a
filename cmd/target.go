/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jacobarthurs/pgreview/internal/models"
)

var targetCmd = &cobra.Command{
	Use:   "target",
	Short: "Manage target databases",
	Long: `Manage the live PostgreSQL databases that plans and statement lists are
pulled from. Passwords are encrypted before they are stored.`,
}

var targetListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List targets",
	Example: `  pgreview target list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			targets, err := a.store.ListTargets(ctx)
			if err != nil {
				return err
			}

			if len(targets) == 0 {
				fmt.Println("No targets configured. Run 'pgreview target add <name> --host <host> --database <db> --user <user>' to create one.")
				return nil
			}

			for _, t := range targets {
				fmt.Printf("  %d\t%s\t%s@%s:%d/%s\n", t.ID, t.Name, t.Username, t.Host, t.Port, t.Database)
			}
			return nil
		})
	},
}

var targetAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a target database",
	Example: `  pgreview target add prod --host db.internal --database app --user reviewer --password secret \
    --statement-query "SELECT query FROM pg_stat_statements ORDER BY total_exec_time DESC LIMIT 50"`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		host, _ := cmd.Flags().GetString("host")
		port, _ := cmd.Flags().GetInt("port")
		database, _ := cmd.Flags().GetString("database")
		user, _ := cmd.Flags().GetString("user")
		password, _ := cmd.Flags().GetString("password")
		query, _ := cmd.Flags().GetString("statement-query")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			enc, err := a.cipher.Encrypt(password)
			if err != nil {
				return err
			}

			t := &models.Target{
				Name:           args[0],
				Host:           host,
				Port:           port,
				Database:       database,
				Username:       user,
				Password:       enc,
				StatementQuery: query,
				Active:         true,
			}
			if err := a.store.CreateTarget(ctx, t); err != nil {
				return err
			}
			fmt.Printf("Target %q saved with id %d.\n", t.Name, t.ID)
			return nil
		})
	},
}

var targetRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a target database",
	Example: `  pgreview target remove 2`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.store.DeleteTarget(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Target %d removed.\n", id)
			return nil
		})
	},
}

var targetTestCmd = &cobra.Command{
	Use:     "test <id>",
	Short:   "Test the connection to a target",
	Example: `  pgreview target test 2`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			t, err := a.store.GetTarget(ctx, id)
			if err != nil {
				return err
			}
			src, err := a.sources.Open(ctx, t)
			if err != nil {
				return err
			}
			if err := src.Ping(ctx); err != nil {
				return fmt.Errorf("connecting to %q: %w", t.Name, err)
			}
			fmt.Printf("Connected to %q.\n", t.Name)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(targetCmd)
	targetCmd.AddCommand(targetListCmd)
	targetCmd.AddCommand(targetAddCmd)
	targetCmd.AddCommand(targetRemoveCmd)
	targetCmd.AddCommand(targetTestCmd)
	targetAddCmd.Flags().String("host", "localhost", "Database host")
	targetAddCmd.Flags().Int("port", models.DefaultPort, "Database port")
	targetAddCmd.Flags().StringP("database", "d", "", "Database name")
	targetAddCmd.Flags().StringP("user", "u", "", "Database user")
	targetAddCmd.Flags().StringP("password", "p", "", "Database password")
	targetAddCmd.Flags().StringP("statement-query", "q", "", "Query whose first column lists statements to review")
	targetAddCmd.MarkFlagRequired("database")
	targetAddCmd.MarkFlagRequired("user")
}
