/*
Copyright © 2026 JACOB ARTHURS
*/
package cmd

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jacobarthurs/pgreview/internal/models"
)

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Manage AI providers",
	Long: `Manage AI provider accounts. API keys are encrypted with the configured
encryption key before they are stored.`,
}

var providerListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List providers",
	Example: `  pgreview provider list`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd, func(ctx context.Context, a *app) error {
			providers, err := a.store.ListProviders(ctx)
			if err != nil {
				return err
			}

			if len(providers) == 0 {
				fmt.Printf("No providers configured. Run 'pgreview provider add <name> --key <api_key>' to create one.\nSupported: %s\n",
					strings.Join(a.registry.Providers(), ", "))
				return nil
			}

			for _, p := range providers {
				state := ""
				if !p.Active {
					state = " (inactive)"
				}
				fmt.Printf("  %d\t%s\t%s%s\n", p.ID, p.Name, p.Endpoint, state)
			}
			return nil
		})
	},
}

var providerAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add a provider",
	Example: `  pgreview provider add openai --key sk-...
  pgreview provider add generic --key abc --endpoint https://llm.internal/v1/generate`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, _ := cmd.Flags().GetString("key")
		endpoint, _ := cmd.Flags().GetString("endpoint")
		display, _ := cmd.Flags().GetString("display-name")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			if !slices.Contains(a.registry.Providers(), strings.ToLower(args[0])) {
				return fmt.Errorf("unknown provider %q (supported: %s)", args[0], strings.Join(a.registry.Providers(), ", "))
			}

			enc, err := a.cipher.Encrypt(key)
			if err != nil {
				return err
			}
			if display == "" {
				display = args[0]
			}

			p := &models.Provider{Name: args[0], DisplayName: display, Endpoint: endpoint, APIKey: enc, Active: true}
			if err := a.store.CreateProvider(ctx, p); err != nil {
				return err
			}
			fmt.Printf("Provider %q saved with id %d.\n", p.Name, p.ID)
			return nil
		})
	},
}

var providerRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a provider and its models",
	Example: `  pgreview provider remove 1`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.store.DeleteProvider(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Provider %d removed.\n", id)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(providerCmd)
	providerCmd.AddCommand(providerListCmd)
	providerCmd.AddCommand(providerAddCmd)
	providerCmd.AddCommand(providerRemoveCmd)
	providerAddCmd.Flags().StringP("key", "k", "", "API key")
	providerAddCmd.Flags().StringP("endpoint", "e", "", "API endpoint (provider default when omitted)")
	providerAddCmd.Flags().String("display-name", "", "Display name")
	providerAddCmd.MarkFlagRequired("key")
}
