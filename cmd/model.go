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

var modelCmd = &cobra.Command{
	Use:   "model",
	Short: "Manage AI models",
	Long:  `Manage the models checks run against. The default model is used when a check names none.`,
}

var modelListCmd = &cobra.Command{
	Use:     "list",
	Short:   "List models",
	Example: `  pgreview model list
  pgreview model list --provider 1`,
	RunE: func(cmd *cobra.Command, args []string) error {
		providerID, _ := cmd.Flags().GetInt64("provider")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			list, err := a.store.ListModels(ctx, providerID)
			if err != nil {
				return err
			}

			if len(list) == 0 {
				fmt.Println("No models configured. Run 'pgreview model add <provider_id> <model_name>' to create one.")
				return nil
			}

			for _, m := range list {
				mark := " "
				if m.Default {
					mark = "*"
				}
				fmt.Printf("%s %d\t%s\tprovider %d\tmax_tokens=%d temperature=%.2f\n", mark, m.ID, m.Name, m.ProviderID, m.MaxTokens, m.Temperature)
			}
			return nil
		})
	},
}

var modelAddCmd = &cobra.Command{
	Use:   "add <provider_id> <model_name>",
	Short: "Add a model",
	Example: `  pgreview model add 1 gpt-4o --default
  pgreview model add 2 claude-sonnet-4 --max-tokens 8000 --temperature 0.2`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		providerID, err := parseID(args[0])
		if err != nil {
			return err
		}
		isDefault, _ := cmd.Flags().GetBool("default")
		maxTokens, _ := cmd.Flags().GetInt("max-tokens")
		temperature, _ := cmd.Flags().GetFloat64("temperature")
		systemPrompt, _ := cmd.Flags().GetString("system-prompt")

		return withApp(cmd, func(ctx context.Context, a *app) error {
			if _, err := a.store.GetProvider(ctx, providerID); err != nil {
				return err
			}

			m := &models.Model{
				ProviderID:   providerID,
				Name:         args[1],
				DisplayName:  args[1],
				SystemPrompt: systemPrompt,
				MaxTokens:    maxTokens,
				Temperature:  temperature,
				Default:      isDefault,
				Active:       true,
			}
			if err := a.store.CreateModel(ctx, m); err != nil {
				return err
			}
			fmt.Printf("Model %q saved with id %d.\n", m.Name, m.ID)
			return nil
		})
	},
}

var modelRemoveCmd = &cobra.Command{
	Use:     "remove <id>",
	Aliases: []string{"rm"},
	Short:   "Remove a model",
	Example: `  pgreview model remove 3`,
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		return withApp(cmd, func(ctx context.Context, a *app) error {
			if err := a.store.DeleteModel(ctx, id); err != nil {
				return err
			}
			fmt.Printf("Model %d removed.\n", id)
			return nil
		})
	},
}

func init() {
	rootCmd.AddCommand(modelCmd)
	modelCmd.AddCommand(modelListCmd)
	modelCmd.AddCommand(modelAddCmd)
	modelCmd.AddCommand(modelRemoveCmd)
	modelListCmd.Flags().Int64P("provider", "p", 0, "Only models of this provider")
	modelAddCmd.Flags().Bool("default", false, "Make this the default model")
	modelAddCmd.Flags().Int("max-tokens", models.DefaultMaxTokens, "Maximum tokens per review")
	modelAddCmd.Flags().Float64("temperature", models.DefaultTemperature, "Sampling temperature")
	modelAddCmd.Flags().String("system-prompt", "", "System prompt (built-in prompt when omitted)")
}
