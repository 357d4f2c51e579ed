package main

import (
	"fmt"

	"github.com/aretw0/fable/internal/cli"
	"github.com/spf13/cobra"
)

var validateCmd = &cobra.Command{
	Use:   "validate [story]",
	Short: "Check the story for consistency",
	Long:  `Loads the story, checks markup and jump targets, and reports tags the engine would skip.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.Validate(sourceArg(args), cmd.OutOrStdout()); err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [story]",
	Short: "Print the story tree with node addresses",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")
		return cli.Inspect(sourceArg(args), cmd.OutOrStdout(), asJSON)
	},
}

var graphCmd = &cobra.Command{
	Use:   "graph [story]",
	Short: "Export the story graph visualization",
	Long:  `Outputs a Mermaid diagram (graph TD) of the story tree with its jumps and yields.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		sessionID, _ := cmd.Flags().GetString("session")
		var st *cli.Stack
		if sessionID != "" {
			var err error
			if st, err = loadStack(cmd); err != nil {
				return err
			}
		}
		return cli.Graph(cmd.Context(), st, sourceArg(args), sessionID, cmd.OutOrStdout())
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(inspectCmd)
	rootCmd.AddCommand(graphCmd)

	inspectCmd.Flags().Bool("json", false, "Print the cartridge as JSON")
	graphCmd.Flags().StringP("session", "s", "", "Highlight the path of a stored session")
}
