package main

import (
	"strconv"

	"github.com/aretw0/fable/internal/cli"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored sessions",
	Long:  `List, inspect, rewind and remove sessions kept in the configured store.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStack(cmd)
		if err != nil {
			return err
		}
		return cli.ListSessions(cmd.Context(), st, cmd.OutOrStdout())
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <session-id>",
	Short: "Print the state of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStack(cmd)
		if err != nil {
			return err
		}
		return cli.ShowSession(cmd.Context(), st, cmd.OutOrStdout(), args[0])
	},
}

var sessionHistoryCmd = &cobra.Command{
	Use:   "history <session-id>",
	Short: "List the checkpoints of a session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStack(cmd)
		if err != nil {
			return err
		}
		return cli.SessionHistory(cmd.Context(), st, cmd.OutOrStdout(), args[0])
	},
}

var sessionRevertCmd = &cobra.Command{
	Use:   "revert <session-id> <index> [story]",
	Short: "Rewind a session to a checkpoint",
	Long:  `Restores a session to checkpoint <index>. Negative indexes count from the latest (-1).`,
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[1])
		if err != nil {
			return err
		}
		st, err := loadStack(cmd)
		if err != nil {
			return err
		}
		engine, err := st.Engine(sourceArg(args[2:]))
		if err != nil {
			return err
		}
		return cli.RevertSession(cmd.Context(), st, engine, cmd.OutOrStdout(), args[0], index)
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <session-id>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStack(cmd)
		if err != nil {
			return err
		}
		return cli.DeleteSessions(cmd.Context(), st, cmd.OutOrStdout(), args)
	},
}

func init() {
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd, sessionInspectCmd, sessionHistoryCmd, sessionRevertCmd, sessionRmCmd)
}
