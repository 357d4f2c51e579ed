package main

import (
	"github.com/aretw0/fable/internal/cli"
	"github.com/spf13/cobra"
)

var playCmd = &cobra.Command{
	Use:   "play [story]",
	Short: "Play a story in the terminal",
	Long: `Plays a story directory or cartridge file interactively. With --session
the playthrough is stored and resumed from where it stopped.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStack(cmd)
		if err != nil {
			return err
		}
		opts := cli.RunOptions{Source: sourceArg(args)}
		opts.SessionID, _ = cmd.Flags().GetString("session")
		opts.JSON, _ = cmd.Flags().GetBool("json")
		opts.Watch, _ = cmd.Flags().GetBool("watch")
		opts.Fresh, _ = cmd.Flags().GetBool("fresh")
		opts.Pace, _ = cmd.Flags().GetBool("pace")
		opts.MaxTurns, _ = cmd.Flags().GetInt("max-turns")
		return cli.Play(cmd.Context(), st, opts)
	},
}

func init() {
	rootCmd.AddCommand(playCmd)

	playCmd.Flags().StringP("session", "s", "", "Session ID to store and resume")
	playCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	playCmd.Flags().BoolP("watch", "w", false, "Reload the story when its files change")
	playCmd.Flags().Bool("fresh", false, "Discard the stored session before playing")
	playCmd.Flags().Bool("pace", false, "Wait out sleep instructions")
	playCmd.Flags().Int("max-turns", 0, "Stop after this many turns (0 is unlimited)")
}
