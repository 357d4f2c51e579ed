package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aretw0/fable/internal/cli"
	"github.com/aretw0/fable/internal/config"
	"github.com/spf13/cobra"
)

var stack *cli.Stack

var rootCmd = &cobra.Command{
	Use:   "fable",
	Short: "Fable runs interactive audio stories",
	Long: `Fable plays story cartridges: trees of dialogue, media, inputs and
control flow that advance one seam at a time, with checkpoints to rewind to.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx := cli.NewSignalContext(context.Background())
	defer ctx.Cancel()

	err := rootCmd.ExecuteContext(ctx)
	if stack != nil {
		if cerr := stack.Close(context.Background()); cerr != nil && err == nil {
			err = cerr
		}
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	if code := ctx.ExitCode(err); code != 0 {
		os.Exit(code)
	}
}

func init() {
	f := rootCmd.PersistentFlags()
	f.String("log-level", "", "Log level: debug, info, warn or error (FABLE_LOG_LEVEL)")
	f.String("store", "", "Session store: memory, file, redis or sqlite (FABLE_STORE)")
	f.String("session-dir", "", "Directory of the file session store (FABLE_SESSION_DIR)")
	f.String("seed", "", "Fixed random seed; defaults to the session ID (FABLE_SEED)")
}

// loadStack parses the environment, applies flag overrides and builds the
// shared collaborators. Commands that need sessions or a provider call it.
func loadStack(cmd *cobra.Command) (*cli.Stack, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	overrides := map[string]*string{
		"log-level":   &cfg.LogLevel,
		"store":       &cfg.Store,
		"session-dir": &cfg.SessionDir,
		"seed":        &cfg.Seed,
	}
	for name, target := range overrides {
		if cmd.Flags().Changed(name) {
			*target, _ = cmd.Flags().GetString(name)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	st, err := cli.Build(cmd.Context(), cfg)
	if err != nil {
		return nil, err
	}
	stack = st
	return st, nil
}

// sourceArg returns the story path from the first argument, or ".".
func sourceArg(args []string) string {
	if len(args) > 0 {
		return args[0]
	}
	return "."
}
