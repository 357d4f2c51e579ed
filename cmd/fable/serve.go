package main

import (
	"github.com/aretw0/fable/internal/cli"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve [story]",
	Short: "Start the HTTP server",
	Long: `Serves a story over a JSON API described by /openapi.yaml. Sessions are
kept in the configured store; Prometheus metrics are exposed on /metrics.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStack(cmd)
		if err != nil {
			return err
		}
		addr := st.Config.HTTPAddr
		if cmd.Flags().Changed("addr") {
			addr, _ = cmd.Flags().GetString("addr")
		}
		watch, _ := cmd.Flags().GetBool("watch")
		return cli.Serve(cmd.Context(), st, cli.ServeOptions{
			Source: sourceArg(args),
			Addr:   addr,
			Watch:  watch,
		})
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", ":8080", "Address to listen on (FABLE_HTTP_ADDR)")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the story when its files change")
}
