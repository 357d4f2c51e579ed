package main

import (
	"github.com/aretw0/fable/internal/cli"
	"github.com/spf13/cobra"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp [story]",
	Short: "Run the Model Context Protocol (MCP) server",
	Long: `Exposes a story to AI agents as MCP tools (advance, revert, inspect_tree).

Supported Transports:
- stdio (default): Uses Standard Input/Output. Ideal for local process integration.
- sse: Uses Server-Sent Events over HTTP. Ideal for remote agents or debuggers.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := loadStack(cmd)
		if err != nil {
			return err
		}
		opts := cli.MCPOptions{Source: sourceArg(args)}
		opts.Transport, _ = cmd.Flags().GetString("transport")
		opts.Addr, _ = cmd.Flags().GetString("addr")
		opts.BaseURL, _ = cmd.Flags().GetString("base-url")
		return cli.ServeMCP(cmd.Context(), st, opts)
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)

	mcpCmd.Flags().String("transport", "stdio", "Transport protocol to use: 'stdio' or 'sse'")
	mcpCmd.Flags().String("addr", ":8081", "Address to listen on (only for SSE)")
	mcpCmd.Flags().String("base-url", "", "Public base URL advertised to SSE clients")
}
