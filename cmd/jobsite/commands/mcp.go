package commands

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/ldi/jobsite/internal/mcp"
)

var mcpAs string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Serve checklist tools over MCP on stdio",
	Long: `Serve checklist tools over the Model Context Protocol on stdin/stdout.

Every tool call acts as the user given with --as.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpAs, "as", "", "Email of the user the tools act as")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	actor, err := a.actorFor(ctx, mcpAs)
	if err != nil {
		return err
	}
	return mcp.Serve(mcp.NewServer(a.db, a.checklist, actor, version))
}
