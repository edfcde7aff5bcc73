package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/llm"
	"github.com/recall-dev/recall/internal/mcp"
	"github.com/recall-dev/recall/internal/rag"
)

// mcpCmd represents the MCP server command.
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start MCP server for AI agent integration",
	Long: `Start a Model Context Protocol (MCP) server for integration with AI agents.

The server communicates via stdin/stdout using JSON-RPC 2.0 and provides tools for:
  - recall_search: Semantic search over a collection
  - recall_ask: Question answering grounded in a collection
  - recall_list_collections: List available collections

This command is typically invoked by AI agents (Claude Code, OpenCode, Codex) and
not run directly by users. Keep collections fresh with 'recall watch' or
'recall add --dir' in a separate session.`,
	RunE: runMcpCmd,
}

func runMcpCmd(cmd *cobra.Command, args []string) error {
	// MCP server uses stdin/stdout for communication, so redirect logs to stderr
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)

	cfg := config.Get()

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Info("Received signal, shutting down", "signal", sig)
		cancel()
	}()

	st, manager, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	generator, err := llm.NewGenerator(cfg)
	if err != nil {
		return fmt.Errorf("failed to create LLM backend: %w", err)
	}
	engine := rag.NewQueryEngine(manager, generator)

	// Create and run MCP server
	server := mcp.NewServer(st, manager, engine, cfg)
	if err := server.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
