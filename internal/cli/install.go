package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recall-dev/recall/internal/install"
)

// installCmd represents the install parent command.
var installCmd = &cobra.Command{
	Use:   "install",
	Short: "Install recall into AI coding agents",
	Long: `Install recall as an MCP server into AI coding agents.

Supported agents:
  - claude-code: Claude Code (Anthropic)
  - opencode: OpenCode
  - codex: Codex (OpenAI)

After installation, the agent can search your collections and ask
questions grounded in them. Ingest documents first with 'recall add'.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// installClaudeCodeCmd installs recall into Claude Code.
var installClaudeCodeCmd = &cobra.Command{
	Use:   "claude-code",
	Short: "Install recall into Claude Code",
	Long: `Install recall as an MCP server into Claude Code.

This adds an entry to ~/.claude.json that configures Claude Code to start
recall's MCP server when beginning a session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return install.ClaudeCodeInstall()
	},
}

// installOpencodeCmd installs recall into OpenCode.
var installOpencodeCmd = &cobra.Command{
	Use:   "opencode",
	Short: "Install recall into OpenCode",
	Long: `Install recall as an MCP server into OpenCode.

This:
  1. Creates a tool definition at ~/.config/opencode/tool/recall.ts
  2. Adds an MCP server entry to ~/.config/opencode/opencode.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return install.OpenCodeInstall()
	},
}

// installCodexCmd installs recall into Codex.
var installCodexCmd = &cobra.Command{
	Use:   "codex",
	Short: "Install recall into Codex",
	Long: `Install recall as an MCP server into Codex.

This:
  1. Runs 'codex mcp add recall recall mcp' to register the MCP server
  2. Appends the recall skill definition to ~/.codex/AGENTS.md`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return install.CodexInstall()
	},
}

// uninstallCmd represents the uninstall parent command.
var uninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Uninstall recall from AI coding agents",
	Long: `Uninstall recall from AI coding agents.

Supported agents:
  - claude-code: Claude Code (Anthropic)
  - opencode: OpenCode
  - codex: Codex (OpenAI)`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

// uninstallClaudeCodeCmd uninstalls recall from Claude Code.
var uninstallClaudeCodeCmd = &cobra.Command{
	Use:   "claude-code",
	Short: "Uninstall recall from Claude Code",
	RunE: func(cmd *cobra.Command, args []string) error {
		return install.ClaudeCodeUninstall()
	},
}

// uninstallOpencodeCmd uninstalls recall from OpenCode.
var uninstallOpencodeCmd = &cobra.Command{
	Use:   "opencode",
	Short: "Uninstall recall from OpenCode",
	RunE: func(cmd *cobra.Command, args []string) error {
		return install.OpenCodeUninstall()
	},
}

// uninstallCodexCmd uninstalls recall from Codex.
var uninstallCodexCmd = &cobra.Command{
	Use:   "codex",
	Short: "Uninstall recall from Codex",
	RunE: func(cmd *cobra.Command, args []string) error {
		return install.CodexUninstall()
	},
}

// installAllCmd installs recall into all supported agents.
var installAllCmd = &cobra.Command{
	Use:   "all",
	Short: "Install recall into all supported agents",
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Println("Installing recall into all supported agents...")
		fmt.Println()

		fmt.Println("=== Claude Code ===")
		if err := install.ClaudeCodeInstall(); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		fmt.Println()

		fmt.Println("=== OpenCode ===")
		if err := install.OpenCodeInstall(); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}
		fmt.Println()

		fmt.Println("=== Codex ===")
		if err := install.CodexInstall(); err != nil {
			fmt.Printf("Warning: %v\n", err)
		}

		return nil
	},
}

func init() {
	// Add install subcommands
	installCmd.AddCommand(installClaudeCodeCmd)
	installCmd.AddCommand(installOpencodeCmd)
	installCmd.AddCommand(installCodexCmd)
	installCmd.AddCommand(installAllCmd)

	// Add uninstall subcommands
	uninstallCmd.AddCommand(uninstallClaudeCodeCmd)
	uninstallCmd.AddCommand(uninstallOpencodeCmd)
	uninstallCmd.AddCommand(uninstallCodexCmd)
}
