package install

import "fmt"

// printPostInstall prints setup hints after a successful install.
func printPostInstall(agentName string) {
	fmt.Println()
	fmt.Println("══════════════════════════════════════════════════════════════════════")
	fmt.Println()
	fmt.Println("  recall answers from your ingested collections. The MCP server")
	fmt.Println("  does not ingest anything on its own, so make sure there is")
	fmt.Println("  something to search:")
	fmt.Println()
	fmt.Println("    recall add --dir ~/notes --collection notes")
	fmt.Println("    recall watch ~/notes --collection notes   # keep it in sync")
	fmt.Println()
	fmt.Println("  All data stays local in a SQLite database.")
	fmt.Println()
	fmt.Printf("  To uninstall recall from %s:\n", agentName)
	fmt.Println()
	fmt.Printf("    recall uninstall %s\n", getUninstallTarget(agentName))
	fmt.Println()
	fmt.Println("══════════════════════════════════════════════════════════════════════")
	fmt.Println()
}

// getUninstallTarget returns the uninstall command target for an agent.
func getUninstallTarget(agentName string) string {
	switch agentName {
	case "Claude Code":
		return "claude-code"
	case "OpenCode":
		return "opencode"
	case "Codex":
		return "codex"
	default:
		return agentName
	}
}
