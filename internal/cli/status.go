package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/embeddings"
	"github.com/recall-dev/recall/internal/store"
	"github.com/recall-dev/recall/internal/ui"
)

var statusCollection string

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show collection status and statistics",
	Long: `Display information about collections including:
- Number of documents and their indexing state
- Number of stored chunks
- Creation and last update times
- Overall health

Examples:
  # Show status for all collections
  recall status

  # Show status for a specific collection
  recall status --collection handbook`,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().StringVarP(&statusCollection, "collection", "C", "", "specific collection to show status for")
}

func runStatus(cmd *cobra.Command, args []string) error {
	log.Debug("Showing status", "collection", statusCollection)

	cfg := config.Get()

	st, manager, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	cols, err := manager.ListCollections()
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}

	if len(cols) == 0 {
		fmt.Println("No collections found.")
		fmt.Println()
		fmt.Println("Run 'recall add --dir <path>' to create one.")
		return nil
	}

	// Filter collections if needed
	displayCols := cols
	if statusCollection != "" {
		displayCols = nil
		for _, c := range cols {
			if c.Name == statusCollection {
				displayCols = append(displayCols, c)
				break
			}
		}
		if len(displayCols) == 0 {
			return fmt.Errorf("collection not found: %s", statusCollection)
		}
	}

	fmt.Println(ui.Header.Render("Collection Status"))
	fmt.Println()

	for i, c := range displayCols {
		stats, err := manager.GetCollectionStats(c.ID)
		if err != nil {
			log.Warn("Failed to get stats", "collection", c.Name, "error", err)
			continue
		}

		fmt.Printf("%s %s\n",
			ui.Highlight.Render("Collection:"),
			ui.Bold.Render(c.Name),
		)

		if c.Description != "" {
			fmt.Printf("  %s %s\n",
				ui.Dim.Render("About:"),
				c.Description,
			)
		}

		fmt.Printf("  %s %d total (%d indexed, %d pending, %d failed)\n",
			ui.Dim.Render("Documents:"),
			stats.DocumentCount,
			stats.IndexedCount,
			stats.PendingCount,
			stats.ErrorCount,
		)
		fmt.Printf("  %s %d\n",
			ui.Dim.Render("Chunks:"),
			stats.TotalChunks,
		)

		fmt.Printf("  %s %s\n",
			ui.Dim.Render("Created:"),
			formatTime(c.CreatedAt),
		)
		fmt.Printf("  %s %s\n",
			ui.Dim.Render("Updated:"),
			formatTime(c.UpdatedAt),
		)

		health := getHealthStatus(stats)
		fmt.Printf("  %s %s\n",
			ui.Dim.Render("Health:"),
			health,
		)

		if i < len(displayCols)-1 {
			fmt.Println()
		}
	}

	if len(displayCols) > 1 {
		fmt.Println()
		fmt.Println(ui.Dim.Render(fmt.Sprintf("Total: %d collections", len(displayCols))))
	}

	// Show config info
	fmt.Println()
	fmt.Println(ui.Dim.Render("Configuration:"))
	fmt.Printf("  Database: %s\n", cfg.Database.Path)
	fmt.Printf("  Embeddings: %s (%s)\n", cfg.Embeddings.Provider, embeddings.ModelName(cfg))
	fmt.Printf("  LLM: %s\n", cfg.LLM.Provider)

	return nil
}

// formatTime formats a time for display.
func formatTime(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}

	// If today, show time only
	now := time.Now()
	if t.Year() == now.Year() && t.YearDay() == now.YearDay() {
		return "today at " + t.Format("15:04")
	}

	// If this year, omit year
	if t.Year() == now.Year() {
		return t.Format("Jan 2 at 15:04")
	}

	return t.Format("Jan 2, 2006 at 15:04")
}

// getHealthStatus returns a health indicator based on stats.
func getHealthStatus(stats *store.CollectionStats) string {
	if stats.DocumentCount == 0 {
		return ui.Warning.Render("empty (no documents)")
	}
	if stats.ErrorCount > 0 {
		return ui.Warning.Render(fmt.Sprintf("%d failed documents (re-ingest with --force)", stats.ErrorCount))
	}
	if stats.PendingCount > 0 {
		return ui.Warning.Render(fmt.Sprintf("%d documents still indexing", stats.PendingCount))
	}
	if stats.TotalChunks == 0 {
		return ui.Warning.Render("no chunks (re-ingest may be needed)")
	}

	return ui.Success.Render("healthy")
}
