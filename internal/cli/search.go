package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/rag"
	"github.com/recall-dev/recall/internal/ui"
)

var (
	searchCollection   string
	searchContent      bool
	searchLimit        int
	searchMinRelevance float64
	searchJSON         bool
)

// searchCmd represents the search command
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search a collection using semantic similarity",
	Long: `Search for passages using natural language queries.

The search uses vector similarity to find relevant passages that match
your query semantically, not just by keywords. Results come from a
single collection; with only one collection it is picked automatically.

Examples:
  # Basic search
  recall search "vacation policy"

  # Search a specific collection with full passages
  recall search "error budgets" --collection runbooks -c

  # Limit results
  recall search "onboarding checklist" -m 3

  # Filter by minimum relevance
  recall search "incident response" --min-relevance 0.5

  # Machine-readable output
  recall search "quarterly goals" --json`,
	Args: cobra.ExactArgs(1),
	RunE: runSearchCmd,
}

func init() {
	searchCmd.Flags().StringVarP(&searchCollection, "collection", "C", "", "collection to search (auto-detected when only one exists)")
	searchCmd.Flags().BoolVarP(&searchContent, "content", "c", false, "show full passages instead of snippets")
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "m", 0, "maximum number of results (default from config)")
	searchCmd.Flags().Float64Var(&searchMinRelevance, "min-relevance", -1, "minimum relevance score 0-1 (default from config)")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "output results as JSON")
}

func runSearchCmd(cmd *cobra.Command, args []string) error {
	query := args[0]

	cfg := config.Get()

	limit := searchLimit
	if limit <= 0 {
		limit = cfg.Query.TopK
	}
	minRelevance := searchMinRelevance
	if minRelevance < 0 {
		minRelevance = cfg.Query.MinRelevance
	}

	log.Debug("Starting search",
		"query", query,
		"collection", searchCollection,
		"limit", limit,
	)

	// Setup context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle interrupt signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Println("\nInterrupted")
		cancel()
	}()

	st, manager, err := openManager(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	col, err := resolveCollection(manager, searchCollection)
	if err != nil {
		return err
	}

	results, err := manager.Search(ctx, query, col.ID, limit, minRelevance)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	if searchJSON {
		return outputJSON(results)
	}

	displayResults(results, col.Name, searchContent)
	return nil
}

// displayResults formats and displays search results.
func displayResults(results []rag.SourceChunk, collectionName string, showContent bool) {
	fmt.Printf("Found %d results in %s:\n\n", len(results), ui.Bold.Render(collectionName))

	for i, r := range results {
		fmt.Printf("%s %s %s\n",
			ui.Highlight.Render(fmt.Sprintf("[%d]", i+1)),
			ui.FormatDocRef(r.DocumentTitle, r.ChunkIndex),
			ui.FormatScore(r.Relevance),
		)

		if showContent && r.Content != "" {
			fmt.Println()
			for _, line := range strings.Split(strings.TrimSpace(r.Content), "\n") {
				fmt.Printf("    %s\n", line)
			}
		} else {
			fmt.Printf("    %s\n", ui.Dim.Render(snippet(r.Content, 100)))
		}

		fmt.Println()
	}
}

// snippet collapses whitespace and truncates content for a one-line preview.
func snippet(content string, maxLen int) string {
	collapsed := strings.Join(strings.Fields(content), " ")
	runes := []rune(collapsed)
	if len(runes) <= maxLen {
		return collapsed
	}
	return string(runes[:maxLen-3]) + "..."
}

// outputJSON outputs results as JSON.
func outputJSON(results []rag.SourceChunk) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode results: %w", err)
	}
	fmt.Println(string(data))
	return nil
}
