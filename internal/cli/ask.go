package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/recall-dev/recall/internal/config"
	"github.com/recall-dev/recall/internal/llm"
	"github.com/recall-dev/recall/internal/rag"
	"github.com/recall-dev/recall/internal/ui"
)

var (
	askCollection   string
	askLimit        int
	askMinRelevance float64
	askNoStream     bool
	askSystem       string
)

// askCmd represents the ask command
var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question and get an answer grounded in your documents",
	Long: `Ask a question in natural language. recall retrieves the most relevant
passages from the collection, hands them to the configured LLM, and
prints an answer with citations back to the source documents.

Examples:
  # Ask against the only collection
  recall ask "how do I request time off?"

  # Ask against a specific collection
  recall ask "what is our incident severity scale?" --collection runbooks

  # Retrieve more context before answering
  recall ask "summarize the architecture" -m 10

  # Wait for the full answer instead of streaming
  recall ask "list the deployment steps" --no-stream`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVarP(&askCollection, "collection", "C", "", "collection to ask against (auto-detected when only one exists)")
	askCmd.Flags().IntVarP(&askLimit, "limit", "m", 0, "maximum number of chunks to retrieve (default from config)")
	askCmd.Flags().Float64Var(&askMinRelevance, "min-relevance", -1, "minimum relevance score 0-1 (default from config)")
	askCmd.Flags().BoolVar(&askNoStream, "no-stream", false, "generate the full answer before displaying")
	askCmd.Flags().StringVar(&askSystem, "system", "", "override the system prompt")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := args[0]

	cfg := config.Get()

	log.Debug("Starting ask",
		"question", question,
		"collection", askCollection,
		"stream", !askNoStream,
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

	generator, err := llm.NewGenerator(cfg)
	if err != nil {
		return fmt.Errorf("failed to create LLM backend: %w", err)
	}
	engine := rag.NewQueryEngine(manager, generator)

	col, err := resolveCollection(manager, askCollection)
	if err != nil {
		return err
	}

	opts := rag.DefaultQueryOptions()
	if askLimit > 0 {
		opts.TopK = askLimit
	} else if cfg.Query.TopK > 0 {
		opts.TopK = cfg.Query.TopK
	}
	if askMinRelevance >= 0 {
		opts.MinRelevance = askMinRelevance
	} else {
		opts.MinRelevance = cfg.Query.MinRelevance
	}
	if cfg.Query.MaxTokens > 0 {
		opts.MaxTokens = cfg.Query.MaxTokens
	}
	if cfg.Query.Temperature > 0 {
		opts.Temperature = cfg.Query.Temperature
	}
	if askSystem != "" {
		opts.SystemPrompt = askSystem
	}

	// Start spinner while generating (no Answer header yet)
	stopSpinner := make(chan struct{})
	spinnerDone := make(chan struct{})
	go showSpinner("Generating answer", stopSpinner, spinnerDone)

	var answer string
	var sources []rag.SourceChunk
	var result *rag.QueryResult

	if askNoStream {
		result, err = engine.Query(ctx, question, col.ID, opts)
		if result != nil {
			answer = result.Answer
			sources = result.Sources
		}
	} else {
		events, errCh := engine.QueryStream(ctx, question, col.ID, opts)

		// Collect all content silently
		var builder strings.Builder
		for ev := range events {
			switch ev.Type {
			case rag.EventSources:
				sources = ev.Sources
			case rag.EventToken:
				builder.WriteString(ev.Token)
			case rag.EventComplete:
				result = ev.Result
			}
		}
		answer = builder.String()

		err = <-errCh
	}

	// Stop spinner
	close(stopSpinner)
	<-spinnerDone

	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return presentQueryError(err, cfg)
	}

	renderAnswer(answer, sources, result)
	return nil
}

// presentQueryError maps retrieval and generation failures to friendly output.
// An empty retrieval is informational, not an error.
func presentQueryError(err error, cfg *config.Config) error {
	switch {
	case errors.Is(err, rag.ErrNoRelevantChunks):
		fmt.Println("No relevant context found for this question.")
		fmt.Println(ui.Dim.Render("Try rephrasing, or add more documents with 'recall add'."))
		return nil
	case errors.Is(err, rag.ErrGeneratorNotReady):
		return fmt.Errorf("the %s LLM backend is not available; check the llm section of your config", cfg.LLM.Provider)
	default:
		return fmt.Errorf("answer generation failed: %w", err)
	}
}

// renderAnswer prints the generated answer with its sources.
func renderAnswer(answer string, sources []rag.SourceChunk, result *rag.QueryResult) {
	fmt.Println(ui.Header.Render("Answer"))
	fmt.Println()

	// Render markdown with glamour
	rendered, err := renderMarkdown(answer)
	if err != nil {
		// Fallback to raw output if rendering fails
		fmt.Println(answer)
	} else {
		fmt.Print(rendered)
	}

	if len(sources) > 0 {
		fmt.Println(ui.Dim.Render("Sources:"))
		for i, s := range sources {
			fmt.Printf("  [%d] %s %s\n",
				i+1,
				ui.FormatDocRef(s.DocumentTitle, s.ChunkIndex),
				ui.FormatScore(s.Relevance),
			)
		}
	}

	if result != nil {
		fmt.Println()
		fmt.Println(ui.Dim.Render(fmt.Sprintf(
			"Confidence: %.0f%% | %d chunks retrieved | %dms",
			result.Confidence*100, result.RetrievedCount, result.ProcessingTimeMs)))
	}
}

// showSpinner displays an animated spinner until stopCh is closed.
func showSpinner(message string, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	defer close(doneCh)

	i := 0
	for {
		select {
		case <-stopCh:
			// Clear spinner line
			fmt.Print("\r\033[2K")
			return
		case <-ticker.C:
			fmt.Printf("\r%s %s", ui.Highlight.Render(frames[i]), message)
			i = (i + 1) % len(frames)
		}
	}
}

// renderMarkdown renders markdown content using glamour.
func renderMarkdown(content string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(content)
}
