package cmd

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"

	"github.com/abhisek/studiz/internal/api"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and print the answer",
	Long: `Ask sends one question to the tutor backend and prints the complete
answer without starting the terminal UI. Useful for piping and scripting.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().Int("top-k", 0, "Number of passages to retrieve (default from config)")
	askCmd.Flags().Bool("no-kg", false, "Disable knowledge-graph expansion for this question")
	askCmd.Flags().Bool("sources", false, "Print the retrieved passages after the answer")
	askCmd.Flags().Bool("plain", false, "Print raw markdown without terminal styling")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.TrimSpace(strings.Join(args, " "))
	if question == "" {
		return fmt.Errorf("question must not be empty")
	}

	topK, _ := cmd.Flags().GetInt("top-k")
	if topK <= 0 {
		topK = cfg.TopK
	}
	noKG, _ := cmd.Flags().GetBool("no-kg")
	showSources, _ := cmd.Flags().GetBool("sources")
	plain, _ := cmd.Flags().GetBool("plain")

	client, err := api.New(api.Options{
		BaseURL:   cfg.BaseURL,
		StudentID: cfg.StudentID,
		Timeout:   cfg.Timeout,
		Logger:    logger,
	})
	if err != nil {
		return fmt.Errorf("build API client: %w", err)
	}

	resp, err := client.Ask(cmd.Context(), api.AskRequest{
		Question:       question,
		UseKGExpansion: cfg.UseKGExpansion && !noKG,
		TopK:           topK,
		Subject:        cfg.Subject,
	})
	if err != nil {
		return fmt.Errorf("ask: %w", err)
	}

	fmt.Println(renderAnswer(resp.Answer, plain))

	if len(resp.ExpandedConcepts) > 0 {
		fmt.Printf("Graph expansion: %s\n", strings.Join(resp.ExpandedConcepts, ", "))
	}

	if showSources && len(resp.Sources) > 0 {
		sep := strings.Repeat("─", 60)
		fmt.Println(sep)
		fmt.Printf("SOURCES (%d retrieved)\n", resp.RetrievedCount)
		fmt.Println(sep)
		for i, src := range resp.Sources {
			title := src.ModuleTitle
			if title == "" {
				title = "(untitled module)"
			}
			fmt.Printf("%d. %s", i+1, title)
			if src.Section != "" {
				fmt.Printf(" · %s", src.Section)
			}
			fmt.Printf("  (score %.2f)\n", src.Score)
			fmt.Println(indent(src.Text, "   "))
		}
	}

	if resp.Attribution != "" {
		fmt.Println()
		fmt.Println(resp.Attribution)
	}
	return nil
}

// renderAnswer styles the markdown answer for the terminal. Any rendering
// failure falls back to the raw text, which is always printable.
func renderAnswer(markdown string, plain bool) string {
	if plain {
		return markdown
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(80),
	)
	if err != nil {
		return markdown
	}
	out, err := r.Render(markdown)
	if err != nil {
		return markdown
	}
	return strings.TrimRight(out, "\n")
}

func indent(s, prefix string) string {
	lines := strings.Split(strings.TrimSpace(s), "\n")
	for i, l := range lines {
		lines[i] = prefix + l
	}
	return strings.Join(lines, "\n")
}
