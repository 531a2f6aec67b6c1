package cli

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"knowledgebot/internal/app"
	"knowledgebot/internal/knowledge"
)

func newSearchCmd(r *runner) *cobra.Command {
	var (
		limit      int
		documentID string
		tags       []string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := r.load(cmd)
			if err != nil {
				return err
			}
			results, err := services.Knowledge.SearchKnowledge(cmd.Context(), args[0], app.SearchOptions{
				TopK:       limit,
				DocumentID: documentID,
				Tags:       tags,
			})
			if err != nil {
				return fmt.Errorf("search failed: %w", err)
			}
			if asJSON {
				return printJSON(cmd, results)
			}
			printResults(cmd, results)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 5, "maximum number of results")
	cmd.Flags().StringVar(&documentID, "document", "", "only search chunks of this document id")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "only search chunks carrying this tag (repeatable)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "output results as JSON")
	return cmd
}

func printResults(cmd *cobra.Command, results []knowledge.SearchResult) {
	if len(results) == 0 {
		cmd.Println("No results found.")
		return
	}
	for i, res := range results {
		cmd.Printf("  [%d] %s / %s (%.3f)\n", i+1, res.Metadata.DocumentName, res.Metadata.Section, res.Score)
		cmd.Printf("      %s\n", snippet(res.Content, 160))
	}
}

func snippet(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max]) + "..."
}

func newAskCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "ask [question]",
		Short: "Answer a question from the knowledge base",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := r.load(cmd)
			if err != nil {
				return err
			}
			answer, err := services.Knowledge.GenerateResponse(cmd.Context(), args[0], nil)
			if err != nil {
				return fmt.Errorf("ask failed: %w", err)
			}
			cmd.Println(answer)
			return nil
		},
	}
}

func printJSON(cmd *cobra.Command, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	cmd.Println(string(data))
	return nil
}
