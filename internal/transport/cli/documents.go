package cli

import (
	"sort"

	"github.com/spf13/cobra"

	"knowledgebot/internal/model"
)

func newDocumentsCmd(r *runner) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "documents",
		Short: "List ingested documents, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := r.load(cmd)
			if err != nil {
				return err
			}
			docs, err := services.Documents.ListDocuments(cmd.Context())
			if err != nil {
				return err
			}
			if asJSON {
				if docs == nil {
					docs = []model.KnowledgeDocument{}
				}
				return printJSON(cmd, docs)
			}
			if len(docs) == 0 {
				cmd.Println("No documents.")
				return nil
			}
			for _, d := range docs {
				cmd.Printf("  %s  %-32s %4d chunks  %s\n", d.ID, d.Filename, d.ChunksCount, d.CreatedAt.Format("2006-01-02 15:04"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "output as JSON")
	return cmd
}

func newDeleteCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [document-id]",
		Short: "Delete a document and its vectors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			services, err := r.load(cmd)
			if err != nil {
				return err
			}
			if err := services.Documents.DeleteDocument(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

func newStatsCmd(r *runner) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show vector index record counts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			services, err := r.load(cmd)
			if err != nil {
				return err
			}
			stats, err := services.Stats.Stats(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Total records: %d\n", stats.TotalCount)
			names := make([]string, 0, len(stats.Namespaces))
			for name := range stats.Namespaces {
				names = append(names, name)
			}
			sort.Strings(names)
			active := services.Stats.Namespace()
			for _, name := range names {
				marker := " "
				if name == active {
					marker = "*"
				}
				cmd.Printf(" %s %s: %d\n", marker, name, stats.Namespaces[name])
			}
			return nil
		},
	}
}
