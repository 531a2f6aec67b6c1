package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"knowledgebot/internal/app"
	"knowledgebot/internal/pkg/pdfextract"
)

func newIngestCmd(r *runner) *cobra.Command {
	var documentID string
	cmd := &cobra.Command{
		Use:   "ingest [file...]",
		Short: "Ingest markdown, text or PDF files",
		Long: `Chunks each file by markdown section, embeds the chunks and stores them in the
vector index. Use --id with a single file to replace an existing document.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if documentID != "" && len(args) > 1 {
				return errors.New("--id can only be used with a single file")
			}
			services, err := r.load(cmd)
			if err != nil {
				return err
			}

			var failed int
			for _, path := range args {
				content, err := readDocument(path)
				if err != nil {
					cmd.PrintErrf("  %s: %v\n", path, err)
					failed++
					continue
				}
				res, err := services.Documents.Ingest(cmd.Context(), app.IngestInput{
					DocumentID: documentID,
					Filename:   filepath.Base(path),
					Content:    content,
				})
				if err != nil {
					cmd.PrintErrf("  %s: %v\n", path, err)
					failed++
					continue
				}
				cmd.Printf("  %s -> %s (%d chunks", path, res.DocumentID, res.ChunksCount)
				if len(res.Tags) > 0 {
					cmd.Printf(", tags: %s", strings.Join(res.Tags, ", "))
				}
				cmd.Println(")")
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&documentID, "id", "", "existing document id to re-ingest")
	return cmd
}

func readDocument(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".pdf") {
		return pdfextract.ExtractText(f, 0)
	}
	b, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
