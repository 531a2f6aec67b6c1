// Package cli implements the knowledgectl operator commands.
package cli

import (
	"context"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"knowledgebot/internal/app"
	"knowledgebot/internal/knowledge"
	"knowledgebot/internal/model"
	"knowledgebot/internal/vectorindex"
)

type DocumentService interface {
	Ingest(ctx context.Context, input app.IngestInput) (*app.IngestResult, error)
	ListDocuments(ctx context.Context) ([]model.KnowledgeDocument, error)
	DeleteDocument(ctx context.Context, documentID string) error
}

type KnowledgeService interface {
	SearchKnowledge(ctx context.Context, query string, opts app.SearchOptions) ([]knowledge.SearchResult, error)
	GenerateResponse(ctx context.Context, query string, history []knowledge.ConversationTurn) (string, error)
}

type StatsReader interface {
	Namespace() string
	Stats(ctx context.Context) (vectorindex.Stats, error)
}

// Services is what the commands run against.
type Services struct {
	Documents DocumentService
	Knowledge KnowledgeService
	Stats     StatsReader
}

// Factory builds the services on first use and returns a cleanup func.
type Factory func(ctx context.Context) (*Services, func() error, error)

type runner struct {
	factory  Factory
	services *Services
	cleanup  func() error
}

func (r *runner) load(cmd *cobra.Command) (*Services, error) {
	if r.services != nil {
		return r.services, nil
	}
	if r.factory == nil {
		return nil, errors.New("services not configured")
	}
	services, cleanup, err := r.factory(cmd.Context())
	if err != nil {
		return nil, err
	}
	r.services, r.cleanup = services, cleanup
	return services, nil
}

func (r *runner) close() error {
	if r.cleanup == nil {
		return nil
	}
	err := r.cleanup()
	r.cleanup = nil
	return err
}

// Run executes one command line and releases the services afterwards.
func Run(ctx context.Context, factory Factory, args []string, out, errOut io.Writer) error {
	r := &runner{factory: factory}
	root := newRootCommand(r)
	root.SetArgs(args)
	root.SetOut(out)
	root.SetErr(errOut)

	err := root.ExecuteContext(ctx)
	if closeErr := r.close(); closeErr != nil && err == nil {
		err = closeErr
	}
	return err
}

func newRootCommand(r *runner) *cobra.Command {
	root := &cobra.Command{
		Use:           "knowledgectl",
		Short:         "Manage and query the chatbot knowledge base",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newIngestCmd(r),
		newSearchCmd(r),
		newAskCmd(r),
		newDeleteCmd(r),
		newDocumentsCmd(r),
		newStatsCmd(r),
	)
	return root
}
