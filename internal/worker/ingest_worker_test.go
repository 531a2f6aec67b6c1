package worker

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgebot/internal/app"
)

type fakeIngester struct {
	inputs []app.IngestInput
	err    error
}

func (f *fakeIngester) Ingest(_ context.Context, input app.IngestInput) (*app.IngestResult, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return &app.IngestResult{DocumentID: input.DocumentID, Filename: input.Filename, ChunksCount: 1}, nil
}

func TestIngestWorker_Handle(t *testing.T) {
	body := []byte(`{"document_id":"doc_1","filename":"a.md","content":"# A\ntexto"}`)
	transient := errors.New("embedding quota")

	tests := []struct {
		name        string
		body        []byte
		err         error
		redelivered bool
		want        outcome
	}{
		{name: "success", body: body, want: ack},
		{name: "malformed payload", body: []byte("{"), want: drop},
		{name: "invalid input", body: body, err: fmt.Errorf("%w: content is empty", app.ErrInvalidInput), want: drop},
		{name: "no content", body: body, err: app.ErrNoContent, want: drop},
		{name: "transient failure", body: body, err: transient, want: retry},
		{name: "transient failure redelivered", body: body, err: transient, redelivered: true, want: drop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ingester := &fakeIngester{err: tt.err}
			w := NewIngestWorker(nil, ingester, "knowledge.ingest", nil)

			got := w.handle(context.Background(), tt.body, tt.redelivered)

			assert.Equal(t, tt.want, got)
		})
	}
}

func TestIngestWorker_HandlePassesJob(t *testing.T) {
	ingester := &fakeIngester{}
	w := NewIngestWorker(nil, ingester, "q", nil)

	w.handle(context.Background(), []byte(`{"document_id":"doc_9","filename":"b.md","content":"hola"}`), false)

	require.Len(t, ingester.inputs, 1)
	assert.Equal(t, app.IngestInput{DocumentID: "doc_9", Filename: "b.md", Content: "hola"}, ingester.inputs[0])
}
