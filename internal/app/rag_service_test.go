package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"knowledgebot/internal/ai"
	"knowledgebot/internal/knowledge"
)

func sampleResults() []knowledge.SearchResult {
	return []knowledge.SearchResult{{
		ID:      "doc1-0",
		Score:   0.8,
		Content: "Para crear una venta, abre el formulario.",
		Metadata: knowledge.RecordMetadata{
			ChunkMetadata: knowledge.ChunkMetadata{DocumentName: "guia.md", Section: "Ventas"},
		},
	}}
}

func turns(n int) []knowledge.ConversationTurn {
	out := make([]knowledge.ConversationTurn, n)
	for i := range out {
		role := knowledge.RoleUser
		if i%2 == 1 {
			role = knowledge.RoleAssistant
		}
		out[i] = knowledge.ConversationTurn{Role: role, Content: fmt.Sprintf("turn %d", i)}
	}
	return out
}

func TestRAGService_GenerateResponseBuildsPrompt(t *testing.T) {
	retriever := &fakeRetriever{results: sampleResults()}
	completer := &fakeCompleter{answer: "Abre el formulario de ventas."}
	svc := NewRAGService(retriever, completer, DefaultRAGConfig(), nil)

	answer, err := svc.GenerateResponse(context.Background(), " ¿Cómo creo una venta? ", turns(15))

	require.NoError(t, err)
	assert.Equal(t, "Abre el formulario de ventas.", answer)

	require.Len(t, retriever.opts, 1)
	assert.Equal(t, DefaultRAGTopK, retriever.opts[0].TopK)
	assert.Equal(t, "¿Cómo creo una venta?", retriever.queries[0])

	require.Len(t, completer.requests, 1)
	req := completer.requests[0]
	assert.Equal(t, "gpt-4o", req.Model)
	assert.Equal(t, 0.5, req.Temperature)
	assert.Equal(t, 1500, req.MaxTokens)

	require.Len(t, req.Messages, 12)
	assert.Equal(t, ai.RoleSystem, req.Messages[0].Role)
	assert.Contains(t, req.Messages[0].Content, "Fuente: guia.md\n[Ventas] Para crear una venta, abre el formulario.")
	assert.NotContains(t, req.Messages[0].Content, contextPlaceholder)
	assert.Equal(t, "turn 5", req.Messages[1].Content)
	assert.Equal(t, knowledge.RoleAssistant, req.Messages[1].Role)
	assert.Equal(t, "turn 14", req.Messages[10].Content)
	assert.Equal(t, ai.ChatMessage{Role: ai.RoleUser, Content: "¿Cómo creo una venta?"}, req.Messages[11])
}

func TestRAGService_EmptyContextUsesFallbackSentence(t *testing.T) {
	completer := &fakeCompleter{answer: "ok"}
	svc := NewRAGService(&fakeRetriever{}, completer, DefaultRAGConfig(), nil)

	_, err := svc.GenerateResponse(context.Background(), "hola", nil)

	require.NoError(t, err)
	system := completer.requests[0].Messages[0].Content
	assert.True(t, strings.HasSuffix(system, NoDocumentationFallback))
	assert.Len(t, completer.requests[0].Messages, 2)
}

func TestRAGService_EmptyAnswerFallback(t *testing.T) {
	svc := NewRAGService(&fakeRetriever{}, &fakeCompleter{answer: ""}, DefaultRAGConfig(), nil)

	answer, err := svc.GenerateResponse(context.Background(), "hola", nil)

	require.NoError(t, err)
	assert.Equal(t, EmptyAnswerFallback, answer)
}

func TestRAGService_WhitespaceAnswerIsReturned(t *testing.T) {
	svc := NewRAGService(&fakeRetriever{}, &fakeCompleter{answer: "  "}, DefaultRAGConfig(), nil)

	answer, err := svc.GenerateResponse(context.Background(), "hola", nil)

	require.NoError(t, err)
	assert.Equal(t, "  ", answer)
}

func TestRAGService_PropagatesFailures(t *testing.T) {
	boom := errors.New("completion down")
	_, err := NewRAGService(&fakeRetriever{}, &fakeCompleter{err: boom}, DefaultRAGConfig(), nil).
		GenerateResponse(context.Background(), "hola", nil)
	assert.ErrorIs(t, err, boom)

	searchErr := errors.New("index down")
	completer := &fakeCompleter{}
	_, err = NewRAGService(&fakeRetriever{err: searchErr}, completer, DefaultRAGConfig(), nil).
		GenerateResponse(context.Background(), "hola", nil)
	assert.ErrorIs(t, err, searchErr)
	assert.Empty(t, completer.requests)
}

func TestRAGService_BlankQuery(t *testing.T) {
	retriever := &fakeRetriever{}
	_, err := NewRAGService(retriever, &fakeCompleter{}, DefaultRAGConfig(), nil).
		GenerateResponse(context.Background(), " ", nil)

	assert.ErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, retriever.queries)
}

func TestRAGService_RespectsContextBudget(t *testing.T) {
	var results []knowledge.SearchResult
	for i := 0; i < 8; i++ {
		results = append(results, knowledge.SearchResult{
			Content:  strings.Repeat("x", 900),
			Metadata: knowledge.RecordMetadata{ChunkMetadata: knowledge.ChunkMetadata{DocumentName: fmt.Sprintf("d%d", i)}},
		})
	}
	completer := &fakeCompleter{answer: "ok"}
	cfg := DefaultRAGConfig()
	cfg.SystemPrompt = "{{context}}"
	svc := NewRAGService(&fakeRetriever{results: results}, completer, cfg, nil)

	_, err := svc.GenerateResponse(context.Background(), "q", nil)

	require.NoError(t, err)
	system := completer.requests[0].Messages[0].Content
	assert.LessOrEqual(t, len([]rune(system)), knowledge.DefaultMaxContextLength)
	assert.Contains(t, system, "Fuente: d5")
	assert.NotContains(t, system, "Fuente: d6")
}

func TestRAGService_SearchKnowledge(t *testing.T) {
	retriever := &fakeRetriever{results: sampleResults()}
	svc := NewRAGService(retriever, &fakeCompleter{}, DefaultRAGConfig(), nil)

	results, err := svc.SearchKnowledge(context.Background(), "venta", SearchOptions{})
	require.NoError(t, err)
	assert.Len(t, results, 1)

	_, err = svc.SearchKnowledge(context.Background(), "venta", SearchOptions{TopK: 3, DocumentID: "doc1", Tags: []string{"venta"}})
	require.NoError(t, err)
	assert.Equal(t, []int{DefaultSearchTopK, 3}, []int{retriever.opts[0].TopK, retriever.opts[1].TopK})
	assert.Equal(t, "doc1", retriever.opts[1].DocumentID)
	assert.Equal(t, []string{"venta"}, retriever.opts[1].Tags)
}

func TestBuildSystemPrompt(t *testing.T) {
	assert.Equal(t, "ctx: hola", BuildSystemPrompt("ctx: {{context}}", "hola"))
	assert.Equal(t, "Base\n\n"+NoDocumentationFallback, BuildSystemPrompt("Base", ""))
}
