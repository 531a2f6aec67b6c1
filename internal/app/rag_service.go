package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"knowledgebot/internal/ai"
	"knowledgebot/internal/knowledge"
)

const (
	DefaultRAGModel         = "gpt-4o"
	DefaultRAGTemperature   = 0.5
	DefaultRAGMaxTokens     = 1500
	DefaultRAGTopK          = 8
	DefaultHistoryWindow    = 10
	contextPlaceholder      = "{{context}}"
	NoDocumentationFallback = "No hay documentación cargada en este momento. Por favor, contacta al soporte para más ayuda."
	EmptyAnswerFallback     = "Lo siento, no pude generar una respuesta."
)

// DefaultSystemPrompt is the assistant instruction. The retrieved context
// replaces {{context}}.
const DefaultSystemPrompt = `Eres el asistente virtual de la plataforma. Ayudas a los usuarios a entenderla y a usarla.

## CÓMO RESPONDER
- Usa un tono amable y profesional.
- Si la pregunta describe un proceso, explícalo paso a paso.
- Responde a cada parte de la pregunta y menciona consejos útiles cuando existan.
- No inventes información que no esté en el contexto. Si falta algo, dilo con claridad y sugiere contactar al soporte.
- Si la pregunta no trata sobre la plataforma, indícalo con amabilidad.

## CONTEXTO DE LA DOCUMENTACIÓN
Usa la siguiente información de la base de conocimiento para responder:

{{context}}`

// Retriever is the search side of the knowledge index.
type Retriever interface {
	Search(ctx context.Context, query string, opts SearchOptions) ([]knowledge.SearchResult, error)
}

type RAGConfig struct {
	Model            string
	Temperature      float64
	MaxTokens        int
	TopK             int
	MaxContextLength int
	HistoryWindow    int
	SystemPrompt     string
}

func DefaultRAGConfig() RAGConfig {
	return RAGConfig{
		Model:            DefaultRAGModel,
		Temperature:      DefaultRAGTemperature,
		MaxTokens:        DefaultRAGMaxTokens,
		TopK:             DefaultRAGTopK,
		MaxContextLength: knowledge.DefaultMaxContextLength,
		HistoryWindow:    DefaultHistoryWindow,
		SystemPrompt:     DefaultSystemPrompt,
	}
}

func (c RAGConfig) withDefaults() RAGConfig {
	d := DefaultRAGConfig()
	if c.Model == "" {
		c.Model = d.Model
	}
	if c.Temperature < 0 {
		c.Temperature = d.Temperature
	}
	if c.MaxTokens <= 0 {
		c.MaxTokens = d.MaxTokens
	}
	if c.TopK <= 0 {
		c.TopK = d.TopK
	}
	if c.MaxContextLength <= 0 {
		c.MaxContextLength = d.MaxContextLength
	}
	if c.HistoryWindow <= 0 {
		c.HistoryWindow = d.HistoryWindow
	}
	if strings.TrimSpace(c.SystemPrompt) == "" {
		c.SystemPrompt = d.SystemPrompt
	}
	return c
}

type RAGService struct {
	retriever Retriever
	completer Completer
	cfg       RAGConfig
	logger    *slog.Logger
}

func NewRAGService(retriever Retriever, completer Completer, cfg RAGConfig, logger *slog.Logger) *RAGService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RAGService{
		retriever: retriever,
		completer: completer,
		cfg:       cfg.withDefaults(),
		logger:    logger,
	}
}

// GenerateResponse answers query from the indexed documentation. Only the
// most recent turns of history are sent, in their original order.
func (s *RAGService) GenerateResponse(ctx context.Context, query string, history []knowledge.ConversationTurn) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", fmt.Errorf("%w: query is empty", ErrInvalidInput)
	}

	results, err := s.retriever.Search(ctx, query, SearchOptions{TopK: s.cfg.TopK})
	if err != nil {
		return "", err
	}
	contextText := knowledge.FormatContext(results, s.cfg.MaxContextLength)

	messages := s.buildMessages(contextText, query, history)
	answer, err := s.completer.Complete(ctx, ai.CompletionRequest{
		Model:       s.cfg.Model,
		Messages:    messages,
		Temperature: s.cfg.Temperature,
		MaxTokens:   s.cfg.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	s.logger.Info("rag response generated",
		"results", len(results),
		"context_chars", len([]rune(contextText)),
		"history_turns", len(messages)-2,
	)

	if answer == "" {
		return EmptyAnswerFallback, nil
	}
	return answer, nil
}

// SearchKnowledge runs retrieval only.
func (s *RAGService) SearchKnowledge(ctx context.Context, query string, opts SearchOptions) ([]knowledge.SearchResult, error) {
	if opts.TopK <= 0 {
		opts.TopK = DefaultSearchTopK
	}
	return s.retriever.Search(ctx, query, opts)
}

func (s *RAGService) buildMessages(contextText, query string, history []knowledge.ConversationTurn) []ai.ChatMessage {
	if len(history) > s.cfg.HistoryWindow {
		history = history[len(history)-s.cfg.HistoryWindow:]
	}

	messages := make([]ai.ChatMessage, 0, len(history)+2)
	messages = append(messages, ai.ChatMessage{Role: ai.RoleSystem, Content: BuildSystemPrompt(s.cfg.SystemPrompt, contextText)})
	for _, turn := range history {
		messages = append(messages, ai.ChatMessage{Role: turn.Role, Content: turn.Content})
	}
	return append(messages, ai.ChatMessage{Role: ai.RoleUser, Content: query})
}

// BuildSystemPrompt places contextText into template, or the no-documentation
// sentence when there is no context.
func BuildSystemPrompt(template, contextText string) string {
	if contextText == "" {
		contextText = NoDocumentationFallback
	}
	if !strings.Contains(template, contextPlaceholder) {
		return template + "\n\n" + contextText
	}
	return strings.ReplaceAll(template, contextPlaceholder, contextText)
}
