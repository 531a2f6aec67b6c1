package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

const DefaultGeminiEmbeddingModel = "text-embedding-004"

// GeminiClient serves both embeddings and completions from the Gemini API.
type GeminiClient struct {
	client         *genai.Client
	embeddingModel string
	batchSize      int
}

func NewGeminiClient(ctx context.Context, apiKey, embeddingModel string, batchSize int) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client failed: %w", err)
	}
	if embeddingModel == "" {
		embeddingModel = DefaultGeminiEmbeddingModel
	}
	if batchSize <= 0 {
		batchSize = DefaultEmbeddingBatchSize
	}
	return &GeminiClient{client: client, embeddingModel: embeddingModel, batchSize: batchSize}, nil
}

func (g *GeminiClient) Close() error {
	return g.client.Close()
}

func (g *GeminiClient) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyEmbeddingInput
	}
	resp, err := g.client.EmbeddingModel(g.embeddingModel).EmbedContent(ctx, genai.Text(text))
	if err != nil {
		return nil, fmt.Errorf("gemini embedding failed: %w", err)
	}
	if resp.Embedding == nil || len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return toFloat32(resp.Embedding.Values), nil
}

// EmbedBatch uses the batch endpoint, which answers in request order.
func (g *GeminiClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	em := g.client.EmbeddingModel(g.embeddingModel)

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += g.batchSize {
		end := start + g.batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := em.NewBatch()
		for i, t := range texts[start:end] {
			if strings.TrimSpace(t) == "" {
				return nil, fmt.Errorf("text %d: %w", start+i, ErrEmptyEmbeddingInput)
			}
			batch.AddContent(genai.Text(t))
		}

		resp, err := em.BatchEmbedContents(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("gemini embedding batch at offset %d failed: %w", start, err)
		}
		if len(resp.Embeddings) != end-start {
			return nil, fmt.Errorf("gemini embedding batch at offset %d: got %d vectors for %d inputs", start, len(resp.Embeddings), end-start)
		}
		for _, e := range resp.Embeddings {
			result = append(result, toFloat32(e.Values))
		}
	}
	return result, nil
}

// Complete maps system messages onto the system instruction, replays the
// remaining turns as chat history and sends the last user message.
func (g *GeminiClient) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	system, history, last := splitForGemini(req.Messages)
	if last == "" {
		return "", fmt.Errorf("gemini completion needs a final user message")
	}

	model := g.client.GenerativeModel(req.Model)
	model.SetTemperature(float32(req.Temperature))
	if req.MaxTokens > 0 {
		model.SetMaxOutputTokens(int32(req.MaxTokens))
	}
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}

	cs := model.StartChat()
	for _, m := range history {
		cs.History = append(cs.History, &genai.Content{
			Role:  m.Role,
			Parts: []genai.Part{genai.Text(m.Content)},
		})
	}

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		return "", fmt.Errorf("gemini completion failed: %w", err)
	}

	var parts []string
	for _, cand := range resp.Candidates {
		if cand.Content == nil {
			continue
		}
		for _, part := range cand.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				parts = append(parts, string(text))
			}
		}
		break
	}
	return strings.Join(parts, ""), nil
}

// splitForGemini separates a chat transcript into the system instruction,
// prior turns with Gemini role names, and the trailing user message.
func splitForGemini(messages []ChatMessage) (string, []ChatMessage, string) {
	var (
		system  []string
		history []ChatMessage
	)
	for _, m := range messages {
		switch m.Role {
		case RoleSystem:
			system = append(system, m.Content)
		case RoleAssistant:
			history = append(history, ChatMessage{Role: "model", Content: m.Content})
		default:
			history = append(history, ChatMessage{Role: RoleUser, Content: m.Content})
		}
	}

	last := ""
	if n := len(history); n > 0 && history[n-1].Role == RoleUser {
		last = history[n-1].Content
		history = history[:n-1]
	}
	return strings.Join(system, "\n\n"), history, last
}

func toFloat32[T float32 | float64](values []T) []float32 {
	out := make([]float32, len(values))
	for i, v := range values {
		out[i] = float32(v)
	}
	return out
}
