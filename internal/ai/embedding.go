package ai

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// DefaultEmbeddingBatchSize is the number of texts sent per embedding request.
const DefaultEmbeddingBatchSize = 50

var ErrEmptyEmbeddingInput = errors.New("embedding input is empty")

// EmbeddingClient embeds text through an OpenAI-compatible /embeddings endpoint.
type EmbeddingClient struct {
	api       *OpenAICompatibleClient
	model     string
	batchSize int
}

func NewEmbeddingClient(api *OpenAICompatibleClient, model string, batchSize int) *EmbeddingClient {
	if batchSize <= 0 {
		batchSize = DefaultEmbeddingBatchSize
	}
	return &EmbeddingClient{api: api, model: model, batchSize: batchSize}
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for the given text.
func (c *EmbeddingClient) Embed(ctx context.Context, text string) ([]float32, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyEmbeddingInput
	}

	var parsed embeddingResponse
	reqBody := map[string]interface{}{
		"model": c.model,
		"input": text,
	}
	if err := c.api.postJSON(ctx, "/embeddings", "embedding", reqBody, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return parsed.Data[0].Embedding, nil
}

// EmbedBatch embeds texts in groups of batchSize, one request per group,
// issued sequentially. Items of each group are put back in request order by
// their reported index. Any failed group fails the whole call.
func (c *EmbeddingClient) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	for i, t := range texts {
		if strings.TrimSpace(t) == "" {
			return nil, fmt.Errorf("text %d: %w", i, ErrEmptyEmbeddingInput)
		}
	}

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += c.batchSize {
		end := start + c.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		group := texts[start:end]

		var parsed embeddingResponse
		reqBody := map[string]interface{}{
			"model": c.model,
			"input": group,
		}
		if err := c.api.postJSON(ctx, "/embeddings", "embedding batch", reqBody, &parsed); err != nil {
			return nil, fmt.Errorf("embedding batch at offset %d failed: %w", start, err)
		}
		if len(parsed.Data) != len(group) {
			return nil, fmt.Errorf("embedding batch at offset %d: got %d vectors for %d inputs", start, len(parsed.Data), len(group))
		}

		sort.Slice(parsed.Data, func(i, j int) bool {
			return parsed.Data[i].Index < parsed.Data[j].Index
		})
		for _, d := range parsed.Data {
			result = append(result, d.Embedding)
		}
	}
	return result, nil
}
