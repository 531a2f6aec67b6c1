package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplete_SendsParameters(t *testing.T) {
	var body map[string]interface{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"hola"}}]}`))
	}))
	defer srv.Close()

	client := NewOpenAICompatibleClient(srv.URL+"/v1/", "key", 0)

	out, err := client.Complete(context.Background(), CompletionRequest{
		Model:       "gpt-4o",
		Messages:    []ChatMessage{{Role: RoleSystem, Content: "s"}, {Role: RoleUser, Content: "q"}},
		Temperature: 0.5,
		MaxTokens:   1500,
	})

	require.NoError(t, err)
	assert.Equal(t, "hola", out)
	assert.Equal(t, "gpt-4o", body["model"])
	assert.Equal(t, 0.5, body["temperature"])
	assert.Equal(t, float64(1500), body["max_tokens"])
	assert.Len(t, body["messages"], 2)
}

func TestComplete_NoChoicesIsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	out, err := NewOpenAICompatibleClient(srv.URL, "key", 0).Complete(context.Background(), CompletionRequest{Model: "m"})

	require.NoError(t, err)
	assert.Equal(t, "", out)
}

func TestComplete_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewOpenAICompatibleClient(srv.URL, "key", 0).Complete(context.Background(), CompletionRequest{Model: "m"})

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	assert.Contains(t, err.Error(), "llm response status 500")
}
