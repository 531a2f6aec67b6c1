package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitForGemini(t *testing.T) {
	system, history, last := splitForGemini([]ChatMessage{
		{Role: RoleSystem, Content: "be brief"},
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
		{Role: RoleUser, Content: "how do I sell?"},
	})

	assert.Equal(t, "be brief", system)
	assert.Equal(t, []ChatMessage{
		{Role: RoleUser, Content: "hi"},
		{Role: "model", Content: "hello"},
	}, history)
	assert.Equal(t, "how do I sell?", last)
}

func TestSplitForGemini_NoTrailingUser(t *testing.T) {
	_, history, last := splitForGemini([]ChatMessage{
		{Role: RoleUser, Content: "hi"},
		{Role: RoleAssistant, Content: "hello"},
	})

	assert.Equal(t, "", last)
	assert.Len(t, history, 2)
}

func TestToFloat32(t *testing.T) {
	assert.Equal(t, []float32{1, 2.5}, toFloat32([]float64{1, 2.5}))
	assert.Equal(t, []float32{3}, toFloat32([]float32{3}))
}
