package chat

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolCallFunc_UnmarshalObjectArguments(t *testing.T) {
	// Ollama style: arguments as a JSON object
	data := `{"name":"search","arguments":{"query":"golang","limit":5}}`

	var f ToolCallFunc
	require.NoError(t, json.Unmarshal([]byte(data), &f))
	assert.Equal(t, "search", f.Name)
	assert.Equal(t, "golang", f.Arguments["query"])
	assert.Equal(t, float64(5), f.Arguments["limit"])
}

func TestToolCallFunc_UnmarshalStringArguments(t *testing.T) {
	// OpenAI style: arguments as an escaped JSON string
	data := `{"name":"search","arguments":"{\"query\":\"golang\"}"}`

	var f ToolCallFunc
	require.NoError(t, json.Unmarshal([]byte(data), &f))
	assert.Equal(t, "search", f.Name)
	assert.Equal(t, "golang", f.Arguments["query"])
}

func TestToolCallFunc_UnmarshalEmptyArguments(t *testing.T) {
	for _, data := range []string{
		`{"name":"status","arguments":""}`,
		`{"name":"status"}`,
	} {
		var f ToolCallFunc
		require.NoError(t, json.Unmarshal([]byte(data), &f), data)
		assert.NotNil(t, f.Arguments)
		assert.Empty(t, f.Arguments)
	}
}

func TestChatResponse_ChoicesFallback(t *testing.T) {
	data := `{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`

	var resp ChatResponse
	require.NoError(t, json.Unmarshal([]byte(data), &resp))
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "hi", resp.Choices[0].Message.Content)
}
