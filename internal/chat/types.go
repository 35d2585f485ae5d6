package chat

import (
	"encoding/json"
	"fmt"
)

// ChatRequest represents the payload sent to the Ollama chat endpoint
type ChatRequest struct {
	Model    string         `json:"model"`
	Messages []Message      `json:"messages"`
	Tools    []ToolDef      `json:"tools,omitempty"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

// Message represents a chat message
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	Images     []string   `json:"images,omitempty"` // base64, for vision models
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // For role: tool response linkage
}

// ToolDef represents a tool definition passed to the model
type ToolDef struct {
	Type     string   `json:"type"`
	Function ToolFunc `json:"function"`
}

type ToolFunc struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Parameters  any    `json:"parameters"`
}

type ToolCall struct {
	ID       string       `json:"id,omitempty"`
	Function ToolCallFunc `json:"function"`
}

type ToolCallFunc struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

// UnmarshalJSON handles both string (OpenAI style) and object (Ollama style)
// formats for tool call arguments.
func (t *ToolCallFunc) UnmarshalJSON(data []byte) error {
	type Alias ToolCallFunc
	aux := &struct {
		Arguments interface{} `json:"arguments"`
		*Alias
	}{
		Alias: (*Alias)(t),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	switch v := aux.Arguments.(type) {
	case string:
		if v == "" {
			t.Arguments = make(map[string]any)
			return nil
		}
		if err := json.Unmarshal([]byte(v), &t.Arguments); err != nil {
			return fmt.Errorf("failed to parse tool arguments string: %w", err)
		}
	case map[string]interface{}:
		t.Arguments = v
	default:
		t.Arguments = make(map[string]any)
	}

	return nil
}

// ChatResponse represents the response from the chat endpoint. Some
// OpenAI-compatible servers wrap the message in choices.
type ChatResponse struct {
	Model     string  `json:"model"`
	CreatedAt string  `json:"created_at"`
	Message   Message `json:"message"`
	Done      bool    `json:"done"`
	Choices   []struct {
		Message Message `json:"message"`
	} `json:"choices,omitempty"`
}

// ToolExecutionLog records a tool invocation for display in the UI
type ToolExecutionLog struct {
	Name string
	Args map[string]any
}
