package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/serapieum/docent/internal/mcpserver"
	"github.com/serapieum/docent/internal/util"
	"github.com/mark3labs/mcp-go/mcp"
)

const systemPrompt = "You are a helpful assistant with access to an indexed " +
	"document library, including extracted paper figures. Use 'query' for " +
	"most questions. Always answer based on the retrieved context."

// OllamaClient drives a tool-calling conversation against the Ollama chat
// endpoint, executing tools through the in-process MCP server.
type OllamaClient struct {
	BaseURL  string
	Model    string
	MCP      *mcpserver.Server
	Messages []Message
	Tools    []ToolDef
	Client   *http.Client
}

func NewOllamaClient(url, model string, mcp *mcpserver.Server) *OllamaClient {
	var tools []ToolDef
	for _, t := range mcp.GetTools() {
		tools = append(tools, ToolDef{
			Type: "function",
			Function: ToolFunc{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			},
		})
	}

	return &OllamaClient{
		BaseURL: url,
		Model:   model,
		MCP:     mcp,
		Tools:   tools,
		Client:  &http.Client{Timeout: 300 * time.Second},
		Messages: []Message{
			{Role: "system", Content: systemPrompt},
		},
	}
}

// Chat returns content, a list of tools executed, and error
func (c *OllamaClient) Chat(userPrompt string) (string, []ToolExecutionLog, error) {
	c.Messages = append(c.Messages, Message{Role: "user", Content: userPrompt})

	var finalContent string
	var toolCallsMade bool
	var executionLogs []ToolExecutionLog

	// Max turns loop
	for i := 0; i < 5; i++ {
		reqBody := ChatRequest{
			Model:    c.Model,
			Messages: c.Messages,
			Stream:   false,
			Tools:    c.Tools,
			Options: map[string]interface{}{
				"num_ctx": 8192,
			},
		}

		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return "", nil, fmt.Errorf("marshal error: %w", err)
		}

		resp, err := c.Client.Post(c.BaseURL+"/api/chat", "application/json", bytes.NewBuffer(jsonBody))
		if err != nil {
			return "", nil, fmt.Errorf("network error: %w", err)
		}

		if resp.StatusCode != 200 {
			resp.Body.Close()
			return "", nil, fmt.Errorf("ollama API error: %s", resp.Status)
		}

		var chatResp ChatResponse
		err = json.NewDecoder(resp.Body).Decode(&chatResp)
		resp.Body.Close()
		if err != nil {
			return "", nil, fmt.Errorf("decode error: %w", err)
		}

		// Normalize response shape
		var respMessage Message
		if len(chatResp.Choices) > 0 {
			respMessage = chatResp.Choices[0].Message
		} else {
			respMessage = chatResp.Message
		}

		util.Debug("chat turn %d: %d tool calls, %d chars",
			i, len(respMessage.ToolCalls), len(respMessage.Content))

		c.Messages = append(c.Messages, respMessage)

		// Done when the model stops calling tools
		if len(respMessage.ToolCalls) == 0 {
			finalContent = respMessage.Content

			if finalContent == "" {
				if toolCallsMade {
					finalContent = "(Model finished execution but returned no summary text)"
				} else {
					finalContent = "(Model returned empty response)"
				}
				c.Messages[len(c.Messages)-1].Content = finalContent
			}

			return finalContent, executionLogs, nil
		}

		toolCallsMade = true
		for _, tc := range respMessage.ToolCalls {
			args := tc.Function.Arguments
			if args == nil {
				args = make(map[string]any)
			}

			executionLogs = append(executionLogs, ToolExecutionLog{
				Name: tc.Function.Name,
				Args: args,
			})
			util.Debug("executing tool %s args=%v", tc.Function.Name, args)

			res, err := c.MCP.CallTool(context.Background(), tc.Function.Name, args)

			content := ""
			if err != nil {
				util.Debug("tool %s failed: %v", tc.Function.Name, err)
				content = fmt.Sprintf("Error executing tool %s: %v", tc.Function.Name, err)
			} else {
				for _, r := range res.Content {
					if txt, ok := r.(mcp.TextContent); ok {
						content += txt.Text
					}
				}
			}

			if content == "" {
				content = "Tool executed successfully but returned no output."
			}

			c.Messages = append(c.Messages, Message{
				Role:       "tool",
				Content:    content,
				ToolCallID: tc.ID,
			})
		}
	}

	if len(c.Messages) > 0 && c.Messages[len(c.Messages)-1].Role == "tool" {
		fallback := "(Conversation turn limit reached)"
		c.Messages = append(c.Messages, Message{Role: "assistant", Content: fallback})
		// Keep the tool log so the UI can still show what ran
		return fallback, executionLogs, fmt.Errorf("max conversation turns exceeded")
	}

	return "", executionLogs, fmt.Errorf("unexpected chat state")
}
