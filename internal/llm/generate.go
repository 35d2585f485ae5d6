package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"
)

// Generator wraps the Ollama /api/generate endpoint. It covers plain text
// completion and vision prompts (base64 images attached to the request).
type Generator struct {
	BaseURL string
	Model   string
	Client  *http.Client
}

func NewGenerator(baseURL, model string) *Generator {
	return &Generator{
		BaseURL: baseURL,
		Model:   model,
		Client:  &http.Client{Timeout: 300 * time.Second},
	}
}

// GenerateRequest follows the Ollama generate API format.
type GenerateRequest struct {
	Model   string         `json:"model"`
	Prompt  string         `json:"prompt"`
	Images  []string       `json:"images,omitempty"`
	Stream  bool           `json:"stream"`
	Format  string         `json:"format,omitempty"`
	Options map[string]any `json:"options,omitempty"`
}

type GenerateResponse struct {
	Model     string `json:"model"`
	CreatedAt string `json:"created_at"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

// Generate runs a non-streamed completion and returns the full response text.
func (g *Generator) Generate(ctx context.Context, prompt string, images []string) (string, error) {
	reqBody := GenerateRequest{
		Model:  g.Model,
		Prompt: prompt,
		Images: images,
		Stream: false,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("API returned status: %s", resp.Status)
	}

	var result GenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return strings.TrimSpace(result.Response), nil
}

// GenerateStream runs a streamed completion. Ollama streams NDJSON, one
// token batch per line; fn is called for each fragment as it arrives.
func (g *Generator) GenerateStream(ctx context.Context, prompt string, images []string, fn func(fragment string)) error {
	reqBody := GenerateRequest{
		Model:  g.Model,
		Prompt: prompt,
		Images: images,
		Stream: true,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.BaseURL+"/api/generate", bytes.NewBuffer(jsonData))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.Client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("API returned status: %s", resp.Status)
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(bytes.TrimSpace(line)) == 0 {
			continue
		}
		var chunk GenerateResponse
		if err := json.Unmarshal(line, &chunk); err != nil {
			return fmt.Errorf("decode stream: %w", err)
		}
		if chunk.Response != "" {
			fn(chunk.Response)
		}
		if chunk.Done {
			break
		}
	}
	return scanner.Err()
}

// Describe sends an image file to the vision model along with prompt and
// returns the model's description.
func (g *Generator) Describe(ctx context.Context, imagePath, prompt string) (string, error) {
	data, err := os.ReadFile(imagePath)
	if err != nil {
		return "", err
	}
	encoded := base64.StdEncoding.EncodeToString(data)
	return g.Generate(ctx, prompt, []string{encoded})
}
