package llm

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_Generate(t *testing.T) {
	var gotReq GenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/generate", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(GenerateResponse{Response: "  The answer.  ", Done: true})
	}))
	defer server.Close()

	g := NewGenerator(server.URL, "llama3")
	out, err := g.Generate(context.Background(), "What is the answer?", nil)
	require.NoError(t, err)

	assert.Equal(t, "The answer.", out)
	assert.Equal(t, "llama3", gotReq.Model)
	assert.False(t, gotReq.Stream)
}

func TestGenerator_Generate_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer server.Close()

	g := NewGenerator(server.URL, "llama3")
	_, err := g.Generate(context.Background(), "prompt", nil)
	assert.Error(t, err)
}

func TestGenerator_GenerateStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req GenerateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Stream)

		// NDJSON, one fragment per line
		fmt.Fprintln(w, `{"response":"Hello","done":false}`)
		fmt.Fprintln(w, `{"response":" world","done":false}`)
		fmt.Fprintln(w, `{"response":"","done":true}`)
	}))
	defer server.Close()

	g := NewGenerator(server.URL, "llama3")

	var got string
	err := g.GenerateStream(context.Background(), "hi", nil, func(fragment string) {
		got += fragment
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello world", got)
}

func TestGenerator_Describe(t *testing.T) {
	raw := []byte{0x89, 'P', 'N', 'G'}
	imgPath := filepath.Join(t.TempDir(), "fig.png")
	require.NoError(t, os.WriteFile(imgPath, raw, 0644))

	var gotReq GenerateRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
		json.NewEncoder(w).Encode(GenerateResponse{Response: "A line plot.", Done: true})
	}))
	defer server.Close()

	g := NewGenerator(server.URL, "llava")
	out, err := g.Describe(context.Background(), imgPath, "Describe this figure")
	require.NoError(t, err)

	assert.Equal(t, "A line plot.", out)
	require.Len(t, gotReq.Images, 1)
	assert.Equal(t, base64.StdEncoding.EncodeToString(raw), gotReq.Images[0])
}

func TestGenerator_Describe_MissingFile(t *testing.T) {
	g := NewGenerator("http://localhost:0", "llava")
	_, err := g.Describe(context.Background(), filepath.Join(t.TempDir(), "nope.png"), "prompt")
	assert.Error(t, err)
}
