package llm

import (
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/hybridgroup/yzma/pkg/llama"
)

// LocalClient runs a GGUF embedding model in-process through llama.cpp.
type LocalClient struct {
	ModelFile string
	LibPath   string
	TargetDim int
	Context   llama.Context
	Model     llama.Model
	UseEncode bool
	MaxTokens int
}

func NewLocalClient(modelFile, libPath string, targetDim int) (*LocalClient, error) {
	if _, err := os.Stat(modelFile); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", modelFile)
	}

	if err := llama.Load(libPath); err != nil {
		return nil, fmt.Errorf("unable to load llama library from %s: %w", libPath, err)
	}
	llama.Init()

	model, err := llama.ModelLoadFromFile(modelFile, llama.ModelDefaultParams())
	if err != nil {
		return nil, fmt.Errorf("unable to load model: %v", err)
	}

	// BERT-family models (Nomic) need Encode, decoder models need Decode.
	useEncode := false
	if val, ok := llama.ModelMetaValStr(model, "general.architecture"); ok {
		if strings.Contains(val, "bert") {
			useEncode = true
		}
	} else {
		lowerName := strings.ToLower(modelFile)
		if strings.Contains(lowerName, "bert") || strings.Contains(lowerName, "nomic-embed") {
			useEncode = true
		}
	}

	maxTokens := 2048
	metaKeys := []string{"llama.context_length", "general.context_length"}
	if useEncode {
		metaKeys = []string{"nomic-bert.context_length"}
	}
	for _, key := range metaKeys {
		if sVal, ok := llama.ModelMetaValStr(model, key); ok {
			if v, err := strconv.Atoi(sVal); err == nil && v > 0 {
				maxTokens = v
				break
			}
		}
	}

	// Batch sizes must cover the full context or the encoder asserts
	// with "n_ubatch >= n_tokens".
	ctxParams := llama.ContextDefaultParams()
	ctxParams.NCtx = uint32(maxTokens)
	ctxParams.NBatch = uint32(maxTokens)
	ctxParams.NUbatch = uint32(maxTokens)
	ctxParams.Embeddings = 1
	ctxParams.PoolingType = llama.PoolingTypeMean

	lctx, err := llama.InitFromModel(model, ctxParams)
	if err != nil {
		llama.ModelFree(model)
		return nil, fmt.Errorf("unable to initialize context: %v", err)
	}

	return &LocalClient{
		ModelFile: modelFile,
		LibPath:   libPath,
		TargetDim: targetDim,
		Model:     model,
		Context:   lctx,
		UseEncode: useEncode,
		MaxTokens: maxTokens,
	}, nil
}

func (c *LocalClient) Embed(text string, isQuery bool) ([]float32, error) {
	prefix := "search_document: "
	if isQuery {
		prefix = "search_query: "
	}
	prompt := prefix + text

	vocab := llama.ModelGetVocab(c.Model)
	tokens := llama.Tokenize(vocab, prompt, true, true)

	// Silent truncation is the norm for embedding inputs; anything longer
	// than the model context would crash llama.cpp.
	if len(tokens) > c.MaxTokens {
		tokens = tokens[:c.MaxTokens]
	}

	batch := llama.BatchGetOne(tokens)

	var ret int32
	var err error
	if c.UseEncode {
		ret, err = llama.Encode(c.Context, batch)
	} else {
		ret, err = llama.Decode(c.Context, batch)
	}
	if err != nil {
		return nil, fmt.Errorf("llama processing failed: %w", err)
	}
	if ret != 0 {
		return nil, fmt.Errorf("llama processing failed with code %d", ret)
	}

	nEmbd := llama.ModelNEmbd(c.Model)
	vec, err := llama.GetEmbeddingsSeq(c.Context, 0, nEmbd)
	if err != nil {
		return nil, fmt.Errorf("failed to get embeddings: %w", err)
	}

	// Cosine similarity expects normalized vectors
	var sum float64
	for _, v := range vec {
		sum += float64(v * v)
	}
	sum = math.Sqrt(sum)
	norm := float32(1.0 / sum)

	normalized := make([]float32, len(vec))
	for i, v := range vec {
		normalized[i] = v * norm
	}

	return Truncate(normalized, c.TargetDim), nil
}

func (c *LocalClient) Close() error {
	if c.Context != 0 {
		llama.Free(c.Context)
	}
	if c.Model != 0 {
		llama.ModelFree(c.Model)
	}
	return nil
}
