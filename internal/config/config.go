package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Collection is a folder of documents tracked by the index.
type Collection struct {
	Name    string `yaml:"name"`
	Path    string `yaml:"path"`
	Pattern string `yaml:"pattern"`
}

// Extractors controls the LLM metadata extractors applied during ingestion.
// A zero value disables the corresponding extractor.
type Extractors struct {
	Title     bool `yaml:"title"`
	Keywords  int  `yaml:"keywords"`
	Questions int  `yaml:"questions"`
	Summary   bool `yaml:"summary"`
}

type Config struct {
	// Ollama server settings
	OllamaURL string `yaml:"ollama_url"`

	// Models
	EmbedModel  string `yaml:"embed_model"`
	ChatModel   string `yaml:"chat_model"`
	VisionModel string `yaml:"vision_model"`

	EmbedDimensions      int  `yaml:"embed_dimensions"`
	EmbeddingsConfigured bool `yaml:"embeddings_configured"`

	// Local inference (llama.cpp via shared library)
	UseLocal       bool   `yaml:"use_local"`
	LocalModelPath string `yaml:"local_model_path"`
	LocalLibPath   string `yaml:"local_lib_path"`

	// Chunking
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`

	Extractors Extractors `yaml:"extractors"`

	Collections []Collection `yaml:"collections"`
}

func Default() *Config {
	return &Config{
		OllamaURL:       "http://localhost:11434",
		EmbedModel:      "nomic-embed-text",
		ChatModel:       "llama3",
		VisionModel:     "llava",
		EmbedDimensions: 768,
		ChunkSize:       1000,
		ChunkOverlap:    200,
		Extractors: Extractors{
			Keywords:  3,
			Questions: 1,
		},
	}
}

func Path() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docent.yml"), nil
}

// Load reads the config file, returning defaults when it does not exist.
func Load() (*Config, error) {
	path, err := Path()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return Default(), nil
	}
	if err != nil {
		return nil, err
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(cfg *Config) error {
	path, err := Path()
	if err != nil {
		return err
	}
	return SaveFile(cfg, path)
}

func SaveFile(cfg *Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// FindCollection returns the collection with the given name, or nil.
func (c *Config) FindCollection(name string) *Collection {
	for i := range c.Collections {
		if c.Collections[i].Name == name {
			return &c.Collections[i]
		}
	}
	return nil
}
