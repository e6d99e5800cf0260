package lawreader

import (
	"os"
	"path/filepath"
)

// Config holds all configuration for the LawReader engine.
type Config struct {
	// GraphPath is the full path to the knowledge graph JSON file.
	// If empty, defaults to <storage dir>/law_graph.json.
	GraphPath string `json:"graph_path" yaml:"graph_path"`

	// IndexDir is the directory holding the per-type vector index
	// databases. Defaults to <storage dir>/indexes.
	IndexDir string `json:"index_dir" yaml:"index_dir"`

	// DBPath is the full path to the SQLite database holding document
	// analyses and the query log. Defaults to <storage dir>/lawreader.db.
	DBPath string `json:"db_path" yaml:"db_path"`

	// StorageDir controls where files are created when the paths above are
	// not explicitly set. Options: "home" (default) uses ~/.lawreader/,
	// "local" uses the current working directory.
	StorageDir string `json:"storage_dir" yaml:"storage_dir"`

	// AllowEmptyGraph makes a missing graph file non-fatal: the engine
	// starts with an empty graph that the auto-linker grows from scratch.
	AllowEmptyGraph bool `json:"allow_empty_graph" yaml:"allow_empty_graph"`

	// LLM providers
	Chat      LLMConfig `json:"chat" yaml:"chat"`
	Embedding LLMConfig `json:"embedding" yaml:"embedding"`

	// MatchThreshold is the minimum scenario similarity for a graph match.
	MatchThreshold float32 `json:"match_threshold" yaml:"match_threshold"`

	// EmbeddingDim must match the embedding model's output width.
	EmbeddingDim int `json:"embedding_dim" yaml:"embedding_dim"`
}

// LLMConfig configures a single LLM provider endpoint.
type LLMConfig struct {
	Provider string `json:"provider" yaml:"provider"` // ollama, openrouter, openai, custom
	Model    string `json:"model" yaml:"model"`
	BaseURL  string `json:"base_url" yaml:"base_url"`
	APIKey   string `json:"api_key" yaml:"api_key"`
}

// DefaultConfig returns a Config with sensible defaults for local inference.
// Files are stored under ~/.lawreader/ by default.
func DefaultConfig() Config {
	return Config{
		StorageDir: "home",
		Chat: LLMConfig{
			Provider: "ollama",
			Model:    "llama3.1:8b",
			BaseURL:  "http://localhost:11434",
		},
		Embedding: LLMConfig{
			Provider: "ollama",
			Model:    "nomic-embed-text",
			BaseURL:  "http://localhost:11434",
		},
		MatchThreshold: 0.65,
		EmbeddingDim:   768,
	}
}

// storageDir resolves the base directory for default file locations.
func (c *Config) storageDir() string {
	switch c.StorageDir {
	case "local", "cwd":
		return "."
	default: // "home" or empty
		home, err := os.UserHomeDir()
		if err != nil {
			return "."
		}
		return filepath.Join(home, ".lawreader")
	}
}

func (c *Config) resolveGraphPath() string {
	if c.GraphPath != "" {
		return c.GraphPath
	}
	return filepath.Join(c.storageDir(), "law_graph.json")
}

func (c *Config) resolveIndexDir() string {
	if c.IndexDir != "" {
		return c.IndexDir
	}
	return filepath.Join(c.storageDir(), "indexes")
}

func (c *Config) resolveDBPath() string {
	if c.DBPath != "" {
		return c.DBPath
	}
	return filepath.Join(c.storageDir(), "lawreader.db")
}
