package config

import (
	"errors"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"cs-support/internal/domain"
)

// OllamaConfig holds connection settings for the Ollama-compatible model service.
type OllamaConfig struct {
	Host           string `yaml:"host"`
	LLMModel       string `yaml:"llm_model"`
	EmbeddingModel string `yaml:"embedding_model"`
	TimeoutSecs    int    `yaml:"timeout_secs"`
}

// RAGConfig configures chunking and retrieval.
type RAGConfig struct {
	ChunkSize     int     `yaml:"chunk_size"`
	ChunkOverlap  int     `yaml:"chunk_overlap"`
	TopK          int     `yaml:"top_k"`
	MinSimilarity float64 `yaml:"min_similarity"`
}

// ConfidenceConfig holds the thresholds that band scores into levels.
type ConfidenceConfig struct {
	HighThreshold int `yaml:"high_threshold"`
	LowThreshold  int `yaml:"low_threshold"`
}

// HistoryConfig configures the query history database.
type HistoryConfig struct {
	Path string `yaml:"path"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	KnowledgeBaseDir string           `yaml:"knowledge_base_dir"`
	Ollama           OllamaConfig     `yaml:"ollama"`
	RAG              RAGConfig        `yaml:"rag"`
	Confidence       ConfidenceConfig `yaml:"confidence"`
	History          HistoryConfig    `yaml:"history"`
	Server           ServerConfig     `yaml:"server"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return defaultConfig(), nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/cs-support/config.yaml.
// If neither exists, it writes defaults to the user path and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	cfg := defaultConfig()
	if err := Save(userPath, cfg); err != nil {
		return nil, "", err
	}
	return cfg, userPath, nil
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "cs-support", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := &AppConfig{}
	applyConfigDefaults(cfg)
	return cfg
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.KnowledgeBaseDir == "" {
		cfg.KnowledgeBaseDir = "knowledge_base"
	}
	if cfg.Ollama.Host == "" {
		cfg.Ollama.Host = envOr("OLLAMA_HOST", "http://localhost:11434")
	}
	if cfg.Ollama.LLMModel == "" {
		cfg.Ollama.LLMModel = envOr("OLLAMA_LLM_MODEL", "llama3.2:3b")
	}
	if cfg.Ollama.EmbeddingModel == "" {
		cfg.Ollama.EmbeddingModel = envOr("OLLAMA_EMBEDDING_MODEL", "nomic-embed-text")
	}
	if cfg.Ollama.TimeoutSecs == 0 {
		cfg.Ollama.TimeoutSecs = 120
	}
	if cfg.RAG.ChunkSize == 0 {
		cfg.RAG.ChunkSize = 500
	}
	if cfg.RAG.ChunkOverlap == 0 {
		cfg.RAG.ChunkOverlap = 50
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = 3
	}
	if cfg.RAG.MinSimilarity == 0 {
		cfg.RAG.MinSimilarity = 0.25
	}
	if cfg.Confidence.HighThreshold == 0 {
		cfg.Confidence.HighThreshold = 70
	}
	if cfg.Confidence.LowThreshold == 0 {
		cfg.Confidence.LowThreshold = 40
	}
	if cfg.History.Path == "" {
		cfg.History.Path = filepath.Join("data", "cs-support.db")
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = ":8000"
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// Level bands a confidence score using the configured thresholds.
func (c ConfidenceConfig) Level(score int) string {
	switch {
	case score >= c.HighThreshold:
		return domain.ConfidenceHigh
	case score >= c.LowThreshold:
		return domain.ConfidenceMedium
	default:
		return domain.ConfidenceLow
	}
}
