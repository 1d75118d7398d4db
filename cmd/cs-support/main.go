package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cs-support/internal/agent"
	"cs-support/internal/chunker"
	"cs-support/internal/config"
	"cs-support/internal/history"
	"cs-support/internal/index"
	"cs-support/internal/llm"
	"cs-support/internal/retriever"
	"cs-support/internal/service"
	"cs-support/internal/tui"
)

func main() {
	_ = godotenv.Load()

	var cfgPath string
	flag.StringVar(&cfgPath, "config", "", "Path to YAML config file (optional; uses ~/.config/cs-support/config.yaml if not provided)")
	flag.Parse()

	var cfg *config.AppConfig
	var err error
	if cfgPath == "" {
		cfg, _, err = config.LoadDefault()
	} else {
		cfg, err = config.Load(cfgPath)
	}
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if args := flag.Args(); len(args) > 0 {
		cfg.KnowledgeBaseDir = args[0]
	}

	// The TUI owns the terminal, so the app logger is a no-op here.
	logger := zap.NewNop()

	ch, err := chunker.NewWindowChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		log.Fatalf("chunker config: %v", err)
	}
	model := llm.NewClient(llm.Config{
		Host:           cfg.Ollama.Host,
		LLMModel:       cfg.Ollama.LLMModel,
		EmbeddingModel: cfg.Ollama.EmbeddingModel,
		Timeout:        time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
	})
	store := index.NewStore(ch, model)
	ret := retriever.New(model, store)
	pipeline := agent.NewPipeline(model, ret, agent.PipelineConfig{
		TopK:          cfg.RAG.TopK,
		MinSimilarity: cfg.RAG.MinSimilarity,
		StageTimeout:  time.Duration(cfg.Ollama.TimeoutSecs) * time.Second,
		Confidence:    cfg.Confidence,
	}, logger)

	hist, err := history.NewStore(cfg.History.Path, cfg.Confidence)
	if err != nil {
		log.Fatalf("failed to open history db: %v", err)
	}
	defer hist.Close()

	svc := service.New(store, pipeline, hist, logger)

	fmt.Println("Indexing knowledge base...")
	count, err := svc.IndexDir(context.Background(), cfg.KnowledgeBaseDir)
	if err != nil {
		log.Fatalf("indexing failed: %v", err)
	}
	fmt.Printf("Indexed %d documents (%d chunks)\n", count, svc.ChunkCount())

	p := tea.NewProgram(tui.New(svc), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
