package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"cs-support/internal/agent"
	"cs-support/internal/chunker"
	"cs-support/internal/config"
	"cs-support/internal/history"
	"cs-support/internal/index"
	"cs-support/internal/llm"
	"cs-support/internal/retriever"
	"cs-support/internal/server"
	"cs-support/internal/service"
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

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync()

	ch, err := chunker.NewWindowChunker(cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap)
	if err != nil {
		logger.Fatal("chunker config", zap.Error(err))
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
		logger.Fatal("opening history db", zap.Error(err))
	}
	defer hist.Close()

	svc := service.New(store, pipeline, hist, logger)

	logger.Info("indexing knowledge base", zap.String("dir", cfg.KnowledgeBaseDir))
	if _, err := svc.IndexDir(context.Background(), cfg.KnowledgeBaseDir); err != nil {
		// The server still starts; queries will report no information.
		logger.Warn("knowledge base indexing failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           server.New(svc, hist, logger).Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("listening", zap.String("addr", cfg.Server.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server stopped", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
