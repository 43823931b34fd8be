package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/zhongyd/addrnorm/internal/api"
	"github.com/zhongyd/addrnorm/internal/cache"
	"github.com/zhongyd/addrnorm/internal/config"
	"github.com/zhongyd/addrnorm/internal/llmtag"
	"github.com/zhongyd/addrnorm/internal/pipeline"
	"github.com/zhongyd/addrnorm/internal/tagger"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Initialize the tagging backend.
	var tags pipeline.TagSource
	var tagClient *tagger.Client
	var llmClient *llmtag.Client
	switch cfg.TagSource {
	case "llm":
		llmClient = llmtag.NewClient(cfg.OpenAIAPIKey, cfg.OpenAIBaseURL, cfg.OpenAIModel)
		tags = &pipeline.LLMTagSource{Client: llmClient}
	default:
		tagClient = tagger.NewClient(cfg.TaggerURL, cfg.TaggerTimeout)
		tags = &pipeline.ModelTagSource{Client: tagClient}
	}

	// Optional Redis result cache.
	var resultCache *cache.ResultCache
	if cfg.RedisAddr != "" {
		var err error
		resultCache, err = cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL, log)
		if err != nil {
			log.Error("redis unavailable, running without cache", "error", err)
			resultCache = nil
		}
	}

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, tags, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, tags, tagClient, resultCache, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		orch.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		if tagClient != nil {
			tagClient.Close()
		}
		if llmClient != nil {
			llmClient.Close()
		}
		if resultCache != nil {
			resultCache.Close()
		}
	}()

	log.Info("starting addrnorm", "port", cfg.Port, "tag_source", cfg.TagSource, "cache", resultCache != nil)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
}
