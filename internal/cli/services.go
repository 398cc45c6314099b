package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"ragnotes/internal/config"
	"ragnotes/internal/database"
	"ragnotes/internal/embedding"
	"ragnotes/internal/ingest"
	"ragnotes/internal/llm"
	"ragnotes/internal/logger"
	"ragnotes/internal/processor"
	"ragnotes/internal/summarize"
)

// Service factories. Tests replace them to run commands without Ollama,
// Postgres or Redis.
var (
	newEmbedder  = buildEmbedder
	newIndex     = buildIndex
	newGateway   = buildGateway
	newExtractor = func() ingest.PageExtractor { return processor.NewPDFExtractor() }
	newOpener    = func() summarize.Opener { return summarize.PDFOpener(processor.NewPDFExtractor()) }
)

func noop() {}

// buildEmbedder selects the embedding provider and wraps it with the Redis
// cache when one is configured.
func buildEmbedder(ctx context.Context, cfg *config.AppConfig) (embedding.Embedder, func(), error) {
	var (
		inner embedding.Embedder
		model string
	)
	switch cfg.Embedding.Provider {
	case "ollama":
		e, err := embedding.NewOllamaEmbedder(cfg.Ollama.Host, cfg.Ollama.EmbeddingModel, cfg.OllamaTimeout())
		if err != nil {
			return nil, nil, err
		}
		inner, model = e, cfg.Ollama.EmbeddingModel
	case "hashing":
		inner = embedding.NewHashingEmbedder(cfg.Embedding.Dimensions)
		model = fmt.Sprintf("hashing-%d", cfg.Embedding.Dimensions)
	default:
		return nil, nil, fmt.Errorf("%w: unknown embedding provider %q", config.ErrInvalid, cfg.Embedding.Provider)
	}

	c := cfg.Embedding.Cache
	if c.RedisAddr == "" {
		return inner, noop, nil
	}
	cache, err := embedding.NewRedisCache(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB, time.Duration(c.TTLSecs)*time.Second)
	if err != nil {
		return nil, nil, err
	}
	cached := embedding.NewCachedEmbedder(inner, cache, model, c.KeyPrefix, logger.Component(appLog, "embedding-cache"))
	return cached, func() { _ = cache.Close() }, nil
}

func buildIndex(ctx context.Context, cfg *config.AppConfig, embedder embedding.Embedder) (database.Index, func(), error) {
	db, err := database.NewPostgresIndex(ctx, cfg.Database.URL, cfg.Database.Table, cfg.Database.Dimensions, embedder)
	if err != nil {
		return nil, nil, err
	}
	if err := db.Initialize(ctx); err != nil {
		db.Close()
		return nil, nil, err
	}
	return db, db.Close, nil
}

// buildGateway selects the generation provider. jsonOutput constrains Ollama
// replies to JSON; OpenRouter relies on the prompt alone.
func buildGateway(cfg *config.AppConfig, jsonOutput bool) (llm.Gateway, error) {
	switch cfg.Generation.Provider {
	case "ollama":
		gw, err := llm.NewOllamaGateway(cfg.Ollama.Host, cfg.Ollama.ChatModel)
		if err != nil {
			return nil, err
		}
		gw.JSON = jsonOutput
		return gw, nil
	case "openrouter":
		or := cfg.Generation.OpenRouter
		key := os.Getenv(or.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("%w: %s is not set", config.ErrInvalid, or.APIKeyEnv)
		}
		return llm.NewOpenRouterGateway(or.BaseURL, key, or.Model, time.Duration(or.TimeoutSecs)*time.Second), nil
	default:
		return nil, fmt.Errorf("%w: unknown generation provider %q", config.ErrInvalid, cfg.Generation.Provider)
	}
}
