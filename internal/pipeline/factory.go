package pipeline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/psokolov/verdex/internal/cache"
	"github.com/psokolov/verdex/internal/embed"
	"github.com/psokolov/verdex/internal/evidence"
	"github.com/psokolov/verdex/internal/extract"
	"github.com/psokolov/verdex/internal/judge"
	"github.com/psokolov/verdex/internal/llm"
	"github.com/psokolov/verdex/internal/model"
	"github.com/psokolov/verdex/internal/nli"
	"github.com/psokolov/verdex/internal/search"
	"github.com/psokolov/verdex/internal/store"
	"github.com/psokolov/verdex/internal/temporal"
	"github.com/psokolov/verdex/internal/verify"
)

// New builds a fully wired orchestrator from configuration. The returned
// cleanup function closes the persistence store and drains the archive
// queue; call it when the process is done verifying.
func New(cfg *model.Config) (*Orchestrator, func(), error) {
	c := buildCache(cfg)

	chain, err := buildChain(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("configure model providers: %w", err)
	}

	extractor := extract.NewExtractor(chain, c, cfg)
	analyzer := temporal.NewAnalyzer(cfg.Temporal)

	searcher := search.NewClient(cfg.Search, cfg.Cache, c, cfg.Output.Verbose)
	fetcher := search.NewFetcher(cfg.HTTP, cfg.Concurrency, cfg.Output.Verbose)

	embedder, err := embed.NewOpenAIEmbedder(cfg.Embedding, cfg.Cache, c)
	if err != nil {
		return nil, nil, fmt.Errorf("configure embeddings: %w", err)
	}

	retriever := evidence.NewRetriever(searcher, fetcher, embedder, analyzer, cfg)
	verifier := verify.NewVerifier(nli.NewClient(cfg.NLI), c, cfg)

	var priors judge.PriorSource
	if fc := judge.NewFactCheckClient(cfg, c); fc != nil {
		priors = fc
	}
	judger := judge.NewJudge(chain, priors, cfg)

	var db *store.Store
	if cfg.Pipeline.DatabasePath != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.Pipeline.DatabasePath), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create database directory: %w", err)
		}
		db, err = store.Open(cfg.Pipeline.DatabasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open check database: %w", err)
		}
	}

	var archiver *Archiver
	if cfg.Features.ArchiveCitations {
		archiver = NewArchiver(cfg.Pipeline.ArchiveEndpoint, cfg.Output.Verbose)
	}

	var persister checkPersister
	if db != nil {
		persister = db
	}

	o := NewOrchestrator(extractor, analyzer, retriever, verifier, judger, c, persister, archiver, cfg)

	cleanup := func() {
		archiver.Close()
		if db != nil {
			db.Close()
		}
	}
	return o, cleanup, nil
}

func buildCache(cfg *model.Config) cache.Cache {
	if !cfg.Cache.Enabled {
		return cache.Noop{}
	}
	dir := cfg.Cache.Dir
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return cache.NewMemoryCache(cfg.Cache.ResultTTL, cfg.Cache.ResultTTL)
		}
		dir = filepath.Join(home, ".verdex", "cache")
	}
	return cache.NewLayeredCache(cfg.Cache.ResultTTL, dir, cfg.Cache.ResultTTL)
}

// buildChain assembles the provider failover chain: primary first, fallback
// second. No configured provider yields an empty chain and the pipeline
// degrades to heuristic extraction and rule-based judgment.
func buildChain(cfg *model.Config) (*llm.Chain, error) {
	var configs []llm.Config

	if cfg.LLM.Provider != "" && cfg.LLM.APIKey != "" {
		configs = append(configs, llm.Config{
			Provider:  cfg.LLM.Provider,
			Model:     cfg.LLM.Model,
			APIKey:    cfg.LLM.APIKey,
			BaseURL:   cfg.LLM.BaseURL,
			Timeout:   cfg.LLM.Timeout,
			MaxTokens: cfg.LLM.MaxTokens,
		})
	}
	if cfg.LLM.FallbackProvider != "" && cfg.LLM.FallbackAPIKey != "" {
		configs = append(configs, llm.Config{
			Provider:  cfg.LLM.FallbackProvider,
			Model:     cfg.LLM.FallbackModel,
			APIKey:    cfg.LLM.FallbackAPIKey,
			BaseURL:   cfg.LLM.FallbackBaseURL,
			Timeout:   cfg.LLM.Timeout,
			MaxTokens: cfg.LLM.MaxTokens,
		})
	}

	return llm.NewChain(configs...)
}
