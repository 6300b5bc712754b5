package embed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/psokolov/verdex/internal/cache"
	"github.com/psokolov/verdex/internal/model"
	"github.com/sashabaranov/go-openai"
)

// OpenAIEmbedder implements Embedder using the OpenAI embeddings API.
// Vectors are cached by content hash with a long TTL; embeddings for
// identical text never change for a fixed model.
type OpenAIEmbedder struct {
	client *openai.Client
	model  openai.EmbeddingModel
	cache  cache.Cache
	ttl    time.Duration
	timeout time.Duration
}

// NewOpenAIEmbedder creates an embedder backed by the OpenAI API
func NewOpenAIEmbedder(cfg model.EmbeddingConfig, cacheCfg model.CacheConfig, c cache.Cache) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("embedding API key is required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	embModel := openai.EmbeddingModel(cfg.Model)
	if cfg.Model == "" {
		embModel = openai.SmallEmbedding3
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	if timeout == 0 {
		timeout = 20 * time.Second
	}

	return &OpenAIEmbedder{
		client:  openai.NewClientWithConfig(clientConfig),
		model:   embModel,
		cache:   c,
		ttl:     cacheCfg.EmbeddingTTL,
		timeout: timeout,
	}, nil
}

// Embed returns the embedding for one text
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

// EmbedBatch embeds several texts in one API call, consulting the cache
// per text first and only sending the misses upstream.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		key := cache.Key(cache.CategoryEmbedding, string(e.model), cache.ContentHash(text))
		if data, found := e.cache.Get(key); found {
			var vec []float32
			if err := json.Unmarshal(data, &vec); err == nil {
				vectors[i] = vec
				continue
			}
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return vectors, nil
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.CreateEmbeddings(ctxWithTimeout, openai.EmbeddingRequest{
		Model: e.model,
		Input: missing,
	})
	if err != nil {
		return nil, fmt.Errorf("embeddings API: %w", err)
	}

	if len(resp.Data) != len(missing) {
		return nil, fmt.Errorf("embeddings API returned %d vectors for %d inputs", len(resp.Data), len(missing))
	}

	for j, item := range resp.Data {
		idx := missingIdx[j]
		vectors[idx] = item.Embedding

		key := cache.Key(cache.CategoryEmbedding, string(e.model), cache.ContentHash(missing[j]))
		if data, err := json.Marshal(item.Embedding); err == nil {
			_ = e.cache.Set(key, data, e.ttl)
		}
	}

	return vectors, nil
}
