// Package archive persists the web sources gathered during research runs
// into a pgvector collection so they can be searched semantically later,
// notably by the follow-up chat agent.
package archive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/tmc/langchaingo/textsplitter"

	"github.com/mikeboe/deep-researcher/pkg/config"
	"github.com/mikeboe/deep-researcher/pkg/database"
	"github.com/mikeboe/deep-researcher/pkg/search"
)

// Archive chunks, embeds, and stores gathered sources. A URL is indexed at
// most once per Archive lifetime.
type Archive struct {
	store    *Store
	embedder *GoogleEmbedder
	splitter textsplitter.TextSplitter
	logger   *slog.Logger

	mu           sync.Mutex
	processedURL map[string]bool
}

// New opens (creating if needed) the archive collection named in cfg.
func New(ctx context.Context, db *database.PostgresDB, cfg *config.Config) (*Archive, error) {
	embedder, err := NewGoogleEmbedder(ctx, cfg.EmbeddingModel, cfg.GoogleApiKey)
	if err != nil {
		return nil, fmt.Errorf("failed to init embedder: %w", err)
	}

	if err := db.EnsureVectorExtension(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure vector extension: %w", err)
	}
	if err := db.CreateArchiveTable(ctx, cfg.CollectionName, embeddingDimensions); err != nil {
		return nil, fmt.Errorf("failed to create archive table: %w", err)
	}

	store, err := NewStore(db.Pool, cfg.CollectionName)
	if err != nil {
		return nil, err
	}

	return &Archive{
		store:    store,
		embedder: embedder,
		splitter: textsplitter.NewRecursiveCharacter(
			textsplitter.WithChunkSize(cfg.ChunkSize),
			textsplitter.WithChunkOverlap(cfg.ChunkOverlap),
		),
		logger:       slog.Default(),
		processedURL: make(map[string]bool),
	}, nil
}

// Store exposes the underlying chunk store for read-side consumers.
func (a *Archive) Store() *Store {
	return a.store
}

// Embedder exposes the embedder so queries can be embedded with the same
// model the chunks were.
func (a *Archive) Embedder() *GoogleEmbedder {
	return a.embedder
}

// IndexSources chunks and embeds each result's content and stores it with
// its provenance. Already-seen URLs are skipped.
func (a *Archive) IndexSources(ctx context.Context, topic, query string, results []search.Result) error {
	for _, r := range results {
		a.mu.Lock()
		if a.processedURL[r.URL] {
			a.mu.Unlock()
			continue
		}
		a.processedURL[r.URL] = true
		a.mu.Unlock()

		text := r.RawContent
		if text == "" {
			text = r.Content
		}
		if text == "" {
			continue
		}

		chunks, err := a.splitter.SplitText(text)
		if err != nil {
			return fmt.Errorf("failed to split source %s: %w", r.URL, err)
		}

		embeddings, err := a.embedder.EmbedTexts(ctx, chunks)
		if err != nil {
			return fmt.Errorf("failed to embed source %s: %w", r.URL, err)
		}

		docs := make([]SourceChunk, len(chunks))
		for i, chunk := range chunks {
			docs[i] = SourceChunk{
				Content: chunk,
				Metadata: map[string]interface{}{
					"source": r.URL,
					"title":  r.Title,
					"topic":  topic,
					"query":  query,
				},
				Embedding: embeddings[i],
			}
		}

		if err := a.store.AddChunks(ctx, docs); err != nil {
			return fmt.Errorf("failed to store source %s: %w", r.URL, err)
		}

		a.logger.Info("Archived source", "url", r.URL, "chunks", len(chunks))
	}

	return nil
}
