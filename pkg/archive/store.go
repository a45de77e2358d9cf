package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// SourceChunk is one embedded slice of a gathered web source. Metadata
// carries at least source (URL), title, topic, and the query that found it.
type SourceChunk struct {
	ID        string                 `json:"id"`
	Content   string                 `json:"content"`
	Metadata  map[string]interface{} `json:"metadata"`
	Embedding []float32              `json:"embedding,omitempty"`
}

// ScoredChunk pairs a chunk with its similarity score.
type ScoredChunk struct {
	Chunk SourceChunk
	Score float64
}

// Store persists source chunks in a pgvector-backed collection table.
type Store struct {
	pool      *pgxpool.Pool
	tableName string
}

// isValidTableName guards against SQL injection through collection names:
// alphanumerics and underscores only, starting with a letter or
// underscore, within PostgreSQL's 63-character identifier limit.
func isValidTableName(name string) bool {
	matched, _ := regexp.MatchString(`^[a-z_][a-zA-Z0-9_]{0,62}$`, name)
	return matched
}

// NewStore opens the archive collection with the given table name.
func NewStore(pool *pgxpool.Pool, tableName string) (*Store, error) {
	if !isValidTableName(tableName) {
		return nil, fmt.Errorf("invalid collection name %q: must contain only alphanumeric characters and underscores, start with a letter or underscore, and be 1-63 characters long", tableName)
	}
	return &Store{
		pool:      pool,
		tableName: tableName,
	}, nil
}

// AddChunks inserts embedded chunks into the collection in one batch.
func (s *Store) AddChunks(ctx context.Context, chunks []SourceChunk) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (content, metadata, embedding)
		VALUES ($1, $2, $3)
	`, pgx.Identifier{s.tableName}.Sanitize())

	batch := &pgx.Batch{}
	for _, chunk := range chunks {
		metadataJSON, err := json.Marshal(chunk.Metadata)
		if err != nil {
			return fmt.Errorf("failed to marshal metadata: %w", err)
		}
		batch.Queue(query, chunk.Content, metadataJSON, pgvector.NewVector(chunk.Embedding))
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for range chunks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("failed to insert chunk: %w", err)
		}
	}

	return nil
}

// SimilaritySearch returns the topK chunks closest to queryEmbedding by
// cosine distance, optionally restricted to a single source URL.
func (s *Store) SimilaritySearch(ctx context.Context, queryEmbedding []float32, topK int, sourceFilter string) ([]ScoredChunk, error) {
	var query string
	var args []interface{}

	embedding := pgvector.NewVector(queryEmbedding)

	if sourceFilter != "" {
		query = fmt.Sprintf(`
			SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
			FROM %s
			WHERE metadata->>'source' = $2
			ORDER BY embedding <=> $1
			LIMIT $3
		`, pgx.Identifier{s.tableName}.Sanitize())
		args = []interface{}{embedding, sourceFilter, topK}
	} else {
		query = fmt.Sprintf(`
			SELECT id, content, metadata, 1 - (embedding <=> $1) AS similarity
			FROM %s
			ORDER BY embedding <=> $1
			LIMIT $2
		`, pgx.Identifier{s.tableName}.Sanitize())
		args = []interface{}{embedding, topK}
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute similarity search: %w", err)
	}
	defer rows.Close()

	var results []ScoredChunk
	for rows.Next() {
		var chunk SourceChunk
		var metadataJSON []byte
		var similarity float64

		if err := rows.Scan(&chunk.ID, &chunk.Content, &metadataJSON, &similarity); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}

		results = append(results, ScoredChunk{Chunk: chunk, Score: similarity})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return results, nil
}

// GetBySource retrieves every chunk archived from a specific source URL.
func (s *Store) GetBySource(ctx context.Context, source string) ([]SourceChunk, error) {
	query := fmt.Sprintf(`
		SELECT id, content, metadata
		FROM %s
		WHERE metadata->>'source' = $1
	`, pgx.Identifier{s.tableName}.Sanitize())

	rows, err := s.pool.Query(ctx, query, source)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var chunks []SourceChunk
	for rows.Next() {
		var chunk SourceChunk
		var metadataJSON []byte

		if err := rows.Scan(&chunk.ID, &chunk.Content, &metadataJSON); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		if err := json.Unmarshal(metadataJSON, &chunk.Metadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metadata: %w", err)
		}

		chunks = append(chunks, chunk)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return chunks, nil
}
