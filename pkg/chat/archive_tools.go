package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"github.com/mikeboe/deep-researcher/pkg/archive"
)

// ArchiveToolset exposes the source archive to the chat agent as function
// tools: semantic search over archived chunks and full retrieval by source
// URL.
type ArchiveToolset struct {
	Archive *archive.Archive
}

func NewArchiveToolset(a *archive.Archive) *ArchiveToolset {
	return &ArchiveToolset{Archive: a}
}

func (t *ArchiveToolset) Name() string {
	return "archive_tools"
}

func (t *ArchiveToolset) Tools(ctx agent.ReadonlyContext) ([]tool.Tool, error) {
	searchTool, err := functiontool.New[SearchSourcesArgs, SearchSourcesResp](
		functiontool.Config{
			Name:        "search_sources",
			Description: "Search the archived research sources using semantic search.",
		},
		t.searchSourcesTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create search tool: %w", err)
	}

	findBySourceTool, err := functiontool.New[FindSourceArgs, FindSourceResp](
		functiontool.Config{
			Name:        "find_by_source",
			Description: "Retrieve all archived content for a specific source URL.",
		},
		t.findBySourceTool,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create find_by_source tool: %w", err)
	}

	return []tool.Tool{searchTool, findBySourceTool}, nil
}

type SearchSourcesArgs struct {
	Query  string `json:"query" description:"The search query"`
	TopK   int    `json:"topK,omitempty" description:"Number of results to return (default 5)"`
	Source string `json:"source,omitempty" description:"Optional source URL filter"`
}

type SearchSourcesResp struct {
	Results string `json:"results"`
}

// Wrapper for ADK tool interface
func (t *ArchiveToolset) searchSourcesTool(ctx tool.Context, args SearchSourcesArgs) (SearchSourcesResp, error) {
	return t.SearchSources(ctx, args)
}

// SearchSources embeds the query and runs a similarity search over the
// archive.
func (t *ArchiveToolset) SearchSources(ctx context.Context, args SearchSourcesArgs) (SearchSourcesResp, error) {
	if args.TopK == 0 {
		args.TopK = 5
	}

	slog.Info("Searching archived sources", "query", args.Query, "topK", args.TopK, "source", args.Source)

	queryEmbedding, err := t.Archive.Embedder().EmbedText(ctx, args.Query)
	if err != nil {
		return SearchSourcesResp{}, fmt.Errorf("failed to generate query embedding: %w", err)
	}

	results, err := t.Archive.Store().SimilaritySearch(ctx, queryEmbedding, args.TopK, args.Source)
	if err != nil {
		return SearchSourcesResp{}, fmt.Errorf("failed to search: %w", err)
	}

	var formatted []string
	for _, result := range results {
		source := "unknown"
		if s, ok := result.Chunk.Metadata["source"].(string); ok {
			source = s
		}

		var sb strings.Builder
		sb.WriteString(fmt.Sprintf("[Source]: %s\n[Content]: %s", source, result.Chunk.Content))
		for k, v := range result.Chunk.Metadata {
			if k == "source" {
				continue
			}
			sb.WriteString(fmt.Sprintf("\n[%s]: %v", k, v))
		}

		formatted = append(formatted, sb.String())
	}

	return SearchSourcesResp{Results: strings.Join(formatted, "\n\n")}, nil
}

type FindSourceArgs struct {
	Source string `json:"source" description:"The source URL to find content for"`
}

type FindSourceResp struct {
	Content string `json:"content"`
}

// Wrapper for ADK tool interface
func (t *ArchiveToolset) findBySourceTool(ctx tool.Context, args FindSourceArgs) (FindSourceResp, error) {
	return t.FindBySource(ctx, args)
}

// FindBySource returns every archived chunk for the given source URL.
func (t *ArchiveToolset) FindBySource(ctx context.Context, args FindSourceArgs) (FindSourceResp, error) {
	chunks, err := t.Archive.Store().GetBySource(ctx, args.Source)
	if err != nil {
		return FindSourceResp{}, fmt.Errorf("failed to find content: %w", err)
	}

	var formatted []string
	for _, chunk := range chunks {
		formatted = append(formatted, chunk.Content)
	}

	return FindSourceResp{Content: strings.Join(formatted, "\n\n")}, nil
}
