package config

import (
	"os"
	"strconv"
)

// Override keys accepted by LoadWithOverrides. Environment variables of the
// same name take precedence when present and non-empty.
const (
	KeyModel              = "MODEL"
	KeyMaxResearchLoops   = "MAX_RESEARCH_LOOPS"
	KeySearchMaxResults   = "SEARCH_MAX_RESULTS"
	KeyMaxTokensPerSource = "MAX_TOKENS_PER_SOURCE"
	KeyRoutePolicy        = "ROUTE_POLICY"
	KeySearchProvider     = "SEARCH_PROVIDER"
)

type Config struct {
	DeepSeekAPIKey string
	TavilyAPIKey   string
	GoogleApiKey   string
	DatabaseURL    string
	Port           string

	Model              string
	MaxResearchLoops   int
	SearchMaxResults   int
	MaxTokensPerSource int
	SearchDepth        string
	// SearchProvider is "tavily" (default) or "arxiv".
	SearchProvider string
	// RoutePolicy is "requery" (default) or "research"; see
	// pkg/researcher routing policies.
	RoutePolicy string

	EmbeddingModel string
	CollectionName string
	ChunkSize      int
	ChunkOverlap   int
}

// Load resolves configuration from the environment with built-in defaults.
func Load() *Config {
	return LoadWithOverrides(nil)
}

// LoadWithOverrides resolves configuration from a per-invocation override
// map layered under the environment: a key is taken from the environment
// when set and non-empty, from overrides otherwise, and from the built-in
// default when neither supplies it.
func LoadWithOverrides(overrides map[string]string) *Config {
	get := func(key, def string) string {
		if v := os.Getenv(key); v != "" {
			return v
		}
		if v := overrides[key]; v != "" {
			return v
		}
		return def
	}
	getInt := func(key string, def int) int {
		v, err := strconv.Atoi(get(key, ""))
		if err != nil || v <= 0 {
			return def
		}
		return v
	}

	return &Config{
		DeepSeekAPIKey: get("DEEPSEEK_API_KEY", ""),
		TavilyAPIKey:   get("TAVILY_API_KEY", ""),
		GoogleApiKey:   get("GOOGLE_API_KEY", ""),
		DatabaseURL:    get("DATABASE_URL", ""),
		Port:           get("PORT", "8081"),

		Model:              get(KeyModel, "deepseek-chat"),
		MaxResearchLoops:   getInt(KeyMaxResearchLoops, 3),
		SearchMaxResults:   getInt(KeySearchMaxResults, 1),
		MaxTokensPerSource: getInt(KeyMaxTokensPerSource, 1000),
		SearchDepth:        get("SEARCH_DEPTH", "basic"),
		SearchProvider:     get(KeySearchProvider, "tavily"),
		RoutePolicy:        get(KeyRoutePolicy, "requery"),

		EmbeddingModel: get("EMBEDDING_MODEL", "gemini-embedding-001"),
		CollectionName: get("COLLECTION_NAME", "research_sources"),
		ChunkSize:      getInt("CHUNK_SIZE", 1000),
		ChunkOverlap:   getInt("CHUNK_OVERLAP", 200),
	}
}
