package researcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/deep-researcher/pkg/search"
)

// Config holds the tunable parameters of a research run.
type Config struct {
	// MaxLoops is the default iteration bound, used when the input does
	// not set one.
	MaxLoops int
	// MaxResults caps the number of results requested per web search.
	MaxResults int
	// MaxTokensPerSource bounds the raw content kept per source when
	// formatting search results for the prompt.
	MaxTokensPerSource int
	// Policy selects the routing behavior after reflection.
	Policy RoutePolicy
}

// DefaultConfig returns the parameters used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxLoops:           3,
		MaxResults:         1,
		MaxTokensPerSource: 1000,
		Policy:             RequeryPolicy,
	}
}

// SourceIndexer archives gathered sources for later retrieval. Indexing is
// best-effort; failures are logged, never fatal to the run.
type SourceIndexer interface {
	IndexSources(ctx context.Context, topic, query string, results []search.Result) error
}

// Engine drives the research loop: query generation, web research,
// summarization, reflection, and finalization, executed strictly
// sequentially per run.
type Engine struct {
	Config Config
	LLM    llms.Model
	Search search.Client
	Logger *slog.Logger

	// Archive, when set, receives each iteration's deduplicated sources.
	Archive SourceIndexer
	// OnStateUpdate, when set, is called with a snapshot of the state
	// after every step.
	OnStateUpdate func(state ResearchState)
}

// NewEngine wires an engine from its dependencies.
func NewEngine(cfg Config, llm llms.Model, searcher search.Client) *Engine {
	if cfg.MaxLoops <= 0 {
		cfg.MaxLoops = DefaultConfig().MaxLoops
	}
	if cfg.MaxResults <= 0 {
		cfg.MaxResults = DefaultConfig().MaxResults
	}
	if cfg.MaxTokensPerSource <= 0 {
		cfg.MaxTokensPerSource = DefaultConfig().MaxTokensPerSource
	}
	return &Engine{
		Config: cfg,
		LLM:    llm,
		Search: searcher,
		Logger: slog.Default(),
	}
}

// node executes one step against the state and names the step to run next.
type node func(ctx context.Context, state *ResearchState) (step, error)

func (e *Engine) nodes() map[step]node {
	return map[step]node{
		stepGenerateQuery: e.generateQuery,
		stepWebResearch:   e.webResearch,
		stepSummarize:     e.summarize,
		stepReflect:       e.reflect,
		stepFinalize:      e.finalize,
	}
}

// Run executes the full loop for one research request. The run proceeds to
// completion or aborts on the first error; there is no partial result.
func (e *Engine) Run(ctx context.Context, in Input) (Output, error) {
	if strings.TrimSpace(in.Topic) == "" {
		return Output{}, fmt.Errorf("%w: research topic", ErrMissingInput)
	}

	maxLoops := in.MaxLoops
	if maxLoops <= 0 {
		maxLoops = e.Config.MaxLoops
	}

	state := &ResearchState{Topic: in.Topic, MaxLoops: maxLoops}
	e.Logger.Info("Starting research run", "topic", in.Topic, "max_loops", maxLoops)
	e.notify(state)

	dispatch := e.nodes()
	for current := stepGenerateQuery; current != stepDone; {
		run, ok := dispatch[current]
		if !ok {
			return Output{}, fmt.Errorf("no node registered for step %s", current)
		}

		next, err := run(ctx, state)
		if err != nil {
			return Output{}, fmt.Errorf("step %s: %w", current, err)
		}

		e.notify(state)
		current = next
	}

	e.Logger.Info("Research run complete", "loops", state.LoopCount, "report_length", len(state.RunningSummary))
	return Output{Summary: state.RunningSummary}, nil
}

func (e *Engine) notify(state *ResearchState) {
	if e.OnStateUpdate != nil {
		e.OnStateUpdate(*state)
	}
}

// generateJSON runs one chat completion in JSON mode and hands the payload
// to validate before it is accepted. A single attempt, no retries.
func (e *Engine) generateJSON(ctx context.Context, system, user string, validate func(content string) error) error {
	resp, err := e.LLM.GenerateContent(ctx, []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, system),
		llms.TextParts(llms.ChatMessageTypeHuman, user),
	}, llms.WithJSONMode())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrExternalCall, err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("%w: model returned no choices", ErrInvalidResponse)
	}

	content := resp.Choices[0].Content
	if strings.TrimSpace(content) == "" {
		return fmt.Errorf("%w: empty model output", ErrInvalidResponse)
	}
	return validate(content)
}

func (e *Engine) generateQuery(ctx context.Context, state *ResearchState) (step, error) {
	if strings.TrimSpace(state.Topic) == "" {
		return stepDone, fmt.Errorf("%w: research topic", ErrMissingInput)
	}
	e.Logger.Info("Generating search query", "topic", state.Topic)

	var parsed struct {
		Query string `json:"query"`
	}
	err := e.generateJSON(ctx,
		fmt.Sprintf(queryWriterInstructions, state.Topic),
		"Generate a query for web search:",
		func(content string) error {
			parsed.Query = ""
			if err := json.Unmarshal([]byte(content), &parsed); err != nil {
				return fmt.Errorf("%w: %v (content: %s)", ErrInvalidResponse, err, content)
			}
			if strings.TrimSpace(parsed.Query) == "" {
				return fmt.Errorf("%w: missing query field (content: %s)", ErrInvalidResponse, content)
			}
			return nil
		})
	if err != nil {
		return stepDone, err
	}

	state.SearchQuery = parsed.Query
	e.Logger.Info("Generated query", "query", parsed.Query)
	return stepWebResearch, nil
}

func (e *Engine) webResearch(ctx context.Context, state *ResearchState) (step, error) {
	if strings.TrimSpace(state.SearchQuery) == "" {
		return stepDone, fmt.Errorf("%w: search query", ErrMissingInput)
	}
	e.Logger.Info("Performing web research", "query", state.SearchQuery, "loop", state.LoopCount+1)

	results, err := e.Search.Search(ctx, state.SearchQuery, search.Options{
		MaxResults:        e.Config.MaxResults,
		IncludeRawContent: true,
	})
	if err != nil {
		return stepDone, fmt.Errorf("%w: web search: %v", ErrExternalCall, err)
	}

	state.WebResults = append(state.WebResults, dedupeAndFormatSources(results, e.Config.MaxTokensPerSource))
	state.Sources = append(state.Sources, formatSources(results))
	state.LoopCount++

	if e.Archive != nil {
		if err := e.Archive.IndexSources(ctx, state.Topic, state.SearchQuery, results); err != nil {
			e.Logger.Warn("Failed to archive sources", "error", err)
		}
	}

	e.Logger.Info("Web research complete", "results", len(results))
	return stepSummarize, nil
}

func (e *Engine) summarize(ctx context.Context, state *ResearchState) (step, error) {
	if len(state.WebResults) == 0 {
		return stepDone, fmt.Errorf("%w: web research results", ErrMissingInput)
	}
	e.Logger.Info("Summarizing sources", "existing_summary", state.RunningSummary != "")

	latest := state.WebResults[len(state.WebResults)-1]
	var system string
	if state.RunningSummary != "" {
		system = fmt.Sprintf(summarizerExtendInstructions, state.Topic, state.RunningSummary, latest)
	} else {
		system = fmt.Sprintf(summarizerNewInstructions, state.Topic, latest)
	}

	var parsed struct {
		Summary string `json:"summary"`
	}
	err := e.generateJSON(ctx, system, "Please summarize the sources:", func(content string) error {
		parsed.Summary = ""
		if err := json.Unmarshal([]byte(content), &parsed); err != nil {
			return fmt.Errorf("%w: %v (content: %s)", ErrInvalidResponse, err, content)
		}
		if strings.TrimSpace(parsed.Summary) == "" {
			return fmt.Errorf("%w: missing summary field (content: %s)", ErrInvalidResponse, content)
		}
		return nil
	})
	if err != nil {
		return stepDone, err
	}

	state.RunningSummary = stripThinkTags(parsed.Summary)
	e.Logger.Info("Summary updated", "length", len(state.RunningSummary))
	return stepReflect, nil
}

func (e *Engine) reflect(ctx context.Context, state *ResearchState) (step, error) {
	if strings.TrimSpace(state.RunningSummary) == "" {
		return stepDone, fmt.Errorf("%w: running summary", ErrMissingInput)
	}
	e.Logger.Info("Reflecting on summary")

	// The reflection contract tolerates wrong-typed fields: they coerce to
	// their zero values instead of failing the run.
	var parsed map[string]any
	err := e.generateJSON(ctx,
		fmt.Sprintf(reflectionInstructions, state.Topic, state.RunningSummary),
		"Please reflect on the current summary:",
		func(content string) error {
			parsed = nil
			if err := json.Unmarshal([]byte(content), &parsed); err != nil {
				return fmt.Errorf("%w: %v (content: %s)", ErrInvalidResponse, err, content)
			}
			return nil
		})
	if err != nil {
		return stepDone, err
	}

	followUp, _ := parsed["follow_up_query"].(string)
	shouldContinue, _ := parsed["should_continue"].(bool)

	if strings.TrimSpace(followUp) != "" {
		state.SearchQuery = followUp
	}
	state.ShouldContinue = shouldContinue

	next := route(e.Config.Policy, state)
	e.Logger.Info("Reflection complete", "follow_up_query", followUp, "should_continue", shouldContinue, "next", next.String())
	return next, nil
}

func (e *Engine) finalize(ctx context.Context, state *ResearchState) (step, error) {
	if strings.TrimSpace(state.RunningSummary) == "" {
		return stepDone, fmt.Errorf("%w: running summary", ErrMissingInput)
	}
	e.Logger.Info("Finalizing report", "sources", len(state.Sources))

	var b strings.Builder
	b.WriteString("## Summary\n\n")
	b.WriteString(state.RunningSummary)
	b.WriteString("\n\n### Sources:\n")
	b.WriteString(strings.Join(state.Sources, "\n"))

	state.RunningSummary = b.String()
	return stepDone, nil
}
