package researcher

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/mikeboe/deep-researcher/pkg/search"
)

// scriptedLLM returns canned responses in order, one per GenerateContent
// call.
type scriptedLLM struct {
	responses []string
	calls     int
	err       error
}

func (s *scriptedLLM) GenerateContent(_ context.Context, _ []llms.MessageContent, _ ...llms.CallOption) (*llms.ContentResponse, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.calls >= len(s.responses) {
		return nil, errors.New("no scripted response available")
	}
	content := s.responses[s.calls]
	s.calls++
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: content}},
	}, nil
}

func (s *scriptedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	resp, err := s.GenerateContent(ctx, nil)
	if err != nil {
		return "", err
	}
	return resp.Choices[0].Content, nil
}

type fakeSearch struct {
	results []search.Result
	queries []string
	err     error
}

func (f *fakeSearch) Search(_ context.Context, query string, _ search.Options) ([]search.Result, error) {
	f.queries = append(f.queries, query)
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func defaultResults() []search.Result {
	return []search.Result{
		{Title: "Quantum basics", URL: "https://example.com/qc", Content: "snippet", RawContent: "raw page content"},
	}
}

// oneLoop is the scripted response sequence for a single research
// iteration: query generation, summarization, reflection.
func oneLoop(n int) []string {
	return []string{
		`{"query": "quantum computing overview"}`,
		`{"summary": "Quantum computers use qubits."}`,
		`{"follow_up_query": "quantum error correction", "should_continue": true}`,
	}[:n]
}

func newTestEngine(llm *scriptedLLM, searcher *fakeSearch) *Engine {
	return NewEngine(Config{MaxLoops: 1}, llm, searcher)
}

func TestRunSingleLoop(t *testing.T) {
	llm := &scriptedLLM{responses: oneLoop(3)}
	searcher := &fakeSearch{results: defaultResults()}
	engine := newTestEngine(llm, searcher)

	var final ResearchState
	engine.OnStateUpdate = func(state ResearchState) { final = state }

	out, err := engine.Run(context.Background(), Input{Topic: "quantum computing", MaxLoops: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if out.Summary == "" {
		t.Fatal("expected non-empty summary")
	}
	if !strings.HasPrefix(out.Summary, "## Summary\n") {
		t.Errorf("report should begin with '## Summary', got %q", out.Summary[:min(40, len(out.Summary))])
	}
	if !strings.Contains(out.Summary, "### Sources:") {
		t.Errorf("report should contain a '### Sources:' section")
	}
	if !strings.Contains(out.Summary, "* Quantum basics : https://example.com/qc") {
		t.Errorf("report should cite the gathered source, got:\n%s", out.Summary)
	}

	if llm.calls != 3 {
		t.Errorf("expected 3 LLM calls (query, summary, reflection), got %d", llm.calls)
	}
	if len(searcher.queries) != 1 {
		t.Errorf("expected 1 web search, got %d", len(searcher.queries))
	}
	if searcher.queries[0] != "quantum computing overview" {
		t.Errorf("search used query %q, want generated query", searcher.queries[0])
	}
	if final.LoopCount != 1 {
		t.Errorf("LoopCount = %d, want 1", final.LoopCount)
	}
}

func TestRunLoopCountMatchesMaxLoops(t *testing.T) {
	const maxLoops = 3
	var responses []string
	for i := 0; i < maxLoops; i++ {
		responses = append(responses, oneLoop(3)...)
	}

	llm := &scriptedLLM{responses: responses}
	searcher := &fakeSearch{results: defaultResults()}
	engine := newTestEngine(llm, searcher)

	var final ResearchState
	engine.OnStateUpdate = func(state ResearchState) { final = state }

	if _, err := engine.Run(context.Background(), Input{Topic: "quantum computing", MaxLoops: maxLoops}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if final.LoopCount != maxLoops {
		t.Errorf("LoopCount = %d, want %d", final.LoopCount, maxLoops)
	}
	if llm.calls != maxLoops*3 {
		t.Errorf("LLM calls = %d, want %d", llm.calls, maxLoops*3)
	}
	if len(final.WebResults) != maxLoops || len(final.Sources) != maxLoops {
		t.Errorf("accumulated %d results / %d sources, want %d each", len(final.WebResults), len(final.Sources), maxLoops)
	}
}

func TestRunResearchPolicyReusesQuery(t *testing.T) {
	// With the research policy the loop skips query regeneration and goes
	// straight back to web research with the follow-up query.
	responses := []string{
		`{"query": "initial query"}`,
		`{"summary": "first pass"}`,
		`{"follow_up_query": "follow-up query", "should_continue": true}`,
		`{"summary": "second pass"}`,
		`{"follow_up_query": "another follow-up", "should_continue": false}`,
	}
	llm := &scriptedLLM{responses: responses}
	searcher := &fakeSearch{results: defaultResults()}

	engine := NewEngine(Config{MaxLoops: 1, Policy: ResearchPolicy}, llm, searcher)

	if _, err := engine.Run(context.Background(), Input{Topic: "topic", MaxLoops: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if llm.calls != 5 {
		t.Errorf("LLM calls = %d, want 5 (one query generation only)", llm.calls)
	}
	if len(searcher.queries) != 2 {
		t.Fatalf("web searches = %d, want 2", len(searcher.queries))
	}
	if searcher.queries[1] != "follow-up query" {
		t.Errorf("second search used %q, want the reflection follow-up", searcher.queries[1])
	}
}

func TestRunEmptyTopic(t *testing.T) {
	engine := newTestEngine(&scriptedLLM{}, &fakeSearch{})

	_, err := engine.Run(context.Background(), Input{Topic: "   "})
	if !errors.Is(err, ErrMissingInput) {
		t.Errorf("expected ErrMissingInput, got %v", err)
	}
}

func TestRunInvalidModelOutput(t *testing.T) {
	tests := []struct {
		name      string
		responses []string
	}{
		{"Empty query response", []string{""}},
		{"Non-JSON query response", []string{"here is your query!"}},
		{"Missing query field", []string{`{"q": "nope"}`}},
		{"Empty summary response", append(oneLoop(1), "")},
		{"Non-JSON summary", append(oneLoop(1), "not json")},
		{"Missing summary field", append(oneLoop(1), `{"text": "nope"}`)},
		{"Non-object reflection", append(oneLoop(2), `"just a string"`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			llm := &scriptedLLM{responses: tt.responses}
			searcher := &fakeSearch{results: defaultResults()}
			engine := newTestEngine(llm, searcher)

			var final ResearchState
			engine.OnStateUpdate = func(state ResearchState) { final = state }

			_, err := engine.Run(context.Background(), Input{Topic: "topic", MaxLoops: 1})
			if !errors.Is(err, ErrInvalidResponse) {
				t.Fatalf("expected ErrInvalidResponse, got %v", err)
			}

			// The failing step must not have mutated the state: the last
			// snapshot predates it.
			switch len(tt.responses) {
			case 1:
				if final.SearchQuery != "" {
					t.Errorf("failed query generation mutated SearchQuery to %q", final.SearchQuery)
				}
			case 2:
				if final.RunningSummary != "" {
					t.Errorf("failed summarization mutated RunningSummary to %q", final.RunningSummary)
				}
			case 3:
				if final.SearchQuery != "quantum computing overview" {
					t.Errorf("failed reflection mutated SearchQuery to %q", final.SearchQuery)
				}
			}
		})
	}
}

func TestRunExternalFailures(t *testing.T) {
	t.Run("LLM failure", func(t *testing.T) {
		llm := &scriptedLLM{err: errors.New("connection refused")}
		engine := newTestEngine(llm, &fakeSearch{})

		_, err := engine.Run(context.Background(), Input{Topic: "topic"})
		if !errors.Is(err, ErrExternalCall) {
			t.Errorf("expected ErrExternalCall, got %v", err)
		}
	})

	t.Run("Search failure", func(t *testing.T) {
		llm := &scriptedLLM{responses: oneLoop(1)}
		searcher := &fakeSearch{err: errors.New("503 service unavailable")}
		engine := newTestEngine(llm, searcher)

		_, err := engine.Run(context.Background(), Input{Topic: "topic"})
		if !errors.Is(err, ErrExternalCall) {
			t.Errorf("expected ErrExternalCall, got %v", err)
		}
	})
}

func TestRunReflectionFieldCoercion(t *testing.T) {
	// Wrong-typed reflection fields default instead of failing the run.
	responses := []string{
		`{"query": "initial query"}`,
		`{"summary": "findings"}`,
		`{"follow_up_query": 42, "should_continue": "yes"}`,
	}
	llm := &scriptedLLM{responses: responses}
	engine := newTestEngine(llm, &fakeSearch{results: defaultResults()})

	var final ResearchState
	engine.OnStateUpdate = func(state ResearchState) { final = state }

	if _, err := engine.Run(context.Background(), Input{Topic: "topic", MaxLoops: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if final.ShouldContinue {
		t.Errorf("wrong-typed should_continue should coerce to false")
	}
	if final.SearchQuery != "initial query" {
		t.Errorf("wrong-typed follow_up_query should leave SearchQuery unchanged, got %q", final.SearchQuery)
	}
}

func TestRunStripsThinkTagsFromSummary(t *testing.T) {
	responses := []string{
		`{"query": "q"}`,
		`{"summary": "<think>internal reasoning</think>Clean findings."}`,
		`{"follow_up_query": "", "should_continue": false}`,
	}
	llm := &scriptedLLM{responses: responses}
	engine := newTestEngine(llm, &fakeSearch{results: defaultResults()})

	out, err := engine.Run(context.Background(), Input{Topic: "topic", MaxLoops: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if strings.Contains(out.Summary, "<think>") || strings.Contains(out.Summary, "internal reasoning") {
		t.Errorf("think span leaked into the report:\n%s", out.Summary)
	}
	if !strings.Contains(out.Summary, "Clean findings.") {
		t.Errorf("summary text missing from the report:\n%s", out.Summary)
	}
}

func TestRunDefaultsMaxLoopsFromConfig(t *testing.T) {
	var responses []string
	for i := 0; i < 2; i++ {
		responses = append(responses, oneLoop(3)...)
	}
	llm := &scriptedLLM{responses: responses}
	searcher := &fakeSearch{results: defaultResults()}
	engine := NewEngine(Config{MaxLoops: 2}, llm, searcher)

	var final ResearchState
	engine.OnStateUpdate = func(state ResearchState) { final = state }

	// Input without MaxLoops falls back to the engine config.
	if _, err := engine.Run(context.Background(), Input{Topic: "topic"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.MaxLoops != 2 || final.LoopCount != 2 {
		t.Errorf("MaxLoops = %d, LoopCount = %d, want 2 and 2", final.MaxLoops, final.LoopCount)
	}
}
