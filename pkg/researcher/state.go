package researcher

// ResearchState tracks the progress of a single research run. It is owned
// by the engine for the duration of the run and handed to each step in
// turn; it is never shared across goroutines.
type ResearchState struct {
	// Topic is the report topic, set once at the start of the run.
	Topic string `json:"topic"`
	// SearchQuery is the current query, overwritten each iteration.
	SearchQuery string `json:"search_query"`
	// WebResults holds one formatted source block per research iteration.
	WebResults []string `json:"web_results"`
	// Sources holds one formatted citation list per research iteration,
	// parallel to WebResults.
	Sources []string `json:"sources"`
	// LoopCount is incremented exactly once per completed web research
	// iteration.
	LoopCount int `json:"loop_count"`
	// RunningSummary is extended by each summarization pass and replaced
	// with the final report by the finalize step.
	RunningSummary string `json:"running_summary"`
	// ShouldContinue records the reflection step's continuation decision.
	ShouldContinue bool `json:"should_continue"`
	// MaxLoops bounds the number of research iterations, fixed at creation.
	MaxLoops int `json:"max_loops"`
}

// Input starts a research run.
type Input struct {
	Topic    string `json:"topic"`
	MaxLoops int    `json:"max_loops,omitempty"`
}

// Output is the terminal artifact of a run: the finalized report.
type Output struct {
	Summary string `json:"summary"`
}
