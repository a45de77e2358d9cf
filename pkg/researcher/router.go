package researcher

// step identifies a node of the research loop. The engine dispatches on
// these values rather than on node names.
type step int

const (
	stepGenerateQuery step = iota
	stepWebResearch
	stepSummarize
	stepReflect
	stepFinalize
	stepDone
)

func (s step) String() string {
	switch s {
	case stepGenerateQuery:
		return "generate_query"
	case stepWebResearch:
		return "web_research"
	case stepSummarize:
		return "summarize"
	case stepReflect:
		return "reflect"
	case stepFinalize:
		return "finalize"
	case stepDone:
		return "done"
	}
	return "unknown"
}

// RoutePolicy selects how the loop continues after reflection.
type RoutePolicy int

const (
	// RequeryPolicy finalizes once LoopCount reaches MaxLoops, otherwise
	// loops back to query generation so the follow-up query is refreshed.
	// This is the default.
	RequeryPolicy RoutePolicy = iota

	// ResearchPolicy loops straight back to web research while LoopCount
	// has not exceeded MaxLoops, reusing the reflection step's follow-up
	// query without regenerating it.
	ResearchPolicy
)

// route is the loop's single decision point. It is a pure function of the
// policy and the state.
func route(policy RoutePolicy, state *ResearchState) step {
	switch policy {
	case ResearchPolicy:
		if state.LoopCount <= state.MaxLoops {
			return stepWebResearch
		}
		return stepFinalize
	default:
		if state.LoopCount >= state.MaxLoops {
			return stepFinalize
		}
		return stepGenerateQuery
	}
}
