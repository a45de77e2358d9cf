package researcher

import "testing"

func TestRoute(t *testing.T) {
	tests := []struct {
		name      string
		policy    RoutePolicy
		loopCount int
		maxLoops  int
		want      step
	}{
		{"Requery under limit", RequeryPolicy, 0, 3, stepGenerateQuery},
		{"Requery one below limit", RequeryPolicy, 2, 3, stepGenerateQuery},
		{"Requery at limit", RequeryPolicy, 3, 3, stepFinalize},
		{"Requery over limit", RequeryPolicy, 4, 3, stepFinalize},
		{"Research under limit", ResearchPolicy, 1, 3, stepWebResearch},
		{"Research at limit", ResearchPolicy, 3, 3, stepWebResearch},
		{"Research over limit", ResearchPolicy, 4, 3, stepFinalize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := &ResearchState{LoopCount: tt.loopCount, MaxLoops: tt.maxLoops}
			if got := route(tt.policy, state); got != tt.want {
				t.Errorf("route(%v, loop=%d, max=%d) = %s, want %s", tt.policy, tt.loopCount, tt.maxLoops, got, tt.want)
			}
		})
	}
}

func TestStepString(t *testing.T) {
	steps := map[step]string{
		stepGenerateQuery: "generate_query",
		stepWebResearch:   "web_research",
		stepSummarize:     "summarize",
		stepReflect:       "reflect",
		stepFinalize:      "finalize",
		stepDone:          "done",
		step(99):          "unknown",
	}
	for s, want := range steps {
		if got := s.String(); got != want {
			t.Errorf("step(%d).String() = %q, want %q", s, got, want)
		}
	}
}
