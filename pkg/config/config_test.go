package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Model != "deepseek-chat" {
		t.Errorf("Model = %q, want deepseek-chat", cfg.Model)
	}
	if cfg.MaxResearchLoops != 3 {
		t.Errorf("MaxResearchLoops = %d, want 3", cfg.MaxResearchLoops)
	}
	if cfg.SearchMaxResults != 1 {
		t.Errorf("SearchMaxResults = %d, want 1", cfg.SearchMaxResults)
	}
	if cfg.MaxTokensPerSource != 1000 {
		t.Errorf("MaxTokensPerSource = %d, want 1000", cfg.MaxTokensPerSource)
	}
	if cfg.RoutePolicy != "requery" {
		t.Errorf("RoutePolicy = %q, want requery", cfg.RoutePolicy)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	cfg := LoadWithOverrides(map[string]string{
		KeyModel:            "deepseek-reasoner",
		KeyMaxResearchLoops: "5",
	})

	if cfg.Model != "deepseek-reasoner" {
		t.Errorf("Model = %q, want override value", cfg.Model)
	}
	if cfg.MaxResearchLoops != 5 {
		t.Errorf("MaxResearchLoops = %d, want 5", cfg.MaxResearchLoops)
	}
}

func TestEnvironmentBeatsOverrides(t *testing.T) {
	t.Setenv(KeyModel, "deepseek-chat")
	t.Setenv(KeyMaxResearchLoops, "7")

	cfg := LoadWithOverrides(map[string]string{
		KeyModel:            "deepseek-reasoner",
		KeyMaxResearchLoops: "2",
	})

	if cfg.Model != "deepseek-chat" {
		t.Errorf("Model = %q, environment should win over overrides", cfg.Model)
	}
	if cfg.MaxResearchLoops != 7 {
		t.Errorf("MaxResearchLoops = %d, environment should win over overrides", cfg.MaxResearchLoops)
	}
}

func TestEmptyEnvironmentFallsThrough(t *testing.T) {
	t.Setenv(KeyModel, "")

	cfg := LoadWithOverrides(map[string]string{KeyModel: "deepseek-reasoner"})
	if cfg.Model != "deepseek-reasoner" {
		t.Errorf("Model = %q, empty env var should fall through to override", cfg.Model)
	}
}

func TestInvalidIntegerFallsBack(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"Not a number", "lots"},
		{"Negative", "-1"},
		{"Zero", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(KeyMaxResearchLoops, tt.value)
			cfg := Load()
			if cfg.MaxResearchLoops != 3 {
				t.Errorf("MaxResearchLoops = %d, want default 3 for %q", cfg.MaxResearchLoops, tt.value)
			}
		})
	}
}
