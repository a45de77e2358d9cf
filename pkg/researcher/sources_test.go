package researcher

import (
	"strings"
	"testing"

	"github.com/mikeboe/deep-researcher/pkg/search"
)

func TestDedupeAndFormatSources(t *testing.T) {
	results := []search.Result{
		{Title: "First", URL: "https://example.com/a", Content: "snippet a", RawContent: "raw a"},
		{Title: "Duplicate", URL: "https://example.com/a", Content: "snippet dup", RawContent: "raw dup"},
		{Title: "Second", URL: "https://example.com/b", Content: "snippet b", RawContent: "raw b"},
	}

	got := dedupeAndFormatSources(results, 1000)

	if count := strings.Count(got, "https://example.com/a"); count != 1 {
		t.Errorf("expected exactly one entry for duplicated URL, got %d", count)
	}
	if !strings.Contains(got, "Source First:") {
		t.Errorf("expected first-seen result to win, output:\n%s", got)
	}
	if strings.Contains(got, "Duplicate") {
		t.Errorf("expected duplicate URL to be dropped, output:\n%s", got)
	}

	firstIdx := strings.Index(got, "https://example.com/a")
	secondIdx := strings.Index(got, "https://example.com/b")
	if firstIdx > secondIdx {
		t.Errorf("expected insertion order to be preserved")
	}
}

func TestDedupeAndFormatSourcesTruncation(t *testing.T) {
	long := strings.Repeat("x", 5000)
	results := []search.Result{
		{Title: "Long", URL: "https://example.com/long", Content: "snippet", RawContent: long},
	}

	// 100 tokens => 400 characters of raw content.
	got := dedupeAndFormatSources(results, 100)

	if strings.Contains(got, strings.Repeat("x", 401)) {
		t.Errorf("raw content was not truncated to the token budget")
	}
	if !strings.Contains(got, "... [truncated]") {
		t.Errorf("expected truncation marker in output")
	}
}

func TestFormatSources(t *testing.T) {
	results := []search.Result{
		{Title: "A", URL: "https://a.example"},
		{Title: "B", URL: "https://b.example"},
		{Title: "A again", URL: "https://a.example"},
	}

	got := formatSources(results)
	want := "* A : https://a.example\n* B : https://b.example"
	if got != want {
		t.Errorf("formatSources() = %q, want %q", got, want)
	}
}

func TestStripThinkTags(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"No tags", "plain summary", "plain summary"},
		{"Single span", "before<think>internal</think>after", "beforeafter"},
		{"Multiple spans", "<think>a</think>keep<think>b</think>this", "keepthis"},
		{"Only span", "<think>everything</think>", ""},
		{"Unclosed tag", "text <think>still open", "text <think>still open"},
		{"Orphan end tag", "text </think> here", "text </think> here"},
		{"End before start", "</think>oops<think>", "</think>oops<think>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripThinkTags(tt.input); got != tt.want {
				t.Errorf("stripThinkTags(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestStripThinkTagsIdempotent(t *testing.T) {
	inputs := []string{
		"before<think>x</think>after",
		"no tags at all",
		"<think>a</think><think>b</think>",
	}
	for _, in := range inputs {
		once := stripThinkTags(in)
		twice := stripThinkTags(once)
		if once != twice {
			t.Errorf("stripThinkTags is not idempotent for %q: %q != %q", in, once, twice)
		}
	}
}
