package researcher

import (
	"fmt"
	"strings"

	"github.com/mikeboe/deep-researcher/pkg/search"
)

// charsPerToken is the rough character budget per token used when
// truncating raw page content for the prompt.
const charsPerToken = 4

// dedupeAndFormatSources renders search results into a single prompt-ready
// block. Results sharing a URL are collapsed to the first occurrence, in
// insertion order, and each source's raw content is truncated to
// maxTokensPerSource tokens.
func dedupeAndFormatSources(results []search.Result, maxTokensPerSource int) string {
	unique := dedupeByURL(results)

	var b strings.Builder
	b.WriteString("Sources:\n\n")
	for i, r := range unique {
		b.WriteString(fmt.Sprintf("Source %s:\n===\n", r.Title))
		b.WriteString(fmt.Sprintf("URL: %s\n===\n", r.URL))
		b.WriteString(fmt.Sprintf("Most relevant content from source: %s\n===\n", r.Content))

		raw := r.RawContent
		charLimit := maxTokensPerSource * charsPerToken
		if len(raw) > charLimit {
			raw = raw[:charLimit] + "... [truncated]"
		}
		b.WriteString(fmt.Sprintf("Full source content limited to %d tokens: %s\n", maxTokensPerSource, raw))
		if i < len(unique)-1 {
			b.WriteString("\n")
		}
	}
	return strings.TrimSpace(b.String())
}

// formatSources renders results as a bulleted citation list, one line per
// unique URL.
func formatSources(results []search.Result) string {
	unique := dedupeByURL(results)
	lines := make([]string, 0, len(unique))
	for _, r := range unique {
		lines = append(lines, fmt.Sprintf("* %s : %s", r.Title, r.URL))
	}
	return strings.Join(lines, "\n")
}

func dedupeByURL(results []search.Result) []search.Result {
	unique := make([]search.Result, 0, len(results))
	seen := make(map[string]bool)
	for _, r := range results {
		if seen[r.URL] {
			continue
		}
		seen[r.URL] = true
		unique = append(unique, r)
	}
	return unique
}

// stripThinkTags removes <think>...</think> spans that some models leak
// into their output. Removal repeats while both tags are present, so the
// operation is idempotent; text without the tags is returned unchanged.
func stripThinkTags(s string) string {
	const startTag = "<think>"
	const endTag = "</think>"

	for {
		start := strings.Index(s, startTag)
		end := strings.Index(s, endTag)
		if start == -1 || end == -1 || end < start {
			return s
		}
		s = s[:start] + s[end+len(endTag):]
	}
}
