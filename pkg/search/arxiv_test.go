package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

const arxivFixture = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <entry>
    <title>Quantum Error Correction Survey</title>
    <summary>A survey of quantum error correction techniques.</summary>
    <published>2024-01-15T00:00:00Z</published>
    <link href="http://arxiv.org/abs/2401.00001" type="text/html"/>
    <link href="http://arxiv.org/pdf/2401.00001" type="application/pdf"/>
  </entry>
  <entry>
    <title>Topological Codes</title>
    <summary>Surface codes and their decoders.</summary>
    <published>2024-02-01T00:00:00Z</published>
    <link href="http://arxiv.org/pdf/2402.00002" type="application/pdf"/>
  </entry>
</feed>`

func TestArxivSearch(t *testing.T) {
	var gotQuery, gotMax string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query().Get("search_query")
		gotMax = r.URL.Query().Get("max_results")
		w.Header().Set("Content-Type", "application/atom+xml")
		w.Write([]byte(arxivFixture))
	}))
	defer srv.Close()

	a := NewArxiv()
	a.endpoint = srv.URL + "/?"

	results, err := a.Search(context.Background(), "quantum error correction", Options{MaxResults: 2})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}

	if gotQuery != "quantum error correction" {
		t.Errorf("search_query = %q, want %q", gotQuery, "quantum error correction")
	}
	if gotMax != "2" {
		t.Errorf("max_results = %q, want %q", gotMax, "2")
	}

	if len(results) != 2 {
		t.Fatalf("got %d results, want 2", len(results))
	}
	if results[0].Title != "Quantum Error Correction Survey" {
		t.Errorf("title = %q", results[0].Title)
	}
	if results[0].URL != "http://arxiv.org/pdf/2401.00001" {
		t.Errorf("url = %q, want pdf link", results[0].URL)
	}
	if results[0].Content != "A survey of quantum error correction techniques." {
		t.Errorf("content = %q", results[0].Content)
	}
	if results[0].RawContent != results[0].Content {
		t.Errorf("raw content should mirror the abstract, got %q", results[0].RawContent)
	}
}

func TestArxivSearchServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "service unavailable", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	a := NewArxiv()
	a.endpoint = srv.URL + "/?"

	if _, err := a.Search(context.Background(), "anything", Options{MaxResults: 1}); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
