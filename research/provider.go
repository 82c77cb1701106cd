// Package research gathers web search results for a topic and condenses them
// into research notes for the writer.
package research

import "context"

// Result is a single search hit.
type Result struct {
	Title   string  `json:"title"`
	URL     string  `json:"url"`
	Content string  `json:"content"`
	Score   float64 `json:"score,omitempty"`
}

// Response is what a provider returns for one query.
type Response struct {
	Query   string   `json:"query"`
	Answer  string   `json:"answer,omitempty"`
	Results []Result `json:"results"`
}

// Provider performs web searches.
type Provider interface {
	Search(ctx context.Context, query string, maxResults int) (*Response, error)
	Name() string
}
