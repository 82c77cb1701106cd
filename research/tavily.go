package research

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTavilyURL = "https://api.tavily.com/search"

// TavilyProvider implements Provider for the Tavily search API.
type TavilyProvider struct {
	apiKey        string
	endpoint      string
	includeAnswer bool
	client        *http.Client
}

// TavilyOptions configures a TavilyProvider. Empty fields use defaults.
type TavilyOptions struct {
	APIKey        string
	BaseURL       string
	IncludeAnswer bool
	Client        *http.Client
}

func NewTavily(opts TavilyOptions) (*TavilyProvider, error) {
	if opts.APIKey == "" {
		return nil, errors.New("tavily api key missing; provide search.api_key or TAVILY_API_KEY")
	}
	endpoint := opts.BaseURL
	if endpoint == "" {
		endpoint = defaultTavilyURL
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &TavilyProvider{
		apiKey:        opts.APIKey,
		endpoint:      endpoint,
		includeAnswer: opts.IncludeAnswer,
		client:        client,
	}, nil
}

type tavilyRequest struct {
	Query             string `json:"query"`
	MaxResults        int    `json:"max_results"`
	IncludeAnswer     bool   `json:"include_answer"`
	IncludeRawContent bool   `json:"include_raw_content"`
}

type tavilyResponse struct {
	Query   string `json:"query"`
	Answer  string `json:"answer"`
	Results []struct {
		Title   string  `json:"title"`
		URL     string  `json:"url"`
		Content string  `json:"content"`
		Score   float64 `json:"score"`
	} `json:"results"`
}

// Search queries Tavily. Result content that looks like HTML is converted to Markdown.
func (t *TavilyProvider) Search(ctx context.Context, query string, maxResults int) (*Response, error) {
	if maxResults <= 0 {
		maxResults = 5
	}
	payload, err := json.Marshal(tavilyRequest{
		Query:         query,
		MaxResults:    maxResults,
		IncludeAnswer: t.includeAnswer,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+t.apiKey)

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("tavily API error (status %d): %s", resp.StatusCode, string(body))
	}

	var tr tavilyResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	out := &Response{Query: query, Answer: tr.Answer, Results: make([]Result, 0, len(tr.Results))}
	for _, r := range tr.Results {
		out.Results = append(out.Results, Result{
			Title:   r.Title,
			URL:     r.URL,
			Content: normalizeContent(r.Content),
			Score:   r.Score,
		})
	}
	return out, nil
}

func (t *TavilyProvider) Name() string {
	return "tavily"
}
