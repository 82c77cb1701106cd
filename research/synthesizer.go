package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"agentic_research_writer/generator"
	"agentic_research_writer/pipeline"
)

// Synthesizer runs a web search and asks the model to condense the hits into
// structured research notes. It implements pipeline.Synthesizer.
type Synthesizer struct {
	provider   Provider
	llm        generator.LLMClient
	maxResults int
	logger     *zap.Logger
}

func NewSynthesizer(provider Provider, llm generator.LLMClient, maxResults int, logger *zap.Logger) (*Synthesizer, error) {
	if provider == nil {
		return nil, errors.New("search provider required")
	}
	if llm == nil {
		return nil, errors.New("llm client required")
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Synthesizer{
		provider:   provider,
		llm:        llm,
		maxResults: maxResults,
		logger:     logger.With(zap.String("component", "research")),
	}, nil
}

func (s *Synthesizer) Synthesize(ctx context.Context, topic string) (pipeline.Research, error) {
	start := time.Now()
	resp, err := s.provider.Search(ctx, topic, s.maxResults)
	if err != nil {
		return pipeline.Research{}, fmt.Errorf("%s search: %w", s.provider.Name(), err)
	}
	s.logger.Debug("search completed",
		zap.String("provider", s.provider.Name()),
		zap.Int("results", len(resp.Results)),
		zap.Duration("duration", time.Since(start)),
	)

	notes, err := s.llm.Complete(ctx, generator.BuildResearchPrompt(topic, FormatResults(resp)))
	if err != nil {
		return pipeline.Research{}, fmt.Errorf("research synthesis: %w", err)
	}

	sources := make([]string, 0, len(resp.Results))
	for _, r := range resp.Results {
		sources = append(sources, r.URL)
	}
	return pipeline.Research{Notes: strings.TrimSpace(notes), Sources: sources}, nil
}

// FormatResults renders search hits as numbered source blocks separated by
// "---" lines. A provider answer, when present, is prepended.
func FormatResults(resp *Response) string {
	if resp == nil {
		return ""
	}
	blocks := make([]string, 0, len(resp.Results)+1)
	if resp.Answer != "" {
		blocks = append(blocks, fmt.Sprintf("**Summary Answer:** %s\n", resp.Answer))
	}
	for i, r := range resp.Results {
		url := r.URL
		if url == "" {
			url = "N/A"
		}
		content := r.Content
		if content == "" {
			content = "No content available"
		}
		blocks = append(blocks, fmt.Sprintf("**Source %d:** %s\n**Content:** %s\n", i+1, url, content))
	}
	return strings.Join(blocks, "\n---\n")
}
