package pipeline

import (
	"context"
	"fmt"
	"strings"
)

// Stage names a unit of work in the pipeline.
type Stage string

const (
	StageResearcher Stage = "researcher"
	StageWriter     Stage = "writer"
	StageCritic     Stage = "critic"
)

// Research is what the search-and-synthesize provider returns.
type Research struct {
	Notes   string
	Sources []string
}

// Synthesizer searches the web for a topic and condenses the results into notes.
type Synthesizer interface {
	Synthesize(ctx context.Context, topic string) (Research, error)
}

// Drafter writes and revises drafts.
type Drafter interface {
	GenerateDraft(ctx context.Context, topic, notes string) (string, error)
	ReviseDraft(ctx context.Context, topic, priorDraft, feedback string) (string, error)
}

// Judge scores a draft. The returned text is expected to hold a JSON judgment
// but may be anything.
type Judge interface {
	Judge(ctx context.Context, topic, notes, draft string) (string, error)
}

func research(ctx context.Context, p Synthesizer, s State) (Delta, error) {
	r, err := p.Synthesize(ctx, s.Topic)
	if err != nil {
		return Delta{}, err
	}
	if strings.TrimSpace(r.Notes) == "" {
		return Delta{}, ErrEmptyResearch
	}
	return Delta{
		ResearchData: ptr(r.Notes),
		Sources:      r.Sources,
		Messages: []string{fmt.Sprintf(
			"🔍 **Researcher Agent**: Completed research on '%s'. Found %d sources and synthesized key insights.",
			s.Topic, len(r.Sources))},
	}, nil
}

func write(ctx context.Context, p Drafter, s State) (Delta, WriterMode, error) {
	if strings.TrimSpace(s.ResearchData) == "" {
		return Delta{}, ModeInitial, ErrEmptyResearch
	}

	mode := SelectWriterMode(s)
	var (
		draft  string
		action string
		err    error
	)
	switch mode {
	case ModeInitial:
		draft, err = p.GenerateDraft(ctx, s.Topic, s.ResearchData)
		action = "Created initial draft"
	case ModeRevision:
		draft, err = p.ReviseDraft(ctx, s.Topic, s.DraftContent, s.CritiqueFeedback)
		action = fmt.Sprintf("Revised draft (attempt %d)", s.RevisionCount+1)
	}
	if err != nil {
		return Delta{}, mode, err
	}
	if strings.TrimSpace(draft) == "" {
		return Delta{}, mode, ErrEmptyDraft
	}
	return Delta{
		DraftContent: ptr(draft),
		Messages:     []string{fmt.Sprintf("✍️ **Writer Agent**: %s for '%s'.", action, s.Topic)},
	}, mode, nil
}

func critique(ctx context.Context, p Judge, s State) (Delta, Assessment, error) {
	if strings.TrimSpace(s.DraftContent) == "" {
		return Delta{}, Assessment{}, ErrEmptyDraft
	}
	raw, err := p.Judge(ctx, s.Topic, s.ResearchData, s.DraftContent)
	if err != nil {
		return Delta{}, Assessment{}, err
	}

	a := Assess(raw, s.RevisionCount)
	icon, verdict := "🔄", "Sending back for revision..."
	if a.Status == StatusAcceptable {
		icon, verdict = "✅", "Draft approved for publication!"
	}
	msg := fmt.Sprintf("%s **Critic Agent**: Score %.1f/10 - %s. %s", icon, a.Judgment.Average, a.Status, verdict)

	return Delta{
		CritiqueFeedback: ptr(a.Feedback),
		QualityStatus:    ptr(a.Status),
		RevisionCount:    ptr(a.RevisionCount),
		Judgment:         &a.Judgment,
		Messages:         []string{msg},
	}, a, nil
}
