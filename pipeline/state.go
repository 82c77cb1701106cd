package pipeline

import (
	"encoding/json"
	"fmt"
)

// QualityStatus is the Critic's accept/revise decision.
type QualityStatus int

const (
	StatusUnset QualityStatus = iota
	StatusAcceptable
	StatusRevisionNeeded
)

func (q QualityStatus) String() string {
	switch q {
	case StatusAcceptable:
		return "Acceptable"
	case StatusRevisionNeeded:
		return "Revision Needed"
	default:
		return ""
	}
}

func (q QualityStatus) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.String())
}

func (q *QualityStatus) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch s {
	case "":
		*q = StatusUnset
	case "Acceptable":
		*q = StatusAcceptable
	case "Revision Needed":
		*q = StatusRevisionNeeded
	default:
		return fmt.Errorf("unknown quality status %q", s)
	}
	return nil
}

// State is the session record threaded through every stage of one run.
// Stages never mutate it; they return a Delta that the orchestrator applies.
type State struct {
	Topic            string        `json:"topic"`
	ResearchData     string        `json:"research_data"`
	Sources          []string      `json:"sources,omitempty"`
	DraftContent     string        `json:"draft_content"`
	CritiqueFeedback string        `json:"critique_feedback"`
	RevisionCount    int           `json:"revision_count"`
	QualityStatus    QualityStatus `json:"quality_status"`
	Judgment         *Judgment     `json:"judgment,omitempty"`
	Messages         []string      `json:"messages"`
}

// NewState returns the initial state of a run.
func NewState(topic string) State {
	return State{Topic: topic, Messages: []string{}}
}

// Delta is the partial update a stage returns. Nil scalar fields leave the
// state untouched, set ones overwrite; Messages are appended.
type Delta struct {
	ResearchData     *string        `json:"research_data,omitempty"`
	Sources          []string       `json:"sources,omitempty"`
	DraftContent     *string        `json:"draft_content,omitempty"`
	CritiqueFeedback *string        `json:"critique_feedback,omitempty"`
	RevisionCount    *int           `json:"revision_count,omitempty"`
	QualityStatus    *QualityStatus `json:"quality_status,omitempty"`
	Judgment         *Judgment      `json:"judgment,omitempty"`
	Messages         []string       `json:"messages,omitempty"`
}

// Apply merges d into a copy of s. The receiver is left unchanged.
func (s State) Apply(d Delta) State {
	next := s
	if d.ResearchData != nil {
		next.ResearchData = *d.ResearchData
	}
	if d.Sources != nil {
		next.Sources = append([]string(nil), d.Sources...)
	}
	if d.DraftContent != nil {
		next.DraftContent = *d.DraftContent
	}
	if d.CritiqueFeedback != nil {
		next.CritiqueFeedback = *d.CritiqueFeedback
	}
	if d.RevisionCount != nil {
		next.RevisionCount = *d.RevisionCount
	}
	if d.QualityStatus != nil {
		next.QualityStatus = *d.QualityStatus
	}
	if d.Judgment != nil {
		j := *d.Judgment
		next.Judgment = &j
	}

	msgs := make([]string, 0, len(s.Messages)+len(d.Messages))
	msgs = append(msgs, s.Messages...)
	msgs = append(msgs, d.Messages...)
	next.Messages = msgs
	return next
}

func ptr[T any](v T) *T { return &v }
