package pipeline

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/tidwall/gjson"
)

var errMalformedJudgment = errors.New("judgment is not a decodable score object")

// Scores are the five criteria the Critic rates on a 1-10 scale.
type Scores struct {
	Accuracy     float64 `json:"accuracy"`
	Clarity      float64 `json:"clarity"`
	Engagement   float64 `json:"engagement"`
	Completeness float64 `json:"completeness"`
	Structure    float64 `json:"structure"`
}

// Judgment is the decoded Critic output.
type Judgment struct {
	Scores       Scores        `json:"scores"`
	Average      float64       `json:"average_score"`
	Decision     QualityStatus `json:"decision"`
	Strengths    []string      `json:"strengths,omitempty"`
	Improvements []string      `json:"improvements,omitempty"`
	Summary      string        `json:"summary,omitempty"`
	// Fallback marks a judgment synthesized because the raw text could not be decoded.
	Fallback bool `json:"fallback,omitempty"`
}

var scoreKeys = [5]string{"accuracy", "clarity", "engagement", "completeness", "structure"}

// ParseJudgment decodes judge output. The JSON may be bare or wrapped in a
// ```json (or plain ```) fence. The decision is always recomputed from the
// unrounded average; the model's own decision string is returned as claimed.
func ParseJudgment(raw string) (j Judgment, claimed string, err error) {
	body := extractFenced(raw)
	if !gjson.Valid(body) {
		return Judgment{}, "", errMalformedJudgment
	}
	root := gjson.Parse(body)
	if !root.IsObject() {
		return Judgment{}, "", errMalformedJudgment
	}

	var vals [5]float64
	complete := true
	scores := root.Get("scores")
	for i, key := range scoreKeys {
		v := scores.Get(key)
		if v.Type != gjson.Number {
			complete = false
			continue
		}
		vals[i] = clampScore(v.Float())
	}

	switch avg := root.Get("average_score"); {
	case complete:
		sum := 0.0
		for _, v := range vals {
			sum += v
		}
		j.Average = sum / float64(len(vals))
	case avg.Type == gjson.Number:
		j.Average = avg.Float()
	default:
		return Judgment{}, "", fmt.Errorf("%w: no scores and no average_score", errMalformedJudgment)
	}

	j.Scores = Scores{
		Accuracy:     vals[0],
		Clarity:      vals[1],
		Engagement:   vals[2],
		Completeness: vals[3],
		Structure:    vals[4],
	}
	j.Decision = DecideQuality(j.Average)
	j.Strengths = stringList(root.Get("strengths"))
	j.Improvements = stringList(root.Get("improvements"))
	j.Summary = root.Get("summary").String()
	return j, root.Get("decision").String(), nil
}

// FormatFeedback renders a judgment as feedback for the Writer.
func FormatFeedback(j Judgment) string {
	summary := j.Summary
	if summary == "" {
		summary = "N/A"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "**Quality Score: %.1f/10**\n\n", j.Average)
	b.WriteString("**Strengths:**\n")
	b.WriteString(bullets(j.Strengths))
	b.WriteString("\n\n**Areas for Improvement:**\n")
	b.WriteString(bullets(j.Improvements))
	b.WriteString("\n\n**Summary:** ")
	b.WriteString(summary)
	return b.String()
}

// Assessment is the outcome of one Critic pass.
type Assessment struct {
	Judgment      Judgment
	Status        QualityStatus
	Feedback      string
	RevisionCount int
	// Forced is set when the revision cap overrode a revise decision.
	Forced bool
	// ModelDecision is the decision string the judge wrote, if any.
	ModelDecision string
}

// Assess turns raw judge output into the Critic's decision. revisionCount is
// the count before this pass. It never fails: undecodable output degrades to
// FallbackDecision with the raw text as feedback.
func Assess(raw string, revisionCount int) Assessment {
	var a Assessment
	j, claimed, err := ParseJudgment(raw)
	if err != nil {
		status, score := FallbackDecision(revisionCount)
		j = Judgment{Average: score, Decision: status, Fallback: true}
		a.Feedback = raw
	} else {
		a.Feedback = FormatFeedback(j)
		a.ModelDecision = claimed
	}
	a.Judgment = j
	a.RevisionCount = revisionCount + 1
	a.Status, a.Feedback, a.Forced = ApplyRevisionCap(a.RevisionCount, j.Decision, a.Feedback)
	return a
}

func extractFenced(text string) string {
	for _, fence := range []string{"```json", "```"} {
		i := strings.Index(text, fence)
		if i < 0 {
			continue
		}
		rest := text[i+len(fence):]
		if end := strings.Index(rest, "```"); end >= 0 {
			rest = rest[:end]
		}
		return strings.TrimSpace(rest)
	}
	return strings.TrimSpace(text)
}

func stringList(r gjson.Result) []string {
	if !r.Exists() || r.Type == gjson.Null {
		return nil
	}
	var out []string
	for _, item := range r.Array() {
		if s := strings.TrimSpace(item.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func bullets(items []string) string {
	lines := make([]string, len(items))
	for i, item := range items {
		lines[i] = "- " + item
	}
	return strings.Join(lines, "\n")
}

func clampScore(v float64) float64 {
	return math.Min(10, math.Max(1, v))
}
