package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type fakeSynth struct {
	notes   string
	sources []string
	err     error
	calls   int
}

func (f *fakeSynth) Synthesize(_ context.Context, _ string) (Research, error) {
	f.calls++
	if f.err != nil {
		return Research{}, f.err
	}
	return Research{Notes: f.notes, Sources: f.sources}, nil
}

type fakeDrafter struct {
	initial   int
	revisions int
	// feedback seen by each revision call
	feedback []string
	err      error
	empty    bool
}

func (f *fakeDrafter) GenerateDraft(_ context.Context, topic, _ string) (string, error) {
	f.initial++
	if f.err != nil {
		return "", f.err
	}
	if f.empty {
		return "  ", nil
	}
	return "# " + topic + "\n\ndraft 1", nil
}

func (f *fakeDrafter) ReviseDraft(_ context.Context, topic, _, feedback string) (string, error) {
	f.revisions++
	f.feedback = append(f.feedback, feedback)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("# %s\n\ndraft %d", topic, f.revisions+1), nil
}

func (f *fakeDrafter) calls() int { return f.initial + f.revisions }

// fakeJudge returns outputs in order and repeats the last one.
type fakeJudge struct {
	outputs []string
	err     error
	calls   int
}

func (f *fakeJudge) Judge(_ context.Context, _, _, _ string) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	i := f.calls - 1
	if i >= len(f.outputs) {
		i = len(f.outputs) - 1
	}
	return f.outputs[i], nil
}

func judgmentJSON(score float64) string {
	return fmt.Sprintf(`{
  "scores": {"accuracy": %[1]v, "clarity": %[1]v, "engagement": %[1]v, "completeness": %[1]v, "structure": %[1]v},
  "average_score": %[1]v,
  "decision": "Revision Needed",
  "strengths": ["clear intro"],
  "improvements": ["add statistics"],
  "summary": "solid start"
}`, score)
}

type recordedRun struct {
	outcome string
	passes  int
	forced  bool
}

type fakeRecorder struct {
	mu        sync.Mutex
	stages    []string
	fallbacks int
	runs      []recordedRun
}

func (r *fakeRecorder) StageCompleted(stage string, _ time.Duration, _ error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stages = append(r.stages, stage)
}

func (r *fakeRecorder) JudgmentFallback() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks++
}

func (r *fakeRecorder) RunCompleted(outcome string, passes int, forced bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, recordedRun{outcome, passes, forced})
}
