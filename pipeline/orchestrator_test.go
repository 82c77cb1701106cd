package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestOrchestrator(t *testing.T, s *fakeSynth, d *fakeDrafter, j *fakeJudge, opts ...Option) *Orchestrator {
	t.Helper()
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	o, err := New(s, d, j, opts...)
	require.NoError(t, err)
	return o
}

func TestNewRequiresProviders(t *testing.T) {
	_, err := New(nil, &fakeDrafter{}, &fakeJudge{})
	assert.Error(t, err)
}

func TestRunAcceptsOnFirstPass(t *testing.T) {
	synth := &fakeSynth{notes: "notes", sources: []string{"https://a", "https://b"}}
	drafter := &fakeDrafter{}
	judge := &fakeJudge{outputs: []string{judgmentJSON(9)}}
	rec := &fakeRecorder{}
	o := newTestOrchestrator(t, synth, drafter, judge, WithRecorder(rec))

	var events []Event
	res, err := o.Run(context.Background(), "X", func(e Event) { events = append(events, e) })
	require.NoError(t, err)

	assert.Equal(t, 1, synth.calls)
	assert.Equal(t, 1, drafter.calls())
	assert.Equal(t, 1, judge.calls)
	assert.Equal(t, StatusAcceptable, res.State.QualityStatus)
	assert.Equal(t, 1, res.State.RevisionCount)
	assert.Equal(t, 1, res.CritiquePasses)
	assert.False(t, res.Forced)
	assert.Equal(t, "# X\n\ndraft 1", res.FinalDraft)
	assert.Equal(t, []string{"https://a", "https://b"}, res.State.Sources)

	require.Len(t, events, 3)
	assert.Equal(t, []Stage{StageResearcher, StageWriter, StageCritic},
		[]Stage{events[0].Stage, events[1].Stage, events[2].Stage})
	assert.Contains(t, res.State.Messages[0], "Found 2 sources")
	assert.Contains(t, res.State.Messages[1], "Created initial draft for 'X'")
	assert.Contains(t, res.State.Messages[2], "Score 9.0/10 - Acceptable. Draft approved for publication!")

	assert.Equal(t, []string{"researcher", "writer", "critic"}, rec.stages)
	assert.Equal(t, []recordedRun{{OutcomeAccepted, 1, false}}, rec.runs)
}

func TestRunForcedAcceptanceAtCap(t *testing.T) {
	synth := &fakeSynth{notes: "notes"}
	drafter := &fakeDrafter{}
	judge := &fakeJudge{outputs: []string{judgmentJSON(5), judgmentJSON(5), judgmentJSON(5)}}
	rec := &fakeRecorder{}
	o := newTestOrchestrator(t, synth, drafter, judge, WithRecorder(rec))

	res, err := o.Run(context.Background(), "X", nil)
	require.NoError(t, err)

	assert.Equal(t, 1, drafter.initial)
	assert.Equal(t, 2, drafter.revisions)
	assert.Equal(t, 3, judge.calls)
	assert.Equal(t, 3, res.State.RevisionCount)
	assert.Equal(t, StatusAcceptable, res.State.QualityStatus)
	assert.True(t, res.Forced)
	assert.True(t, strings.HasSuffix(res.State.CritiqueFeedback, CapReachedNote))
	assert.Equal(t, "# X\n\ndraft 3", res.FinalDraft)

	// revisions see the critic's formatted feedback
	require.Len(t, drafter.feedback, 2)
	assert.Contains(t, drafter.feedback[0], "**Quality Score: 5.0/10**")

	assert.Equal(t, []recordedRun{{OutcomeForced, 3, true}}, rec.runs)
}

func TestRunMessageLogOrder(t *testing.T) {
	for k := 1; k <= MaxRevisions; k++ {
		outputs := make([]string, 0, k)
		for i := 1; i < k; i++ {
			outputs = append(outputs, judgmentJSON(4))
		}
		outputs = append(outputs, judgmentJSON(8))

		o := newTestOrchestrator(t, &fakeSynth{notes: "n"}, &fakeDrafter{}, &fakeJudge{outputs: outputs})
		var events []Event
		res, err := o.Run(context.Background(), "X", func(e Event) { events = append(events, e) })
		require.NoError(t, err)

		require.Len(t, res.State.Messages, 1+2*k)
		require.Len(t, events, 1+2*k)
		assert.Contains(t, res.State.Messages[0], "Researcher Agent")
		for i := 0; i < k; i++ {
			assert.Contains(t, res.State.Messages[1+2*i], "Writer Agent")
			assert.Contains(t, res.State.Messages[2+2*i], "Critic Agent")
			assert.Equal(t, StageWriter, events[1+2*i].Stage)
			assert.Equal(t, StageCritic, events[2+2*i].Stage)
			assert.Equal(t, i+1, *events[2+2*i].Delta.RevisionCount)
		}
		assert.Equal(t, k, res.State.RevisionCount)
	}
}

func TestRunJudgmentFallbackPath(t *testing.T) {
	// passes 1 and 2 revise at 6.0, pass 3 accepts at 7.0 without the cap
	judge := &fakeJudge{outputs: []string{"looks ok", "still fine", "good enough"}}
	rec := &fakeRecorder{}
	o := newTestOrchestrator(t, &fakeSynth{notes: "n"}, &fakeDrafter{}, judge, WithRecorder(rec))

	res, err := o.Run(context.Background(), "X", nil)
	require.NoError(t, err)
	assert.Equal(t, 3, judge.calls)
	require.NotNil(t, res.State.Judgment)
	assert.True(t, res.State.Judgment.Fallback)
	assert.Equal(t, 7.0, res.State.Judgment.Average)
	assert.Equal(t, StatusAcceptable, res.State.QualityStatus)
	assert.Equal(t, 3, res.State.RevisionCount)
	assert.Equal(t, 3, rec.fallbacks)
	assert.Equal(t, "good enough", res.State.CritiqueFeedback)
	assert.False(t, res.Forced)
}

func TestRunExternalFailure(t *testing.T) {
	boom := errors.New("provider unreachable")

	t.Run("researcher", func(t *testing.T) {
		drafter := &fakeDrafter{}
		o := newTestOrchestrator(t, &fakeSynth{err: boom}, drafter, &fakeJudge{outputs: []string{judgmentJSON(9)}})
		res, err := o.Run(context.Background(), "X", nil)
		assert.Nil(t, res)
		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, StageResearcher, se.Stage)
		assert.ErrorIs(t, err, boom)
		assert.Empty(t, se.Messages)
		assert.Equal(t, 0, drafter.calls())
	})

	t.Run("judge on second pass keeps partial log", func(t *testing.T) {
		judge := &fakeJudge{outputs: []string{judgmentJSON(3)}}
		rec := &fakeRecorder{}
		o := newTestOrchestrator(t, &fakeSynth{notes: "n"}, &fakeDrafter{}, judge, WithRecorder(rec))

		var seen int
		res, err := o.Run(context.Background(), "X", func(e Event) {
			seen++
			if seen == 4 {
				judge.err = boom
			}
		})
		assert.Nil(t, res)
		var se *StageError
		require.ErrorAs(t, err, &se)
		assert.Equal(t, StageCritic, se.Stage)
		assert.Len(t, se.Messages, 4)
		assert.Equal(t, []recordedRun{{OutcomeFailed, 1, false}}, rec.runs)
	})
}

func TestRunEmptyOutputs(t *testing.T) {
	o := newTestOrchestrator(t, &fakeSynth{notes: "   "}, &fakeDrafter{}, &fakeJudge{outputs: []string{judgmentJSON(9)}})
	_, err := o.Run(context.Background(), "X", nil)
	assert.ErrorIs(t, err, ErrEmptyResearch)

	judge := &fakeJudge{outputs: []string{judgmentJSON(9)}}
	o = newTestOrchestrator(t, &fakeSynth{notes: "n"}, &fakeDrafter{empty: true}, judge)
	_, err = o.Run(context.Background(), "X", nil)
	assert.ErrorIs(t, err, ErrEmptyDraft)
	assert.Equal(t, 0, judge.calls)

	_, err = o.Run(context.Background(), "  ", nil)
	assert.ErrorIs(t, err, ErrEmptyTopic)
}

func TestRunCanceledContext(t *testing.T) {
	synth := &fakeSynth{notes: "n"}
	o := newTestOrchestrator(t, synth, &fakeDrafter{}, &fakeJudge{outputs: []string{judgmentJSON(9)}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := o.Run(ctx, "X", nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, synth.calls)
}

func TestStream(t *testing.T) {
	o := newTestOrchestrator(t, &fakeSynth{notes: "n"}, &fakeDrafter{},
		&fakeJudge{outputs: []string{judgmentJSON(5), judgmentJSON(9)}})

	var stages []Stage
	var last Event
	for e, err := range o.Stream(context.Background(), "X") {
		require.NoError(t, err)
		stages = append(stages, e.Stage)
		last = e
	}
	assert.Equal(t, []Stage{StageResearcher, StageWriter, StageCritic, StageWriter, StageCritic}, stages)
	assert.Equal(t, "# X\n\ndraft 2", last.State.DraftContent)
	assert.Equal(t, StatusAcceptable, last.State.QualityStatus)
}

func TestStreamEarlyBreak(t *testing.T) {
	drafter := &fakeDrafter{}
	rec := &fakeRecorder{}
	o := newTestOrchestrator(t, &fakeSynth{notes: "n"}, drafter, &fakeJudge{outputs: []string{judgmentJSON(9)}},
		WithRecorder(rec))
	for e, err := range o.Stream(context.Background(), "X") {
		require.NoError(t, err)
		assert.Equal(t, StageResearcher, e.Stage)
		break
	}
	assert.Equal(t, 0, drafter.calls())
	assert.Equal(t, []recordedRun{{outcome: OutcomeAborted}}, rec.runs)
}

func TestStreamFailure(t *testing.T) {
	o := newTestOrchestrator(t, &fakeSynth{err: errors.New("down")}, &fakeDrafter{}, &fakeJudge{outputs: []string{""}})
	var errs []error
	for _, err := range o.Stream(context.Background(), "X") {
		errs = append(errs, err)
	}
	require.Len(t, errs, 1)
	var se *StageError
	assert.ErrorAs(t, errs[0], &se)
}
