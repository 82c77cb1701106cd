package pipeline

import (
	"context"
	"errors"
	"iter"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Recorder receives run and stage measurements. metrics.Collector implements it.
type Recorder interface {
	StageCompleted(stage string, d time.Duration, err error)
	JudgmentFallback()
	RunCompleted(outcome string, critiquePasses int, forced bool)
}

type nopRecorder struct{}

func (nopRecorder) StageCompleted(string, time.Duration, error) {}
func (nopRecorder) JudgmentFallback()                           {}
func (nopRecorder) RunCompleted(string, int, bool)              {}

// Run outcomes reported to the Recorder.
const (
	OutcomeAccepted = "accepted"
	OutcomeForced   = "forced"
	OutcomeFailed   = "failed"
	// OutcomeAborted means the Stream consumer stopped before the run finished.
	OutcomeAborted  = "aborted"
)

// Event is emitted once per completed stage.
type Event struct {
	Stage Stage `json:"stage"`
	Delta Delta `json:"delta"`
	// State is the merged state after this stage.
	State State `json:"-"`
}

// Result is the outcome of a successful run.
type Result struct {
	FinalDraft     string `json:"final_draft"`
	State          State  `json:"state"`
	CritiquePasses int    `json:"critique_passes"`
	// Forced is true when the draft was accepted because the revision cap was hit.
	Forced bool `json:"forced"`
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *zap.Logger) Option {
	return func(o *Orchestrator) {
		if logger != nil {
			o.logger = logger
		}
	}
}

func WithRecorder(r Recorder) Option {
	return func(o *Orchestrator) {
		if r != nil {
			o.rec = r
		}
	}
}

// Orchestrator drives researcher -> writer -> critic until the critic accepts
// the draft or the revision cap forces acceptance.
type Orchestrator struct {
	synth   Synthesizer
	drafter Drafter
	judge   Judge
	logger  *zap.Logger
	rec     Recorder
}

func New(synth Synthesizer, drafter Drafter, judge Judge, opts ...Option) (*Orchestrator, error) {
	if synth == nil || drafter == nil || judge == nil {
		return nil, errors.New("synthesizer, drafter and judge are all required")
	}
	o := &Orchestrator{
		synth:   synth,
		drafter: drafter,
		judge:   judge,
		logger:  zap.NewNop(),
		rec:     nopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With(zap.String("component", "orchestrator"))
	return o, nil
}

var errStopped = errors.New("event consumer stopped")

// Run executes one workflow for topic. observer, if non-nil, sees every event
// before the next stage starts. On failure the error is a *StageError and no
// draft is returned.
func (o *Orchestrator) Run(ctx context.Context, topic string, observer func(Event)) (*Result, error) {
	return o.run(ctx, topic, func(e Event) bool {
		if observer != nil {
			observer(e)
		}
		return true
	})
}

// Stream yields each stage's event as it completes. A failed run ends with a
// single (Event{}, *StageError) pair. The final draft is the DraftContent of
// the last event's State.
func (o *Orchestrator) Stream(ctx context.Context, topic string) iter.Seq2[Event, error] {
	return func(yield func(Event, error) bool) {
		_, err := o.run(ctx, topic, func(e Event) bool {
			return yield(e, nil)
		})
		if err != nil && !errors.Is(err, errStopped) {
			yield(Event{}, err)
		}
	}
}

func (o *Orchestrator) run(ctx context.Context, topic string, emit func(Event) bool) (*Result, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, &StageError{Stage: StageResearcher, Err: ErrEmptyTopic, Messages: []string{}}
	}

	logger := o.logger.With(zap.String("topic", topic))
	logger.Info("run started")

	var (
		state  = NewState(topic)
		phase  = PhaseResearching
		passes int
		forced bool
	)
	for phase != PhaseTerminated {
		stage := stageFor(phase)
		start := time.Now()
		delta, err := o.step(ctx, logger, phase, state, &forced)
		o.rec.StageCompleted(string(stage), time.Since(start), err)
		if err != nil {
			logger.Error("stage failed", zap.String("stage", string(stage)), zap.Error(err))
			o.rec.RunCompleted(OutcomeFailed, passes, false)
			return nil, &StageError{
				Stage:    stage,
				Err:      err,
				Messages: append([]string{}, state.Messages...),
			}
		}
		if phase == PhaseCritiquing {
			passes++
		}

		state = state.Apply(delta)
		next, err := Next(phase, state)
		if err != nil {
			o.rec.RunCompleted(OutcomeFailed, passes, false)
			return nil, &StageError{Stage: stage, Err: err, Messages: append([]string{}, state.Messages...)}
		}
		logger.Debug("stage completed",
			zap.String("stage", string(stage)),
			zap.Stringer("next", next),
			zap.Duration("duration", time.Since(start)),
		)
		if !emit(Event{Stage: stage, Delta: delta, State: state}) {
			logger.Info("run abandoned by consumer", zap.String("stage", string(stage)))
			o.rec.RunCompleted(OutcomeAborted, passes, false)
			return nil, errStopped
		}
		phase = next
	}

	outcome := OutcomeAccepted
	if forced {
		outcome = OutcomeForced
	}
	o.rec.RunCompleted(outcome, passes, forced)
	logger.Info("run finished",
		zap.String("outcome", outcome),
		zap.Int("critique_passes", passes),
	)
	return &Result{
		FinalDraft:     state.DraftContent,
		State:          state,
		CritiquePasses: passes,
		Forced:         forced,
	}, nil
}

func (o *Orchestrator) step(ctx context.Context, logger *zap.Logger, phase Phase, s State, forced *bool) (Delta, error) {
	if err := ctx.Err(); err != nil {
		return Delta{}, err
	}
	switch phase {
	case PhaseResearching:
		return research(ctx, o.synth, s)
	case PhaseWriting:
		d, mode, err := write(ctx, o.drafter, s)
		if err == nil {
			logger.Info("draft written", zap.Stringer("mode", mode), zap.Int("revision_count", s.RevisionCount))
		}
		return d, err
	case PhaseCritiquing:
		d, a, err := critique(ctx, o.judge, s)
		if err != nil {
			return d, err
		}
		if a.Judgment.Fallback {
			o.rec.JudgmentFallback()
			logger.Warn("judgment could not be decoded, using fallback decision",
				zap.Int("revision_count", a.RevisionCount),
				zap.Float64("score", a.Judgment.Average),
			)
		} else if a.ModelDecision != "" && a.ModelDecision != a.Judgment.Decision.String() {
			logger.Debug("judge decision disagrees with threshold",
				zap.String("claimed", a.ModelDecision),
				zap.Stringer("decided", a.Judgment.Decision),
			)
		}
		if a.Forced {
			*forced = true
			logger.Warn("revision cap reached, accepting current draft", zap.Int("revision_count", a.RevisionCount))
		}
		logger.Info("draft critiqued",
			zap.Float64("score", a.Judgment.Average),
			zap.Stringer("status", a.Status),
			zap.Int("revision_count", a.RevisionCount),
		)
		return d, nil
	}
	return Delta{}, ErrInvalidTransition
}

func stageFor(p Phase) Stage {
	switch p {
	case PhaseWriting:
		return StageWriter
	case PhaseCritiquing:
		return StageCritic
	default:
		return StageResearcher
	}
}
