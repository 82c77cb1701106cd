package server

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"agentic_research_writer/pipeline"
)

// RunStatus 记录一次运行所处的阶段。
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunAccepted RunStatus = "accepted"
	RunFailed   RunStatus = "failed"
)

// Run is the server-side record of one pipeline execution.
type Run struct {
	ID             string         `json:"id"`
	Topic          string         `json:"topic"`
	Status         RunStatus      `json:"status"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
	State          pipeline.State `json:"state"`
	FinalDraft     string         `json:"final_draft,omitempty"`
	CritiquePasses int            `json:"critique_passes"`
	Forced         bool           `json:"forced"`
	Error          string         `json:"error,omitempty"`
	FailedStage    pipeline.Stage `json:"failed_stage,omitempty"`
	MediaID        string         `json:"media_id,omitempty"`
}

type runStore struct {
	mu   sync.Mutex
	runs map[string]*Run
	now  func() time.Time
}

func newStore() *runStore {
	return &runStore{runs: make(map[string]*Run), now: time.Now}
}

func (s *runStore) create(topic string) Run {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	r := &Run{
		ID:        uuid.NewString(),
		Topic:     topic,
		Status:    RunRunning,
		CreatedAt: now,
		UpdatedAt: now,
		State:     pipeline.NewState(topic),
	}
	s.runs[r.ID] = r
	return *r
}

// update applies fn to the stored run under the lock and returns a copy.
func (s *runStore) update(id string, fn func(*Run)) (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return Run{}, false
	}
	fn(r)
	r.UpdatedAt = s.now()
	return *r, true
}

func (s *runStore) get(id string) (Run, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.runs[id]
	if !ok {
		return Run{}, false
	}
	return *r, true
}

func (s *runStore) progress(id string, e pipeline.Event) {
	s.update(id, func(r *Run) { r.State = e.State })
}

func (s *runStore) finish(id string, res *pipeline.Result, err error) Run {
	run, _ := s.update(id, func(r *Run) {
		if err != nil {
			r.Status = RunFailed
			r.Error = err.Error()
			var se *pipeline.StageError
			if errors.As(err, &se) {
				r.FailedStage = se.Stage
				r.State.Messages = se.Messages
			}
			return
		}
		r.Status = RunAccepted
		r.State = res.State
		r.FinalDraft = res.FinalDraft
		r.CritiquePasses = res.CritiquePasses
		r.Forced = res.Forced
	})
	return run
}
