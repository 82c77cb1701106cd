package pipeline

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyTopic        = errors.New("topic is required")
	ErrEmptyResearch     = errors.New("researcher produced no research notes")
	ErrEmptyDraft        = errors.New("writer produced an empty draft")
	ErrInvalidTransition = errors.New("invalid state transition")
)

// StageError is a run-level failure. It keeps the message log collected
// before the failing stage so drivers can show how far the run got.
type StageError struct {
	Stage    Stage
	Err      error
	Messages []string
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s stage failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
