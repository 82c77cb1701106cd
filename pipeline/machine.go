package pipeline

import "fmt"

// Phase is a node of the run's state machine.
type Phase int

const (
	PhaseResearching Phase = iota
	PhaseWriting
	PhaseCritiquing
	PhaseTerminated
)

func (p Phase) String() string {
	switch p {
	case PhaseResearching:
		return "researching"
	case PhaseWriting:
		return "writing"
	case PhaseCritiquing:
		return "critiquing"
	case PhaseTerminated:
		return "terminated"
	default:
		return fmt.Sprintf("phase(%d)", int(p))
	}
}

// Next returns the phase that follows p given the state produced by p's stage.
//
//	researching -> writing -> critiquing -> writing | terminated
func Next(p Phase, s State) (Phase, error) {
	switch p {
	case PhaseResearching:
		return PhaseWriting, nil
	case PhaseWriting:
		return PhaseCritiquing, nil
	case PhaseCritiquing:
		switch s.QualityStatus {
		case StatusAcceptable:
			return PhaseTerminated, nil
		case StatusRevisionNeeded:
			return PhaseWriting, nil
		}
		return p, fmt.Errorf("%w: %s with quality status unset", ErrInvalidTransition, p)
	}
	return p, fmt.Errorf("%w: no edge out of %s", ErrInvalidTransition, p)
}
