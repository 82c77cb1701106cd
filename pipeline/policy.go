package pipeline

const (
	// QualityThreshold is the minimum average score for a draft to be accepted.
	QualityThreshold = 7.5
	// MaxRevisions caps the number of Critic passes in one run.
	MaxRevisions = 3

	// fallback scores used when the judgment cannot be decoded
	fallbackAcceptScore = 7.0
	fallbackReviseScore = 6.0

	CapReachedNote = "\n\n⚠️ *Max revisions reached. Accepting current draft.*"
)

// WriterMode selects between drafting from scratch and revising.
type WriterMode int

const (
	ModeInitial WriterMode = iota
	ModeRevision
)

func (m WriterMode) String() string {
	if m == ModeRevision {
		return "revision"
	}
	return "initial"
}

// SelectWriterMode picks the Writer mode from state alone.
func SelectWriterMode(s State) WriterMode {
	if s.RevisionCount == 0 || s.CritiqueFeedback == "" {
		return ModeInitial
	}
	return ModeRevision
}

// DecideQuality applies the fixed acceptance threshold to an average score.
func DecideQuality(average float64) QualityStatus {
	if average >= QualityThreshold {
		return StatusAcceptable
	}
	return StatusRevisionNeeded
}

// FallbackDecision is used when the Critic's output cannot be decoded.
// revisionCount is the count before the current pass is recorded.
func FallbackDecision(revisionCount int) (QualityStatus, float64) {
	if revisionCount >= 2 {
		return StatusAcceptable, fallbackAcceptScore
	}
	return StatusRevisionNeeded, fallbackReviseScore
}

// ApplyRevisionCap forces acceptance once the cap is reached. It reports
// whether it changed anything, so applying it twice is a no-op.
func ApplyRevisionCap(revisionCount int, status QualityStatus, feedback string) (QualityStatus, string, bool) {
	if revisionCount >= MaxRevisions && status == StatusRevisionNeeded {
		return StatusAcceptable, feedback + CapReachedNote, true
	}
	return status, feedback, false
}
