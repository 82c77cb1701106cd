package generator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildPrompts(t *testing.T) {
	p := BuildResearchPrompt("Go", "**Source 1:** u")
	assert.Equal(t, KindResearch, p.Kind)
	assert.Contains(t, p.System, "research analyst")
	assert.Equal(t, "Topic: Go\n\nSearch Results:\n**Source 1:** u", p.User)

	p = BuildInitialPrompt("Go", "notes")
	assert.Equal(t, KindDraft, p.Kind)
	assert.Contains(t, p.User, "Research Notes:\nnotes")

	p = BuildRevisionPrompt("Go", "old draft", "fix intro")
	assert.Equal(t, KindRevision, p.Kind)
	assert.Contains(t, p.User, "Current Draft:\nold draft")
	assert.Contains(t, p.User, "Critique Feedback:\nfix intro")

	p = BuildCritiquePrompt("Go", "notes", "draft")
	assert.Equal(t, KindCritique, p.Kind)
	assert.Contains(t, p.System, `"average_score"`)
	assert.Contains(t, p.System, "7.5")
	assert.Contains(t, p.User, "Blog Post Draft:\ndraft")
}
