package generator

import (
	"context"
	"fmt"
	"strings"
)

// MockLLM 离线占位实现，按 Prompt.Kind 返回不同内容，不调用外部模型。
// Score 为评审打分，0 表示默认 8.2（首轮即通过）。
type MockLLM struct {
	Score float64
}

func (m MockLLM) Complete(_ context.Context, prompt Prompt) (string, error) {
	topic := topicFrom(prompt.User)
	switch prompt.Kind {
	case KindResearch:
		return mockResearch(topic), nil
	case KindDraft, KindRevision:
		return mockDraft(topic, prompt.Kind == KindRevision), nil
	case KindCritique:
		return mockCritique(m.Score), nil
	default:
		return "", fmt.Errorf("mock llm: unknown prompt kind %q", prompt.Kind)
	}
}

func topicFrom(user string) string {
	first, _, _ := strings.Cut(user, "\n")
	if t, ok := strings.CutPrefix(first, "Topic: "); ok {
		return strings.TrimSpace(t)
	}
	return "Untitled"
}

func mockResearch(topic string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "1. **Key Facts & Statistics** - Offline notes about %s.\n", topic)
	sb.WriteString("2. **Main Themes** - Background, current state, open problems.\n")
	sb.WriteString("3. **Expert Opinions** - None collected in offline mode.\n")
	sb.WriteString("4. **Recent Developments** - None collected in offline mode.\n")
	sb.WriteString("5. **Sources** - none\n")
	return sb.String()
}

func mockDraft(topic string, revised bool) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "# %s\n\n", topic)
	fmt.Fprintf(&sb, "这是一篇关于 %s 的离线示例文章。\n\n", topic)
	sb.WriteString("## 背景\n\n")
	sb.WriteString("离线模式下生成的占位内容。\n\n")
	if revised {
		sb.WriteString("## 修订说明\n\n")
		sb.WriteString("根据评审意见补充了细节。\n\n")
	}
	sb.WriteString("## 结论\n\n")
	sb.WriteString("欢迎留言讨论。\n")
	return sb.String()
}

func mockCritique(score float64) string {
	if score <= 0 {
		score = 8.2
	}
	decision := "Acceptable"
	if score < 7.5 {
		decision = "Revision Needed"
	}
	return fmt.Sprintf("```json\n"+`{
  "scores": {"accuracy": %[1]g, "clarity": %[1]g, "engagement": %[1]g, "completeness": %[1]g, "structure": %[1]g},
  "average_score": %[1]g,
  "decision": %[2]q,
  "strengths": ["Clear structure"],
  "improvements": ["Add concrete examples"],
  "summary": "Offline assessment."
}`+"\n```", score, decision)
}
