package generator

import (
	"fmt"
	"strings"
)

// PromptKind 标识提示词用途，Mock 据此返回不同内容。
type PromptKind string

const (
	KindResearch PromptKind = "research"
	KindDraft    PromptKind = "draft"
	KindRevision PromptKind = "revision"
	KindCritique PromptKind = "critique"
)

// Prompt 表示发送给 LLM 的一组消息。
type Prompt struct {
	Kind   PromptKind
	System string
	User   string
}

// BuildResearchPrompt 把搜索结果整理成研究笔记的提示词。
func BuildResearchPrompt(topic, searchResults string) Prompt {
	var sb strings.Builder
	sb.WriteString("You are a research analyst. Synthesize the given search results into well-organized\n")
	sb.WriteString("research notes that will help a writer create an engaging blog post.\n\n")
	sb.WriteString("Structure your output as:\n")
	sb.WriteString("1. **Key Facts & Statistics** - Important data points\n")
	sb.WriteString("2. **Main Themes** - Core concepts and ideas\n")
	sb.WriteString("3. **Expert Opinions** - Notable quotes or perspectives\n")
	sb.WriteString("4. **Recent Developments** - Latest news or updates\n")
	sb.WriteString("5. **Sources** - List the URLs for citation\n\n")
	sb.WriteString("Be thorough but concise. Focus on actionable insights for the writer.")

	return Prompt{
		Kind:   KindResearch,
		System: sb.String(),
		User:   fmt.Sprintf("Topic: %s\n\nSearch Results:\n%s", topic, searchResults),
	}
}

// BuildInitialPrompt 生成首稿提示词。
func BuildInitialPrompt(topic, notes string) Prompt {
	var sb strings.Builder
	sb.WriteString("You are an expert blog writer known for engaging, informative and well-structured content.\n")
	sb.WriteString("Write a compelling blog post based on the research provided. Output Markdown only, no commentary.\n")
	sb.WriteString("Requirements:\n")
	sb.WriteString("- A catchy, SEO-friendly title as a level-one heading.\n")
	sb.WriteString("- Open with a hook that grabs attention.\n")
	sb.WriteString("- Use clear subheadings to organize the content.\n")
	sb.WriteString("- Include relevant facts and statistics from the research.\n")
	sb.WriteString("- Conversational yet authoritative tone.\n")
	sb.WriteString("- End with a thought-provoking conclusion or call to action.\n")
	sb.WriteString("- Roughly 800-1200 words.\n")

	return Prompt{
		Kind:   KindDraft,
		System: sb.String(),
		User:   fmt.Sprintf("Topic: %s\n\nResearch Notes:\n%s", topic, notes),
	}
}

// BuildRevisionPrompt 生成修订提示词。
func BuildRevisionPrompt(topic, draft, feedback string) Prompt {
	var sb strings.Builder
	sb.WriteString("You are an expert blog writer revising your work based on editorial feedback.\n")
	sb.WriteString("- Address every point of the critique.\n")
	sb.WriteString("- Preserve what works well and keep the overall flow.\n")
	sb.WriteString("- Keep the Markdown structure: title heading, subheadings, lists.\n")
	sb.WriteString("- Output the complete revised post in Markdown, no commentary.\n")

	user := fmt.Sprintf("Topic: %s\n\nCurrent Draft:\n%s\n\nCritique Feedback:\n%s\n\nPlease revise the blog post to address this feedback.",
		topic, draft, feedback)

	return Prompt{
		Kind:   KindRevision,
		System: sb.String(),
		User:   user,
	}
}

// BuildCritiquePrompt 生成评审提示词，要求模型输出固定 JSON 结构。
func BuildCritiquePrompt(topic, notes, draft string) Prompt {
	var sb strings.Builder
	sb.WriteString("You are a senior editor at a major publication. Critically evaluate blog posts for\n")
	sb.WriteString("quality, accuracy, and reader engagement.\n\n")
	sb.WriteString("Score each criterion from 1 to 10:\n")
	sb.WriteString("1. accuracy - facts align with the research, no misinformation\n")
	sb.WriteString("2. clarity - clear, well organized, easy to follow\n")
	sb.WriteString("3. engagement - hooks readers and keeps their interest\n")
	sb.WriteString("4. completeness - covers the topic, nothing crucial missing\n")
	sb.WriteString("5. structure - title, headings, scannable format, SEO\n\n")
	sb.WriteString("Respond with exactly this JSON:\n")
	sb.WriteString(`{
  "scores": {"accuracy": 0, "clarity": 0, "engagement": 0, "completeness": 0, "structure": 0},
  "average_score": 0,
  "decision": "Acceptable" or "Revision Needed",
  "strengths": ["what works well"],
  "improvements": ["specific actionable improvements"],
  "summary": "brief overall assessment"
}`)
	sb.WriteString("\n\nUse \"Acceptable\" when average_score >= 7.5, otherwise \"Revision Needed\".\n")
	sb.WriteString("Be constructive but rigorous.")

	user := fmt.Sprintf("Topic: %s\n\nOriginal Research:\n%s\n\nBlog Post Draft:\n%s\n\nPlease provide your critique.",
		topic, notes, draft)

	return Prompt{
		Kind:   KindCritique,
		System: sb.String(),
		User:   user,
	}
}
