package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"agentic_research_writer/pipeline"
)

var (
	stageStyles = map[pipeline.Stage]lipgloss.Style{
		pipeline.StageResearcher: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#2563EB")),
		pipeline.StageWriter:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#7C3AED")),
		pipeline.StageCritic:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#D97706")),
	}
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#10B981"))
	errorStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#EF4444"))
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// eventPrinter 把每个阶段的状态消息打印到终端。
type eventPrinter struct {
	w io.Writer
}

func (p eventPrinter) event(e pipeline.Event) {
	style, ok := stageStyles[e.Stage]
	if !ok {
		style = lipgloss.NewStyle()
	}
	label := style.Render(fmt.Sprintf("[%s]", e.Stage))
	for _, msg := range e.Delta.Messages {
		fmt.Fprintf(p.w, "%s %s\n", label, msg)
	}
	if e.Stage == pipeline.StageCritic && e.State.Judgment != nil && !e.State.Judgment.Fallback {
		j := e.State.Judgment
		fmt.Fprintln(p.w, dimStyle.Render(fmt.Sprintf(
			"    accuracy %.1f · clarity %.1f · engagement %.1f · completeness %.1f · structure %.1f",
			j.Scores.Accuracy, j.Scores.Clarity, j.Scores.Engagement, j.Scores.Completeness, j.Scores.Structure)))
	}
}

func (p eventPrinter) failure(err error) {
	fmt.Fprintln(p.w, errorStyle.Render("run failed: ")+err.Error())
}

func (p eventPrinter) summary(s pipeline.State) {
	fmt.Fprintln(p.w)
	fmt.Fprintln(p.w, headerStyle.Render(fmt.Sprintf("Final draft (%s, %d revisions)", s.QualityStatus, s.RevisionCount)))
	fmt.Fprintln(p.w, strings.Repeat("─", 60))
}
