package quiz

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/abhisek/studiz/internal/api"
	"github.com/abhisek/studiz/internal/ui/theme"
)

func (s *QuizScreen) View(width, height int) string {
	switch s.phase {
	case phaseTopic:
		return s.renderTopic(width)
	case phaseLoading:
		return s.renderLoading(width)
	case phaseQuestion, phaseFeedback:
		return s.renderQuestion(width, height)
	case phaseResults:
		return s.renderResults(width, height)
	}
	return ""
}

func (s *QuizScreen) renderTopic(width int) string {
	snap := s.state.Get()

	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).
		Render("  QUIZ · " + snap.Subject))
	b.WriteString("\n\n")

	if s.errMsg != "" {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).
			Render(truncate("  ⚠ "+s.errMsg, width-2)))
		b.WriteString("\n\n")
	}

	b.WriteString(lipgloss.NewStyle().Foreground(theme.Text).
		Render("  What do you want to practice?"))
	b.WriteString("\n\n  ")
	b.WriteString(s.input.View())
	b.WriteString("\n")

	if concepts := snap.ExpandedConcepts; len(concepts) > 0 {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
			Render(truncate("  from your last question: "+strings.Join(concepts, ", "), width-2)))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).
		Render(fmt.Sprintf("  %d questions, pitched at your current mastery", questionCount)))
	return b.String()
}

func (s *QuizScreen) renderLoading(width int) string {
	msg := fmt.Sprintf("Building a quiz on %s...", s.topic)
	return lipgloss.NewStyle().
		Width(width).Align(lipgloss.Center).
		Foreground(theme.TextDim).Italic(true).
		Render("\n\n\n" + msg)
}

func (s *QuizScreen) renderQuestion(width, height int) string {
	var b strings.Builder
	b.WriteString(s.renderQuizHeader(width))
	b.WriteString("\n\n")
	b.WriteString(s.mc.View())

	if s.phase == phaseFeedback && len(s.answers) > 0 {
		b.WriteString("\n")
		b.WriteString(s.renderFeedback(s.answers[len(s.answers)-1], width))
	}
	return b.String()
}

func (s *QuizScreen) renderQuizHeader(width int) string {
	title := lipgloss.NewStyle().Foreground(theme.Primary).Bold(true).
		Render("  QUIZ · " + s.topic)
	progress := lipgloss.NewStyle().Foreground(theme.TextDim).
		Render(fmt.Sprintf("   question %d of %d", s.current+1, len(s.quiz.Questions)))
	lines := []string{title + progress}

	if s.quiz.Adapted {
		banner := fmt.Sprintf("  targeting %s questions · your mastery %.0f%%",
			s.quiz.TargetDifficulty, s.quiz.StudentMastery*100)
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Accent).Italic(true).
			Render(truncate(banner, width-2)))
	}
	return strings.Join(lines, "\n")
}

func (s *QuizScreen) renderFeedback(a answered, width int) string {
	wrap := width - 8
	if wrap < 20 {
		wrap = 20
	}

	var b strings.Builder
	if a.correct {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Success).Bold(true).
			Render("  ✓ Correct"))
	} else {
		b.WriteString(lipgloss.NewStyle().Foreground(theme.Error).Bold(true).
			Render("  ✗ Not quite"))
	}
	b.WriteString("\n")

	if a.question.Explanation != "" {
		b.WriteString(lipgloss.NewStyle().
			Width(wrap).PaddingLeft(4).Foreground(theme.Text).
			Render(a.question.Explanation))
		b.WriteString("\n")
	}

	delta := fmt.Sprintf("  %s · mastery %.0f%% → %.0f%%",
		a.outcome.Concept, a.outcome.Previous*100, a.outcome.Updated*100)
	deltaColor := theme.Success
	if !a.correct {
		deltaColor = theme.Error
	}
	b.WriteString(lipgloss.NewStyle().Foreground(deltaColor).Render(delta))
	b.WriteString("\n\n")
	b.WriteString(lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).
		Render("  press any key to continue"))
	return b.String()
}

func (s *QuizScreen) renderResults(width, height int) string {
	correct, total := s.score()

	var b strings.Builder
	headline := fmt.Sprintf("  You got %d of %d on %s", correct, total, s.topic)
	color := theme.Success
	if correct*2 < total {
		color = theme.Error
	}
	b.WriteString(lipgloss.NewStyle().Foreground(color).Bold(true).Render(headline))
	b.WriteString("\n\n")

	for _, a := range s.answers {
		mark := lipgloss.NewStyle().Foreground(theme.Success).Render("✓")
		if !a.correct {
			mark = lipgloss.NewStyle().Foreground(theme.Error).Render("✗")
		}
		line := fmt.Sprintf("  %s %s", mark,
			lipgloss.NewStyle().Foreground(theme.Text).Render(truncate(a.question.Text, width-8)))
		b.WriteString(line)
		b.WriteString("\n")
	}
	b.WriteString("\n")

	paneH := height - total - 4
	if paneH < 3 {
		paneH = 3
	}
	b.WriteString(s.renderRecommendations(width, paneH))
	return b.String()
}

func (s *QuizScreen) renderRecommendations(width, height int) string {
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)

	switch {
	case s.recsPending:
		return dim.Italic(true).Render("  working out what to study next...")
	case s.recsErr != "":
		return lipgloss.NewStyle().Foreground(theme.Error).
			Render(truncate("  ⚠ recommendations unavailable: "+s.recsErr, width-2))
	case s.recs == nil:
		return ""
	}

	lines := s.recommendationLines(width)

	maxScroll := len(lines) - height
	if maxScroll < 0 {
		maxScroll = 0
	}
	if s.recsScroll > maxScroll {
		s.recsScroll = maxScroll
	}

	end := s.recsScroll + height
	if end > len(lines) {
		end = len(lines)
	}
	out := strings.Join(lines[s.recsScroll:end], "\n")
	if rest := len(lines) - end; rest > 0 {
		out += "\n" + dim.Render(fmt.Sprintf("  … %d more (↓ to scroll)", rest))
	}
	return out
}

// recommendationLines flattens the guidance payload into styled rows:
// the summary, then a block per weak concept, then a block per strong one.
func (s *QuizScreen) recommendationLines(width int) []string {
	wrap := width - 6
	if wrap < 20 {
		wrap = 20
	}
	dim := lipgloss.NewStyle().Foreground(theme.TextDim)

	var lines []string
	if s.recs.Summary != "" {
		summary := lipgloss.NewStyle().Width(wrap).PaddingLeft(2).Foreground(theme.Text).
			Render(s.recs.Summary)
		lines = append(lines, strings.Split(summary, "\n")...)
		lines = append(lines, "")
	}

	for _, block := range s.recs.Remediation {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Error).Bold(true).
			Render("  Shore up "+block.Concept))
		for _, p := range block.Prerequisites {
			lines = append(lines, dim.Render("    ◦ "+recName(p)))
		}
		for _, rm := range block.ReadingMaterials {
			if rm.Section != "" {
				lines = append(lines, dim.Render("    ☲ reread "+rm.Section))
			}
		}
		lines = append(lines, "")
	}

	for _, block := range s.recs.Advancement {
		lines = append(lines, lipgloss.NewStyle().Foreground(theme.Success).Bold(true).
			Render("  Push further on "+block.Concept))
		for _, t := range block.AdvancedTopics {
			lines = append(lines, dim.Render("    ◦ "+recName(t)))
		}
		lines = append(lines, "")
	}

	if n := len(lines); n > 0 && lines[n-1] == "" {
		lines = lines[:n-1]
	}
	return lines
}

func recName(c api.ConceptRecommendation) string {
	if c.Mastery > 0 {
		return fmt.Sprintf("%s (%.0f%%)", c.Name, c.Mastery*100)
	}
	return c.Name
}

func truncate(s string, max int) string {
	if max < 1 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}
