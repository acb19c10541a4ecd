package chat

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"

	"github.com/abhisek/studiz/internal/stream"
	"github.com/abhisek/studiz/internal/ui/theme"
)

// markdownRenderer wraps glamour, rebuilt whenever the wrap width changes.
// Render failures fall back to the raw text.
type markdownRenderer struct {
	r     *glamour.TermRenderer
	width int
}

func (m *markdownRenderer) render(text string, width int) string {
	if m.r == nil || m.width != width {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		m.r = r
		m.width = width
	}
	out, err := m.r.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

func (c *ChatScreen) View(width, height int) string {
	inputLine := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true).
		Render("  ❯ ") + c.input.View()
	statusLine := c.renderStatusLine(width)

	transcriptH := height - 3
	if transcriptH < 1 {
		transcriptH = 1
	}

	body := c.renderTranscript(width)
	lines := strings.Split(body, "\n")

	maxScroll := len(lines) - transcriptH
	if maxScroll < 0 {
		maxScroll = 0
	}
	if c.scroll > maxScroll {
		c.scroll = maxScroll
	}

	start := len(lines) - transcriptH - c.scroll
	if start < 0 {
		start = 0
	}
	end := start + transcriptH
	if end > len(lines) {
		end = len(lines)
	}
	visible := strings.Join(lines[start:end], "\n")

	pad := transcriptH - (end - start)
	if pad > 0 {
		visible += strings.Repeat("\n", pad)
	}

	return visible + "\n" + statusLine + "\n" + inputLine
}

// renderTranscript lays out finished exchanges followed by the live session.
func (c *ChatScreen) renderTranscript(width int) string {
	wrap := width - 6
	if wrap < 20 {
		wrap = 20
	}

	var blocks []string
	for i := range c.exchanges {
		blocks = append(blocks, c.renderExchange(&c.exchanges[i], i == len(c.exchanges)-1, wrap))
	}

	if live := c.renderLive(wrap); live != "" {
		blocks = append(blocks, live)
	}

	if len(blocks) == 0 {
		return c.renderEmpty(width)
	}

	return strings.Join(blocks, "\n\n")
}

func (c *ChatScreen) renderExchange(ex *exchange, last bool, wrap int) string {
	var b strings.Builder
	b.WriteString(renderQuestion(ex.question))
	b.WriteString("\n")

	if ex.answer != "" {
		if ex.rendered == "" || ex.renderedW != wrap {
			ex.rendered = c.mdRenderer.render(ex.answer, wrap)
			ex.renderedW = wrap
		}
		b.WriteString(ex.rendered)
		b.WriteString("\n")
	}

	switch {
	case ex.errMsg != "":
		b.WriteString(lipgloss.NewStyle().
			Foreground(theme.Error).
			Render("  ✗ " + ex.errMsg))
		b.WriteString("\n")
	case ex.aborted:
		b.WriteString(lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Italic(true).
			Render("  ▪ stopped"))
		b.WriteString("\n")
	}

	if last && c.showMeta && ex.meta != nil {
		b.WriteString(renderSources(ex.meta, wrap))
	}

	return strings.TrimRight(b.String(), "\n")
}

// renderLive shows the in-flight session: the question, then either a
// thinking marker or the tokens received so far, unrendered. Markdown waits
// for the full answer.
func (c *ChatScreen) renderLive(wrap int) string {
	s := c.controller.Active()
	if s == nil || s.Status().Terminal() {
		return ""
	}

	var b strings.Builder
	b.WriteString(renderQuestion(s.Question()))
	b.WriteString("\n")

	if s.Status() == stream.StatusThinking {
		b.WriteString(lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Italic(true).
			Render("  thinking..."))
		return b.String()
	}

	answer := s.Answer() + "▍"
	b.WriteString(lipgloss.NewStyle().
		Width(wrap).
		Foreground(theme.Text).
		PaddingLeft(2).
		Render(answer))
	return b.String()
}

func (c *ChatScreen) renderEmpty(width int) string {
	hint := "Ask your first question about " + c.cfg.Subject + "."
	if last := c.state.Get().LastQuery; last != "" {
		hint += "\nLast time you asked: " + last
	}
	return lipgloss.NewStyle().
		Width(width).
		Align(lipgloss.Center).
		Foreground(theme.TextDim).
		Render("\n\n" + hint)
}

func (c *ChatScreen) renderStatusLine(width int) string {
	var status string
	switch {
	case c.streamActive():
		status = "streaming..."
	case len(c.exchanges) > 0:
		ex := c.exchanges[len(c.exchanges)-1]
		if ex.meta != nil {
			status = fmt.Sprintf("%s · %d passages retrieved · ctrl+s for sources",
				ex.meta.Model, ex.meta.RetrievedCount)
		}
	}
	return lipgloss.NewStyle().
		Foreground(theme.TextDim).
		Render("  " + status)
}

func renderQuestion(q string) string {
	return lipgloss.NewStyle().
		Foreground(theme.Secondary).
		Bold(true).
		Render("  ❯ " + q)
}

func renderSources(md *stream.Metadata, wrap int) string {
	var b strings.Builder
	b.WriteString(lipgloss.NewStyle().
		Foreground(theme.Accent).
		Bold(true).
		Render("  Sources"))
	b.WriteString("\n")

	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	for i, src := range md.Sources {
		title := src.ModuleTitle
		if title == "" {
			title = "passage"
		}
		line := fmt.Sprintf("  %d. %s", i+1, title)
		if src.Section != "" {
			line += " · " + src.Section
		}
		line += fmt.Sprintf("  (%.2f)", src.Score)
		b.WriteString(dim.Render(line))
		b.WriteString("\n")
	}

	if len(md.ExpandedConcepts) > 0 {
		b.WriteString(dim.Render("  Related: " + strings.Join(md.ExpandedConcepts, ", ")))
		b.WriteString("\n")
	}
	if md.Attribution != "" {
		attr := md.Attribution
		if wrap > 4 && len(attr) > wrap {
			attr = attr[:wrap-1] + "…"
		}
		b.WriteString(lipgloss.NewStyle().
			Foreground(theme.TextDim).
			Italic(true).
			Render("  " + attr))
		b.WriteString("\n")
	}
	return b.String()
}
