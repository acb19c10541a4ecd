package theme

import (
	"image/color"
	"strings"

	"charm.land/lipgloss/v2"
)

// Palette is the color set for the active subject. Backends publish a theme per
// subject (primary/secondary/accent plus per-chapter colors); everything else
// keeps the studiz defaults.
type Palette struct {
	Primary   color.Color
	Secondary color.Color
	Accent    color.Color
	Success   color.Color
	Error     color.Color
	Text      color.Color
	TextDim   color.Color
	BgDark    color.Color
	BgCard    color.Color
	Border    color.Color
	Chapter   map[string]color.Color
}

// Default is the built-in palette, tuned for the biology corpus.
func Default() Palette {
	return Palette{
		Primary:   lipgloss.Color("#10B981"), // Emerald
		Secondary: lipgloss.Color("#0EA5E9"), // Sky
		Accent:    lipgloss.Color("#F59E0B"), // Amber
		Success:   lipgloss.Color("#22C55E"), // Green
		Error:     lipgloss.Color("#F43F5E"), // Rose
		Text:      lipgloss.Color("#F8FAFC"), // White
		TextDim:   lipgloss.Color("#94A3B8"), // Slate
		BgDark:    lipgloss.Color("#0F172A"), // Deep Navy
		BgCard:    lipgloss.Color("#1E293B"), // Dark Slate
		Border:    lipgloss.Color("#334155"), // Slate
	}
}

// FromColors builds a palette from a backend subject theme. Empty strings keep
// the default color; chapter colors are keyed by lowercased chapter name.
func FromColors(primary, secondary, accent string, chapters map[string]string) Palette {
	p := Default()
	if primary != "" {
		p.Primary = lipgloss.Color(primary)
	}
	if secondary != "" {
		p.Secondary = lipgloss.Color(secondary)
	}
	if accent != "" {
		p.Accent = lipgloss.Color(accent)
	}
	if len(chapters) > 0 {
		p.Chapter = make(map[string]color.Color, len(chapters))
		for name, hex := range chapters {
			p.Chapter[strings.ToLower(name)] = lipgloss.Color(hex)
		}
	}
	return p
}

// ChapterColor resolves a chapter to its theme color, falling back to the
// secondary color for chapters the theme does not name.
func (p Palette) ChapterColor(chapter string) color.Color {
	if c, ok := p.Chapter[strings.ToLower(chapter)]; ok {
		return c
	}
	return p.Secondary
}

// Active colors. Apply swaps these when the subject changes; reads happen on
// the program loop, so no locking.
var (
	Primary   color.Color
	Secondary color.Color
	Accent    color.Color
	Success   color.Color
	Error     color.Color
	Text      color.Color
	TextDim   color.Color
	BgDark    color.Color
	BgCard    color.Color
	Border    color.Color
)

// Typography
var (
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Hint     lipgloss.Style
)

// Layout
var (
	Header lipgloss.Style
	Footer lipgloss.Style
	Card   lipgloss.Style
)

// States
var (
	Selected   lipgloss.Style
	Unselected lipgloss.Style
	Correct    lipgloss.Style
	Incorrect  lipgloss.Style
)

// Components
var (
	ProgressFilled lipgloss.Style
	ProgressEmpty  lipgloss.Style
	ButtonActive   lipgloss.Style
	ButtonInactive lipgloss.Style
)

func init() {
	Apply(Default())
}

// Apply installs a palette and rebuilds every derived style.
func Apply(p Palette) {
	Primary = p.Primary
	Secondary = p.Secondary
	Accent = p.Accent
	Success = p.Success
	Error = p.Error
	Text = p.Text
	TextDim = p.TextDim
	BgDark = p.BgDark
	BgCard = p.BgCard
	Border = p.Border

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Subtitle = lipgloss.NewStyle().
		Foreground(TextDim).
		Align(lipgloss.Center)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Header = lipgloss.NewStyle().
		Background(BgCard).
		Padding(0, 2)

	Footer = lipgloss.NewStyle().
		Background(BgCard).
		Padding(0, 2)

	Card = lipgloss.NewStyle().
		Background(BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	Selected = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	Unselected = lipgloss.NewStyle().
		Foreground(Text)

	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	ProgressFilled = lipgloss.NewStyle().
		Background(Secondary)

	ProgressEmpty = lipgloss.NewStyle().
		Background(Border)

	ButtonActive = lipgloss.NewStyle().
		Background(Primary).
		Foreground(Text).
		Bold(true).
		Padding(0, 2)

	ButtonInactive = lipgloss.NewStyle().
		Background(BgCard).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 2)
}
