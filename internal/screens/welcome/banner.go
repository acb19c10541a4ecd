package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/studiz/internal/ui/theme"
)

const bannerArt = `
 ███████╗████████╗██╗   ██╗██████╗ ██╗███████╗
 ██╔════╝╚══██╔══╝██║   ██║██╔══██╗██║╚══███╔╝
 ███████╗   ██║   ██║   ██║██║  ██║██║  ███╔╝
 ╚════██║   ██║   ██║   ██║██║  ██║██║ ███╔╝
 ███████║   ██║   ╚██████╔╝██████╔╝██║███████╗
 ╚══════╝   ╚═╝    ╚═════╝ ╚═════╝ ╚═╝╚══════╝`

const bannerCompact = "S T U D I Z"

// RenderBanner returns the STUDIZ banner styled in the primary color.
// Uses a compact fallback for terminals narrower than 50 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 50 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
