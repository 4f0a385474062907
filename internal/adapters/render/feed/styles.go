package feed

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/hazuki-dev/vrcwatch/internal/domain"
)

type styles struct {
	title   lipgloss.Style
	online  lipgloss.Style
	busy    lipgloss.Style
	joinMe  lipgloss.Style
	away    lipgloss.Style
	neutral lipgloss.Style
	offline lipgloss.Style
	move    lipgloss.Style
	dropped lipgloss.Style
	summary lipgloss.Style
	detail  lipgloss.Style
}

func newStyles() styles {
	return styles{
		title:   lipgloss.NewStyle().Bold(true),
		online:  lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		busy:    lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		joinMe:  lipgloss.NewStyle().Foreground(lipgloss.Color("51")),
		away:    lipgloss.NewStyle().Foreground(lipgloss.Color("221")),
		neutral: lipgloss.NewStyle().Foreground(lipgloss.Color("252")),
		offline: lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
		move:    lipgloss.NewStyle().Foreground(lipgloss.Color("230")).Background(lipgloss.Color("58")),
		dropped: lipgloss.NewStyle().Foreground(lipgloss.Color("170")),
		summary: lipgloss.NewStyle().Foreground(lipgloss.Color("45")),
		detail:  lipgloss.NewStyle().Faint(true),
	}
}

func (s styles) forStatus(status string) lipgloss.Style {
	switch domain.CategorizeStatus(status) {
	case domain.CategoryOnline:
		return s.online
	case domain.CategoryBusy:
		return s.busy
	case domain.CategoryJoinMe:
		return s.joinMe
	case domain.CategoryAway:
		return s.away
	default:
		return s.neutral
	}
}
