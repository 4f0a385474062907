// Package feed renders the startup snapshot and live event lines for the
// terminal.
package feed

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/hazuki-dev/vrcwatch/internal/domain"
)

// SnapshotEntry is one resolved row of the startup snapshot.
type SnapshotEntry struct {
	Friend   domain.FriendRecord
	Location string // already resolved to a world name or sentinel
}

// Snapshot renders the full startup listing: header, one colored line per
// entry, drop count when non-zero, and a summary.
func Snapshot(entries []SnapshotEntry, total, dropped, targets int) string {
	s := newStyles()
	lines := []string{s.title.Render("---- Initial Snapshot ----")}

	for _, e := range entries {
		status := e.Friend.Status
		if status == "" {
			status = string(domain.StatusUnknown)
		}
		line := fmt.Sprintf("%s (%s) status=%s location=%s",
			e.Friend.DisplayName, e.Friend.ID, status, e.Location)
		lines = append(lines, s.forStatus(status).Render(line))
	}

	if dropped > 0 {
		lines = append(lines, s.dropped.Render(fmt.Sprintf("[SNAPSHOT] dropped: %d", dropped)))
	}
	lines = append(lines, s.summary.Render(
		fmt.Sprintf("[SNAPSHOT] friends=%d targets=%d", total, targets)))

	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func OnlineLine(name, id string) string {
	s := newStyles()
	return s.online.Render(fmt.Sprintf("[ONLINE] %s (%s)", name, id))
}

func OfflineLine(name, id string) string {
	s := newStyles()
	return s.offline.Render(fmt.Sprintf("[OFFLINE] %s (%s)", name, id))
}

func MoveLine(name, id, world string) string {
	s := newStyles()
	return s.move.Render(fmt.Sprintf("[MOVE] %s (%s) -> %s", name, id, world))
}

// UpdateLine colors the status token by its category; the free-form
// description rides along faintly when present.
func UpdateLine(name, id, status, description string) string {
	s := newStyles()
	if status == "" {
		status = string(domain.StatusUnknown)
	}
	line := lipgloss.JoinHorizontal(
		lipgloss.Top,
		s.move.Render("[UPDATE]"),
		" ",
		s.neutral.Render(fmt.Sprintf("%s (%s)", name, id)),
		" ",
		s.forStatus(status).Render("status="+status),
	)
	if description != "" {
		line += " " + s.detail.Render("desc="+description)
	}
	return line
}
