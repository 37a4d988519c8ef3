package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/realAndi/PWAChat/client"
	"github.com/realAndi/PWAChat/feed"
)

// theme, terminal renkleri.
type theme struct {
	timeBreak lipgloss.Style
	author    lipgloss.Style
	ownAuthor lipgloss.Style
	body      lipgloss.Style
	ownBody   lipgloss.Style
	receipt   lipgloss.Style
	status    lipgloss.Style
}

func defaultTheme() theme {
	return theme{
		timeBreak: lipgloss.NewStyle().Faint(true).Align(lipgloss.Center),
		author:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		ownAuthor: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		body:      lipgloss.NewStyle().PaddingLeft(2),
		ownBody:   lipgloss.NewStyle().PaddingLeft(2).Foreground(lipgloss.Color("10")),
		receipt:   lipgloss.NewStyle().PaddingLeft(2).Faint(true),
		status:    lipgloss.NewStyle().Faint(true).Italic(true),
	}
}

// render, türetilmiş feed'i width genişliğinde metne çevirir.
func render(snap client.Snapshot, t theme, width int) string {
	var b strings.Builder

	if snap.EndOfHistory {
		b.WriteString(t.status.Render("beginning of conversation"))
		b.WriteByte('\n')
	}

	for _, m := range snap.Messages {
		if m.ShowTimeBreak {
			b.WriteString(t.timeBreak.Width(width).Render(m.CreatedAt.Local().Format("Mon 2 Jan 2006")))
			b.WriteByte('\n')
		}

		if m.IsFirstInGroup {
			name := displayName(snap.Usernames, m)
			style := t.author
			if m.IsOwn {
				style = t.ownAuthor
			}
			b.WriteString(style.Render(name))
			b.WriteString(" ")
			b.WriteString(t.status.Render(m.CreatedAt.Local().Format("15:04")))
			b.WriteByte('\n')
		}

		body := t.body
		if m.IsOwn {
			body = t.ownBody
		}
		b.WriteString(body.Width(width).Render(m.Body))
		b.WriteByte('\n')

		if line := receiptLine(snap, m); line != "" {
			b.WriteString(t.receipt.Render(line))
			b.WriteByte('\n')
		}
	}

	footer := fmt.Sprintf("%d participants", snap.Participants)
	if snap.Unread > 0 {
		footer += fmt.Sprintf(" · %d unread", snap.Unread)
	}
	b.WriteString(t.status.Render(footer))
	b.WriteByte('\n')
	return b.String()
}

func displayName(names map[string]string, m feed.DerivedMessage) string {
	if n, ok := names[m.AuthorID]; ok && n != "" {
		return n
	}
	if m.AuthorName != "" {
		return m.AuthorName
	}
	return m.AuthorID
}

// receiptLine, yalnızca grubun son mesajında ve göstergesi bir sonraki
// mesaja devredilmemişse okundu bilgisini yazar.
func receiptLine(snap client.Snapshot, m feed.DerivedMessage) string {
	if !m.IsLastInGroup || m.ShouldHideReadIndicator {
		return ""
	}
	if m.UnreadCount == 0 {
		return "read by everyone"
	}

	var readers []string
	for _, id := range m.ReadBy.Slice() {
		if id == m.AuthorID {
			continue
		}
		if n, ok := snap.Usernames[id]; ok && n != "" {
			readers = append(readers, n)
		} else {
			readers = append(readers, id)
		}
	}
	if len(readers) == 0 {
		return fmt.Sprintf("%d unread", m.UnreadCount)
	}
	return fmt.Sprintf("seen by %s · %d unread", strings.Join(readers, ", "), m.UnreadCount)
}
