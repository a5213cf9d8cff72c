package widget

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"soon/internal/agenda"
	"soon/internal/calendar"
)

const (
	DefaultWidth = 32
	clearScreen  = "\x1b[H\x1b[2J"
)

var (
	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
	titleStyle = lipgloss.NewStyle().Bold(true)
	doneStyle  = lipgloss.NewStyle().Strikethrough(true).Faint(true)
	emptyStyle = lipgloss.NewStyle().Italic(true).Faint(true)
)

// Render draws the agenda the way the home-screen widget shows it: the date,
// then one checkbox line per todo.
func Render(a agenda.Agenda, cal calendar.Calendar, width int) string {
	if width <= 4 {
		width = DefaultWidth
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render(cal.Date(a.Date).Format("Mon, Jan 2")))
	b.WriteString("\n")

	shown := 0
	for _, td := range a.Todos {
		if td.Task == nil {
			continue
		}
		shown++
		b.WriteString("\n")
		if td.IsComplete {
			b.WriteString("[x] " + doneStyle.Render(td.Task.Name))
		} else {
			b.WriteString("[ ] " + td.Task.Name)
		}
	}
	if shown == 0 {
		b.WriteString("\n" + emptyStyle.Render("Nothing scheduled"))
	}
	return boxStyle.Width(width).Render(b.String())
}

// Follow redraws the widget for every agenda on stream until ctx is done or
// the stream closes.
func Follow(ctx context.Context, stream <-chan agenda.Agenda, cal calendar.Calendar, w io.Writer, width int) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case a, ok := <-stream:
			if !ok {
				return nil
			}
			if _, err := fmt.Fprint(w, clearScreen+Render(a, cal, width)+"\n"); err != nil {
				return err
			}
		}
	}
}
