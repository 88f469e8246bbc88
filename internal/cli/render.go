package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"holidayd/internal/reminder"
)

var boxStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#FF8C00")).
	Padding(0, 1)

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// renderPopup prints the week view. Terminals get a bordered box.
func renderPopup(w io.Writer, v reminder.PopupView) {
	var b strings.Builder
	b.WriteString(Bold("🗓  Holidays This Week") + "\n")
	b.WriteString(Silent(v.Week) + "\n")
	b.WriteString(Silent(fmt.Sprintf("Region: %s (%s)", v.Region, v.Origin)) + "\n\n")

	if len(v.Holidays) == 0 {
		msg := Primary(v.Message)
		if v.Unavailable {
			msg = Error(v.Message)
		}
		b.WriteString(msg + "\n")
		if v.Detail != "" {
			b.WriteString(Silent(v.Detail) + "\n")
		}
	} else {
		width := 0
		for _, h := range v.Holidays {
			width = max(width, lipgloss.Width(h.Name))
		}
		for _, h := range v.Holidays {
			pad := strings.Repeat(" ", width-lipgloss.Width(h.Name))
			b.WriteString(fmt.Sprintf("• %s%s  %s\n", Primary(h.Name), pad, Info(h.When)))
		}
	}

	out := strings.TrimRight(b.String(), "\n")
	if isTTY(w) {
		out = boxStyle.Render(out)
	}
	_, _ = fmt.Fprintln(w, out)
}
