package output

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	"golang.org/x/term"
)

// IsTerminal reports whether f is attached to an interactive terminal.
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

func FormatBytes(bytes uint64) string {
	return humanize.IBytes(bytes)
}

func FormatSpeed(bytes int64, elapsed float64) string {
	if elapsed <= 0 || bytes <= 0 {
		return "0 B/s"
	}
	return humanize.IBytes(uint64(float64(bytes)/elapsed)) + "/s"
}

// PrintProgressBar renders a bar for current/total; an unknown total (<= 0)
// renders as an indeterminate bar.
func PrintProgressBar(current, total int64, width int) string {
	if width <= 0 {
		width = 30
	}
	if current < 0 {
		current = 0
	}
	if total <= 0 {
		bar := StyleSymbols["bullet"] + strings.Repeat(StyleSymbols["dot"], width) + StyleSymbols["bullet"]
		return debugStyle.Render(fmt.Sprintf("%s %s %s ", bar, FormatBytes(uint64(current)), StyleSymbols["bullet"]))
	}
	if current > total {
		current = total
	}
	percent := float64(current) / float64(total)
	filled := max(0, min(int(percent*float64(width)), width))
	bar := StyleSymbols["bullet"]
	bar += strings.Repeat(StyleSymbols["hline"], filled)
	if filled < width {
		bar += strings.Repeat(" ", width-filled)
	}
	bar += StyleSymbols["bullet"]
	return debugStyle.Render(fmt.Sprintf("%s %.1f%% %s ", bar, percent*100, StyleSymbols["bullet"]))
}

func getTerminalHeight() int {
	_, height, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || height <= 0 {
		return 24
	}
	return height
}

func roundElapsed(d time.Duration) string {
	return d.Round(time.Second).String()
}
