package console

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/tvanlaerhoven/cavy-cli/internal/event"
)

// Separator marks the end of a run's output.
const Separator = "--------------------"

// Printer writes styled, newline-terminated lines. It is not safe for
// concurrent use; the coordinator is its only caller.
type Printer struct {
	w     io.Writer
	theme Theme
}

func NewPrinter(w io.Writer) *Printer {
	return &Printer{
		w:     w,
		theme: NewTheme(lipgloss.NewRenderer(w)),
	}
}

// Writer exposes the underlying writer for callers that render blocks
// (tables, markdown previews) below the run output.
func (p *Printer) Writer() io.Writer {
	return p.w
}

func (p *Printer) line(style lipgloss.Style, s string) {
	fmt.Fprintln(p.w, style.Render(s))
}

// Println writes s without styling.
func (p *Printer) Println(s string) {
	fmt.Fprintln(p.w, s)
}

// Notification prints the keep-alive line stamped with local wall-clock time.
func (p *Printer) Notification(at time.Time) {
	p.line(p.theme.Log, fmt.Sprintf("[%s] Received notification.", at.Format("3:04:05 PM")))
}

// Message prints an agent log line in the style of its level. Levels
// without a style print nothing.
func (p *Printer) Message(level event.Level, msg string) {
	var style lipgloss.Style
	switch level {
	case event.LevelLog:
		style = p.theme.Log
	case event.LevelDebug:
		style = p.theme.Debug
	case event.LevelWarn:
		style = p.theme.Warn
	case event.LevelError:
		style = p.theme.Error
	default:
		return
	}
	p.line(style, msg)
}

// Result prints "<n>) <message>" in pass or fail style.
func (p *Printer) Result(n uint, msg string, passed bool) {
	p.Outcome(fmt.Sprintf("%d) %s", n, msg), passed)
}

// Outcome prints s in pass style when passed is true, fail style otherwise.
func (p *Printer) Outcome(s string, passed bool) {
	if passed {
		p.line(p.theme.Pass, s)
		return
	}
	p.line(p.theme.Fail, s)
}

// Fatal prints s in fail style.
func (p *Printer) Fatal(s string) {
	p.line(p.theme.Fail, s)
}

func (p *Printer) Separator() {
	p.Println(Separator)
}

// CountString pluralizes noun for count: CountString(1, "failure") is
// "1 failure", any other count appends an "s".
func CountString(count int, noun string) string {
	if count != 1 {
		noun += "s"
	}
	return fmt.Sprintf("%d %s", count, noun)
}

// Summary builds "<N> examples, <M> failures".
func Summary(examples, failures int) string {
	return strings.Join([]string{
		CountString(examples, "example"),
		CountString(failures, "failure"),
	}, ", ")
}
