// Package logger implements spec.md §4.H: per-task log buffers with a
// serial (stream-as-it-arrives) mode and a parallel (buffer + full
// screen redraw) mode, ANSI colorization via lipgloss, and TTY
// detection via golang.org/x/term — grounded on
// runner/executor.go's TreeRenderer (term.IsTerminal, the
// "\033[%dA\033[J" clear-and-redraw escape) and
// core/pipeline.rs's PipelineLogger (task_out/task_err, is_parallel).
package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"charm.land/lipgloss/v2"
	"golang.org/x/term"
)

var (
	titleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Bold(true)
	errStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
)

type line struct {
	text  string
	isErr bool
}

// Logger accumulates per-task output lines. Create one with New; it
// starts in serial mode. Call SetParallel once a `parallel` block starts
// to switch to the buffered redraw mode spec.md describes.
type Logger struct {
	mu         sync.Mutex
	out        io.Writer
	contents   map[string][]line
	order      []string
	isParallel bool
	isTTY      bool
	lastLines  int
}

// New creates a Logger writing to out. If out is nil, it defaults to
// os.Stdout and TTY-detects against os.Stdout's file descriptor.
func New(out io.Writer) *Logger {
	if out == nil {
		out = os.Stdout
	}
	l := &Logger{
		out:      out,
		contents: map[string][]line{},
	}
	if f, ok := out.(*os.File); ok {
		l.isTTY = term.IsTerminal(int(f.Fd()))
	}
	return l
}

// SetParallel switches the logger into buffered-redraw mode. Spec.md
// §9: "auto-switch to parallel ... the first time a parallel runs;
// otherwise stream lines live."
func (l *Logger) SetParallel() {
	l.mu.Lock()
	l.isParallel = true
	l.mu.Unlock()
}

// cleanLine strips CR characters and a leading run of spaces before
// display, per spec.md §4.H.
func cleanLine(s string) string {
	s = strings.ReplaceAll(s, "\r", "")
	return strings.TrimLeft(s, " ")
}

func (l *Logger) append(task, text string, isErr bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.contents[task]; !ok {
		l.order = append(l.order, task)
	}
	prefix := "[Out]:"
	if isErr {
		prefix = "[Err]:"
	}
	l.contents[task] = append(l.contents[task], line{text: prefix + cleanLine(text), isErr: isErr})

	if l.isParallel {
		l.redrawLocked()
		return
	}
	l.emitLocked(l.contents[task][len(l.contents[task])-1])
}

func (l *Logger) emitLocked(ln line) {
	if ln.isErr {
		fmt.Fprintln(l.out, errStyle.Render(ln.text))
		return
	}
	fmt.Fprintln(l.out, ln.text)
}

// redrawLocked clears the screen (when attached to a TTY) and
// re-emits every task's buffer, titled "Running Task <name>" in green,
// matching spec.md §4.H.
func (l *Logger) redrawLocked() {
	var b strings.Builder
	if l.isTTY && l.lastLines > 0 {
		fmt.Fprintf(&b, "\033[%dA\033[J", l.lastLines)
	}
	lines := 0
	for _, task := range l.order {
		fmt.Fprintln(&b, titleStyle.Render("Running Task "+task))
		lines++
		for _, ln := range l.contents[task] {
			if ln.isErr {
				fmt.Fprintln(&b, errStyle.Render(ln.text))
			} else {
				fmt.Fprintln(&b, ln.text)
			}
			lines++
		}
	}
	l.lastLines = lines
	fmt.Fprint(l.out, b.String())
}

// TaskOut appends an stdout line under task.
func (l *Logger) TaskOut(task, text string) { l.append(task, text, false) }

// TaskErr appends an stderr line under task.
func (l *Logger) TaskErr(task, text string) { l.append(task, text, true) }

// Lines returns a copy of the accumulated lines for task, in arrival
// order, each including its [Out]:/[Err]: prefix — useful for tests.
func (l *Logger) Lines(task string) []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	lns := l.contents[task]
	out := make([]string, len(lns))
	for i, ln := range lns {
		out[i] = ln.text
	}
	return out
}
