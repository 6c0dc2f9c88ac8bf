// Package langerr implements the engine's error taxonomy and the
// ANSI-colorized diagnostic banner printed for script failures.
package langerr

import (
	"fmt"
	"strings"

	"charm.land/lipgloss/v2"

	"github.com/titpetric/kts/lang/token"
)

// Kind classifies where in the pipeline an error originated.
type Kind string

const (
	KindParse     Kind = "ParseError"
	KindResolve   Kind = "ResolveError"
	KindType      Kind = "TypeError"
	KindHost      Kind = "HostError"
	KindScheduler Kind = "SchedulerError"
)

// Error is the engine's uniform error type: a Kind, a human message,
// and an optional source Position for diagnostics.
type Error struct {
	Kind    Kind
	Message string
	Pos     *token.Position
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

func newErr(kind Kind, pos *token.Position, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Pos: pos}
}

func Parse(pos token.Position, format string, args ...interface{}) *Error {
	return newErr(KindParse, &pos, format, args...)
}

func Resolve(pos token.Position, format string, args ...interface{}) *Error {
	return newErr(KindResolve, &pos, format, args...)
}

func Type(pos token.Position, format string, args ...interface{}) *Error {
	return newErr(KindType, &pos, format, args...)
}

func Host(format string, args ...interface{}) *Error {
	return newErr(KindHost, nil, format, args...)
}

func Scheduler(format string, args ...interface{}) *Error {
	return newErr(KindScheduler, nil, format, args...)
}

// NoPos is a placeholder Position for errors raised by native
// functions, which have no source location of their own to report.
func NoPos() token.Position {
	return token.Position{}
}

// Wrap attaches a Kind and message to an existing error without
// losing the original via errors.Unwrap.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Wrapped: err}
}

var bannerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)

// Render produces the `[Error]:<kind>:<detail>` banner, plus a
// row/caret diagnostic when source and a Position are available.
func Render(err error, source []rune) string {
	le, ok := err.(*Error)
	if !ok {
		return bannerStyle.Render(fmt.Sprintf("[Error]:%v", err))
	}

	banner := bannerStyle.Render(fmt.Sprintf("[Error]:%s:%s", le.Kind, le.Message))
	if le.Pos == nil || source == nil {
		return banner
	}

	row, col := le.Pos.RowCol(source)
	caret := fmt.Sprintf("  --> line %d, col %d: %q", row+1, col+1, le.Pos.Text(source))
	lines := strings.Split(string(source), "\n")
	if row < len(lines) {
		caret += fmt.Sprintf("\n%4d | %s\n     | %s^", row+1, lines[row], strings.Repeat(" ", col))
	}
	return banner + "\n" + caret
}
