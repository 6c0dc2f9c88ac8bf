package eventlog

import (
	"bytes"
	"fmt"
	"os"
	"runtime"
	"strconv"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

// Logger accumulates execution events for a single run and writes them
// out as a YAML document on demand. A nil *Logger is always safe to call:
// every method is a no-op (or returns a zero value) when path was empty.
type Logger struct {
	mu       sync.Mutex
	path     string
	debug    bool
	metadata RunMetadata
	events   []*Event
	start    time.Time
}

// NewLogger creates a Logger that will write to path. If path is empty,
// NewLogger returns nil: callers invoke methods on the nil receiver and
// logging becomes a no-op.
func NewLogger(path, pipeline, file string, debug bool) *Logger {
	if path == "" {
		return nil
	}

	now := time.Now()
	l := &Logger{
		path:  path,
		debug: debug,
		start: now,
		metadata: RunMetadata{
			RunID:     newRunID(),
			CreatedAt: now,
			Pipeline:  pipeline,
			File:      file,
		},
	}
	l.metadata.ModulePath = CaptureModulePath()
	l.metadata.Git = CaptureGitInfo()
	return l
}

// LogExec records the outcome of a pipeline, step or parallel
// execution boundary.
func (l *Logger) LogExec(typ EventType, result Result, id, run string, start float64, durationMs int64, err error) {
	if l == nil {
		return
	}

	event := &Event{
		ID:       id,
		Type:     typ,
		Run:      run,
		Result:   result,
		Start:    start,
		Duration: float64(durationMs) / 1000,
	}
	if err != nil {
		event.Error = err.Error()
	}
	if l.debug {
		event.GoroutineID = getGoroutineID()
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

// LogCommand records a single host-side operation: a cmd() builtin call
// or a layout template render.
func (l *Logger) LogCommand(entry LogEntry) {
	if l == nil {
		return
	}

	event := &Event{
		ID:       entry.ID,
		Type:     entry.Type,
		ParentID: entry.ParentID,
		Command:  entry.Command,
		Dir:      entry.Dir,
		Output:   entry.Output,
		Error:    entry.Error,
		ExitCode: entry.ExitCode,
		Start:    entry.Start,
		Duration: float64(entry.DurationMs) / 1000,
	}
	if l.debug {
		event.GoroutineID = getGoroutineID()
		event.Env = entry.Env
	}

	l.mu.Lock()
	l.events = append(l.events, event)
	l.mu.Unlock()
}

// GetEvents returns a copy of the events recorded so far.
func (l *Logger) GetEvents() []*Event {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]*Event, len(l.events))
	copy(out, l.events)
	return out
}

// GetElapsed returns the number of seconds since the logger was created.
func (l *Logger) GetElapsed() float64 {
	if l == nil {
		return 0
	}
	return time.Since(l.start).Seconds()
}

// GetStartTime returns the time the logger was created.
func (l *Logger) GetStartTime() time.Time {
	if l == nil {
		return time.Time{}
	}
	return l.start
}

// Write serializes the full run log (metadata, final state tree, events
// and summary) to the logger's configured path as YAML.
func (l *Logger) Write(state *StateNode, summary *RunSummary) error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	log := Log{
		Metadata: l.metadata,
		State:    state,
		Events:   l.events,
		Summary:  summary,
	}
	l.mu.Unlock()

	data, err := yaml.Marshal(log)
	if err != nil {
		return fmt.Errorf("eventlog: marshal run log: %w", err)
	}

	if err := os.WriteFile(l.path, data, 0o644); err != nil {
		return fmt.Errorf("eventlog: write run log to %s: %w", l.path, err)
	}
	return nil
}

// newRunID returns a sortable, unique run identifier.
func newRunID() string {
	return strconv.FormatInt(time.Now().UnixNano(), 36)
}

// getGoroutineID parses the current goroutine's numeric ID out of the
// runtime stack trace. It is only used when debug logging is enabled;
// goroutine IDs are not an API the runtime guarantees, so this is
// best-effort diagnostics, never a correctness dependency.
func getGoroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	fields := bytes.Fields(buf[:n])
	if len(fields) < 2 {
		return 0
	}
	id, err := strconv.ParseUint(string(fields[1]), 10, 64)
	if err != nil {
		return 0
	}
	return id
}
