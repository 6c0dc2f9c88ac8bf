package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTaskOutSerial(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)

	l.TaskOut("build", "compiling")
	l.TaskErr("build", "warning: unused var")

	out := buf.String()
	assert.Contains(t, out, "[Out]:compiling")
	assert.Contains(t, out, "[Err]:warning: unused var")
}

func TestCleanLineStripsCRAndLeadingSpaces(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.TaskOut("t", "   indented\r")
	lines := l.Lines("t")
	if assert.Len(t, lines, 1) {
		assert.Equal(t, "[Out]:indented", lines[0])
	}
}

func TestParallelModeBuffersBothTasks(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.SetParallel()

	l.TaskOut("a", "A1")
	l.TaskOut("b", "B1")

	out := buf.String()
	assert.Contains(t, out, "Running Task a")
	assert.Contains(t, out, "Running Task b")
	assert.True(t, strings.Contains(out, "A1"))
	assert.True(t, strings.Contains(out, "B1"))
}

func TestLinesReturnsArrivalOrder(t *testing.T) {
	var buf bytes.Buffer
	l := New(&buf)
	l.TaskOut("t", "1")
	l.TaskOut("t", "2")
	l.TaskErr("t", "3")
	assert.Equal(t, []string{"[Out]:1", "[Out]:2", "[Err]:3"}, l.Lines("t"))
}
