// Package display provides the character display used by the master node
// for prompts and state messages.
package display

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/oshokin/alarm-panel/internal/logger"
)

// Geometry of the 16x2 character LCD.
const (
	Rows    = 2
	Columns = 16
)

// Display is a fire-and-forget text surface. Nothing written is ever read back by the controller.
type Display interface {
	Clear()
	WriteAt(row, col int, text string)
}

// LCD keeps a 16x2 character buffer and redraws it to a writer after every change.
type LCD struct {
	// mu guards cells and w.
	mu sync.Mutex
	// w receives the rendered screen.
	w io.Writer
	// cells is the character buffer.
	cells [Rows][Columns]byte
}

// NewLCD creates a blank display rendering to w.
func NewLCD(w io.Writer) *LCD {
	l := &LCD{w: w}
	l.blank()

	return l
}

// Clear implements Display.
func (l *LCD) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.blank()
	l.render()
}

// WriteAt implements Display. Text past the right edge or outside the rows is dropped.
func (l *LCD) WriteAt(row, col int, text string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if row < 0 || row >= Rows || col < 0 {
		return
	}

	for i := 0; i < len(text) && col+i < Columns; i++ {
		l.cells[row][col+i] = text[i]
	}

	l.render()
}

// line returns the current contents of a row with trailing blanks removed.
func (l *LCD) line(row int) string {
	l.mu.Lock()
	defer l.mu.Unlock()

	if row < 0 || row >= Rows {
		return ""
	}

	return strings.TrimRight(string(l.cells[row][:]), " ")
}

func (l *LCD) blank() {
	for r := range l.cells {
		for c := range l.cells[r] {
			l.cells[r][c] = ' '
		}
	}
}

func (l *LCD) render() {
	if l.w == nil {
		return
	}

	border := "+" + strings.Repeat("-", Columns) + "+"

	var b strings.Builder

	b.WriteString(border + "\n")

	for r := range l.cells {
		b.WriteString("|" + string(l.cells[r][:]) + "|\n")
	}

	b.WriteString(border + "\n")

	_, _ = fmt.Fprint(l.w, b.String()) //nolint:errcheck // The display is fire-and-forget.
}

// Log writes every display call to the logger, used when the node runs headless.
type Log struct {
	ctx context.Context //nolint:containedctx // Carries the named logger only.
}

// NewLog creates a display logging through the logger stored in ctx.
func NewLog(ctx context.Context) *Log {
	return &Log{ctx: logger.WithName(ctx, "display")}
}

// Clear implements Display.
func (l *Log) Clear() {
	logger.Debug(l.ctx, "Display cleared")
}

// WriteAt implements Display.
func (l *Log) WriteAt(row, col int, text string) {
	logger.InfoKV(l.ctx, text, "row", row, "col", col)
}

// Recorder remembers every line written, for tests.
type Recorder struct {
	mu    sync.Mutex
	lines []string
}

// Clear implements Display.
func (r *Recorder) Clear() {}

// WriteAt implements Display.
func (r *Recorder) WriteAt(_, _ int, text string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.lines = append(r.lines, text)
}

// Lines returns a copy of everything written so far.
func (r *Recorder) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.lines...)
}

// Contains reports whether text was written at some point.
func (r *Recorder) Contains(text string) bool {
	for _, line := range r.Lines() {
		if strings.Contains(line, text) {
			return true
		}
	}

	return false
}
