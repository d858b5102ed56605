// Package backend defines the terminal surface a runtime App draws to.
package backend

import (
	"errors"

	"github.com/gdamore/tcell/v2"
	"github.com/mattn/go-runewidth"
)

// ErrNoScreen is returned when a backend is used before Init.
var ErrNoScreen = errors.New("backend: screen not initialized")

// Style is the cell style understood by every backend.
type Style = tcell.Style

// DefaultStyle returns the terminal's default style.
func DefaultStyle() Style {
	return tcell.StyleDefault
}

// Key identifies a non-rune key.
type Key = tcell.Key

// Keys used by the runtime.
const (
	KeyRune   = tcell.KeyRune
	KeyEnter  = tcell.KeyEnter
	KeyEscape = tcell.KeyEscape
	KeyCtrlC  = tcell.KeyCtrlC
	KeyUp     = tcell.KeyUp
	KeyDown   = tcell.KeyDown
)

// Event is an input event from the terminal.
type Event interface {
	event()
}

// KeyEvent is a key press.
type KeyEvent struct {
	Key   Key
	Rune  rune
	Alt   bool
	Ctrl  bool
	Shift bool
}

func (KeyEvent) event() {}

// ResizeEvent reports a new terminal size.
type ResizeEvent struct {
	Width  int
	Height int
}

func (ResizeEvent) event() {}

// Backend is a terminal surface.
type Backend interface {
	Init() error
	Fini()
	Size() (width, height int)
	SetContent(x, y int, r rune, combining []rune, style Style)
	Clear()
	Show()
	HideCursor()
	// PollEvent blocks for the next event and returns nil once the backend
	// is finalized.
	PollEvent() Event
}

// Cell is one terminal cell. A zero Rune marks the trailing half of a wide
// rune and is not written.
type Cell struct {
	Rune  rune
	Style Style
}

// RowWriter is an optional optimization for bulk row updates.
type RowWriter interface {
	SetRow(y int, startX int, cells []Cell)
}

// RectWriter is an optional optimization for bulk rectangle updates.
// The cells slice is row-major and must have width*height entries.
type RectWriter interface {
	SetRect(x, y, width, height int, cells []Cell)
}

// TextCells lays text out in exactly width cells, truncating with "..."
// when it does not fit and padding with spaces otherwise.
func TextCells(text string, width int, style Style) []Cell {
	if width <= 0 {
		return nil
	}
	if runewidth.StringWidth(text) > width {
		text = runewidth.Truncate(text, width, "...")
	}
	cells := make([]Cell, 0, width)
	for _, r := range text {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if len(cells)+w > width {
			break
		}
		cells = append(cells, Cell{Rune: r, Style: style})
		for i := 1; i < w; i++ {
			cells = append(cells, Cell{Style: style})
		}
	}
	for len(cells) < width {
		cells = append(cells, Cell{Rune: ' ', Style: style})
	}
	return cells
}

// DrawText draws text at (x, y) within width cells.
func DrawText(b Backend, x, y, width int, text string, style Style) {
	cells := TextCells(text, width, style)
	if rw, ok := b.(RowWriter); ok {
		rw.SetRow(y, x, cells)
		return
	}
	writeCells(b, x, y, cells)
}

// Frame lays lines out in a width*height row-major cell grid.
func Frame(lines []string, width, height int, style Style) []Cell {
	if width <= 0 || height <= 0 {
		return nil
	}
	cells := make([]Cell, 0, width*height)
	for y := 0; y < height; y++ {
		line := ""
		if y < len(lines) {
			line = lines[y]
		}
		cells = append(cells, TextCells(line, width, style)...)
	}
	return cells
}

// DrawFrame writes a full frame built by Frame, using the bulk writers when
// the backend has them.
func DrawFrame(b Backend, width, height int, cells []Cell) {
	if len(cells) != width*height {
		return
	}
	if rw, ok := b.(RectWriter); ok {
		rw.SetRect(0, 0, width, height, cells)
		return
	}
	rowWriter, hasRowWriter := b.(RowWriter)
	for y := 0; y < height; y++ {
		row := cells[y*width : (y+1)*width]
		if hasRowWriter {
			rowWriter.SetRow(y, 0, row)
			continue
		}
		writeCells(b, 0, y, row)
	}
}

func writeCells(b Backend, x, y int, cells []Cell) {
	for i, cell := range cells {
		if cell.Rune == 0 {
			continue
		}
		b.SetContent(x+i, y, cell.Rune, nil, cell.Style)
	}
}
