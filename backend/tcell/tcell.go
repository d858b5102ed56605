// Package tcell implements backend.Backend on a tcell screen.
package tcell

import (
	"fmt"
	"sync"

	gotcell "github.com/gdamore/tcell/v2"

	"github.com/odvcencio/furry-rx/backend"
)

// Backend draws to a tcell screen.
type Backend struct {
	mu     sync.Mutex
	screen gotcell.Screen
	newFn  func() (gotcell.Screen, error)
	ready  bool
}

var (
	_ backend.Backend    = (*Backend)(nil)
	_ backend.RowWriter  = (*Backend)(nil)
	_ backend.RectWriter = (*Backend)(nil)
)

// New returns a backend for the controlling terminal. The screen is created
// by Init.
func New() (*Backend, error) {
	return &Backend{newFn: gotcell.NewScreen}, nil
}

// NewWithScreen wraps an existing screen, such as a simulation screen.
func NewWithScreen(screen gotcell.Screen) *Backend {
	return &Backend{screen: screen}
}

// Init creates and initializes the screen.
func (b *Backend) Init() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.screen == nil {
		if b.newFn == nil {
			return backend.ErrNoScreen
		}
		screen, err := b.newFn()
		if err != nil {
			return fmt.Errorf("create screen: %w", err)
		}
		b.screen = screen
	}
	if err := b.screen.Init(); err != nil {
		return fmt.Errorf("init screen: %w", err)
	}
	b.ready = true
	return nil
}

// Fini restores the terminal.
func (b *Backend) Fini() {
	b.mu.Lock()
	screen, ready := b.screen, b.ready
	b.ready = false
	b.mu.Unlock()
	if ready {
		screen.Fini()
	}
}

func (b *Backend) active() gotcell.Screen {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.ready {
		return nil
	}
	return b.screen
}

// Size returns the screen size, or zero before Init.
func (b *Backend) Size() (int, int) {
	if screen := b.active(); screen != nil {
		return screen.Size()
	}
	return 0, 0
}

// SetContent sets one cell.
func (b *Backend) SetContent(x, y int, r rune, combining []rune, style backend.Style) {
	if screen := b.active(); screen != nil {
		screen.SetContent(x, y, r, combining, style)
	}
}

// SetRow writes cells starting at (startX, y).
func (b *Backend) SetRow(y int, startX int, cells []backend.Cell) {
	screen := b.active()
	if screen == nil {
		return
	}
	for i, cell := range cells {
		if cell.Rune == 0 {
			continue
		}
		screen.SetContent(startX+i, y, cell.Rune, nil, cell.Style)
	}
}

// SetRect writes a row-major block of cells.
func (b *Backend) SetRect(x, y, width, height int, cells []backend.Cell) {
	if width <= 0 || len(cells) < width*height {
		return
	}
	for row := 0; row < height; row++ {
		b.SetRow(y+row, x, cells[row*width:(row+1)*width])
	}
}

// Clear blanks the screen.
func (b *Backend) Clear() {
	if screen := b.active(); screen != nil {
		screen.Clear()
	}
}

// Show flushes pending changes to the terminal.
func (b *Backend) Show() {
	if screen := b.active(); screen != nil {
		screen.Show()
	}
}

// HideCursor hides the terminal cursor.
func (b *Backend) HideCursor() {
	if screen := b.active(); screen != nil {
		screen.HideCursor()
	}
}

// PollEvent waits for the next key or resize event. Other tcell events
// are skipped. It returns nil once the screen is finalized.
func (b *Backend) PollEvent() backend.Event {
	b.mu.Lock()
	screen := b.screen
	b.mu.Unlock()
	if screen == nil {
		return nil
	}
	for {
		ev := screen.PollEvent()
		if ev == nil {
			return nil
		}
		if translated := translate(ev); translated != nil {
			return translated
		}
	}
}

func translate(ev gotcell.Event) backend.Event {
	switch e := ev.(type) {
	case *gotcell.EventKey:
		mods := e.Modifiers()
		return backend.KeyEvent{
			Key:   e.Key(),
			Rune:  e.Rune(),
			Alt:   mods&gotcell.ModAlt != 0,
			Ctrl:  mods&gotcell.ModCtrl != 0,
			Shift: mods&gotcell.ModShift != 0,
		}
	case *gotcell.EventResize:
		w, h := e.Size()
		return backend.ResizeEvent{Width: w, Height: h}
	default:
		return nil
	}
}
