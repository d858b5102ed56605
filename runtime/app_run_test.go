package runtime

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/odvcencio/furry-rx/backend"
)

type fakeBackend struct {
	mu      sync.Mutex
	width   int
	height  int
	cells   map[[2]int]rune
	events  chan backend.Event
	done    chan struct{}
	closed  bool
	clears  int
	initErr error
}

func newFakeBackend(width, height int) *fakeBackend {
	return &fakeBackend{
		width:  width,
		height: height,
		cells:  make(map[[2]int]rune),
		events: make(chan backend.Event, 8),
		done:   make(chan struct{}),
	}
}

func (b *fakeBackend) Init() error { return b.initErr }

func (b *fakeBackend) Fini() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.closed {
		b.closed = true
		close(b.done)
	}
}

func (b *fakeBackend) Size() (int, int) { return b.width, b.height }

func (b *fakeBackend) SetContent(x, y int, r rune, _ []rune, _ backend.Style) {
	b.mu.Lock()
	b.cells[[2]int{x, y}] = r
	b.mu.Unlock()
}

func (b *fakeBackend) Clear() {
	b.mu.Lock()
	b.clears++
	b.cells = make(map[[2]int]rune)
	b.mu.Unlock()
}

func (b *fakeBackend) Show()       {}
func (b *fakeBackend) HideCursor() {}

func (b *fakeBackend) PollEvent() backend.Event {
	select {
	case ev := <-b.events:
		return ev
	case <-b.done:
		return nil
	}
}

func (b *fakeBackend) row(y int) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]rune, 0, b.width)
	for x := range b.width {
		out = append(out, b.cells[[2]int{x, y}])
	}
	return strings.TrimRight(string(out), " \x00")
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestApp_RunRendersRootAndHandlesKeys(t *testing.T) {
	fb := newFakeBackend(20, 3)
	st := newTestStore(0)
	app := NewApp(AppConfig{
		Backend: fb,
		Root: func(s *Scope) Element {
			return Textf("count: %d", UseSyncExternalStore[int](s, st))
		},
		KeyHandler: func(app *App, msg KeyMsg) (Command, bool) {
			switch msg.Rune {
			case '+':
				st.set(st.Snapshot() + 1)
				return nil, false
			case 'q':
				return Quit{}, false
			}
			return nil, false
		},
	})

	errs := make(chan error, 1)
	go func() { errs <- app.Run(context.Background()) }()

	waitFor(t, "first frame", func() bool { return fb.row(0) == "count: 0" })

	fb.events <- backend.KeyEvent{Key: backend.KeyRune, Rune: '+'}
	fb.events <- backend.KeyEvent{Key: backend.KeyRune, Rune: '+'}
	waitFor(t, "updated frame", func() bool { return fb.row(0) == "count: 2" })

	fb.events <- backend.KeyEvent{Key: backend.KeyRune, Rune: 'q'}
	select {
	case err := <-errs:
		if err != nil {
			t.Fatalf("expected clean exit, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("app did not quit")
	}
	if st.listenerCount() != 0 {
		t.Fatalf("expected root unmount to unsubscribe, got %d listeners", st.listenerCount())
	}
	if app.Frames() < 2 {
		t.Fatalf("expected at least 2 frames, got %d", app.Frames())
	}
}

func TestApp_RunStopsOnCancel(t *testing.T) {
	fb := newFakeBackend(10, 1)
	app := NewApp(AppConfig{
		Backend: fb,
		Root:    func(*Scope) Element { return Text("idle") },
	})
	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- app.Run(ctx) }()

	waitFor(t, "first frame", func() bool { return fb.row(0) == "idle" })
	cancel()
	select {
	case err := <-errs:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("app did not stop")
	}
}

func TestApp_RunErrors(t *testing.T) {
	if err := NewApp(AppConfig{}).Run(context.Background()); !errors.Is(err, ErrNoBackend) {
		t.Fatalf("expected ErrNoBackend, got %v", err)
	}

	fb := newFakeBackend(1, 1)
	fb.initErr = errors.New("no tty")
	err := NewApp(AppConfig{Backend: fb}).Run(context.Background())
	if err == nil || !strings.Contains(err.Error(), "init backend: no tty") {
		t.Fatalf("expected wrapped init error, got %v", err)
	}
}

func TestDefaultUpdate_ResizeAndRedraw(t *testing.T) {
	app := NewApp(AppConfig{})
	if !DefaultUpdate(app, ResizeMsg{Width: 40, Height: 10}) {
		t.Fatal("expected resize to request a render")
	}
	if app.width != 40 || app.height != 10 || !app.redraw {
		t.Fatalf("unexpected size %dx%d redraw=%v", app.width, app.height, app.redraw)
	}
	if DefaultUpdate(app, TickMsg{}) {
		t.Fatal("expected tick not to request a render")
	}
	if !DefaultUpdate(app, InvalidateMsg{}) {
		t.Fatal("expected invalidate to request a render")
	}
}

func TestDefaultUpdate_CtrlCQuits(t *testing.T) {
	app := NewApp(AppConfig{})
	app.running.Store(true)
	DefaultUpdate(app, KeyMsg{Key: backend.KeyCtrlC})
	if app.running.Load() {
		t.Fatal("expected ctrl-c to stop the app")
	}
}

func TestApp_RootWiredToQueueScheduler(t *testing.T) {
	app := NewApp(AppConfig{Root: func(*Scope) Element { return nil }})
	app.Root().Scheduler().Schedule(func() {})

	select {
	case msg := <-app.messages:
		if _, ok := msg.(QueueFlushMsg); !ok {
			t.Fatalf("expected QueueFlushMsg, got %T", msg)
		}
	default:
		t.Fatal("expected scheduling on the root to wake the app")
	}
	if app.StateQueue().Len() != 1 {
		t.Fatalf("expected the root to share the app queue, got %d", app.StateQueue().Len())
	}
}

func TestApp_EveryDeliversTicksToUpdate(t *testing.T) {
	fb := newFakeBackend(20, 1)
	st := newTestStore(0)
	app := NewApp(AppConfig{
		Backend: fb,
		Root: func(s *Scope) Element {
			return Textf("ticks: %d", UseSyncExternalStore[int](s, st))
		},
		Update: func(app *App, msg Message) bool {
			if _, ok := msg.(TickMsg); ok {
				st.set(st.Snapshot() + 1)
				return false
			}
			return DefaultUpdate(app, msg)
		},
	})
	app.Every(5*time.Millisecond, func(now time.Time) Message { return TickMsg{Time: now} })

	ctx, cancel := context.WithCancel(context.Background())
	errs := make(chan error, 1)
	go func() { errs <- app.Run(ctx) }()

	waitFor(t, "ticks on screen", func() bool { return st.Snapshot() >= 3 && fb.row(0) != "ticks: 0" })
	cancel()
	select {
	case <-errs:
	case <-time.After(time.Second):
		t.Fatal("app did not stop")
	}
}
