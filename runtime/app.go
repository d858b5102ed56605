package runtime

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/odvcencio/furry-rx/backend"
	"github.com/odvcencio/furry-rx/state"
)

// ErrNoBackend is returned by Run when the app has no backend.
var ErrNoBackend = errors.New("runtime: backend is required")

// UpdateFunc handles a message and returns true if a render is needed.
type UpdateFunc func(app *App, msg Message) bool

// CommandHandler handles commands the app does not know.
// Return true if the command requires a render.
type CommandHandler func(cmd Command) bool

// KeyHandler handles a key press and returns the command to execute, or
// nil. Returning handled=true marks the frame dirty.
type KeyHandler func(app *App, msg KeyMsg) (cmd Command, handled bool)

// AppConfig configures a runtime App.
type AppConfig struct {
	Backend        backend.Backend
	Root           Component
	Update         UpdateFunc
	CommandHandler CommandHandler
	KeyHandler     KeyHandler
	MessageBuffer  int
	TickRate       time.Duration
	StateQueue     *state.Queue
	FlushPolicy    QueueFlushPolicy
	Style          backend.Style
	Logger         *slog.Logger
}

// App runs a component root against a terminal backend.
type App struct {
	backend        backend.Backend
	root           *Root
	update         UpdateFunc
	commandHandler CommandHandler
	keyHandler     KeyHandler
	messages       chan Message
	tickRate       time.Duration
	stateQueue     *state.Queue
	queueScheduler *QueueScheduler
	flushPolicy    QueueFlushPolicy
	invalidator    *Invalidator
	style          backend.Style
	logger         *slog.Logger
	taskCtx        context.Context
	taskCancel     context.CancelFunc
	pendingMu      sync.Mutex
	pendingEffects []Effect

	running  atomic.Bool
	dirty    bool
	redraw   bool
	width    int
	height   int
	renderMu sync.Mutex
	frames   int64
}

// NewApp creates a new App from config. The root component is mounted on a
// Root whose queue is the app's state queue, so registry work scheduled by
// the root wakes the loop.
func NewApp(cfg AppConfig) *App {
	bufferSize := cfg.MessageBuffer
	if bufferSize <= 0 {
		bufferSize = 128
	}
	queue := cfg.StateQueue
	if queue == nil {
		queue = state.NewQueue()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	app := &App{
		backend:        cfg.Backend,
		update:         cfg.Update,
		commandHandler: cfg.CommandHandler,
		keyHandler:     cfg.KeyHandler,
		messages:       make(chan Message, bufferSize),
		tickRate:       cfg.TickRate,
		stateQueue:     queue,
		flushPolicy:    cfg.FlushPolicy,
		style:          cfg.Style,
		logger:         logger,
	}
	app.queueScheduler = NewQueueScheduler(queue, app.tryPost)
	app.invalidator = NewInvalidator(app.tryPost)
	if cfg.Root != nil {
		app.root = NewRoot(cfg.Root,
			WithStateQueue(queue),
			WithScheduler(app.queueScheduler),
			WithInvalidate(app.invalidator.Invalidate),
			WithLogger(logger),
		)
	}
	return app
}

// Root returns the component root, or nil when the app has none.
func (a *App) Root() *Root {
	if a == nil {
		return nil
	}
	return a.root
}

// StateQueue returns the app's state queue.
func (a *App) StateQueue() *state.Queue {
	if a == nil {
		return nil
	}
	return a.stateQueue
}

// StateScheduler returns a scheduler that wakes the app to flush.
func (a *App) StateScheduler() state.Scheduler {
	if a == nil || a.queueScheduler == nil {
		return nil
	}
	return a.queueScheduler
}

// Invalidate requests a render pass.
func (a *App) Invalidate() {
	if a == nil || a.invalidator == nil {
		return
	}
	a.invalidator.Invalidate()
}

// Spawn starts an effect using the app task context.
// If Run has not started, the effect is queued until start.
func (a *App) Spawn(effect Effect) {
	if a == nil || effect.Run == nil {
		return
	}
	a.pendingMu.Lock()
	if a.taskCtx == nil {
		a.pendingEffects = append(a.pendingEffects, effect)
		a.pendingMu.Unlock()
		return
	}
	a.pendingMu.Unlock()
	a.runEffect(effect)
}

// Every posts the message fn returns on each interval until the app stops.
// Handling the message in the UpdateFunc keeps writes on the app loop.
func (a *App) Every(interval time.Duration, fn func(time.Time) Message) {
	a.Spawn(Every(interval, fn))
}

// Post sends a message to the event loop.
func (a *App) Post(msg Message) {
	_ = a.tryPost(msg)
}

// TryPost sends a message to the event loop without blocking.
func (a *App) TryPost(msg Message) bool {
	return a.tryPost(msg)
}

func (a *App) tryPost(msg Message) bool {
	if a == nil || a.messages == nil {
		return false
	}
	select {
	case a.messages <- msg:
		return true
	default:
		return false
	}
}

// Frames reports how many frames have been drawn.
func (a *App) Frames() int64 {
	return atomic.LoadInt64(&a.frames)
}

// Run starts the event loop until quit or context cancellation. The root
// is unmounted when Run returns.
func (a *App) Run(ctx context.Context) error {
	if a.backend == nil {
		return ErrNoBackend
	}
	if ctx == nil {
		ctx = context.Background()
	}
	taskCtx, taskCancel := context.WithCancel(ctx)
	a.pendingMu.Lock()
	a.taskCtx = taskCtx
	a.taskCancel = taskCancel
	a.pendingMu.Unlock()
	defer func() {
		taskCancel()
		a.pendingMu.Lock()
		a.taskCtx = nil
		a.taskCancel = nil
		a.pendingMu.Unlock()
	}()
	if err := a.backend.Init(); err != nil {
		return fmt.Errorf("init backend: %w", err)
	}
	defer a.backend.Fini()
	if a.root != nil {
		defer a.root.Unmount()
	}

	a.backend.HideCursor()
	a.width, a.height = a.backend.Size()

	if a.update == nil {
		a.update = DefaultUpdate
	}

	a.running.Store(true)
	a.logger.Debug("app started", "width", a.width, "height", a.height)

	a.startPendingEffects()
	a.render()
	a.dirty = false

	go a.pollEvents()

	var ticker *time.Ticker
	var ticks <-chan time.Time
	if a.tickRate > 0 {
		ticker = time.NewTicker(a.tickRate)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for a.running.Load() {
		var msg Message
		select {
		case <-ctx.Done():
			a.running.Store(false)
			a.cancelTasks()
		case msg = <-a.messages:
			if a.update(a, msg) {
				a.dirty = true
			}
		case now := <-ticks:
			msg = TickMsg{Time: now}
			if a.update(a, msg) {
				a.dirty = true
			}
		}

		if !a.running.Load() {
			continue
		}

		if msg != nil {
			if a.flushQueueIfNeeded(msg) {
				a.dirty = true
			}
			if _, ok := msg.(InvalidateMsg); ok && a.invalidator != nil {
				a.invalidator.resetPending()
			}
		}
		if a.root != nil && a.root.Dirty() {
			a.dirty = true
		}

		if a.dirty {
			a.render()
			a.dirty = false
		}
	}

	a.logger.Debug("app stopped", "frames", a.Frames())
	return ctx.Err()
}

// DefaultUpdate handles resize, key and invalidate messages.
func DefaultUpdate(app *App, msg Message) bool {
	if app == nil {
		return false
	}

	switch m := msg.(type) {
	case ResizeMsg:
		app.width, app.height = m.Width, m.Height
		app.redraw = true
		return true
	case KeyMsg:
		if app.keyHandler != nil {
			cmd, handled := app.keyHandler(app, m)
			dirty := handled
			if cmd != nil && app.handleCommand(cmd) {
				dirty = true
			}
			if handled || cmd != nil {
				return dirty
			}
		}
		if m.Key == backend.KeyCtrlC {
			return app.handleCommand(Quit{})
		}
		return false
	case InvalidateMsg:
		return true
	default:
		return false
	}
}

func (a *App) handleCommand(cmd Command) bool {
	switch c := cmd.(type) {
	case Quit:
		a.running.Store(false)
		a.cancelTasks()
		return false
	case Redraw:
		a.redraw = true
		return true
	case SendMsg:
		if c.Message != nil {
			a.Post(c.Message)
		}
		return false
	case Effect:
		a.runEffect(c)
		return false
	default:
		if a.commandHandler != nil {
			return a.commandHandler(cmd)
		}
		return false
	}
}

// ExecuteCommand runs a command through the app handler. It must be called
// from the app loop, for example from a KeyHandler or UpdateFunc.
func (a *App) ExecuteCommand(cmd Command) bool {
	if a == nil {
		return false
	}
	return a.handleCommand(cmd)
}

func (a *App) pollEvents() {
	for a.running.Load() {
		ev := a.backend.PollEvent()
		if ev == nil {
			return
		}

		switch e := ev.(type) {
		case backend.KeyEvent:
			a.Post(KeyMsg{
				Key:   e.Key,
				Rune:  e.Rune,
				Alt:   e.Alt,
				Ctrl:  e.Ctrl,
				Shift: e.Shift,
			})
		case backend.ResizeEvent:
			a.Post(ResizeMsg{Width: e.Width, Height: e.Height})
		}
	}
}

func (a *App) render() {
	a.renderMu.Lock()
	defer a.renderMu.Unlock()

	started := time.Now()
	var lines []string
	if a.root != nil {
		a.root.Render()
		lines = a.root.Lines()
	}
	if a.redraw {
		a.backend.Clear()
		a.redraw = false
	}
	backend.DrawFrame(a.backend, a.width, a.height, backend.Frame(lines, a.width, a.height, a.style))
	a.backend.Show()
	frame := atomic.AddInt64(&a.frames, 1)
	a.logger.Debug("frame drawn", "frame", frame, "lines", len(lines), "took", time.Since(started))
}

func (a *App) taskContext() context.Context {
	a.pendingMu.Lock()
	defer a.pendingMu.Unlock()
	if a.taskCtx != nil {
		return a.taskCtx
	}
	return context.Background()
}

func (a *App) cancelTasks() {
	if a == nil {
		return
	}
	a.pendingMu.Lock()
	cancel := a.taskCancel
	a.pendingMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

func (a *App) runEffect(effect Effect) {
	if a == nil || effect.Run == nil {
		return
	}
	ctx := a.taskContext()
	go effect.Run(ctx, a.tryPost)
}

func (a *App) startPendingEffects() {
	if a == nil {
		return
	}
	a.pendingMu.Lock()
	effects := a.pendingEffects
	a.pendingEffects = nil
	a.pendingMu.Unlock()
	for _, effect := range effects {
		a.runEffect(effect)
	}
}

func (a *App) flushQueueIfNeeded(msg Message) bool {
	if a == nil || a.stateQueue == nil {
		return false
	}
	if !shouldFlushQueue(a.flushPolicy, msg) {
		return false
	}
	if a.queueScheduler != nil {
		a.queueScheduler.resetPending()
	}
	return a.stateQueue.Flush() > 0
}
