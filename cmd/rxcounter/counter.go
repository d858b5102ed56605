package main

import (
	"time"

	"github.com/odvcencio/furry-rx/backend"
	"github.com/odvcencio/furry-rx/registry"
	"github.com/odvcencio/furry-rx/runtime"
	"github.com/odvcencio/furry-rx/rx"
	"github.com/odvcencio/furry-rx/rxui"
)

const help = "+/- change  r restamp  a auto  q quit"

// counter is the demo's state: a few handles and the registry holding them.
type counter struct {
	reg *registry.Registry

	count  rx.Writeable[int, int]
	step   rx.Writeable[int, int]
	auto   rx.Writeable[bool, bool]
	double rx.Rx[int]
	parity rx.Rx[string]
	stamp  rx.RefreshableRx[time.Time]
}

func newCounter(reg *registry.Registry, now func() time.Time) *counter {
	c := &counter{
		reg:   reg,
		count: rx.Make(0, rx.WithLabel("count")),
		step:  rx.Make(1, rx.WithLabel("step"), rx.WithKeepAlive()),
		auto:  rx.Make(false, rx.WithLabel("auto"), rx.WithKeepAlive()),
	}
	c.double = rx.Readable(func(ctx rx.Context) int {
		return rx.Get(ctx, c.count) * 2
	}, rx.WithLabel("double"))
	c.parity = rx.Readable(func(ctx rx.Context) string {
		if rx.Get(ctx, c.count)%2 == 0 {
			return "even"
		}
		return "odd"
	}, rx.WithLabel("parity"))
	c.stamp = rx.MakeRefreshable(rx.Readable(func(rx.Context) time.Time {
		return now()
	}, rx.WithLabel("stamp")))
	return c
}

// root is the component tree, bound to the counter's registry.
func (c *counter) root(*runtime.Scope) runtime.Element {
	return rxui.RegistryProvider(c.reg,
		runtime.Text("rxcounter"),
		runtime.Embed("count", c.countView),
		runtime.Embed("derived", c.derivedView),
		runtime.Embed("status", c.statusView),
		runtime.Text(help),
	)
}

func (c *counter) countView(s *runtime.Scope) runtime.Element {
	count := rxui.UseRxValue[int](s, c.count)
	step := rxui.UseRxValue[int](s, c.step)
	return runtime.Textf("count: %d (step %d)", count, step)
}

func (c *counter) derivedView(s *runtime.Scope) runtime.Element {
	double := rxui.UseRxValue(s, c.double)
	parity := rxui.UseRxValue(s, c.parity)
	return runtime.Textf("double: %d, %s", double, parity)
}

func (c *counter) statusView(s *runtime.Scope) runtime.Element {
	auto := rxui.UseRxValue[bool](s, c.auto)
	stamp := rxui.UseRxValue[time.Time](s, c.stamp)
	mode := "manual"
	if auto {
		mode = "auto"
	}
	return runtime.Textf("%s, stamped %s", mode, stamp.Format(time.TimeOnly))
}

// handleKey applies a key press to the registry. Writes re-render through
// their subscribers, so only quitting returns a command.
func (c *counter) handleKey(_ *runtime.App, msg runtime.KeyMsg) (runtime.Command, bool) {
	switch {
	case msg.Key == backend.KeyEscape, msg.Key == backend.KeyRune && msg.Rune == 'q':
		return runtime.Quit{}, false
	case msg.Key == backend.KeyUp, msg.Key == backend.KeyRune && msg.Rune == '+':
		c.increment(1)
	case msg.Key == backend.KeyDown, msg.Key == backend.KeyRune && msg.Rune == '-':
		c.increment(-1)
	case msg.Key == backend.KeyRune && msg.Rune == 'r':
		c.reg.Refresh(c.stamp)
	case msg.Key == backend.KeyRune && msg.Rune == 'a':
		registry.Update(c.reg, c.auto, func(on bool) bool { return !on })
	default:
		return nil, false
	}
	return nil, true
}

func (c *counter) increment(sign int) {
	step := registry.Get(c.reg, c.step)
	registry.Update(c.reg, c.count, func(n int) int { return n + sign*step })
}

// update runs on the app loop. Auto ticks arrive as TickMsg so their
// read-modify-write never interleaves with key presses.
func (c *counter) update(app *runtime.App, msg runtime.Message) bool {
	if tick, ok := msg.(runtime.TickMsg); ok {
		c.tick(tick.Time)
		return false
	}
	return runtime.DefaultUpdate(app, msg)
}

// tick advances the count when auto mode is on.
func (c *counter) tick(time.Time) {
	if registry.Get(c.reg, c.auto) {
		c.increment(1)
	}
}
