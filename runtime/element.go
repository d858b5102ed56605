package runtime

import (
	"fmt"
	"strings"
)

// Component renders one mounted instance. It runs on every render of its
// scope and must call hooks in the same order each time.
type Component func(s *Scope) Element

// Element is the output of a component.
type Element interface {
	element()
}

type textElement struct {
	text string
}

func (textElement) element() {}

type groupElement struct {
	children []Element
}

func (groupElement) element() {}

type embedElement struct {
	key       string
	component Component
}

func (embedElement) element() {}

type provideElement struct {
	key      *contextKey
	value    any
	children []Element
}

func (provideElement) element() {}

// scopeElement stands in for an embedded component once it is mounted.
type scopeElement struct {
	scope *Scope
}

func (scopeElement) element() {}

// Text renders one line of text.
func Text(text string) Element {
	return textElement{text: text}
}

// Textf renders one formatted line of text.
func Textf(format string, args ...any) Element {
	return textElement{text: fmt.Sprintf(format, args...)}
}

// Group renders children in order. Nil children are skipped.
func Group(children ...Element) Element {
	return groupElement{children: children}
}

// Embed mounts c as a child component. The key identifies the child among
// its siblings; a child keeps its scope across renders as long as the same
// key is rendered.
func Embed(key string, c Component) Element {
	return embedElement{key: key, component: c}
}

// Provide binds value to ctx for every component embedded in children.
func Provide[T any](ctx *Context[T], value T, children ...Element) Element {
	return provideElement{key: ctx.key, value: value, children: children}
}

func writeLines(b *strings.Builder, el Element) {
	switch e := el.(type) {
	case nil:
	case textElement:
		b.WriteString(e.text)
		b.WriteByte('\n')
	case groupElement:
		for _, child := range e.children {
			writeLines(b, child)
		}
	case provideElement:
		for _, child := range e.children {
			writeLines(b, child)
		}
	case scopeElement:
		writeLines(b, e.scope.view)
	}
}

// Lines flattens a rendered element into its text lines.
func Lines(el Element) []string {
	var b strings.Builder
	writeLines(&b, el)
	out := strings.TrimSuffix(b.String(), "\n")
	if out == "" {
		return nil
	}
	return strings.Split(out, "\n")
}
