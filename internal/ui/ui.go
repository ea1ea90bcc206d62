// Package ui describes the rendered surface the bot drives. Implementations
// live elsewhere (chromedp in package browser, an in-memory fake in uitest).
//
// Nothing on the surface is guaranteed to be there when asked for. Lookups
// report absence with ok=false and callers retry on their own polling bound.
package ui

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"
)

var ErrStale = errors.New("element is no longer attached")

// Element is an opaque handle to a rendered node. A handle is only
// meaningful to the adapter that returned it.
type Element any

type Adapter interface {
	// FindOne returns the first match for selector under scope (the whole
	// document when scope is nil).
	FindOne(ctx context.Context, selector string, scope Element) (Element, bool)
	FindAll(ctx context.Context, selector string, scope Element) []Element
	// WaitUntilReady blocks up to timeout for selector to become visible.
	WaitUntilReady(ctx context.Context, selector string, timeout time.Duration) (Element, bool)
	Click(ctx context.Context, el Element) error
	TypeText(ctx context.Context, el Element, text string) error
	Hover(ctx context.Context, el Element) error
	ReadAttribute(ctx context.Context, el Element, name string) (string, bool)
	ReadText(ctx context.Context, el Element) (string, error)
}

// Browser is the page-level surface used by the lobby flows.
type Browser interface {
	Adapter
	Navigate(ctx context.Context, url string) error
	ClearStorage(ctx context.Context) error
	// SetValue replaces an input's value instead of appending to it.
	SetValue(ctx context.Context, el Element, value string) error
	Location(ctx context.Context) (string, error)
}

// Disabled reports whether a control is marked disabled, either by class
// token or by attribute.
func Disabled(ctx context.Context, a Adapter, el Element) bool {
	if class, ok := a.ReadAttribute(ctx, el, "class"); ok {
		if slices.Contains(strings.Fields(class), "disabled") {
			return true
		}
	}
	_, ok := a.ReadAttribute(ctx, el, "disabled")
	return ok
}

// FindIn looks up selector inside the first match for parent.
func FindIn(ctx context.Context, a Adapter, parent, selector string) (Element, bool) {
	scope, ok := a.FindOne(ctx, parent, nil)
	if !ok {
		return nil, false
	}
	return a.FindOne(ctx, selector, scope)
}
