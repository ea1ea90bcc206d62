// Package uitest provides a scripted, in-memory ui.Browser for tests.
//
// The fake does no CSS matching. Children are registered under the exact
// selector string the code under test will ask for, scoped to a parent node.
package uitest

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/DoyleJ11/showdown-bot/internal/ui"
)

type Node struct {
	Label   string
	Attrs   map[string]string
	Text    string
	Tooltip string
	OnClick func()

	mu       sync.Mutex
	children map[string][]*Node
}

// El builds a node from label and attribute key/value pairs.
func El(label string, kv ...string) *Node {
	n := &Node{Label: label, Attrs: map[string]string{}}
	for i := 0; i+1 < len(kv); i += 2 {
		n.Attrs[kv[i]] = kv[i+1]
	}
	return n
}

func (n *Node) WithText(s string) *Node    { n.Text = s; return n }
func (n *Node) WithTooltip(s string) *Node { n.Tooltip = s; return n }
func (n *Node) Do(fn func()) *Node         { n.OnClick = fn; return n }

// Put replaces the children registered under selector.
func (n *Node) Put(selector string, kids ...*Node) *Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.children == nil {
		n.children = map[string][]*Node{}
	}
	n.children[selector] = kids
	return n
}

func (n *Node) Remove(selector string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.children, selector)
}

// RemoveChild drops one child from under selector.
func (n *Node) RemoveChild(selector string, child *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()
	kids := n.children[selector]
	for i, k := range kids {
		if k == child {
			n.children[selector] = append(kids[:i:i], kids[i+1:]...)
			return
		}
	}
}

func (n *Node) lookup(selector string) []*Node {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*Node(nil), n.children[selector]...)
}

type Fake struct {
	root *Node

	mu      sync.Mutex
	hovered *Node
	clicks  []string
	typed   map[string]string
	waits   []string
	url     string

	// OnWait runs when WaitUntilReady misses, before the second look.
	OnWait func(selector string)
}

var _ ui.Browser = (*Fake)(nil)

func New() *Fake {
	return &Fake{root: El("document"), typed: map[string]string{}}
}

func (f *Fake) Root() *Node { return f.root }

func (f *Fake) Put(selector string, kids ...*Node) { f.root.Put(selector, kids...) }
func (f *Fake) Remove(selector string)             { f.root.Remove(selector) }

// Clicks lists the labels of clicked nodes in order.
func (f *Fake) Clicks() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.clicks...)
}

func (f *Fake) Typed(label string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.typed[label]
}

func (f *Fake) Waits() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.waits...)
}

func node(el ui.Element) (*Node, error) {
	n, ok := el.(*Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("uitest: %w: %T", ui.ErrStale, el)
	}
	return n, nil
}

func (f *Fake) FindOne(ctx context.Context, selector string, scope ui.Element) (ui.Element, bool) {
	all := f.FindAll(ctx, selector, scope)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

func (f *Fake) FindAll(_ context.Context, selector string, scope ui.Element) []ui.Element {
	parent := f.root
	if scope != nil {
		n, err := node(scope)
		if err != nil {
			return nil
		}
		parent = n
	}

	var found []*Node
	if selector == ui.SelTooltip && scope == nil {
		if t := f.tooltip(); t != nil {
			found = []*Node{t}
		}
	} else {
		found = parent.lookup(selector)
	}

	out := make([]ui.Element, len(found))
	for i, n := range found {
		out[i] = n
	}
	return out
}

func (f *Fake) tooltip() *Node {
	f.mu.Lock()
	h := f.hovered
	f.mu.Unlock()
	if h == nil || h.Tooltip == "" {
		return nil
	}
	return El("tooltip").Put(ui.SelTooltipTitle, El("tooltip-title").WithText(h.Tooltip))
}

func (f *Fake) WaitUntilReady(ctx context.Context, selector string, _ time.Duration) (ui.Element, bool) {
	f.mu.Lock()
	f.waits = append(f.waits, selector)
	hook := f.OnWait
	f.mu.Unlock()

	if el, ok := f.FindOne(ctx, selector, nil); ok {
		return el, true
	}
	if hook != nil {
		hook(selector)
	}
	return f.FindOne(ctx, selector, nil)
}

func (f *Fake) Click(_ context.Context, el ui.Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.clicks = append(f.clicks, n.Label)
	f.mu.Unlock()
	if n.OnClick != nil {
		n.OnClick()
	}
	return nil
}

func (f *Fake) TypeText(_ context.Context, el ui.Element, text string) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.typed[n.Label] += text
	f.mu.Unlock()
	return nil
}

func (f *Fake) SetValue(_ context.Context, el ui.Element, value string) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.typed[n.Label] = value
	f.mu.Unlock()
	return nil
}

func (f *Fake) Hover(_ context.Context, el ui.Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	f.mu.Lock()
	f.hovered = n
	f.mu.Unlock()
	return nil
}

func (f *Fake) ReadAttribute(_ context.Context, el ui.Element, name string) (string, bool) {
	n, err := node(el)
	if err != nil {
		return "", false
	}
	v, ok := n.Attrs[name]
	return v, ok
}

func (f *Fake) ReadText(_ context.Context, el ui.Element) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	return n.Text, nil
}

func (f *Fake) Navigate(_ context.Context, url string) error {
	f.mu.Lock()
	f.url = url
	f.clicks = append(f.clicks, "navigate "+url)
	f.mu.Unlock()
	return nil
}

func (f *Fake) ClearStorage(context.Context) error {
	f.mu.Lock()
	f.clicks = append(f.clicks, "clear-storage")
	f.mu.Unlock()
	return nil
}

func (f *Fake) Location(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.url, nil
}
