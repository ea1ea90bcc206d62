// Package browser implements ui.Browser on a Chrome tab driven over the
// DevTools protocol with chromedp.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/DoyleJ11/showdown-bot/internal/ui"
)

var ErrNoBox = errors.New("element has no layout box")

type Options struct {
	// RemoteURL attaches to an already running Chrome (its DevTools
	// websocket URL) instead of launching one.
	RemoteURL    string
	ExecPath     string
	Headless     bool
	Width        int
	Height       int
	QueryTimeout time.Duration // bound on every single lookup or action
	Log          *zap.Logger
}

type Browser struct {
	tab          context.Context
	cancelTab    context.CancelFunc
	cancelAlloc  context.CancelFunc
	queryTimeout time.Duration
	log          *zap.Logger
}

var _ ui.Browser = (*Browser)(nil)

// New starts (or attaches to) Chrome and opens one tab. The browser lives
// until Close, independent of ctx.
func New(ctx context.Context, o Options) (*Browser, error) {
	log := o.Log
	if log == nil {
		log = zap.NewNop()
	}
	if o.QueryTimeout <= 0 {
		o.QueryTimeout = 5 * time.Second
	}

	base := context.WithoutCancel(ctx)
	var allocCtx context.Context
	var cancelAlloc context.CancelFunc
	if o.RemoteURL != "" {
		allocCtx, cancelAlloc = chromedp.NewRemoteAllocator(base, o.RemoteURL)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", o.Headless),
			chromedp.Flag("mute-audio", true),
		)
		if o.Width > 0 && o.Height > 0 {
			opts = append(opts, chromedp.WindowSize(o.Width, o.Height))
		}
		if o.ExecPath != "" {
			opts = append(opts, chromedp.ExecPath(o.ExecPath))
		}
		allocCtx, cancelAlloc = chromedp.NewExecAllocator(base, opts...)
	}

	sugar := log.Sugar()
	tab, cancelTab := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(sugar.Debugf),
		chromedp.WithErrorf(sugar.Errorf),
	)
	b := &Browser{
		tab:          tab,
		cancelTab:    cancelTab,
		cancelAlloc:  cancelAlloc,
		queryTimeout: o.QueryTimeout,
		log:          log,
	}

	chromedp.ListenTarget(tab, func(ev any) {
		if ev, ok := ev.(*runtime.EventConsoleAPICalled); ok {
			args := make([]string, len(ev.Args))
			for i, arg := range ev.Args {
				args[i] = string(arg.Value)
			}
			log.Debug("page console", zap.String("type", string(ev.Type)), zap.String("args", strings.Join(args, " ")))
		}
	})

	// The first Run allocates the browser and is tied to the context it is
	// given, so it runs on the tab context itself rather than a bounded child.
	if err := chromedp.Run(tab); err != nil {
		return nil, multierr.Append(fmt.Errorf("start browser: %w", err), b.Close())
	}
	log.Info("browser started", zap.Bool("headless", o.Headless), zap.Bool("remote", o.RemoteURL != ""))
	return b, nil
}

// Close shuts the tab and the browser. It is safe to call more than once.
func (b *Browser) Close() error {
	var err error
	if b.tab != nil && chromedp.FromContext(b.tab).Browser != nil {
		err = multierr.Append(err, chromedp.Cancel(b.tab))
	}
	b.cancelTab()
	b.cancelAlloc()
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// run executes actions on the tab, bounded by timeout (queryTimeout when
// zero) and cancelled with the caller's ctx.
func (b *Browser) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = b.queryTimeout
	}
	tctx, cancel := context.WithTimeout(b.tab, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(tctx, actions...)
}

func node(el ui.Element) (*cdp.Node, error) {
	n, ok := el.(*cdp.Node)
	if !ok || n == nil {
		return nil, fmt.Errorf("browser: %w: %T", ui.ErrStale, el)
	}
	return n, nil
}

func ids(n *cdp.Node) []cdp.NodeID { return []cdp.NodeID{n.NodeID} }

func (b *Browser) FindOne(ctx context.Context, selector string, scope ui.Element) (ui.Element, bool) {
	all := b.FindAll(ctx, selector, scope)
	if len(all) == 0 {
		return nil, false
	}
	return all[0], true
}

func (b *Browser) FindAll(ctx context.Context, selector string, scope ui.Element) []ui.Element {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if scope != nil {
		parent, err := node(scope)
		if err != nil {
			return nil
		}
		opts = append(opts, chromedp.FromNode(parent))
	}

	var nodes []*cdp.Node
	if err := b.run(ctx, 0, chromedp.Nodes(selector, &nodes, opts...)); err != nil {
		b.log.Debug("query failed", zap.String("selector", selector), zap.Error(err))
		return nil
	}
	out := make([]ui.Element, len(nodes))
	for i, n := range nodes {
		out[i] = n
	}
	return out
}

func (b *Browser) WaitUntilReady(ctx context.Context, selector string, timeout time.Duration) (ui.Element, bool) {
	var nodes []*cdp.Node
	err := b.run(ctx, timeout, chromedp.Nodes(selector, &nodes, chromedp.ByQuery, chromedp.NodeVisible))
	if err != nil || len(nodes) == 0 {
		return nil, false
	}
	return nodes[0], true
}

func (b *Browser) Click(ctx context.Context, el ui.Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	return b.run(ctx, 0, chromedp.MouseClickNode(n))
}

func (b *Browser) TypeText(ctx context.Context, el ui.Element, text string) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	return b.run(ctx, 0, chromedp.SendKeys(ids(n), text, chromedp.ByNodeID))
}

func (b *Browser) SetValue(ctx context.Context, el ui.Element, value string) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	return b.run(ctx, 0, chromedp.SetValue(ids(n), value, chromedp.ByNodeID))
}

// Hover moves the pointer to the centre of the element's first content quad.
func (b *Browser) Hover(ctx context.Context, el ui.Element) error {
	n, err := node(el)
	if err != nil {
		return err
	}
	return b.run(ctx, 0, chromedp.ActionFunc(func(ctx context.Context) error {
		if err := dom.ScrollIntoViewIfNeeded().WithNodeID(n.NodeID).Do(ctx); err != nil {
			return err
		}
		quads, err := dom.GetContentQuads().WithNodeID(n.NodeID).Do(ctx)
		if err != nil {
			return err
		}
		x, y, ok := center(quads)
		if !ok {
			return ErrNoBox
		}
		return input.DispatchMouseEvent(input.MouseMoved, x, y).Do(ctx)
	}))
}

func center(quads []dom.Quad) (x, y float64, ok bool) {
	if len(quads) == 0 || len(quads[0]) < 8 {
		return 0, 0, false
	}
	q := quads[0]
	for i := 0; i < 8; i += 2 {
		x += q[i]
		y += q[i+1]
	}
	return x / 4, y / 4, true
}

func (b *Browser) ReadAttribute(ctx context.Context, el ui.Element, name string) (string, bool) {
	n, err := node(el)
	if err != nil {
		return "", false
	}
	var value string
	var ok bool
	if err := b.run(ctx, 0, chromedp.AttributeValue(ids(n), name, &value, &ok, chromedp.ByNodeID)); err != nil {
		return "", false
	}
	return value, ok
}

func (b *Browser) ReadText(ctx context.Context, el ui.Element) (string, error) {
	n, err := node(el)
	if err != nil {
		return "", err
	}
	var text string
	if err := b.run(ctx, 0, chromedp.Text(ids(n), &text, chromedp.ByNodeID)); err != nil {
		return "", err
	}
	return text, nil
}

// Navigate loads url and waits for the document body.
func (b *Browser) Navigate(ctx context.Context, url string) error {
	return b.run(ctx, 6*b.queryTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (b *Browser) ClearStorage(ctx context.Context) error {
	return b.run(ctx, 0, chromedp.Evaluate(`localStorage.clear()`, nil))
}

func (b *Browser) Location(ctx context.Context) (string, error) {
	var url string
	err := b.run(ctx, 0, chromedp.Location(&url))
	return url, err
}
