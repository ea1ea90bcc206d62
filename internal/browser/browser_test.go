package browser

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/chromedp/cdproto/dom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/DoyleJ11/showdown-bot/internal/ui"
)

func TestCenter(t *testing.T) {
	x, y, ok := center([]dom.Quad{{10, 20, 30, 20, 30, 40, 10, 40}})
	require.True(t, ok)
	assert.Equal(t, 20.0, x)
	assert.Equal(t, 30.0, y)

	_, _, ok = center(nil)
	assert.False(t, ok)
	_, _, ok = center([]dom.Quad{{1, 2}})
	assert.False(t, ok)
}

func TestNodeRejectsForeignHandles(t *testing.T) {
	_, err := node("not a node")
	require.ErrorIs(t, err, ui.ErrStale)
	_, err = node(nil)
	require.ErrorIs(t, err, ui.ErrStale)
}

const page = `<!doctype html>
<html><body>
<div class="battle-controls">
  <div class="movemenu">
    <button name="chooseMove" data-move="tackle">Tackle</button>
    <button name="chooseMove" data-move="growl" class="disabled">Growl</button>
  </div>
</div>
<input class="teamnameedit" value="Untitled 1">
<button name="login" onclick="document.getElementById('out').textContent='clicked'">Choose name</button>
<span id="out"></span>
</body></html>`

// TestBrowser drives a real Chrome. Set SHOWDOWN_TEST_CHROME=1 (or to a
// DevTools websocket URL to attach to a running instance).
func TestBrowser(t *testing.T) {
	mode := os.Getenv("SHOWDOWN_TEST_CHROME")
	if mode == "" {
		t.Skip("SHOWDOWN_TEST_CHROME not set")
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		_, _ = w.Write([]byte(page))
	}))
	defer srv.Close()

	o := Options{Headless: true, QueryTimeout: 10 * time.Second, Log: zaptest.NewLogger(t)}
	if mode != "1" {
		o.RemoteURL = mode
	}
	ctx := context.Background()
	b, err := New(ctx, o)
	require.NoError(t, err)
	defer func() { assert.NoError(t, b.Close()) }()

	require.NoError(t, b.Navigate(ctx, srv.URL))
	require.NoError(t, b.ClearStorage(ctx))
	loc, err := b.Location(ctx)
	require.NoError(t, err)
	assert.Contains(t, loc, srv.URL)

	controls, ok := b.WaitUntilReady(ctx, ui.SelControls, time.Second)
	require.True(t, ok)
	buttons := b.FindAll(ctx, ui.SelButton, controls)
	require.Len(t, buttons, 2)
	code, ok := b.ReadAttribute(ctx, buttons[0], ui.AttrMoveCode)
	assert.True(t, ok)
	assert.Equal(t, "tackle", code)
	assert.False(t, ui.Disabled(ctx, b, buttons[0]))
	assert.True(t, ui.Disabled(ctx, b, buttons[1]))

	_, ok = b.FindOne(ctx, ui.SelSwitchMenu, nil)
	assert.False(t, ok)
	_, ok = b.WaitUntilReady(ctx, ui.SelSwitchMenu, 200*time.Millisecond)
	assert.False(t, ok)

	login, ok := b.FindOne(ctx, ui.SelLogin, nil)
	require.True(t, ok)
	require.NoError(t, b.Hover(ctx, login))
	require.NoError(t, b.Click(ctx, login))
	out, ok := b.FindOne(ctx, "#out", nil)
	require.True(t, ok)
	text, err := b.ReadText(ctx, out)
	require.NoError(t, err)
	assert.Equal(t, "clicked", text)

	name, ok := b.FindOne(ctx, ui.SelTeamName, nil)
	require.True(t, ok)
	require.NoError(t, b.SetValue(ctx, name, "lopunny"))
	v, ok := b.ReadAttribute(ctx, name, "value")
	assert.True(t, ok)
	assert.NotEmpty(t, v)
}
