// Package client drives the Showdown lobby: loading the site, logging in,
// importing a team and picking a battle format. Every flow is guarded by the
// session machine so it only runs from the page it expects.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/cases"

	"github.com/DoyleJ11/showdown-bot/internal/session"
	"github.com/DoyleJ11/showdown-bot/internal/ui"
)

var ErrNotRendered = errors.New("element not rendered")
var ErrFormatNotFound = errors.New("format not offered")
var ErrPasswordRequired = errors.New("name is registered and no password was given")

type Waits struct {
	Login    time.Duration
	Password time.Duration
}

func DefaultWaits() Waits {
	return Waits{Login: 3 * time.Second, Password: 4 * time.Second}
}

type Client struct {
	b       ui.Browser
	session *session.Machine
	url     string
	waits   Waits
	release func() error
	log     *zap.Logger
}

type Option func(*Client)

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

func WithWaits(w Waits) Option {
	return func(c *Client) { c.waits = w }
}

// WithRelease sets the function Stop uses to give the browser back.
func WithRelease(fn func() error) Option {
	return func(c *Client) { c.release = fn }
}

func New(b ui.Browser, sess *session.Machine, url string, opts ...Option) *Client {
	c := &Client{
		b:       b,
		session: sess,
		url:     url,
		waits:   DefaultWaits(),
		log:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Session() *session.Machine { return c.session }

// Start loads the site with empty local storage so no earlier login or team
// leaks into this run.
func (c *Client) Start(ctx context.Context) error {
	return c.session.Do(session.OpStart, func() error {
		if err := c.b.Navigate(ctx, c.url); err != nil {
			return fmt.Errorf("start: %w", err)
		}
		if err := c.b.ClearStorage(ctx); err != nil {
			return fmt.Errorf("start: clear storage: %w", err)
		}
		c.log.Info("site loaded", zap.String("url", c.url))
		return nil
	})
}

func (c *Client) Stop(ctx context.Context) error {
	return c.session.Do(session.OpStop, func() error {
		if c.release == nil {
			return nil
		}
		return c.release()
	})
}

// Home clicks the home room tab. It is allowed from any state and is how a
// failed match is abandoned.
func (c *Client) Home(ctx context.Context) error {
	return c.session.Do(session.OpHome, func() error {
		return c.click(ctx, ui.SelHomeTab, nil)
	})
}

func (c *Client) ChooseName(ctx context.Context, username, password string) error {
	return c.session.Do(session.OpChooseName, func() error {
		login, ok := c.b.WaitUntilReady(ctx, ui.SelLogin, c.waits.Login)
		if !ok {
			return fmt.Errorf("choose name: %s: %w", ui.SelLogin, ErrNotRendered)
		}
		if err := c.b.Click(ctx, login); err != nil {
			return err
		}

		popup, ok := c.b.FindOne(ctx, ui.SelPopup, nil)
		if !ok {
			return fmt.Errorf("choose name: %s: %w", ui.SelPopup, ErrNotRendered)
		}
		if err := c.typeInto(ctx, ui.SelUsername, popup, username); err != nil {
			return fmt.Errorf("choose name: %w", err)
		}
		if err := c.click(ctx, ui.SelSubmit, popup); err != nil {
			return fmt.Errorf("choose name: %w", err)
		}

		// registered names get a second popup asking for the password
		popup, ok = c.b.WaitUntilReady(ctx, ui.SelPopup, c.waits.Password)
		if !ok {
			c.log.Info("logged in", zap.String("username", username))
			return nil
		}
		field, ok := c.b.FindOne(ctx, ui.SelPassword, popup)
		if !ok {
			c.log.Info("logged in", zap.String("username", username))
			return nil
		}
		if password == "" {
			return ErrPasswordRequired
		}
		if err := c.b.TypeText(ctx, field, password); err != nil {
			return fmt.Errorf("choose name: password: %w", err)
		}
		if err := c.click(ctx, ui.SelSubmit, popup); err != nil {
			return fmt.Errorf("choose name: %w", err)
		}
		c.log.Info("logged in", zap.String("username", username), zap.Bool("registered", true))
		return nil
	})
}

// Mute opens the sound options, ticks muted and closes them again.
func (c *Client) Mute(ctx context.Context) error {
	return c.session.Do(session.OpMute, func() error {
		opts, ok := c.b.FindOne(ctx, ui.SelSoundOptions, nil)
		if !ok {
			return fmt.Errorf("mute: %s: %w", ui.SelSoundOptions, ErrNotRendered)
		}
		if err := c.b.Click(ctx, opts); err != nil {
			return err
		}
		if err := c.click(ctx, ui.SelMuted, nil); err != nil {
			return fmt.Errorf("mute: %w", err)
		}
		return c.b.Click(ctx, opts)
	})
}

func (c *Client) OpenTeambuilder(ctx context.Context) error {
	return c.session.Do(session.OpOpenTeambuilder, func() error {
		return c.click(ctx, ui.SelTeambuilder, nil)
	})
}

// CreateTeam imports a team in exported text form. An empty name keeps the
// name the client generates.
func (c *Client) CreateTeam(ctx context.Context, text, name, format string) error {
	return c.session.Do(session.OpCreateTeam, func() error {
		if err := c.click(ctx, ui.SelNewTeam, nil); err != nil {
			return fmt.Errorf("create team: %w", err)
		}
		if err := c.selectFormat(ctx, ui.SelTeamFormatSel, format); err != nil {
			return fmt.Errorf("create team: %w", err)
		}
		if err := c.click(ctx, ui.SelImport, nil); err != nil {
			return fmt.Errorf("create team: %w", err)
		}
		if err := c.typeInto(ctx, ui.SelTeamText, nil, text); err != nil {
			return fmt.Errorf("create team: %w", err)
		}
		if name != "" {
			el, ok := c.b.FindOne(ctx, ui.SelTeamName, nil)
			if !ok {
				return fmt.Errorf("create team: %s: %w", ui.SelTeamName, ErrNotRendered)
			}
			if err := c.b.SetValue(ctx, el, name); err != nil {
				return fmt.Errorf("create team: name: %w", err)
			}
		}
		if err := c.click(ctx, ui.SelSaveImport, nil); err != nil {
			return fmt.Errorf("create team: %w", err)
		}
		if err := c.click(ctx, ui.SelBack, nil); err != nil {
			return fmt.Errorf("create team: %w", err)
		}
		c.log.Info("team imported", zap.String("name", name), zap.String("format", format))
		return nil
	})
}

func (c *Client) SelectTeamFormat(ctx context.Context, format string) error {
	return c.session.Do(session.OpSelectTeamFormat, func() error {
		return c.selectFormat(ctx, ui.SelTeamFormatSel, format)
	})
}

func (c *Client) SelectBattleFormat(ctx context.Context, format string) error {
	return c.session.Do(session.OpSelectBattleFormat, func() error {
		if group, ok := c.b.FindOne(ctx, ui.SelSearchGroup, nil); ok {
			if err := c.b.Click(ctx, group); err != nil {
				c.log.Debug("search group already expanded", zap.Error(err))
			}
		}
		if err := c.selectFormat(ctx, ui.SelFormatSelect, format); err != nil {
			return err
		}
		c.log.Info("battle format selected", zap.String("format", format))
		return nil
	})
}

// selectFormat opens the format dropdown and clicks the entry whose text
// matches format, ignoring case. When nothing matches the dropdown is closed
// again.
func (c *Client) selectFormat(ctx context.Context, dropdown, format string) error {
	dd, ok := c.b.FindOne(ctx, dropdown, nil)
	if !ok {
		return fmt.Errorf("select format: %s: %w", dropdown, ErrNotRendered)
	}
	if err := c.b.Click(ctx, dd); err != nil {
		return err
	}

	popup, ok := c.b.FindOne(ctx, ui.SelPopup, nil)
	if ok {
		for _, list := range c.b.FindAll(ctx, ui.SelList, popup) {
			for _, item := range c.b.FindAll(ctx, ui.SelListItem, list) {
				text, err := c.b.ReadText(ctx, item)
				if err != nil || !sameFormat(text, format) {
					continue
				}
				return c.b.Click(ctx, item)
			}
		}
	}

	if err := c.b.Click(ctx, dd); err != nil {
		c.log.Debug("format dropdown did not close", zap.Error(err))
	}
	return fmt.Errorf("%w: %q", ErrFormatNotFound, format)
}

func sameFormat(a, b string) bool {
	fold := cases.Fold()
	return fold.String(strings.TrimSpace(a)) == fold.String(strings.TrimSpace(b))
}

func (c *Client) click(ctx context.Context, selector string, scope ui.Element) error {
	el, ok := c.b.FindOne(ctx, selector, scope)
	if !ok {
		return fmt.Errorf("%s: %w", selector, ErrNotRendered)
	}
	return c.b.Click(ctx, el)
}

func (c *Client) typeInto(ctx context.Context, selector string, scope ui.Element, text string) error {
	el, ok := c.b.FindOne(ctx, selector, scope)
	if !ok {
		return fmt.Errorf("%s: %w", selector, ErrNotRendered)
	}
	return c.b.TypeText(ctx, el, text)
}
