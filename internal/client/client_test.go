package client

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/showdown-bot/internal/session"
	"github.com/DoyleJ11/showdown-bot/internal/ui"
	"github.com/DoyleJ11/showdown-bot/internal/ui/uitest"
)

const siteURL = "https://play.example.test/"

// lobby scripts the home page, login popups and teambuilder.
func lobby(registered bool) *uitest.Fake {
	f := uitest.New()

	f.Put(ui.SelLogin, uitest.El("login").Do(func() {
		f.Put(ui.SelPopup, uitest.El("name-popup").
			Put(ui.SelUsername, uitest.El("username")).
			Put(ui.SelSubmit, uitest.El("submit").Do(func() {
				if !registered {
					f.Remove(ui.SelPopup)
					return
				}
				f.Put(ui.SelPopup, uitest.El("password-popup").
					Put(ui.SelPassword, uitest.El("password")).
					Put(ui.SelSubmit, uitest.El("pw-submit").Do(func() { f.Remove(ui.SelPopup) })))
			})))
	}))

	f.Put(ui.SelSoundOptions, uitest.El("sounds"))
	f.Put(ui.SelMuted, uitest.El("muted"))
	f.Put(ui.SelTeambuilder, uitest.El("teambuilder"))
	f.Put(ui.SelNewTeam, uitest.El("new-team"))
	f.Put(ui.SelImport, uitest.El("import"))
	f.Put(ui.SelTeamText, uitest.El("team-text"))
	f.Put(ui.SelTeamName, uitest.El("team-name"))
	f.Put(ui.SelSaveImport, uitest.El("save-import"))
	f.Put(ui.SelBack, uitest.El("back"))
	f.Put(ui.SelHomeTab, uitest.El("home"))
	f.Put(ui.SelSearchGroup, uitest.El("search-group"))
	f.Put(ui.SelFormatSelect, dropdown(f, "format"))
	f.Put(ui.SelTeamFormatSel, dropdown(f, "team-format"))
	return f
}

// dropdown toggles a format popup with two lists.
func dropdown(f *uitest.Fake, label string) *uitest.Node {
	open := false
	closePopup := func() { f.Remove(ui.SelPopup); open = false }
	item := func(text string) *uitest.Node {
		return uitest.El("li " + text).WithText(text).Do(closePopup)
	}
	return uitest.El(label).Do(func() {
		if open {
			closePopup()
			return
		}
		open = true
		f.Put(ui.SelPopup, uitest.El("format-popup").Put(ui.SelList,
			uitest.El("ul").Put(ui.SelListItem, item("Random Battle"), item("Battle Factory")),
			uitest.El("ul").Put(ui.SelListItem, item("Ubers"), item("OU"), item("UU")),
		))
	})
}

func newClient(t *testing.T, f *uitest.Fake, opts ...Option) *Client {
	t.Helper()
	return New(f, session.NewMachine(nil), siteURL, opts...)
}

func TestSetup_FullProfile(t *testing.T) {
	f := lobby(true)
	c := newClient(t, f)

	err := c.Setup(context.Background(), Profile{
		Username: "lopunnybot",
		Password: "hunter2",
		Team:     "Lopunny @ Lopunnite\nAbility: Limber\n- Fake Out",
		TeamName: "lopunny",
		Format:   "ou",
		Mute:     true,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"navigate " + siteURL,
		"clear-storage",
		"login", "submit", "pw-submit",
		"sounds", "muted", "sounds",
		"teambuilder", "new-team", "team-format", "li OU",
		"import", "save-import", "back",
		"home",
		"search-group", "format", "li OU",
	}, f.Clicks())
	assert.Equal(t, "lopunnybot", f.Typed("username"))
	assert.Equal(t, "hunter2", f.Typed("password"))
	assert.Equal(t, "lopunny", f.Typed("team-name"))
	assert.Contains(t, f.Typed("team-text"), "Lopunnite")
	assert.Equal(t, session.StateHomepage, c.Session().State())
}

func TestSetup_MinimalProfile(t *testing.T) {
	f := lobby(false)
	c := newClient(t, f)

	require.NoError(t, c.Setup(context.Background(), Profile{Format: "Random Battle"}))
	assert.Equal(t, []string{
		"navigate " + siteURL, "clear-storage",
		"search-group", "format", "li Random Battle",
	}, f.Clicks())
}

func TestChooseName(t *testing.T) {
	tests := []struct {
		name       string
		registered bool
		password   string
		wantErr    error
		wantClicks []string
	}{
		{"unregistered", false, "", nil, []string{"login", "submit"}},
		{"unregistered ignores password", false, "secret", nil, []string{"login", "submit"}},
		{"registered", true, "secret", nil, []string{"login", "submit", "pw-submit"}},
		{"registered without password", true, "", ErrPasswordRequired, []string{"login", "submit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := lobby(tt.registered)
			c := newClient(t, f)
			require.NoError(t, c.Start(context.Background()))

			err := c.ChooseName(context.Background(), "lopunnybot", tt.password)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantClicks, f.Clicks()[2:])
			assert.Equal(t, "lopunnybot", f.Typed("username"))
			assert.Equal(t, session.StateHomepage, c.Session().State())
		})
	}
}

func TestChooseName_NoLoginButton(t *testing.T) {
	f := lobby(false)
	f.Remove(ui.SelLogin)
	c := newClient(t, f)
	require.NoError(t, c.Start(context.Background()))

	err := c.ChooseName(context.Background(), "lopunnybot", "")
	require.ErrorIs(t, err, ErrNotRendered)
}

func TestSelectBattleFormat(t *testing.T) {
	tests := []struct {
		format  string
		want    string
		wantErr error
	}{
		{format: "ou", want: "li OU"},
		{format: "  UBERS ", want: "li Ubers"},
		{format: "random battle", want: "li Random Battle"},
		{format: "monotype", wantErr: ErrFormatNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.format, func(t *testing.T) {
			f := lobby(false)
			c := newClient(t, f)
			require.NoError(t, c.Start(context.Background()))

			err := c.SelectBattleFormat(context.Background(), tt.format)
			clicks := f.Clicks()
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				// dropdown opened and closed again
				assert.Equal(t, 2, countOf(clicks, "format"))
				_, open := f.FindOne(context.Background(), ui.SelPopup, nil)
				assert.False(t, open)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, clicks[len(clicks)-1])
		})
	}
}

func TestFlowsAreGuarded(t *testing.T) {
	ctx := context.Background()
	f := lobby(false)
	c := newClient(t, f)

	// nothing but start, stop and home is allowed before the site loads
	for name, flow := range map[string]func() error{
		"choose name":   func() error { return c.ChooseName(ctx, "x", "") },
		"mute":          func() error { return c.Mute(ctx) },
		"teambuilder":   func() error { return c.OpenTeambuilder(ctx) },
		"create team":   func() error { return c.CreateTeam(ctx, "team", "", "ou") },
		"team format":   func() error { return c.SelectTeamFormat(ctx, "ou") },
		"battle format": func() error { return c.SelectBattleFormat(ctx, "ou") },
	} {
		err := flow()
		assert.ErrorIs(t, err, session.ErrStateProtocol, name)
	}
	assert.Empty(t, f.Clicks())

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.OpenTeambuilder(ctx))
	assert.ErrorIs(t, c.SelectBattleFormat(ctx, "ou"), session.ErrStateProtocol)
	require.NoError(t, c.SelectTeamFormat(ctx, "uu"))
	assert.Equal(t, session.StateTeambuilder, c.Session().State())
}

func TestHomeAndStop(t *testing.T) {
	ctx := context.Background()
	f := lobby(false)
	released := 0
	c := newClient(t, f, WithRelease(func() error { released++; return nil }))

	require.NoError(t, c.Home(ctx))
	assert.Equal(t, session.StateHomepage, c.Session().State())

	require.NoError(t, c.Stop(ctx))
	assert.Equal(t, 1, released)
	assert.Equal(t, session.StateStopped, c.Session().State())
}

func TestStop_ReleaseError(t *testing.T) {
	boom := errors.New("browser already gone")
	c := newClient(t, lobby(false), WithRelease(func() error { return boom }))
	require.NoError(t, c.Start(context.Background()))

	require.ErrorIs(t, c.Stop(context.Background()), boom)
	assert.Equal(t, session.StateHomepage, c.Session().State())
}

func countOf(xs []string, s string) int {
	n := 0
	for _, x := range xs {
		if x == s {
			n++
		}
	}
	return n
}
