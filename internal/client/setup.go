package client

import (
	"context"
	"fmt"
)

// Profile is everything needed to get from a fresh browser to a home page
// ready to search.
type Profile struct {
	Username string
	Password string
	Team     string // exported team text; empty skips the teambuilder
	TeamName string
	Format   string
	Mute     bool
}

// Setup runs the lobby flows in order: load, log in, mute, import the team,
// go home and select the battle format.
func (c *Client) Setup(ctx context.Context, p Profile) error {
	if err := c.Start(ctx); err != nil {
		return err
	}
	if p.Username != "" {
		if err := c.ChooseName(ctx, p.Username, p.Password); err != nil {
			return err
		}
	}
	if p.Mute {
		if err := c.Mute(ctx); err != nil {
			return err
		}
	}
	if p.Team != "" {
		if err := c.OpenTeambuilder(ctx); err != nil {
			return err
		}
		if err := c.CreateTeam(ctx, p.Team, p.TeamName, p.Format); err != nil {
			return err
		}
		if err := c.Home(ctx); err != nil {
			return fmt.Errorf("leave teambuilder: %w", err)
		}
	}
	return c.SelectBattleFormat(ctx, p.Format)
}
