package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/DoyleJ11/showdown-bot/internal/client"
	"github.com/DoyleJ11/showdown-bot/internal/match"
)

// Config is read from SHOWDOWN_* environment variables, optionally seeded
// from a .env file. Command-line flags override it in cmd/bot.
type Config struct {
	URL      string `env:"URL"      envDefault:"https://play.pokemonshowdown.com/"`
	Username string `env:"USERNAME"`
	Password string `env:"PASSWORD"`
	Format   string `env:"FORMAT"   envDefault:"ou"`
	TeamFile string `env:"TEAM_FILE"`
	TeamName string `env:"TEAM_NAME"`
	Policy   string `env:"POLICY_FILE"`
	Matches  int    `env:"MATCHES"  envDefault:"1"`
	Mute     bool   `env:"MUTE"     envDefault:"true"`

	Headless     bool          `env:"HEADLESS"      envDefault:"true"`
	ChromeURL    string        `env:"CHROME_URL"`
	ChromePath   string        `env:"CHROME_PATH"`
	QueryTimeout time.Duration `env:"QUERY_TIMEOUT" envDefault:"5s"`

	ListenAddr string `env:"LISTEN_ADDR"` // observer HTTP surface; off when empty
	LogLevel   string `env:"LOG_LEVEL"   envDefault:"info"`
	LogFormat  string `env:"LOG_FORMAT"  envDefault:"json"`

	SearchButtonTimeout time.Duration `env:"SEARCH_BUTTON_TIMEOUT" envDefault:"5s"`
	SearchTimeout       time.Duration `env:"SEARCH_TIMEOUT"        envDefault:"60s"`
	TurnPoll            time.Duration `env:"TURN_POLL"             envDefault:"1s"`
	EffectTimeout       time.Duration `env:"EFFECT_TIMEOUT"        envDefault:"10s"`
	OverlayTimeout      time.Duration `env:"OVERLAY_TIMEOUT"       envDefault:"60s"`
	PollInterval        time.Duration `env:"POLL_INTERVAL"         envDefault:"250ms"`
	MaxDismissals       int           `env:"MAX_DISMISSALS"        envDefault:"20"`
	LoginWait           time.Duration `env:"LOGIN_WAIT"            envDefault:"3s"`
	PasswordWait        time.Duration `env:"PASSWORD_WAIT"         envDefault:"4s"`
}

const Prefix = "SHOWDOWN_"

var ErrInvalid = errors.New("invalid config")

// Load reads files (default ".env") into the environment without overriding
// variables already set, then parses the environment. Missing files are
// ignored.
func Load(files ...string) (Config, error) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, os.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", f, err)
		}
	}
	return Parse()
}

// Parse reads the environment only.
func Parse() (Config, error) {
	cfg, err := env.ParseAsWithOptions[Config](env.Options{Prefix: Prefix})
	if err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	switch {
	case c.URL == "":
		return fmt.Errorf("%w: url is empty", ErrInvalid)
	case c.Format == "":
		return fmt.Errorf("%w: format is empty", ErrInvalid)
	case c.Matches < 0:
		return fmt.Errorf("%w: matches must not be negative", ErrInvalid)
	case c.MaxDismissals < 1:
		return fmt.Errorf("%w: max dismissals must be at least 1", ErrInvalid)
	}
	for name, d := range map[string]time.Duration{
		"query timeout":  c.QueryTimeout,
		"search timeout": c.SearchTimeout,
		"turn poll":      c.TurnPoll,
		"poll interval":  c.PollInterval,
	} {
		if d <= 0 {
			return fmt.Errorf("%w: %s must be positive", ErrInvalid, name)
		}
	}
	return nil
}

func (c Config) Timing() match.Timing {
	return match.Timing{
		SearchButton:  c.SearchButtonTimeout,
		Search:        c.SearchTimeout,
		TurnPoll:      c.TurnPoll,
		Effect:        c.EffectTimeout,
		Overlay:       c.OverlayTimeout,
		PollInterval:  c.PollInterval,
		MaxDismissals: c.MaxDismissals,
	}
}

func (c Config) Waits() client.Waits {
	return client.Waits{Login: c.LoginWait, Password: c.PasswordWait}
}
