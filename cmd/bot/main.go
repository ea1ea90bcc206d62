package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/DoyleJ11/showdown-bot/internal/battle"
	"github.com/DoyleJ11/showdown-bot/internal/browser"
	"github.com/DoyleJ11/showdown-bot/internal/client"
	"github.com/DoyleJ11/showdown-bot/internal/config"
	"github.com/DoyleJ11/showdown-bot/internal/feed"
	"github.com/DoyleJ11/showdown-bot/internal/httpapi"
	"github.com/DoyleJ11/showdown-bot/internal/logging"
	"github.com/DoyleJ11/showdown-bot/internal/match"
	"github.com/DoyleJ11/showdown-bot/internal/parser"
	"github.com/DoyleJ11/showdown-bot/internal/policy"
	"github.com/DoyleJ11/showdown-bot/internal/session"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "showdown-bot:", err)
		os.Exit(1)
	}
}

type options struct {
	envFile     string
	interactive bool
}

// parseFlags layers explicitly set flags over the environment config.
func parseFlags(args []string) (config.Config, options, error) {
	fs := flag.NewFlagSet("showdown-bot", flag.ContinueOnError)
	var o options
	fs.StringVar(&o.envFile, "env", ".env", "dotenv file to load before reading SHOWDOWN_* variables")
	fs.BoolVar(&o.interactive, "interactive", false, "ask on stdin for every decision")
	team := fs.String("team", "", "exported team file to import")
	teamName := fs.String("team-name", "", "name for the imported team")
	pol := fs.String("policy", "", "YAML policy table")
	matches := fs.Int("matches", 0, "number of matches to play")
	format := fs.String("format", "", "battle format, e.g. ou")
	listen := fs.String("listen", "", "observer HTTP address; empty disables it")
	if err := fs.Parse(args); err != nil {
		return config.Config{}, o, err
	}

	cfg, err := config.Load(o.envFile)
	if err != nil {
		return config.Config{}, o, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "team":
			cfg.TeamFile = *team
		case "team-name":
			cfg.TeamName = *teamName
		case "policy":
			cfg.Policy = *pol
		case "matches":
			cfg.Matches = *matches
		case "format":
			cfg.Format = *format
		case "listen":
			cfg.ListenAddr = *listen
		}
	})
	return cfg, o, cfg.Validate()
}

func buildPolicy(cfg config.Config, o options) (battle.Policy, error) {
	switch {
	case o.interactive:
		return policy.NewInteractive(os.Stdin, os.Stdout), nil
	case cfg.Policy != "":
		return policy.LoadTable(cfg.Policy)
	default:
		return nil, errors.New("no policy: pass -policy or -interactive")
	}
}

func profile(cfg config.Config) (client.Profile, error) {
	p := client.Profile{
		Username: cfg.Username,
		Password: cfg.Password,
		TeamName: cfg.TeamName,
		Format:   cfg.Format,
		Mute:     cfg.Mute,
	}
	if cfg.TeamFile != "" {
		data, err := os.ReadFile(cfg.TeamFile)
		if err != nil {
			return p, fmt.Errorf("read team: %w", err)
		}
		p.Team = string(data)
	}
	return p, nil
}

func run() (err error) {
	cfg, o, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return nil
		}
		return err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	pol, err := buildPolicy(cfg, o)
	if err != nil {
		return err
	}
	prof, err := profile(cfg)
	if err != nil {
		return err
	}

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()

	f := feed.New(runCtx)
	sess := session.NewMachine(log.Named("session"))
	sess.OnChange(func(op session.Op, from, to session.State) {
		f.Publish(feed.Event{Type: feed.EvtSessionChanged, Session: string(to)})
	})

	b, err := browser.New(runCtx, browser.Options{
		RemoteURL:    cfg.ChromeURL,
		ExecPath:     cfg.ChromePath,
		Headless:     cfg.Headless,
		Width:        1280,
		Height:       900,
		QueryTimeout: cfg.QueryTimeout,
		Log:          log.Named("browser"),
	})
	if err != nil {
		return err
	}
	cl := client.New(b, sess, cfg.URL,
		client.WithLogger(log.Named("client")),
		client.WithWaits(cfg.Waits()),
		client.WithRelease(b.Close),
	)
	defer func() {
		err = multierr.Append(err, cl.Stop(context.Background()))
	}()

	ctl := match.NewController(b, sess, parser.New(log.Named("parser")), pol,
		match.WithLogger(log.Named("match")),
		match.WithTiming(cfg.Timing()),
		match.WithPublisher(f),
	)
	runner := match.NewRunner(ctl, sess, cl, log.Named("runner"))

	go watchSignals(runCtx, runner, cancelRun, log)

	g, gctx := errgroup.WithContext(runCtx)
	serveCtx, stopServe := context.WithCancel(gctx)
	defer stopServe()

	g.Go(func() error {
		defer stopServe()
		if err := cl.Setup(gctx, prof); err != nil {
			return fmt.Errorf("setup: %w", err)
		}
		sum, err := runner.Run(gctx, cfg.Matches)
		log.Info("run finished",
			zap.Int("attempted", sum.Attempted),
			zap.Int("completed", sum.Completed),
			zap.Int("start_timeouts", sum.StartTimeouts),
			zap.Int("failed", sum.Failed),
			zap.String("policy", pol.Name()),
		)
		return err
	})

	if cfg.ListenAddr != "" {
		srv := &http.Server{
			Addr:              cfg.ListenAddr,
			Handler:           httpapi.SetupRoutes(f, runner, log.Named("http")),
			ReadHeaderTimeout: 5 * time.Second,
		}
		g.Go(func() error {
			log.Info("observer surface listening", zap.String("addr", cfg.ListenAddr))
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		})
		g.Go(func() error {
			<-serveCtx.Done()
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		})
	}

	err = g.Wait()
	if errors.Is(err, context.Canceled) {
		log.Warn("run aborted")
		return nil
	}
	return err
}

// watchSignals turns the first interrupt into a stop request so the current
// match is left cleanly, and a second one into a hard cancel.
func watchSignals(ctx context.Context, r *match.Runner, cancel context.CancelFunc, log *zap.Logger) {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigs)

	select {
	case s := <-sigs:
		log.Info("signal received, finishing current cycle", zap.Stringer("signal", s))
		r.RequestStop()
	case <-ctx.Done():
		return
	}
	select {
	case s := <-sigs:
		log.Warn("second signal, aborting", zap.Stringer("signal", s))
		cancel()
	case <-ctx.Done():
	}
}
