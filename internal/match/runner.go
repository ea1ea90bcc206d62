package match

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/DoyleJ11/showdown-bot/internal/session"
)

// Homer returns the client to the home page after a failed match.
type Homer interface {
	Home(ctx context.Context) error
}

type Summary struct {
	Attempted     int
	Completed     int
	StartTimeouts int
	Failed        int
	Results       []Result
}

func (s *Summary) record(r Result) {
	s.Attempted++
	switch r.Outcome {
	case OutcomeCompleted:
		s.Completed++
	case OutcomeStartTimeout:
		s.StartTimeouts++
	case OutcomeFailed:
		s.Failed++
	}
	s.Results = append(s.Results, r)
}

// Runner plays matches back to back. A failure inside one match is logged
// and the next match starts from the home page.
type Runner struct {
	ctl     *Controller
	session *session.Machine
	home    Homer
	log     *zap.Logger
}

func NewRunner(ctl *Controller, sess *session.Machine, home Homer, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{ctl: ctl, session: sess, home: home, log: log}
}

// RequestStop takes effect between decision cycles.
func (r *Runner) RequestStop() {
	r.log.Info("stop requested")
	r.ctl.RequestStop()
}

// Run plays up to n matches. It stops early on cancellation, a stop
// request, or a session protocol violation.
func (r *Runner) Run(ctx context.Context, n int) (Summary, error) {
	var sum Summary
	for i := 0; i < n; i++ {
		if r.ctl.StopRequested() {
			break
		}
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		res, err := r.ctl.Play(ctx)
		sum.record(res)

		switch {
		case err == nil, errors.Is(err, ErrMatchStartTimeout):
			continue
		case errors.Is(err, session.ErrStateProtocol):
			return sum, err
		case ctx.Err() != nil:
			return sum, ctx.Err()
		}

		stopping := errors.Is(err, ErrStopRequested)
		if !stopping {
			r.log.Warn("match failed, recovering", zap.Int("match", i+1), zap.Error(err))
		}
		if rerr := r.recover(ctx); rerr != nil {
			return sum, rerr
		}
		if stopping {
			break
		}
	}
	return sum, nil
}

func (r *Runner) recover(ctx context.Context) error {
	if r.session.State() == session.StateHomepage {
		return nil
	}
	if err := r.home.Home(ctx); err != nil {
		r.log.Error("could not return to home page", zap.Error(err))
		return err
	}
	return nil
}
