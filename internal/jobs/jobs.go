// Package jobs runs the periodic maintenance tasks of the service.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// TokenSweeper clears verification tokens and login codes whose expiry
// has passed.
type TokenSweeper interface {
	SweepExpired(ctx context.Context, t time.Time) (int64, error)
}

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

const sweepTimeout = 30 * time.Second

// Scheduler wraps a cron scheduler.
type Scheduler struct {
	cron   *cron.Cron
	tokens TokenSweeper
	log    *zerolog.Logger
	now    func() time.Time
}

// New builds a scheduler that sweeps expired tokens on spec, which may be
// a descriptor such as "@every 5m" or a cron expression with optional
// seconds.
func New(spec string, tokens TokenSweeper, log *zerolog.Logger) (*Scheduler, error) {
	if log == nil {
		nop := zerolog.Nop()
		log = &nop
	}
	s := &Scheduler{
		cron:   cron.New(cron.WithParser(cronParser), cron.WithChain(cron.Recover(cronLogger{log}))),
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
	if _, err := s.cron.AddFunc(spec, s.SweepTokens); err != nil {
		return nil, fmt.Errorf("schedule token sweep %q: %w", spec, err)
	}
	return s, nil
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop stops scheduling and waits for a running job until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}

// SweepTokens clears expired tokens once.
func (s *Scheduler) SweepTokens() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	n, err := s.tokens.SweepExpired(ctx, s.now())
	if err != nil {
		s.log.Error().Err(err).Msg("token sweep failed")
		return
	}
	if n > 0 {
		s.log.Info().Int64("cleared", n).Msg("expired tokens cleared")
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ log *zerolog.Logger }

func (l cronLogger) Info(msg string, kv ...interface{}) {
	l.log.Debug().Fields(kv).Msg("cron: " + msg)
}

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Error().Err(err).Fields(kv).Msg("cron: " + msg)
}
