// Package jobs runs periodic background work (the SLA watchdog, idempotency
// purges) on cron schedules. Jobs never overlap with themselves, recover from
// panics, and receive a context that is canceled when the scheduler stops.
package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrEmptySchedule is returned by Add for a blank spec.
var ErrEmptySchedule = errors.New("empty schedule")

// Job is one unit of scheduled work.
type Job func(ctx context.Context) error

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	timeout time.Duration
}

// New builds a scheduler evaluating specs in loc. Each run is bounded by
// timeout (zero means no bound).
func New(loc *time.Location, timeout time.Duration) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	lg := cronLogger{log.With().Str("component", "cron").Logger()}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(lg),
			cron.WithChain(cron.Recover(lg), cron.SkipIfStillRunning(lg)),
		),
		ctx:     ctx,
		cancel:  cancel,
		timeout: timeout,
	}
}

// Add registers job under name. spec is a standard 5-field cron expression
// or a descriptor such as "@every 15m".
func (s *Scheduler) Add(name, spec string, job Job) error {
	if strings.TrimSpace(spec) == "" {
		return ErrEmptySchedule
	}
	_, err := s.cron.AddFunc(spec, func() { s.run(name, job) })
	return err
}

func (s *Scheduler) run(name string, job Job) {
	ctx := s.ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	start := time.Now()
	err := job(ctx)
	ev := log.Debug()
	if err != nil {
		ev = log.Error().Err(err)
	}
	ev.Str("job", name).Dur("took", time.Since(start)).Msg("job finished")
}

// Len reports the number of registered jobs.
func (s *Scheduler) Len() int { return len(s.cron.Entries()) }

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() { s.cron.Start() }

// Stop cancels running jobs and waits for them to return or ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) {
	s.cancel()
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct{ l zerolog.Logger }

func (c cronLogger) Info(msg string, kv ...any) {
	c.l.Debug().Fields(kv).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error().Err(err).Fields(kv).Msg(msg)
}
