package refresh

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"ibsnap/internal/application"
	"ibsnap/internal/application/port"
)

const DefaultTick = time.Second

type SchedulerDeps struct {
	Session port.BrokerageSession
	Clock   port.Clock
	Tick    time.Duration
	Jobs    []Job
}

// Scheduler runs every refresh job from one cooperative loop. Jobs run
// sequentially because the brokerage session must not be used from two
// flows at once.
type Scheduler struct {
	deps    SchedulerDeps
	st      *State
	offline bool
}

func NewScheduler(deps SchedulerDeps) *Scheduler {
	if deps.Tick <= 0 {
		deps.Tick = DefaultTick
	}
	return &Scheduler{deps: deps, st: NewState(deps.Jobs)}
}

func (s *Scheduler) State() *State { return s.st }

// Run ticks until ctx is cancelled. A job already running when ctx is
// cancelled completes first.
func (s *Scheduler) Run(ctx context.Context) error {
	log.Info().Dur("tick", s.deps.Tick).Int("jobs", len(s.st.jobs)).Msg("refresh scheduler started")
	for {
		s.Tick(ctx)
		if err := s.deps.Clock.Sleep(ctx, s.deps.Tick); err != nil {
			log.Info().Msg("refresh scheduler stopped")
			return ctx.Err()
		}
	}
}

// Tick runs the jobs that are due now. Jobs needing the session are skipped
// while it is disconnected. A tick with nothing due touches nothing.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.deps.Clock.Now()
	for _, job := range s.st.Due(now) {
		if ctx.Err() != nil {
			return
		}
		s.st.MarkRun(job.Name, now)
		if job.NeedsSession && !s.online(job.Name) {
			continue
		}
		if err := s.runJob(context.WithoutCancel(ctx), job); err != nil {
			log.Warn().Str("job", job.Name).Err(err).Msg("refresh failed")
		}
	}
}

func (s *Scheduler) online(job string) bool {
	if s.deps.Session.IsConnected() {
		if s.offline {
			s.offline = false
			log.Info().Msg("brokerage session back online, refreshes resumed")
		}
		return true
	}
	if !s.offline {
		s.offline = true
		log.Warn().Str("job", job).Err(application.ErrNotConnected).Msg("skipping refreshes until the session reconnects")
	}
	return false
}

func (s *Scheduler) runJob(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s refresh: %v", job.Name, r)
		}
	}()
	start := time.Now()
	err = job.Action(ctx)
	log.Debug().Str("job", job.Name).Dur("took", time.Since(start)).Msg("refresh done")
	return err
}

// SessionAction keeps the session usable: it reconnects a dropped session
// and otherwise pings it when the session supports keep-alives.
func SessionAction(session port.BrokerageSession) Action {
	return func(ctx context.Context) error {
		if !session.IsConnected() {
			if err := session.Connect(ctx); err != nil {
				return fmt.Errorf("reconnect: %w", err)
			}
			log.Info().Msg("brokerage session reconnected")
			return nil
		}
		if ka, ok := session.(port.KeepAliver); ok {
			return ka.KeepAlive(ctx)
		}
		return nil
	}
}
