package refresh

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ibsnap/internal/application/port"
	"ibsnap/internal/domain/model"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	c.advance(d)
	return ctx.Err()
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingSession records every call; only connectivity methods have
// behaviour.
type countingSession struct {
	port.BrokerageSession

	connected  bool
	connectErr error
	calls      int
	connects   int
	keepAlives int
}

func (s *countingSession) IsConnected() bool {
	s.calls++
	return s.connected
}

func (s *countingSession) Connect(context.Context) error {
	s.calls++
	s.connects++
	if s.connectErr != nil {
		return s.connectErr
	}
	s.connected = true
	return nil
}

func (s *countingSession) KeepAlive(context.Context) error {
	s.calls++
	s.keepAlives++
	return nil
}

func (s *countingSession) Positions(context.Context) ([]model.RawPosition, error) {
	s.calls++
	return nil, nil
}

type recorder struct {
	runs map[string]int
}

func (r *recorder) action(name string, err error) Action {
	return func(context.Context) error {
		r.runs[name]++
		return err
	}
}

func newTestScheduler(sess *countingSession, rec *recorder, quoteErr error) (*Scheduler, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)}
	s := NewScheduler(SchedulerDeps{
		Session: sess,
		Clock:   clock,
		Jobs: []Job{
			{Name: JobQuotes, Interval: 5 * time.Second, Action: rec.action(JobQuotes, quoteErr), NeedsSession: true},
			{Name: JobPortfolio, Interval: 30 * time.Second, Action: rec.action(JobPortfolio, nil), NeedsSession: true},
			{Name: JobAccount, Interval: 60 * time.Second, Action: rec.action(JobAccount, nil), NeedsSession: true},
		},
	})
	return s, clock
}

func TestTickRunsAllJobsFirstTime(t *testing.T) {
	sess := &countingSession{connected: true}
	rec := &recorder{runs: map[string]int{}}
	s, _ := newTestScheduler(sess, rec, nil)

	s.Tick(context.Background())

	assert.Equal(t, map[string]int{JobQuotes: 1, JobPortfolio: 1, JobAccount: 1}, rec.runs)
}

func TestIdleTickMakesNoSessionCalls(t *testing.T) {
	sess := &countingSession{connected: true}
	rec := &recorder{runs: map[string]int{}}
	s, clock := newTestScheduler(sess, rec, nil)

	s.Tick(context.Background())
	before := sess.calls

	clock.advance(time.Second)
	s.Tick(context.Background())

	assert.Equal(t, before, sess.calls)
	assert.Equal(t, 1, rec.runs[JobQuotes])
}

func TestCadencesAreIndependent(t *testing.T) {
	sess := &countingSession{connected: true}
	rec := &recorder{runs: map[string]int{}}
	s, clock := newTestScheduler(sess, rec, nil)

	for i := 0; i <= 60; i++ {
		s.Tick(context.Background())
		clock.advance(time.Second)
	}

	assert.Equal(t, 13, rec.runs[JobQuotes])
	assert.Equal(t, 3, rec.runs[JobPortfolio])
	assert.Equal(t, 2, rec.runs[JobAccount])
}

func TestFailedRefreshWaitsFullInterval(t *testing.T) {
	sess := &countingSession{connected: true}
	rec := &recorder{runs: map[string]int{}}
	s, clock := newTestScheduler(sess, rec, errors.New("boom"))

	s.Tick(context.Background())
	last, ok := s.State().LastRun(JobQuotes)
	require.True(t, ok)
	assert.Equal(t, clock.Now(), last)

	for i := 0; i < 4; i++ {
		clock.advance(time.Second)
		s.Tick(context.Background())
	}
	assert.Equal(t, 1, rec.runs[JobQuotes])

	clock.advance(time.Second)
	s.Tick(context.Background())
	assert.Equal(t, 2, rec.runs[JobQuotes])
}

func TestDisconnectSkipsAndResumes(t *testing.T) {
	sess := &countingSession{connected: true}
	rec := &recorder{runs: map[string]int{}}
	s, clock := newTestScheduler(sess, rec, nil)

	s.Tick(context.Background())
	sess.connected = false

	clock.advance(60 * time.Second)
	s.Tick(context.Background())
	assert.Equal(t, map[string]int{JobQuotes: 1, JobPortfolio: 1, JobAccount: 1}, rec.runs)
	assert.True(t, s.offline)

	sess.connected = true
	clock.advance(60 * time.Second)
	s.Tick(context.Background())
	assert.Equal(t, map[string]int{JobQuotes: 2, JobPortfolio: 2, JobAccount: 2}, rec.runs)
	assert.False(t, s.offline)
}

func TestPanickingJobDoesNotStopTick(t *testing.T) {
	sess := &countingSession{connected: true}
	ran := false
	clock := &fakeClock{}
	s := NewScheduler(SchedulerDeps{
		Session: sess,
		Clock:   clock,
		Jobs: []Job{
			{Name: "bad", Interval: time.Second, Action: func(context.Context) error { panic("nil map") }},
			{Name: "good", Interval: time.Second, Action: func(context.Context) error { ran = true; return nil }},
		},
	})

	require.NotPanics(t, func() { s.Tick(context.Background()) })
	assert.True(t, ran)
}

func TestRunStopsOnCancel(t *testing.T) {
	sess := &countingSession{connected: true}
	rec := &recorder{runs: map[string]int{}}
	s, _ := newTestScheduler(sess, rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := s.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, rec.runs)
}

func TestSessionActionReconnectsThenKeepsAlive(t *testing.T) {
	sess := &countingSession{}
	action := SessionAction(sess)

	require.NoError(t, action(context.Background()))
	assert.Equal(t, 1, sess.connects)
	assert.True(t, sess.connected)

	require.NoError(t, action(context.Background()))
	assert.Equal(t, 1, sess.connects)
	assert.Equal(t, 1, sess.keepAlives)

	sess.connected = false
	sess.connectErr = errors.New("gateway down")
	assert.Error(t, action(context.Background()))
}
