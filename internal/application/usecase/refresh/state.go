package refresh

import (
	"sync"
	"time"
)

type jobState struct {
	job     Job
	lastRun time.Time
	ran     bool
}

// State is the due-time table: one last_run per job, "never" until the
// first run.
type State struct {
	mu   sync.Mutex
	jobs []*jobState
}

func NewState(jobs []Job) *State {
	st := &State{jobs: make([]*jobState, 0, len(jobs))}
	for _, j := range jobs {
		if j.Action == nil || j.Interval <= 0 {
			continue
		}
		st.jobs = append(st.jobs, &jobState{job: j})
	}
	return st
}

// Due returns the jobs whose interval has elapsed at now, in table order.
func (s *State) Due(now time.Time) []Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []Job
	for _, js := range s.jobs {
		if !js.ran || now.Sub(js.lastRun) >= js.job.Interval {
			due = append(due, js.job)
		}
	}
	return due
}

// MarkRun records a run of name at now, whatever its outcome.
func (s *State) MarkRun(name string, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, js := range s.jobs {
		if js.job.Name == name {
			js.lastRun = now
			js.ran = true
			return
		}
	}
}

// LastRun reports when name last ran; ok is false if it never did.
func (s *State) LastRun(name string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, js := range s.jobs {
		if js.job.Name == name {
			return js.lastRun, js.ran
		}
	}
	return time.Time{}, false
}
