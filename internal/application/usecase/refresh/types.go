package refresh

import (
	"context"
	"time"
)

// Action performs one refresh. Errors are logged by the scheduler and never
// stop it.
type Action func(ctx context.Context) error

// Job is one refresh kind with its own cadence.
type Job struct {
	Name     string
	Interval time.Duration
	Action   Action

	// NeedsSession jobs are skipped while the brokerage session is down.
	NeedsSession bool
}

// Job names.
const (
	JobSession   = "session"
	JobQuotes    = "quotes"
	JobPortfolio = "portfolio"
	JobAccount   = "account"
)
