package port

import (
	"context"
	"time"
)

// Clock abstracts time so the scheduler and settle waits can be driven by a
// fake in tests.
type Clock interface {
	Now() time.Time
	// Sleep blocks for d or until ctx is done, returning ctx.Err() then.
	Sleep(ctx context.Context, d time.Duration) error
}
