package resilience

import (
	"context"
	"math"
	"math/rand/v2"
	"time"
)

// Backoff computes exponential delays between attempts.
type Backoff struct {
	// Base is the delay before the first retry.
	Base time.Duration

	// Max caps the delay. Zero means uncapped.
	Max time.Duration

	// Jitter adds up to 25% on top of the computed delay.
	Jitter bool
}

// Delay returns the wait before retry n (1-based): Base * 2^(n-1), capped at
// Max. Jitter only ever lengthens the delay.
func (b Backoff) Delay(retry int) time.Duration {
	if retry < 1 || b.Base <= 0 {
		return 0
	}

	raw := float64(b.Base) * math.Pow(2, float64(retry-1))
	var delay time.Duration
	switch {
	case b.Max > 0 && raw > float64(b.Max):
		delay = b.Max
	case raw > math.MaxInt64:
		delay = time.Duration(math.MaxInt64)
	default:
		delay = time.Duration(raw)
	}

	if b.Jitter && delay >= 4 {
		// #nosec G404 -- jitter is non-cryptographic timing variance.
		delay += time.Duration(rand.Int64N(int64(delay / 4)))
	}
	return delay
}

// sleep waits d on clock or until ctx is done.
func sleep(ctx context.Context, clock Clock, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-clock.After(d):
		return nil
	}
}
