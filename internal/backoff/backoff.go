// Package backoff provides the exponential delay policy shared by provider
// cooldowns and scheduler retries.
package backoff

import (
	"context"
	"math"
	"time"
)

// Policy computes an exponentially growing delay capped at Cap.
// A Factor of 1 yields a constant delay of Base.
type Policy struct {
	Base   time.Duration `mapstructure:"base"`
	Factor float64       `mapstructure:"factor"`
	Cap    time.Duration `mapstructure:"cap"`
}

// Default returns the scheduler retry policy: 1s doubling up to 30s.
func Default() Policy {
	return Policy{Base: time.Second, Factor: 2, Cap: 30 * time.Second}
}

// Constant returns a policy that always waits d.
func Constant(d time.Duration) Policy {
	return Policy{Base: d, Factor: 1, Cap: d}
}

// Delay returns the wait before the given attempt (1-indexed).
// Attempt 1 waits Base, attempt 2 waits Base*Factor, and so on.
func (p Policy) Delay(attempt int) time.Duration {
	if p.Base <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}
	factor := p.Factor
	if factor < 1 {
		factor = 1
	}

	d := float64(p.Base) * math.Pow(factor, float64(attempt-1))
	if p.Cap > 0 && d > float64(p.Cap) {
		return p.Cap
	}
	if d > math.MaxInt64 {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(d)
}

// Sleep waits for d or until ctx is done, whichever comes first.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
