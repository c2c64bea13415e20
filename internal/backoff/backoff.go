// Package backoff implements the exponential delay policy shared by push
// reconnects and request retries.
package backoff

import (
	"math"
	"time"

	"github.com/Guliveer/election-monitor-go/internal/constants"
)

// Policy derives retry delays as a pure function of the attempt number:
// Delay(n) = min(MaxDelay, Base × 2^n).
type Policy struct {
	Base        time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
}

// DefaultReconnect returns the reconnect policy used by the live channel.
func DefaultReconnect() Policy {
	return Policy{
		Base:        constants.DefaultReconnectBaseDelay,
		MaxDelay:    constants.DefaultReconnectMaxDelay,
		MaxAttempts: constants.DefaultMaxReconnectAttempts,
	}
}

// Delay returns the wait before attempt n. Negative attempts are treated as 0.
func (p Policy) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	if p.Base <= 0 {
		return 0
	}

	d := p.Base
	for i := 0; i < attempt; i++ {
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			return p.MaxDelay
		}
		// doubling past MaxInt64/2 would wrap negative
		if d >= math.MaxInt64/2 {
			return d
		}
		d *= 2
	}

	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

// Exhausted reports whether attempt has gone past the bound.
func (p Policy) Exhausted(attempt int) bool {
	return p.MaxAttempts > 0 && attempt > p.MaxAttempts
}
