package stream

import (
	"math"
	"time"

	"github.com/cenkalti/backoff/v5"
)

// newBackoff builds the connect retry schedule: delay * factor for the
// first attempt, doubling after every failure. maxDelay <= 0 leaves the
// schedule uncapped, the default never-give-up policy for long-running
// stream clients.
func newBackoff(delay time.Duration, factor int, maxDelay time.Duration) *backoff.ExponentialBackOff {
	if factor < 1 {
		factor = 1
	}
	if maxDelay <= 0 {
		maxDelay = time.Duration(math.MaxInt64)
	}

	bo := &backoff.ExponentialBackOff{
		InitialInterval:     delay * time.Duration(factor),
		RandomizationFactor: 0,
		Multiplier:          2,
		MaxInterval:         maxDelay,
	}
	bo.Reset()
	return bo
}
