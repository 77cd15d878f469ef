package retries

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	seededRand   = rand.New(rand.NewSource(time.Now().UnixNano())) // nolint: gosec
	seededRandMu sync.Mutex
)

// ManageRetries calls fn until it reports that no retry is warranted, the
// maximum number of attempts is exhausted, or the context is canceled. Delays
// between attempts grow exponentially, with jitter, up to maxBackoff.
func ManageRetries(
	ctx context.Context,
	log logrus.FieldLogger,
	process string,
	maxAttempts uint8,
	maxBackoff time.Duration,
	fn func() (bool, error),
) error {
	var failedAttempts uint8
	for {
		retry, err := fn()
		if !retry {
			return err
		}
		failedAttempts++
		if failedAttempts >= maxAttempts {
			return errors.Wrapf(
				err,
				"failed %d attempt(s) to %s",
				failedAttempts,
				process,
			)
		}
		delay := jitteredExpBackoff(failedAttempts, maxBackoff)
		log.WithFields(logrus.Fields{
			"attempts": failedAttempts,
			"delay":    delay,
		}).WithError(err).Warnf("failed to %s; will retry", process)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func jitteredExpBackoff(
	failureCount uint8,
	maxDelay time.Duration,
) time.Duration {
	base := math.Pow(2, float64(failureCount))
	capped := math.Min(base, maxDelay.Seconds())
	seededRandMu.Lock()
	jitter := seededRand.Float64()
	seededRandMu.Unlock()
	jittered := (1 + jitter) * (capped / 2)
	scaled := jittered * float64(time.Second)
	return time.Duration(scaled)
}
