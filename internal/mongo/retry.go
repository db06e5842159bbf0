package mongo

import (
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	maxAttempts  = 4
	retryDelay   = 15 * time.Second
)

// ErrTimeout is raised when an operation exhausts maxAttempts against
// ConnectionFailure without succeeding.
var ErrTimeout = errors.New("mongo: operation timed out after repeated connection failures")

// sleep is a var so retry tests can swap in a no-op instead of waiting out
// three real 15s delays.
var sleep = time.Sleep

// withRetry runs op up to maxAttempts times, sleeping retryDelay between
// attempts, but only when the failure is a transient connection failure.
// OperationFailure (a semantic error from the server) is never retried.
func withRetry(op func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := op()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isConnectionFailure(err) {
			return err
		}
		if attempt < maxAttempts {
			sleep(retryDelay)
		}
	}
	return errors.Wrap(ErrTimeout, lastErr.Error())
}

// isConnectionFailure reports whether err represents a transient
// connectivity problem rather than a semantic server error.
func isConnectionFailure(err error) bool {
	cause := errors.Cause(err)
	if cmdErr, ok := cause.(mongo.CommandError); ok {
		// CommandError carries a server-reported failure: semantic, not transient.
		_ = cmdErr
		return false
	}
	if mongo.IsNetworkError(cause) || mongo.IsTimeout(cause) {
		return true
	}
	return false
}
