package queue

import (
	"errors"
	"math/rand"
	"time"
)

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}

// RetryManager decides whether a failed task runs again and after what delay.
type RetryManager struct {
	baseDelay time.Duration
	maxDelay  time.Duration
}

func NewRetryManager(baseDelay, maxDelay time.Duration) *RetryManager {
	if maxDelay < baseDelay {
		maxDelay = baseDelay * 16
	}
	return &RetryManager{
		baseDelay: baseDelay,
		maxDelay:  maxDelay,
	}
}

// ShouldRetry reports whether the task gets another attempt and the delay
// before it. task.Attempts counts the attempts already made.
func (r *RetryManager) ShouldRetry(task *Task, err error) (bool, time.Duration) {
	if err == nil || IsPermanent(err) {
		return false, 0
	}
	if task.Attempts >= task.MaxRetries {
		return false, 0
	}
	return true, r.Backoff(task.Attempts)
}

// Backoff is base * 2^(attempt-1) with +-25% jitter, capped at the max delay.
func (r *RetryManager) Backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return r.baseDelay
	}

	backoff := r.baseDelay
	for i := 1; i < attempt && backoff < r.maxDelay; i++ {
		backoff *= 2
	}
	if backoff > r.maxDelay {
		backoff = r.maxDelay
	}

	if quarter := int64(backoff / 4); quarter > 0 {
		backoff += time.Duration(rand.Int63n(2*quarter) - quarter)
	}
	if backoff > r.maxDelay {
		backoff = r.maxDelay
	}
	return backoff
}
