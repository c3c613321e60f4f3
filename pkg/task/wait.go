package task

import (
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
)

var errStillRunning = errors.New("task: still running")

// WaitFor polls TryJoin with exponential backoff until the child exits or
// d elapses. It reports whether the child was joined. The polling interval
// starts at one millisecond and grows, so short-lived children are picked
// up quickly without spinning on long-lived ones.
func (t *Task) WaitFor(d time.Duration) (bool, error) {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = time.Millisecond
	b.MaxInterval = 50 * time.Millisecond
	b.MaxElapsedTime = d

	err := backoff.Retry(func() error {
		done, err := t.TryJoin()
		if err != nil {
			return backoff.Permanent(err)
		}
		if !done {
			return errStillRunning
		}
		return nil
	}, b)

	if err == nil {
		return true, nil
	}
	if errors.Is(err, errStillRunning) {
		return false, nil
	}
	return false, err
}
