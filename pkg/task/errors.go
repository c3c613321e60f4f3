package task

import (
	"errors"
	"fmt"
)

// Sentinel errors for inspection with errors.Is.
var (
	// ErrNotStarted is returned by Join and TryJoin when Start was never
	// called.
	ErrNotStarted = errors.New("task: not started")

	// ErrAlreadyStarted is returned by a second Start on the same task.
	ErrAlreadyStarted = errors.New("task: already started")

	// ErrNotRegistered is returned by New when the function name is
	// unknown to the registry.
	ErrNotRegistered = errors.New("task: function not registered")

	// ErrNotAlive is returned by Stat when the child is not running.
	ErrNotAlive = errors.New("task: child not alive")
)

// RemoteError is a callable failure that happened in the child, shipped
// back over the result channel so the parent can surface it after a
// successful join instead of losing it to a silent child crash.
type RemoteError struct {
	Msg string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("task: remote failure: %s", e.Msg)
}
