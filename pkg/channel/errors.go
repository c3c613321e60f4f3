package channel

import "errors"

// Sentinel errors for inspection with errors.Is. Capacity and allocation
// failures surface the pkg/shm sentinels unchanged.
var (
	// ErrIPC is returned on a control-socket failure or an unexpected
	// peer close.
	ErrIPC = errors.New("channel: ipc failure")

	// ErrShortRead is returned by ReceiveBytes when the peer announced
	// fewer bytes than requested. The announcement is consumed.
	ErrShortRead = errors.New("channel: short read")

	// ErrSerialization is returned when the injected codec fails to
	// encode or decode an object.
	ErrSerialization = errors.New("channel: serialization failed")

	// ErrClosed is returned by operations on a handle that has already
	// been closed.
	ErrClosed = errors.New("channel: closed")

	// ErrForkPending is returned by ForkAbort when no fork registration
	// is outstanding, and by Fork when one already is.
	ErrForkPending = errors.New("channel: fork registration mismatch")

	// errRefUnderflow signals a reference count driven below zero; it
	// indicates a double release in the calling code.
	errRefUnderflow = errors.New("channel: reference count underflow")
)
