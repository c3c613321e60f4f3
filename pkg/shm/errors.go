package shm

import "errors"

// Sentinel errors for inspection with errors.Is.
var (
	// ErrAllocation is returned when the shared memory mapping cannot be
	// created or attached.
	ErrAllocation = errors.New("shm: allocation failed")

	// ErrCapacity is returned when an offset-addressed access would run
	// past the end of the region, or when a channel send does not fit in
	// the remaining buffer space. The region is left unchanged.
	ErrCapacity = errors.New("shm: capacity exceeded")

	// ErrReleased is returned when an operation touches a region whose
	// last local handle has already been released.
	ErrReleased = errors.New("shm: region released")
)
