// Package shm contains platform-specific helpers for creating and mapping
// anonymous shared memory regions.
//
// On Linux regions are backed by memfd_create(2), elsewhere by an unlinked
// temporary file. Either way the backing descriptor survives exec and can be
// re-mapped in a child process with Map.
package shm

import "os"

// MapOptions describes a region to create.
type MapOptions struct {
	// Name is a debugging label for the region. On Linux it shows up in
	// /proc/<pid>/maps; it has no namespace meaning.
	Name string
	// Size is the region size in bytes.
	Size uint64
}

// Mapping is one process's view of a shared memory region.
type Mapping struct {
	Mem  []byte
	File *os.File
}
