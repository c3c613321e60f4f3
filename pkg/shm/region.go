package shm

import (
	"fmt"
	"os"
	"sync/atomic"

	internalshm "github.com/parproc/shmtask/internal/shm"
)

// Region is one process's mapping of a shared memory area. Every process
// holding a copy of the backing descriptor sees the same pages; physically
// each process has its own mapping of them.
//
// Region counts handles within the current process only. Retain adds a
// handle, Release drops one; the view is unmapped when the count reaches
// zero. Cross-process accounting lives in the channel layer.
type Region struct {
	mp       *internalshm.Mapping
	capacity uint64
	handles  atomic.Int32
}

// Create reserves an anonymous, process-shareable mapping of capacity bytes.
// The reservation is virtual; physical pages are committed on first write.
// The returned Region starts with one local handle.
func Create(name string, capacity uint64) (*Region, error) {
	if capacity == 0 {
		return nil, fmt.Errorf("%w: zero capacity", ErrAllocation)
	}
	mp, err := internalshm.Create(internalshm.MapOptions{Name: name, Size: capacity})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocation, err)
	}
	r := &Region{mp: mp, capacity: capacity}
	r.handles.Store(1)
	return r, nil
}

// Attach maps a region inherited through f, typically a descriptor passed to
// a child process. The size comes from the descriptor itself. The returned
// Region starts with one local handle and takes ownership of f.
func Attach(f *os.File) (*Region, error) {
	mp, err := internalshm.Map(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrAllocation, err)
	}
	r := &Region{mp: mp, capacity: uint64(len(mp.Mem))}
	r.handles.Store(1)
	return r, nil
}

// Capacity returns the region size in bytes.
func (r *Region) Capacity() uint64 { return r.capacity }

// File returns the backing descriptor, used to hand the region to a child
// process via exec.Cmd.ExtraFiles. The descriptor remains owned by the
// Region.
func (r *Region) File() *os.File { return r.mp.File }

// Raw exposes the mapped bytes. Callers that need atomic access to fixed
// cells (the channel header) index into this slice; everyone else should
// use WriteAt and ReadAt.
func (r *Region) Raw() []byte { return r.mp.Mem }

// WriteAt copies p into the region at off. There is no synchronization;
// the caller must guarantee it is the only writer of that range.
func (r *Region) WriteAt(off uint64, p []byte) error {
	if r.mp.Mem == nil {
		return ErrReleased
	}
	if off+uint64(len(p)) > r.capacity {
		return fmt.Errorf("%w: write [%d, %d) beyond %d", ErrCapacity, off, off+uint64(len(p)), r.capacity)
	}
	copy(r.mp.Mem[off:], p)
	return nil
}

// ReadAt copies len(p) bytes out of the region at off into p.
func (r *Region) ReadAt(off uint64, p []byte) error {
	if r.mp.Mem == nil {
		return ErrReleased
	}
	if off+uint64(len(p)) > r.capacity {
		return fmt.Errorf("%w: read [%d, %d) beyond %d", ErrCapacity, off, off+uint64(len(p)), r.capacity)
	}
	copy(p, r.mp.Mem[off:])
	return nil
}

// Retain adds a local handle. Each endpoint sharing this mapping within a
// process holds one.
func (r *Region) Retain() { r.handles.Add(1) }

// Release drops a local handle; the last one unmaps this process's view and
// closes the descriptor. The kernel frees the backing pages once no process
// holds a mapping or descriptor.
func (r *Region) Release() error {
	n := r.handles.Add(-1)
	if n > 0 {
		return nil
	}
	if n < 0 {
		return fmt.Errorf("%w: release of dead region", ErrReleased)
	}
	return internalshm.Unmap(r.mp)
}
