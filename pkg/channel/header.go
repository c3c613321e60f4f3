package channel

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/parproc/shmtask/pkg/shm"
)

// Region header layout (64 bytes at offset 0, cells 8-byte aligned):
//
//	0x00 uint32 magic     // "SHMT"
//	0x04 uint32 version
//	0x08 uint32 refs      // interprocess reference count, atomic
//	0x0C uint32 pad
//	0x10 uint64 capacity  // payload capacity in bytes
//	0x18 uint64 cursor    // next free payload offset, atomic
//	0x20 ...   reserved
//
// The refs and cursor cells are shared state: every process mapping the
// region addresses the very same memory, which is what makes the
// interprocess count uniformly visible.
const (
	headerMagic   = uint32(0x544D4853) // "SHMT"
	headerVersion = uint32(1)
	headerSize    = 64
)

type regionHeader struct {
	magic    uint32
	version  uint32
	refs     uint32
	_        uint32
	capacity uint64
	cursor   uint64
	_        [32]byte
}

// headerOf overlays the header on the start of a mapped region. The mapping
// is page-aligned, so the atomic cells are naturally aligned.
func headerOf(r *shm.Region) *regionHeader {
	return (*regionHeader)(unsafe.Pointer(&r.Raw()[0]))
}

func (h *regionHeader) init(payloadCapacity uint64) {
	h.magic = headerMagic
	h.version = headerVersion
	atomic.StoreUint32(&h.refs, 0)
	h.capacity = payloadCapacity
	atomic.StoreUint64(&h.cursor, 0)
}

func (h *regionHeader) validate(regionSize uint64) error {
	if h.magic != headerMagic {
		return fmt.Errorf("bad region magic 0x%08x", h.magic)
	}
	if h.version != headerVersion {
		return fmt.Errorf("unsupported region version %d", h.version)
	}
	if h.capacity+headerSize > regionSize {
		return fmt.Errorf("header capacity %d exceeds region size %d", h.capacity, regionSize)
	}
	return nil
}

// addRef atomically adds delta endpoint shares and returns the new count.
func (h *regionHeader) addRef(delta int32) uint32 {
	return atomic.AddUint32(&h.refs, uint32(delta))
}

func (h *regionHeader) refCount() uint32 {
	return atomic.LoadUint32(&h.refs)
}

// reserve claims n payload bytes and returns their offset. The compare and
// swap loop either moves the cursor past a fully-valid range or leaves it
// untouched, so a failed send is invisible to the peer.
func (h *regionHeader) reserve(n uint64) (uint64, error) {
	for {
		cur := atomic.LoadUint64(&h.cursor)
		if cur+n > h.capacity {
			return 0, fmt.Errorf("%w: need %d bytes, %d free", shm.ErrCapacity, n, h.capacity-cur)
		}
		if atomic.CompareAndSwapUint64(&h.cursor, cur, cur+n) {
			return cur, nil
		}
	}
}
