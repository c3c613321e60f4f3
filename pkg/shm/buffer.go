package shm

import "github.com/valyala/bytebufferpool"

// Buffer is an exclusively-owned byte range produced by a receive
// operation. The bytes were copied out of shared memory, so the owner may
// hold them for as long as it likes regardless of what the peer does next.
//
// Pool-backed buffers should be returned with Free once consumed; Free on
// any buffer is safe and idempotent.
type Buffer struct {
	data []byte
	bb   *bytebufferpool.ByteBuffer
}

// NewPooled returns a buffer of n bytes drawn from the shared byte pool.
func NewPooled(n int) *Buffer {
	bb := bytebufferpool.Get()
	if cap(bb.B) < n {
		bb.B = make([]byte, n)
	}
	bb.B = bb.B[:n]
	return &Buffer{data: bb.B, bb: bb}
}

// Wrap adopts an already-allocated slice without pooling.
func Wrap(p []byte) *Buffer {
	return &Buffer{data: p}
}

// Bytes returns the owned bytes. The slice is invalid after Free.
func (b *Buffer) Bytes() []byte { return b.data }

// Len returns the number of owned bytes.
func (b *Buffer) Len() int { return len(b.data) }

// Free releases the buffer using its matching deallocation strategy:
// pooled buffers go back to the pool, plain slices are left to the garbage
// collector.
func (b *Buffer) Free() {
	if b.bb != nil {
		bytebufferpool.Put(b.bb)
		b.bb = nil
	}
	b.data = nil
}
