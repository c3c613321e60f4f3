package channel

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/parproc/shmtask/internal/ipc"
	"github.com/parproc/shmtask/internal/logging"
	"github.com/parproc/shmtask/pkg/shm"
)

// Channel is one endpoint of a point-to-point inter-process link. It pairs
// a control socket with a shared memory region and owns a share of the
// region's two-level reference count.
//
// Handles are not safe for concurrent use by multiple goroutines; the
// protocol assumes a single designated writer and reader per endpoint.
type Channel struct {
	sock   *os.File
	region *shm.Region
	hdr    *regionHeader

	// local counts handles to this endpoint within this process. Dup
	// shares the counter; the last Close of an endpoint releases one
	// interprocess share.
	local       *atomic.Int32
	forkPending *atomic.Bool
	closed      atomic.Bool

	codec  Codec
	tracer trace.Tracer
	objTx  metric.Int64Counter
	objRx  metric.Int64Counter
	log    *zap.Logger
}

// NewPair creates a connected pair of channel endpoints backed by one
// shared region. The interprocess count starts at 2, one share per
// endpoint; each endpoint starts with a local count of 1.
//
// Errors wrap shm.ErrAllocation if the mapping cannot be created and ErrIPC
// if the socketpair cannot.
func NewPair(opts ...Option) (*Channel, *Channel, error) {
	o := buildOptions(opts)

	region, err := shm.Create("shmtask-chan", headerSize+o.bufferSize)
	if err != nil {
		return nil, nil, err
	}
	hdr := headerOf(region)
	hdr.init(o.bufferSize)
	hdr.addRef(2)

	s0, s1, err := ipc.Socketpair()
	if err != nil {
		_ = region.Release()
		return nil, nil, fmt.Errorf("%w: %v", ErrIPC, err)
	}

	// The second endpoint needs its own local handle on the mapping.
	region.Retain()

	a := newEndpoint(s0, region, hdr, o)
	b := newEndpoint(s1, region, hdr, o)

	pairsCreated.Inc()
	a.log.Debug("channel pair created",
		zap.Uint64("capacity", o.bufferSize),
		zap.Uint32("refs", hdr.refCount()))
	return a, b, nil
}

// Attach reconstructs a channel endpoint in a child process from inherited
// descriptors: the control socket and the shared region. It consumes the
// interprocess share registered by the parent's Fork call, so it performs
// no increment of its own.
func Attach(sock, mem *os.File, opts ...Option) (*Channel, error) {
	o := buildOptions(opts)

	region, err := shm.Attach(mem)
	if err != nil {
		return nil, err
	}
	hdr := headerOf(region)
	if err := hdr.validate(region.Capacity()); err != nil {
		_ = region.Release()
		return nil, fmt.Errorf("%w: %v", ErrIPC, err)
	}
	c := newEndpoint(sock, region, hdr, o)
	c.log.Debug("channel attached",
		zap.Uint64("capacity", hdr.capacity),
		zap.Uint32("refs", hdr.refCount()))
	return c, nil
}

func newEndpoint(sock *os.File, region *shm.Region, hdr *regionHeader, o options) *Channel {
	c := &Channel{
		sock:        sock,
		region:      region,
		hdr:         hdr,
		local:       &atomic.Int32{},
		forkPending: &atomic.Bool{},
		codec:       o.codec,
		tracer:      o.tracer,
		log:         logging.Named("channel"),
	}
	c.local.Store(1)
	if o.meter != nil {
		c.objTx, _ = o.meter.Int64Counter("shmtask.channel.objects_sent")
		c.objRx, _ = o.meter.Int64Counter("shmtask.channel.objects_received")
	}
	return c
}

// Capacity returns the payload capacity of the shared buffer.
func (c *Channel) Capacity() uint64 { return c.hdr.capacity }

// Files returns the control socket and region descriptors, in the order a
// spawning parent should place them in exec.Cmd.ExtraFiles. The descriptors
// stay owned by the channel.
func (c *Channel) Files() (sock, mem *os.File) { return c.sock, c.region.File() }

// SendBytes deposits p in the shared buffer and announces it to the peer
// with one control frame. Only the frame crosses the kernel.
//
// Fails with shm.ErrCapacity if the remaining buffer space is insufficient,
// leaving the buffer's observable state unchanged, and with ErrIPC on a
// socket failure.
func (c *Channel) SendBytes(p []byte) error {
	if c.closed.Load() {
		return ErrClosed
	}
	off, err := c.hdr.reserve(uint64(len(p)))
	if err != nil {
		return err
	}
	if err := c.region.WriteAt(headerSize+off, p); err != nil {
		return err
	}
	if err := c.sendFrame(frame{typ: frameData, offset: off, length: uint64(len(p))}); err != nil {
		return err
	}
	bytesSent.Add(float64(len(p)))
	return nil
}

// ReceiveBytes blocks until the peer announces a payload, then returns the
// first n bytes copied out of the shared buffer. The returned buffer is
// exclusively owned by the caller.
//
// Fails with ErrShortRead if the announcement carries fewer than n bytes
// (the announcement is consumed) and with ErrIPC on socket failure or peer
// close.
func (c *Channel) ReceiveBytes(n int) (*shm.Buffer, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	f, err := c.readFrame()
	if err != nil {
		return nil, err
	}
	if f.length < uint64(n) {
		return nil, fmt.Errorf("%w: requested %d bytes, peer announced %d", ErrShortRead, n, f.length)
	}
	return c.copyOut(f.offset, n)
}

// receiveAnnounced returns the peer's next payload in full, whatever its
// announced length.
func (c *Channel) receiveAnnounced() (*shm.Buffer, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	f, err := c.readFrame()
	if err != nil {
		return nil, err
	}
	return c.copyOut(f.offset, int(f.length))
}

func (c *Channel) copyOut(off uint64, n int) (*shm.Buffer, error) {
	buf := shm.NewPooled(n)
	if err := c.region.ReadAt(headerSize+off, buf.Bytes()); err != nil {
		buf.Free()
		return nil, err
	}
	bytesReceived.Add(float64(n))
	return buf, nil
}

// SendObject encodes v with the channel's codec and sends the bytes.
// Codec failures surface as ErrSerialization; otherwise the failure modes
// are those of SendBytes.
func (c *Channel) SendObject(v any) error {
	var span trace.Span
	if c.tracer != nil {
		_, span = c.tracer.Start(context.Background(), "channel.send_object")
		defer span.End()
	}
	data, err := c.codec.Encode(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if span != nil {
		span.SetAttributes(attribute.Int("bytes", len(data)))
	}
	if err := c.SendBytes(data); err != nil {
		return err
	}
	if c.objTx != nil {
		c.objTx.Add(context.Background(), 1)
	}
	return nil
}

// ReceiveObject blocks for the peer's next payload and decodes it into out
// with the channel's codec.
func (c *Channel) ReceiveObject(out any) error {
	var span trace.Span
	if c.tracer != nil {
		_, span = c.tracer.Start(context.Background(), "channel.receive_object")
		defer span.End()
	}
	buf, err := c.receiveAnnounced()
	if err != nil {
		return err
	}
	defer buf.Free()
	if span != nil {
		span.SetAttributes(attribute.Int("bytes", buf.Len()))
	}
	if err := c.codec.Decode(buf.Bytes(), out); err != nil {
		return fmt.Errorf("%w: %v", ErrSerialization, err)
	}
	if c.objRx != nil {
		c.objRx.Add(context.Background(), 1)
	}
	return nil
}

// Fork registers the endpoint for inheritance by a forthcoming child
// process: the interprocess count is incremented on the child's behalf and
// the endpoint is marked fork-pending until the spawn completes or aborts.
// The child's Attach consumes the registered share.
//
// Task.Start performs this registration itself; direct channel users must
// call Fork immediately before spawning.
func (c *Channel) Fork() error {
	if c.closed.Load() {
		return ErrClosed
	}
	if !c.forkPending.CompareAndSwap(false, true) {
		return fmt.Errorf("%w: fork already pending", ErrForkPending)
	}
	c.hdr.addRef(1)
	return nil
}

// ForkAbort undoes a Fork registration after a failed spawn, so the share
// reserved for the never-created child is not leaked.
func (c *Channel) ForkAbort() error {
	if !c.forkPending.CompareAndSwap(true, false) {
		return fmt.Errorf("%w: no fork pending", ErrForkPending)
	}
	if c.hdr.addRef(-1) == ^uint32(0) {
		return errRefUnderflow
	}
	return nil
}

// ForkComplete clears the fork-pending mark once the child exists. The
// share registered by Fork now belongs to the child.
func (c *Channel) ForkComplete() {
	c.forkPending.Store(false)
}

// Dup returns a second handle to this endpoint within the current process.
// Only the local count moves; a second handle in the same process is not a
// new process-level holder. The handles share the socket and the region.
func (c *Channel) Dup() (*Channel, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	c.local.Add(1)
	return &Channel{
		sock:        c.sock,
		region:      c.region,
		hdr:         c.hdr,
		local:       c.local,
		forkPending: c.forkPending,
		codec:       c.codec,
		tracer:      c.tracer,
		objTx:       c.objTx,
		objRx:       c.objRx,
		log:         c.log,
	}, nil
}

// Close releases this handle. The last handle of an endpoint in a process
// drops one interprocess share, releases the region handle, and closes the
// socket; the process that drives the interprocess count to zero observes
// the terminal release of the mapping.
//
// Closing an already-closed handle returns ErrClosed without touching any
// counter.
func (c *Channel) Close() error {
	if c.closed.Swap(true) {
		return ErrClosed
	}
	n := c.local.Add(-1)
	if n > 0 {
		return nil
	}
	if n < 0 {
		return errRefUnderflow
	}

	g := c.hdr.addRef(-1)
	if g == ^uint32(0) {
		return errRefUnderflow
	}

	err := c.region.Release()
	if cerr := c.sock.Close(); err == nil {
		err = cerr
	}
	if g == 0 {
		regionsReleased.Inc()
		c.log.Debug("shared region released")
	}
	return err
}

func (c *Channel) sendFrame(f frame) error {
	var b [frameSize]byte
	encodeFrame(&b, f)
	if err := ipc.WriteFull(int(c.sock.Fd()), b[:]); err != nil {
		return fmt.Errorf("%w: %v", ErrIPC, err)
	}
	framesSent.Inc()
	return nil
}

func (c *Channel) readFrame() (frame, error) {
	var b [frameSize]byte
	if err := ipc.ReadFull(int(c.sock.Fd()), b[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return frame{}, fmt.Errorf("%w: peer closed", ErrIPC)
		}
		return frame{}, fmt.Errorf("%w: %v", ErrIPC, err)
	}
	f, err := decodeFrame(b[:])
	if err != nil {
		return frame{}, fmt.Errorf("%w: %v", ErrIPC, err)
	}
	framesReceived.Inc()
	return f, nil
}

// refCount reports the interprocess count; used by tests.
func (c *Channel) refCount() uint32 { return c.hdr.refCount() }
