package channel

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/parproc/shmtask/internal/config"
)

type options struct {
	bufferSize uint64
	codec      Codec
	tracer     trace.Tracer
	meter      metric.Meter
}

func buildOptions(opts []Option) options {
	o := options{
		bufferSize: config.Get().BufferSize,
		codec:      DefaultCodec(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Option configures a channel pair at creation or attach time.
type Option func(*options)

// WithBufferSize sets the shared buffer capacity in bytes. The default is
// 2 GiB of virtual reservation, overridable process-wide through
// SHMTASK_BUFFER_SIZE. Scale it down in environments where address-space
// reservation is costly.
//
// Panics if size is 0; an unusable channel is a programmer error, not a
// runtime condition.
func WithBufferSize(size uint64) Option {
	if size == 0 {
		panic(fmt.Sprintf("channel: buffer size must be greater than 0, got %d", size))
	}
	return func(o *options) { o.bufferSize = size }
}

// WithCodec injects the object codec used by SendObject and ReceiveObject.
// Both endpoints of a link must agree on the codec.
func WithCodec(c Codec) Option {
	if c == nil {
		panic("channel: codec must not be nil")
	}
	return func(o *options) { o.codec = c }
}

// WithTracer enables a span around each object send and receive.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}

// WithMeter enables object-level OpenTelemetry counters alongside the
// package's Prometheus metrics.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}
