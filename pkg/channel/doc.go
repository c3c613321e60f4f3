// Package channel implements the point-to-point inter-process channel: a
// shared-memory bulk-transfer region paired with a unix socketpair control
// path.
//
// Payload bytes are deposited directly in shared memory; only a fixed-size
// control frame announcing the deposit crosses the kernel. Large transfers
// therefore never copy through the socket.
//
// Lifetime is tracked by a two-level atomic reference count. The
// interprocess count lives inside the shared region itself, so every process
// mapping the region sees the same cell; it counts endpoint shares across
// all processes. The process-local count lives in ordinary memory and counts
// handles (via Dup) to one endpoint within a single process. Only the last
// local release of an endpoint decrements the interprocess count, and only
// the interprocess count reaching zero releases the mapping.
//
// A channel is a duplex primitive between exactly two cooperating processes,
// not a broker. After an IPC error mid-protocol the channel is in an
// unspecified state and must not be reused for a new logical message.
package channel
