package channel

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/parproc/shmtask/pkg/shm"
)

func newTestPair(t *testing.T, size uint64) (*Channel, *Channel) {
	t.Helper()
	a, b, err := NewPair(WithBufferSize(size))
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = a.Close()
		_ = b.Close()
	})
	return a, b
}

func TestSendReceiveRoundTrip(t *testing.T) {
	a, b := newTestPair(t, 1<<20)

	payload := bytes.Repeat([]byte("snake"), 1000)
	require.NoError(t, a.SendBytes(payload))

	buf, err := b.ReceiveBytes(len(payload))
	require.NoError(t, err)
	defer buf.Free()
	assert.Equal(t, payload, buf.Bytes())
}

func TestSendReceiveBothDirections(t *testing.T) {
	a, b := newTestPair(t, 1<<20)

	require.NoError(t, a.SendBytes([]byte("ping")))
	require.NoError(t, b.SendBytes([]byte("pong")))

	got, err := b.ReceiveBytes(4)
	require.NoError(t, err)
	assert.Equal(t, "ping", string(got.Bytes()))
	got.Free()

	got, err = a.ReceiveBytes(4)
	require.NoError(t, err)
	assert.Equal(t, "pong", string(got.Bytes()))
	got.Free()
}

func TestSendOverflowLeavesStateUnchanged(t *testing.T) {
	a, b := newTestPair(t, 4096)

	err := a.SendBytes(make([]byte, 5000))
	assert.ErrorIs(t, err, shm.ErrCapacity)

	// The failed send must not be visible: the full capacity is still
	// free and the peer sees exactly the successful payload.
	payload := bytes.Repeat([]byte{0xAB}, 4096)
	require.NoError(t, a.SendBytes(payload))

	buf, err := b.ReceiveBytes(len(payload))
	require.NoError(t, err)
	defer buf.Free()
	assert.Equal(t, payload, buf.Bytes())

	// Buffer now exhausted.
	assert.ErrorIs(t, a.SendBytes([]byte{1}), shm.ErrCapacity)
}

func TestReceiveShortRead(t *testing.T) {
	a, b := newTestPair(t, 4096)

	require.NoError(t, a.SendBytes([]byte("tiny")))
	_, err := b.ReceiveBytes(100)
	assert.ErrorIs(t, err, ErrShortRead)
}

func TestReceiveAfterPeerClose(t *testing.T) {
	a, b, err := NewPair(WithBufferSize(4096))
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	require.NoError(t, a.Close())
	_, err = b.ReceiveBytes(1)
	assert.ErrorIs(t, err, ErrIPC)
}

func TestObjectRoundTrip(t *testing.T) {
	a, b := newTestPair(t, 1<<20)

	type point struct {
		X float64 `json:"x"`
		Y float64 `json:"y"`
	}

	require.NoError(t, a.SendObject(point{X: 1.5, Y: -2}))

	var got point
	require.NoError(t, b.ReceiveObject(&got))
	assert.Equal(t, point{X: 1.5, Y: -2}, got)
}

func TestObjectSerializationError(t *testing.T) {
	a, _ := newTestPair(t, 4096)

	// Channels (the Go kind) are not serializable by any JSON codec.
	err := a.SendObject(make(chan int))
	assert.ErrorIs(t, err, ErrSerialization)
}

func TestOperationsOnClosedHandle(t *testing.T) {
	a, b, err := NewPair(WithBufferSize(4096))
	require.NoError(t, err)
	defer func() { _ = b.Close() }()

	require.NoError(t, a.Close())
	assert.ErrorIs(t, a.SendBytes([]byte("x")), ErrClosed)
	_, err = a.ReceiveBytes(1)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.Fork(), ErrClosed)
	_, err = a.Dup()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, a.Close(), ErrClosed)
}

func TestSequentialMessages(t *testing.T) {
	a, b := newTestPair(t, 1<<16)

	for i := 0; i < 10; i++ {
		require.NoError(t, a.SendBytes([]byte{byte(i), byte(i + 1)}))
	}
	for i := 0; i < 10; i++ {
		buf, err := b.ReceiveBytes(2)
		require.NoError(t, err)
		assert.Equal(t, []byte{byte(i), byte(i + 1)}, buf.Bytes(), "messages arrive in send order")
		buf.Free()
	}
}
