package channel

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrameRoundTrip(t *testing.T) {
	in := frame{typ: frameData, offset: 1 << 40, length: 12345}

	var b [frameSize]byte
	encodeFrame(&b, in)
	out, err := decodeFrame(b[:])
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestFrameFitsControlBound(t *testing.T) {
	assert.LessOrEqual(t, frameSize, maxControlMessage)
}

func TestFrameDecodeErrors(t *testing.T) {
	var b [frameSize]byte
	encodeFrame(&b, frame{typ: frameData})

	_, err := decodeFrame(b[:frameSize-1])
	assert.Error(t, err, "truncated frame")

	bad := b
	bad[0] ^= 0xff
	_, err = decodeFrame(bad[:])
	assert.Error(t, err, "corrupt magic")

	bad = b
	bad[4] = 0x7f
	_, err = decodeFrame(bad[:])
	assert.Error(t, err, "unknown type")
}
