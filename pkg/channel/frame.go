package channel

import (
	"encoding/binary"
	"fmt"
)

// Control frame layout (32 bytes, little-endian):
//
//	uint32 magic    // "CHNL"
//	uint8  type     // frameType
//	uint8  flags    // reserved, zero
//	uint16 reserved // zero
//	uint64 offset   // payload offset inside the shared region
//	uint64 length   // payload length in bytes
//	uint64 reserved // zero
//
// Frames are the only thing sent over the control socket, so the socket
// traffic is bounded by frameSize per message, well under the 1024-byte
// control-message cap.
const (
	frameMagic = uint32(0x4C4E4843) // "CHNL"
	frameSize  = 32

	// maxControlMessage is the protocol's upper bound on a control
	// message. Frames must always fit.
	maxControlMessage = 1024
)

type frameType uint8

const (
	// frameData announces a payload deposited in the shared region.
	frameData frameType = 0x01
)

type frame struct {
	typ    frameType
	offset uint64
	length uint64
}

func encodeFrame(dst *[frameSize]byte, f frame) {
	b := dst[:]
	binary.LittleEndian.PutUint32(b[0:4], frameMagic)
	b[4] = byte(f.typ)
	b[5] = 0
	binary.LittleEndian.PutUint16(b[6:8], 0)
	binary.LittleEndian.PutUint64(b[8:16], f.offset)
	binary.LittleEndian.PutUint64(b[16:24], f.length)
	binary.LittleEndian.PutUint64(b[24:32], 0)
}

func decodeFrame(b []byte) (frame, error) {
	if len(b) < frameSize {
		return frame{}, fmt.Errorf("control frame too short: %d bytes", len(b))
	}
	if m := binary.LittleEndian.Uint32(b[0:4]); m != frameMagic {
		return frame{}, fmt.Errorf("bad control frame magic 0x%08x", m)
	}
	f := frame{
		typ:    frameType(b[4]),
		offset: binary.LittleEndian.Uint64(b[8:16]),
		length: binary.LittleEndian.Uint64(b[16:24]),
	}
	if f.typ != frameData {
		return frame{}, fmt.Errorf("unknown control frame type 0x%02x", b[4])
	}
	return f, nil
}
