package channel

import "github.com/bytedance/sonic"

// Codec translates between objects and bytes for SendObject and
// ReceiveObject. The channel treats it as an opaque collaborator: any
// encode/decode failure surfaces as ErrSerialization, and the wire sees
// only the bytes it produces.
type Codec interface {
	Encode(v any) ([]byte, error)
	Decode(data []byte, out any) error
}

// DefaultCodec returns the module's default codec, JSON via sonic. Values
// round-trip with JSON semantics: numbers decode as float64 when the
// destination is untyped.
func DefaultCodec() Codec { return sonicCodec{} }

type sonicCodec struct{}

func (sonicCodec) Encode(v any) ([]byte, error) { return sonic.Marshal(v) }

func (sonicCodec) Decode(data []byte, out any) error { return sonic.Unmarshal(data, out) }
