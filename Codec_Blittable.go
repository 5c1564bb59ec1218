package tangle

import (
	"encoding/binary"
	"fmt"
	"io"
)


//============================================= Blittable Codec


// Blittable is the set of fixed-width numeric types the BlittableCodec can carry.
type Blittable interface {
	~int8 | ~int16 | ~int32 | ~int64 | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~float32 | ~float64
}

// BlittableCodec serializes fixed-width numeric values via their raw little-endian encoding.
type BlittableCodec[T Blittable] struct{}

func (BlittableCodec[T]) Serialize(value T, w io.Writer) error {
	return binary.Write(w, binary.LittleEndian, value)
}

func (BlittableCodec[T]) Deserialize(r io.Reader, out *T) error {
	if out == nil { return fmt.Errorf("blittable codec: nil output pointer") }
	return binary.Read(r, binary.LittleEndian, out)
}
