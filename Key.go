package tangle

import (
	"bytes"
	"encoding/binary"
	"io"
)


//============================================= Tangle Key & Codec


// KeyType tags the original source type a TangleKey was constructed from.
//	The tag is metadata carried for round-tripping only — it is never part of
//	ordering or equality, both of which operate on the raw byte sequence.
type KeyType uint8

const (
	KeyTypeText  KeyType = 0
	KeyTypeBytes KeyType = 1
	KeyTypeU32   KeyType = 2
	KeyTypeI32   KeyType = 3
	KeyTypeU64   KeyType = 4
	KeyTypeI64   KeyType = 5
)

// TangleKey is an immutable (type-tag, byte sequence) pair.
//	Two keys are equal iff their byte sequences are equal; order is
//	lexicographic unsigned-byte comparison, shorter-is-less on a shared prefix.
type TangleKey struct {
	typ   KeyType
	bytes []byte
}

// Type returns the tag the key was constructed with.
func (k TangleKey) Type() KeyType { return k.typ }

// Bytes returns the raw byte sequence backing the key. Lookups compare on this alone.
func (k TangleKey) Bytes() []byte { return k.bytes }

// Compare orders two keys by lexicographic unsigned-byte comparison of their bytes.
func (k TangleKey) Compare(other TangleKey) int {
	return bytes.Compare(k.bytes, other.bytes)
}

// Equal reports whether two keys carry identical bytes, regardless of type tag.
//	The engine treats two differently-typed keys with identical bytes as aliased
//	(DESIGN.md Open Question (b)).
func (k TangleKey) Equal(other TangleKey) bool {
	return bytes.Equal(k.bytes, other.bytes)
}

// NewTextKey builds a key from a UTF-8 string, tagged KeyTypeText.
func NewTextKey(s string) TangleKey {
	return TangleKey{ typ: KeyTypeText, bytes: []byte(s) }
}

// NewBytesKey builds a key directly from raw bytes, tagged KeyTypeBytes.
func NewBytesKey(b []byte) TangleKey {
	cp := make([]byte, len(b))
	copy(cp, b)
	return TangleKey{ typ: KeyTypeBytes, bytes: cp }
}

// NewU32Key encodes v little-endian, tagged KeyTypeU32.
func NewU32Key(v uint32) TangleKey {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, v)
	return TangleKey{ typ: KeyTypeU32, bytes: buf }
}

// NewI32Key encodes v little-endian as its unsigned bit pattern, tagged KeyTypeI32.
func NewI32Key(v int32) TangleKey {
	buf := make([]byte, 4)
	binary.LittleEndian.PutUint32(buf, uint32(v))
	return TangleKey{ typ: KeyTypeI32, bytes: buf }
}

// NewU64Key encodes v little-endian, tagged KeyTypeU64.
func NewU64Key(v uint64) TangleKey {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, v)
	return TangleKey{ typ: KeyTypeU64, bytes: buf }
}

// NewI64Key encodes v little-endian as its unsigned bit pattern, tagged KeyTypeI64.
func NewI64Key(v int64) TangleKey {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	return TangleKey{ typ: KeyTypeI64, bytes: buf }
}

// keyFromStored reconstructs a TangleKey from bytes read back out of the keys segment.
func keyFromStored(typ KeyType, raw []byte) TangleKey {
	cp := make([]byte, len(raw))
	copy(cp, raw)
	return TangleKey{ typ: typ, bytes: cp }
}

// Codec is the caller-supplied serialize/deserialize contract for value payloads.
//	Serialize appends bytes for value into w; Deserialize consumes bytes from r
//	and produces value into out. Implementations must not retain r or w past return.
type Codec[T any] interface {
	Serialize(value T, w io.Writer) error
	Deserialize(r io.Reader, out *T) error
}
