package tangle

import "fmt"


//============================================= Key/Value Segment I/O


// writeKeyBytes appends raw to the keys segment and returns its location.
//	raw longer than MaxKeyLength would truncate silently into the ValueEntry's
//	16-bit KeyLength field, so it is rejected here rather than accepted and
//	corrupted.
func writeKeyBytes(keys *Segment, raw []byte) (offset uint32, length uint16, err error) {
	if len(raw) > MaxKeyLength {
		return 0, 0, newInvalidDataErr(fmt.Errorf("key length %d exceeds MaxKeyLength %d", len(raw), MaxKeyLength))
	}

	at, allocErr := keys.Allocate(uint64(len(raw)))
	if allocErr != nil { return 0, 0, allocErr }

	if writeErr := keys.Write(at, raw); writeErr != nil { return 0, 0, writeErr }

	return uint32(at), uint16(len(raw)), nil
}

// readKeyBytes reads the key bytes located by entry out of the keys segment.
func readKeyBytes(keys *Segment, entry ValueEntry) ([]byte, error) {
	return keys.Read(uint64(entry.KeyOffset), uint64(entry.KeyLength))
}

// writeValueBytes appends raw to the data segment and returns its location.
func writeValueBytes(data *Segment, raw []byte) (offset uint32, length uint32, err error) {
	at, allocErr := data.Allocate(uint64(len(raw)))
	if allocErr != nil { return 0, 0, allocErr }

	if writeErr := data.Write(at, raw); writeErr != nil { return 0, 0, writeErr }

	return uint32(at), uint32(len(raw)), nil
}

// readValueBytes reads the value bytes located by entry out of the data segment.
func readValueBytes(data *Segment, entry ValueEntry) ([]byte, error) {
	return data.Read(uint64(entry.DataOffset), uint64(entry.DataLength))
}
