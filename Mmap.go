package tangle

import "errors"


//============================================= Mmap Contract


// fder is the subset of Stream that platform Map() implementations mmap against.
type fder interface {
	Fd() uintptr
	MmapOffset() int64
}

var errZeroLengthMmap = errors.New("tangle: cannot mmap zero length file")

// Map memory-maps stream at the given protection mode, covering length bytes.
//	length == 0 maps the stream's current on-disk size.
func Map(stream Stream, mode int, length int64) (MMap, error) {
	if length == 0 {
		size, statErr := stream.Stat()
		if statErr != nil { return nil, statErr }

		length = size
	}

	if length == 0 { return nil, errZeroLengthMmap }

	return mmap(stream, mode, length)
}

// Unmap releases the mapping. Flush should be called first if mode is RDWR and
//	changes must be durable.
func (m MMap) Unmap() error {
	return munmap(m)
}

// Flush synchronously writes the mapped pages back to the backing stream.
func (m MMap) Flush() error {
	return msync(m)
}
