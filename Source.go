package tangle

import "io"


//============================================= Storage Source


// Stream is an append-capable, seekable byte stream that survives across reopens.
//	Segment.go drives a Stream through Stat/Truncate/Sync/the memory-mapped fd;
//	this interface carries only what a Segment needs from it.
type Stream interface {
	io.ReaderAt
	io.WriterAt
	Name() string
	Stat() (size int64, err error)
	Truncate(size int64) error
	Sync() error
	Close() error
	// Fd is the OS file descriptor/handle backing the stream, required to mmap it.
	Fd() uintptr
	// MmapOffset is the byte offset within the Fd's underlying file where this
	//	stream's own region begins; 0 unless several streams share one fd.
	MmapOffset() int64
}

// StorageSource produces named, independent streams backing one logical tangle.
//	Two implementations ship with the engine: DirSource (Source_Dir.go), one
//	prefixed file per stream under a directory, and SingleFileSource
//	(Source_Single.go), one host file with each stream as a region inside it.
type StorageSource interface {
	Open(name string) (Stream, error)
	// Remove deletes whatever backs name, used by Tangle.Remove.
	Remove(name string) error
}

// Stream names for the three segments every tangle owns.
const (
	streamNameIndex = "index"
	streamNameKeys  = "keys"
	streamNameData  = "data"
)
