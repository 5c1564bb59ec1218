package tangle

import "os"


//============================================= Tangle Types


// MMap
//	The byte array representation of a memory mapped segment.
type MMap []byte

// TangleOpts initializes a Tangle.
type TangleOpts struct {
	// Filepath: the path to the directory holding the tangle's streams
	Filepath string
	// FileName: the base name shared by the tangle's streams
	FileName string
	// Source: optional storage source; defaults to a DirSource rooted at Filepath
	Source StorageSource
	// IdleTimeoutMillis: how long the worker waits with an empty queue before exiting; nothing is flushed on that exit
	IdleTimeoutMillis int64
	// Logger: optional structured logger; defaults to a no-op logger
	Logger *Log
	// ViewCacheSize: optional override for the per-segment view cache capacity
	ViewCacheSize int
	// NodePoolSize: optional override for the max number of recycled *BTreeNode instances kept warm
	NodePoolSize int64
}

const (
	// DefaultIdleTimeoutMillis is how long the worker idles before exiting; segments are flushed only by Close
	DefaultIdleTimeoutMillis = int64(30 * 1000)
	// DefaultViewCacheSize is the bounded FIFO view cache capacity per segment
	DefaultViewCacheSize = 4
	// DefaultNodePoolSize is the max number of recycled *BTreeNode instances kept warm
	DefaultNodePoolSize = 1024
	// ViewPageSize is the alignment/size granularity for cached views
	ViewPageSize = 8 * 1024
	// InitialSegmentCapacity is the mmap size a fresh segment starts at
	InitialSegmentCapacity = 32 * 1024
	// IndexGrowthQuantum is the remap granularity for the index segment
	IndexGrowthQuantum = 4 * 1024
	// DataGrowthQuantum is the remap granularity for the keys/data segments
	DataGrowthQuantum = 64 * 1024
	// MaxKeyLength is the largest byte length a tangle key may carry
	MaxKeyLength = 65534
)

// segmentHeaderSize: 4 bytes format_version + 8 bytes data_length
const segmentHeaderSize = 12

const (
	segHdrFormatVersionIdx = 0
	segHdrDataLengthIdx    = 4
)

// CurrentFormatVersion is the only on-disk format version this engine writes or accepts.
const CurrentFormatVersion = uint32(1)

// DefaultPageSize is the default page size set by the underlying OS. Usually 4KiB.
var DefaultPageSize = os.Getpagesize()

const (
	// RDONLY: maps the memory read-only. Attempts to write to the MMap object will result in undefined behavior.
	RDONLY = 0
	// RDWR: maps the memory as read-write. Writes to the MMap object will update the underlying file.
	RDWR = 1 << iota
	// COPY: maps the memory as copy-on-write. Writes to the MMap object will affect memory, but the underlying file will remain unchanged.
	COPY
	// EXEC: marks the mapped memory as executable.
	EXEC
)

const (
	// If the ANON flag is set, the mapped memory will not be backed by a file.
	ANON = 1 << iota
)

/*
	Segment header:
		0  format_version - 4 bytes
		4  data_length    - 8 bytes
		12 payload...

	Value entry (16 bytes), S_V:
		0  key_offset   - 4 bytes
		4  key_length   - 2 bytes
		6  data_offset  - 4 bytes
		10 data_length  - 4 bytes
		14 key_type     - 1 byte
		15 status       - 1 byte

	B-tree node:
		0  is_leaf       - 1 byte
		1  is_modifying  - 1 byte
		2  num_values    - 2 bytes
		4  parent_index  - 8 bytes (-1 for root)
		12 value entries - max_values_per_node * 16 bytes
		... child indices - (max_values_per_node + 1) * 8 bytes
*/
