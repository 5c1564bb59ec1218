package tangle

import (
	"fmt"
	"sync"
	"sync/atomic"
)


//============================================= Mapped Segment


// AccessMode selects how a Range will be used by the caller.
type AccessMode int

const (
	AccessRead AccessMode = iota
	AccessWrite
)

// Segment is one append-only, view-cached mapped region: a fixed 12-byte
//	header {format_version u32, data_length u64} followed by data_length bytes
//	of payload, independently growable by its own quantum. One instance exists
//	per stream (index/keys/data).
type Segment struct {
	stream        Stream
	data          atomic.Value // MMap
	growthQuantum uint64
	views         *ViewCache
	remapMu       sync.Mutex
}

// OpenSegment memory-maps stream, initializing a fresh header if the stream
//	was empty, or validating the stored format_version otherwise.
func OpenSegment(stream Stream, growthQuantum uint64, viewCacheSize int) (*Segment, error) {
	seg := &Segment{
		growthQuantum: growthQuantum,
		views:         NewViewCache(viewCacheSize),
	}

	size, statErr := stream.Stat()
	if statErr != nil { return nil, newStorageIOErr(statErr) }

	switch {
		case size == 0:
			initCap := int64(InitialSegmentCapacity)
			if truncErr := stream.Truncate(initCap); truncErr != nil { return nil, newStorageIOErr(truncErr) }

			mm, mapErr := Map(stream, RDWR, initCap)
			if mapErr != nil { return nil, newStorageIOErr(mapErr) }

			seg.stream = stream
			seg.data.Store(mm)

			atomicStoreU32(mm, segHdrFormatVersionIdx, CurrentFormatVersion)
			atomicStoreU64(mm, segHdrDataLengthIdx, 0)
		default:
			mm, mapErr := Map(stream, RDWR, size)
			if mapErr != nil { return nil, newStorageIOErr(mapErr) }

			seg.stream = stream
			seg.data.Store(mm)

			stored := atomicLoadU32(mm, segHdrFormatVersionIdx)
			switch stored {
				case 0:
					atomicStoreU32(mm, segHdrFormatVersionIdx, CurrentFormatVersion)
				case CurrentFormatVersion:
					// ok
				default:
					return nil, newFormatMismatchErr(stored)
			}
	}

	return seg, nil
}

func (seg *Segment) currentMMap() MMap {
	return seg.data.Load().(MMap)
}

// FormatVersion returns the header's stored format version.
func (seg *Segment) FormatVersion() uint32 {
	return atomicLoadU32(seg.currentMMap(), segHdrFormatVersionIdx)
}

// Length returns data_length: the number of live payload bytes.
func (seg *Segment) Length() uint64 {
	return atomicLoadU64(seg.currentMMap(), segHdrDataLengthIdx)
}

// Capacity returns the segment's current mmap size, including the header.
func (seg *Segment) Capacity() uint64 {
	return uint64(len(seg.currentMMap()))
}

// NodeCount returns Capacity ÷ nodeSize, valid when this segment is the index segment.
func (seg *Segment) NodeCount(nodeSize uint64) uint64 {
	return seg.Capacity() / nodeSize
}

// Allocate atomically bumps data_length by size and returns the prior value;
//	the returned [offset, offset+size) range is guaranteed zero-initialized.
//	Remaps to the next growth-quantum multiple first if capacity would be
//	exceeded. Must only be called from the tangle's worker goroutine, and only
//	while no Range from this segment's view cache is outstanding.
func (seg *Segment) Allocate(size uint64) (uint64, error) {
	for {
		mm := seg.currentMMap()
		curLen := atomicLoadU64(mm, segHdrDataLengthIdx)
		newLen := curLen + size

		if segmentHeaderSize+newLen > uint64(len(mm)) {
			if remapErr := seg.remap(segmentHeaderSize + newLen); remapErr != nil { return 0, remapErr }
			continue
		}

		if atomicCASU64(mm, segHdrDataLengthIdx, curLen, newLen) {
			return curLen, nil
		}
	}
}

// Access returns a scoped Range over [offset, offset+size) of the payload
//	(offset is relative to the start of payload, i.e. past the header).
func (seg *Segment) Access(offset, size uint64, mode AccessMode) (*Range, error) {
	mm := seg.currentMMap()
	absEnd := segmentHeaderSize + offset + size

	if absEnd > uint64(len(mm)) {
		if remapErr := seg.remap(absEnd); remapErr != nil { return nil, remapErr }
		mm = seg.currentMMap()
	}

	return seg.views.Access(mm, segmentHeaderSize+offset, size), nil
}

// Write is a convenience for the common case: copy src into [offset, offset+len(src)).
func (seg *Segment) Write(offset uint64, src []byte) error {
	if len(src) == 0 { return nil }

	rng, accessErr := seg.Access(offset, uint64(len(src)), AccessWrite)
	if accessErr != nil { return accessErr }
	defer rng.Release()

	copy(rng.Bytes(), src)
	return nil
}

// Read is a convenience for the common case: copy [offset, offset+size) out.
func (seg *Segment) Read(offset, size uint64) ([]byte, error) {
	if size == 0 { return nil, nil }

	rng, accessErr := seg.Access(offset, size, AccessRead)
	if accessErr != nil { return nil, accessErr }
	defer rng.Release()

	out := make([]byte, size)
	copy(out, rng.Bytes())
	return out, nil
}

// remap grows the segment's mmap to at least requiredSize, rounded up to the
//	next growthQuantum multiple. All outstanding view references must have been
//	released first; this is enforced by engine discipline (allocate/remap only
//	run on the worker thread, never while a Range is held open), asserted here.
func (seg *Segment) remap(requiredSize uint64) error {
	seg.remapMu.Lock()
	defer seg.remapMu.Unlock()

	if outstanding := seg.views.Outstanding(); outstanding != 0 {
		return newStorageIOErr(fmt.Errorf("remap attempted with %d outstanding view ranges", outstanding))
	}

	mm := seg.currentMMap()
	newCap := uint64(len(mm))
	if newCap == 0 { newCap = InitialSegmentCapacity }

	for newCap < requiredSize { newCap += seg.growthQuantum }

	if flushErr := mm.Flush(); flushErr != nil { return newStorageIOErr(flushErr) }
	if unmapErr := mm.Unmap(); unmapErr != nil { return newStorageIOErr(unmapErr) }

	if truncErr := seg.stream.Truncate(int64(newCap)); truncErr != nil { return newStorageIOErr(truncErr) }

	newMM, mapErr := Map(seg.stream, RDWR, int64(newCap))
	if mapErr != nil { return newStorageIOErr(mapErr) }

	seg.data.Store(newMM)
	seg.views.reset()

	return nil
}

// FlushRange flushes [startOffset, endOffset) of the payload to disk, aligning
//	the start down to the page boundary.
func (seg *Segment) FlushRange(startOffset, endOffset uint64) error {
	mm := seg.currentMMap()
	if len(mm) == 0 { return nil }

	absStart := segmentHeaderSize + startOffset
	absEnd := segmentHeaderSize + endOffset
	if absEnd > uint64(len(mm)) { absEnd = uint64(len(mm)) }

	pageAligned := absStart &^ (uint64(DefaultPageSize) - 1)
	if pageAligned >= absEnd { return nil }

	return mm[pageAligned:absEnd].Flush()
}

// Reset returns the segment to an empty state, used by Clear: the payload
//	bytes in use are zeroed and data_length drops to 0, while the mapping and
//	the backing stream keep their current size. Keys/data segments are simply
//	abandoned per spec — no compaction of freed space is attempted.
func (seg *Segment) Reset() error {
	mm := seg.currentMMap()
	used := atomicLoadU64(mm, segHdrDataLengthIdx)
	clear(mm[segmentHeaderSize : segmentHeaderSize+used])

	atomicStoreU64(mm, segHdrDataLengthIdx, 0)
	return nil
}

// Close flushes and unmaps the segment, then closes its backing stream.
func (seg *Segment) Close() error {
	mm := seg.currentMMap()

	if len(mm) > 0 {
		if flushErr := mm.Flush(); flushErr != nil { return newStorageIOErr(flushErr) }
		if unmapErr := mm.Unmap(); unmapErr != nil { return newStorageIOErr(unmapErr) }
	}

	seg.data.Store(MMap{})
	return seg.stream.Close()
}

// Sync flushes the backing stream to durable storage.
func (seg *Segment) Sync() error {
	return seg.stream.Sync()
}
