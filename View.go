package tangle

import (
	"sync"
	"sync/atomic"
	"unsafe"
)


//============================================= View Cache


// view is one cached, page-aligned window into a segment's mapped buffer.
//	Windows are zero-copy sub-slices of the segment's single mapping rather
//	than independent OS-level mmap calls — the cache still enforces the
//	contract's capacity, alignment, and FIFO-eviction behavior (see DESIGN.md).
type view struct {
	offset   uint64
	size     uint64
	data     MMap
	refCount int32
}

// ViewCache is a bounded FIFO cache of (offset, size, view, refcount) windows
//	into one segment's memory map, satisfying overlapping Access requests
//	without remapping.
type ViewCache struct {
	mu          sync.Mutex
	capacity    int
	entries     []*view
	outstanding int32
}

// NewViewCache builds a view cache of the given bounded capacity.
func NewViewCache(capacity int) *ViewCache {
	if capacity <= 0 { capacity = DefaultViewCacheSize }
	return &ViewCache{ capacity: capacity }
}

// Outstanding reports how many Range handles issued by this cache have not yet
//	been released. Segment.remap asserts this is 0 before remapping.
func (vc *ViewCache) Outstanding() int32 {
	return atomic.LoadInt32(&vc.outstanding)
}

// Access returns a Range over [offset, offset+size) of mm, reusing a cached
//	view when one already covers the request.
func (vc *ViewCache) Access(mm MMap, offset, size uint64) *Range {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	for _, v := range vc.entries {
		if offset >= v.offset && offset+size <= v.offset+v.size {
			atomic.AddInt32(&v.refCount, 1)
			atomic.AddInt32(&vc.outstanding, 1)

			return &Range{ cache: vc, view: v, base: offset - v.offset, size: size }
		}
	}

	if len(vc.entries) >= vc.capacity {
		oldest := vc.entries[0]
		vc.entries = vc.entries[1:]
		atomic.AddInt32(&oldest.refCount, -1)
	}

	alignedOffset := offset &^ (uint64(ViewPageSize) - 1)
	alignedEnd := offset + size

	if rem := alignedEnd % ViewPageSize; rem != 0 {
		alignedEnd += ViewPageSize - rem
	}

	if segLen := uint64(len(mm)); alignedEnd > segLen { alignedEnd = segLen }

	newView := &view{
		offset:   alignedOffset,
		size:     alignedEnd - alignedOffset,
		data:     mm[alignedOffset:alignedEnd],
		refCount: 2, // one held by the cache entry itself, one for the returned Range
	}

	vc.entries = append(vc.entries, newView)
	atomic.AddInt32(&vc.outstanding, 1)

	return &Range{ cache: vc, view: newView, base: offset - alignedOffset, size: size }
}

// Range is a scoped, RAII-style handle to a byte span inside a cached view.
//	It holds one refcount and releases it on Release; callers must not let a
//	Range escape the worker thread or the operation that acquired it.
type Range struct {
	cache    *ViewCache
	view     *view
	base     uint64
	size     uint64
	released int32
}

// Bytes returns the byte span this range covers. Valid only until Release.
func (r *Range) Bytes() []byte {
	return r.view.data[r.base : r.base+r.size]
}

// Pointer returns a raw pointer to the start of the range, for callers that
//	need direct mmap pointer arithmetic (e.g. atomic loads on header fields).
func (r *Range) Pointer() unsafe.Pointer {
	return pointerTo(r.view.data, r.base)
}

// Release drops this handle's refcount. Idempotent.
func (r *Range) Release() {
	if atomic.CompareAndSwapInt32(&r.released, 0, 1) {
		atomic.AddInt32(&r.view.refCount, -1)
		atomic.AddInt32(&r.cache.outstanding, -1)
	}
}

// reset drops every cached view and their cache-held refs, used when a segment
//	remaps: all prior windows point at memory that may have moved.
func (vc *ViewCache) reset() {
	vc.mu.Lock()
	defer vc.mu.Unlock()

	vc.entries = nil
}
