package tangle

import "sync/atomic"


//============================================= Atomic Header Access


// These pun a typed pointer directly over mapped memory so the segment
//	header fields (format_version, data_length) can be read and mutated with
//	sync/atomic instead of a lock. The U8 variants are plain, non-atomic
//	byte accesses.

func atomicLoadU32(mm MMap, offset uint64) uint32 {
	return atomic.LoadUint32((*uint32)(pointerTo(mm, offset)))
}

func atomicStoreU32(mm MMap, offset uint64, val uint32) {
	atomic.StoreUint32((*uint32)(pointerTo(mm, offset)), val)
}

func atomicLoadU64(mm MMap, offset uint64) uint64 {
	return atomic.LoadUint64((*uint64)(pointerTo(mm, offset)))
}

func atomicStoreU64(mm MMap, offset uint64, val uint64) {
	atomic.StoreUint64((*uint64)(pointerTo(mm, offset)), val)
}

func atomicCASU64(mm MMap, offset uint64, old, new uint64) bool {
	return atomic.CompareAndSwapUint64((*uint64)(pointerTo(mm, offset)), old, new)
}

func atomicLoadU8(mm MMap, offset uint64) uint8 {
	return *(*uint8)(pointerTo(mm, offset))
}

func atomicStoreU8(mm MMap, offset uint64, val uint8) {
	*(*uint8)(pointerTo(mm, offset)) = val
}
