//go:build linux || darwin

package tangle

import (
	"unsafe"

	"golang.org/x/sys/unix"
)


//============================================= Mmap (unix)


func mmap(stream fder, mode int, length int64) (MMap, error) {
	prot := unix.PROT_READ
	flags := unix.MAP_SHARED

	switch {
		case mode & RDWR != 0:
			prot |= unix.PROT_WRITE
		case mode & COPY != 0:
			prot |= unix.PROT_WRITE
			flags = unix.MAP_PRIVATE
	}

	if mode & EXEC != 0 { prot |= unix.PROT_EXEC }

	data, mmapErr := unix.Mmap(int(stream.Fd()), stream.MmapOffset(), int(length), prot, flags)
	if mmapErr != nil { return nil, mmapErr }

	return MMap(data), nil
}

func munmap(m MMap) error {
	return unix.Munmap([]byte(m))
}

func msync(m MMap) error {
	if len(m) == 0 { return nil }
	return unix.Msync([]byte(m), unix.MS_SYNC)
}

// pointerTo returns the address backing offset within m, used by Segment/Node
// code that reads fixed-width values directly out of the mapped buffer.
func pointerTo(m MMap, offset uint64) unsafe.Pointer {
	return unsafe.Pointer(&m[offset])
}
