//go:build windows

package tangle

import (
	"unsafe"

	"golang.org/x/sys/windows"
)


//============================================= Mmap (windows)


func mmap(stream fder, mode int, length int64) (MMap, error) {
	protect := uint32(windows.PAGE_READONLY)
	access := uint32(windows.FILE_MAP_READ)

	switch {
		case mode & RDWR != 0:
			protect = windows.PAGE_READWRITE
			access = windows.FILE_MAP_WRITE
		case mode & COPY != 0:
			protect = windows.PAGE_WRITECOPY
			access = windows.FILE_MAP_COPY
	}

	if mode & EXEC != 0 { protect <<= 4 }

	offset := stream.MmapOffset()
	total := offset + length

	sizeHi := uint32(total >> 32)
	sizeLo := uint32(total & 0xFFFFFFFF)

	handle, err := windows.CreateFileMapping(windows.Handle(stream.Fd()), nil, protect, sizeHi, sizeLo, nil)
	if err != nil { return nil, err }
	defer windows.CloseHandle(handle)

	offsetHi := uint32(offset >> 32)
	offsetLo := uint32(offset & 0xFFFFFFFF)

	addr, mapErr := windows.MapViewOfFile(handle, access, offsetHi, offsetLo, uintptr(length))
	if mapErr != nil { return nil, mapErr }

	data := unsafe.Slice((*byte)(unsafe.Pointer(addr)), int(length))
	return MMap(data), nil
}

func munmap(m MMap) error {
	if len(m) == 0 { return nil }
	addr := uintptr(unsafe.Pointer(&m[0]))
	return windows.UnmapViewOfFile(addr)
}

func msync(m MMap) error {
	if len(m) == 0 { return nil }
	addr := uintptr(unsafe.Pointer(&m[0]))
	return windows.FlushViewOfFile(addr, uintptr(len(m)))
}

func pointerTo(m MMap, offset uint64) unsafe.Pointer {
	return unsafe.Pointer(&m[offset])
}
