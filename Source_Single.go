package tangle

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"
)


//============================================= Single-File Storage Source


// SingleFileSource backs every named stream with one shared host file instead
//	of one file per stream: each stream is a page-aligned region of that file,
//	tracked by a small length-prefixed directory at the front of the file (the
//	portable analogue of one named file holding several streams, in place of
//	an NTFS-ADS-only trick). A region that needs to grow and is not already
//	the last region in the file is relocated to the end; no reclamation of the
//	space it vacates is attempted, matching the engine's no-compaction stance
//	elsewhere in the index/keys/data segments themselves.
type SingleFileSource struct {
	mu       sync.Mutex
	hostPath string
	host     *os.File
	regions  map[string]*singleFileRegion
	nextFree uint64
	open     int
}

// singleFileRegion is one named stream's current placement within the host file.
type singleFileRegion struct {
	offset   uint64
	capacity uint64
}

const (
	singleFileMaxRegions = 8
	singleFileNameBytes  = 16
	// slot: 1 byte name length + name bytes + offset u64 + capacity u64
	singleFileSlotSize = 1 + singleFileNameBytes + 8 + 8
	// directory: 8 byte region count + up to singleFileMaxRegions slots
	singleFileDirRawSize = 8 + singleFileMaxRegions*singleFileSlotSize

	// singleFileRegionAlign is the alignment every region offset is rounded up
	//	to. 64KiB satisfies both POSIX mmap's page-alignment requirement and
	//	Windows' larger MapViewOfFile allocation-granularity requirement.
	singleFileRegionAlign = 64 * 1024
)

// NewSingleFileSource opens/creates hostPath, loading its region directory if
//	the file already holds one or initializing a fresh one otherwise.
func NewSingleFileSource(hostPath string) (*SingleFileSource, error) {
	flag := os.O_RDWR | os.O_CREATE
	host, openErr := os.OpenFile(hostPath, flag, 0600)
	if openErr != nil { return nil, openErr }

	src := &SingleFileSource{ hostPath: hostPath, host: host, regions: make(map[string]*singleFileRegion) }

	info, statErr := host.Stat()
	if statErr != nil { return nil, statErr }

	dirReserve := alignUp(uint64(singleFileDirRawSize), singleFileRegionAlign)

	if info.Size() == 0 {
		if truncErr := host.Truncate(int64(dirReserve)); truncErr != nil { return nil, truncErr }
		src.nextFree = dirReserve

		if err := src.writeDirectoryLocked(); err != nil { return nil, err }
	} else {
		if err := src.readDirectoryLocked(dirReserve); err != nil { return nil, err }
	}

	return src, nil
}

func alignUp(v, align uint64) uint64 {
	rem := v % align
	if rem == 0 { return v }

	return v + (align - rem)
}

func (src *SingleFileSource) readDirectoryLocked(dirReserve uint64) error {
	buf := make([]byte, singleFileDirRawSize)
	if _, err := src.host.ReadAt(buf, 0); err != nil { return err }

	count := binary.LittleEndian.Uint64(buf[0:8])
	src.nextFree = dirReserve

	for i := uint64(0); i < count && i < singleFileMaxRegions; i++ {
		slot := buf[8+i*singleFileSlotSize : 8+(i+1)*singleFileSlotSize]

		nameLen := int(slot[0])
		name := string(slot[1 : 1+nameLen])
		offset := binary.LittleEndian.Uint64(slot[1+singleFileNameBytes : 9+singleFileNameBytes])
		capacity := binary.LittleEndian.Uint64(slot[9+singleFileNameBytes : 17+singleFileNameBytes])

		src.regions[name] = &singleFileRegion{ offset: offset, capacity: capacity }

		if end := offset + capacity; end > src.nextFree { src.nextFree = end }
	}

	return nil
}

func (src *SingleFileSource) writeDirectoryLocked() error {
	if len(src.regions) > singleFileMaxRegions {
		return fmt.Errorf("tangle: single-file source supports at most %d streams", singleFileMaxRegions)
	}

	buf := make([]byte, singleFileDirRawSize)
	binary.LittleEndian.PutUint64(buf[0:8], uint64(len(src.regions)))

	i := uint64(0)
	for name, region := range src.regions {
		slot := buf[8+i*singleFileSlotSize : 8+(i+1)*singleFileSlotSize]

		slot[0] = byte(len(name))
		copy(slot[1:1+singleFileNameBytes], name)
		binary.LittleEndian.PutUint64(slot[1+singleFileNameBytes:9+singleFileNameBytes], region.offset)
		binary.LittleEndian.PutUint64(slot[9+singleFileNameBytes:17+singleFileNameBytes], region.capacity)

		i++
	}

	_, err := src.host.WriteAt(buf, 0)
	return err
}

// Open returns a Stream over name's region, creating an empty one at the end
//	of the file if this is the first time name has been opened.
func (src *SingleFileSource) Open(name string) (Stream, error) {
	src.mu.Lock()
	defer src.mu.Unlock()

	if len(name) > singleFileNameBytes {
		return nil, fmt.Errorf("tangle: stream name %q exceeds %d bytes", name, singleFileNameBytes)
	}

	if _, exists := src.regions[name]; !exists {
		src.regions[name] = &singleFileRegion{ offset: src.nextFree, capacity: 0 }
		if err := src.writeDirectoryLocked(); err != nil { return nil, err }
	}

	src.open++
	return &singleFileStream{ src: src, name: name }, nil
}

// Remove drops name from the directory; the bytes it occupied are not reclaimed.
func (src *SingleFileSource) Remove(name string) error {
	src.mu.Lock()
	defer src.mu.Unlock()

	delete(src.regions, name)
	return src.writeDirectoryLocked()
}

// singleFileStream adapts one named region of a shared host file to Stream.
type singleFileStream struct {
	src  *SingleFileSource
	name string
}

func (s *singleFileStream) regionLocked() *singleFileRegion { return s.src.regions[s.name] }

func (s *singleFileStream) Name() string { return s.src.hostPath + "#" + s.name }

func (s *singleFileStream) Stat() (int64, error) {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()

	return int64(s.regionLocked().capacity), nil
}

// MmapOffset is the region's current byte offset within the host file. It
//	changes when Truncate relocates the region to grow it.
func (s *singleFileStream) MmapOffset() int64 {
	s.src.mu.Lock()
	defer s.src.mu.Unlock()

	return int64(s.regionLocked().offset)
}

func (s *singleFileStream) ReadAt(p []byte, off int64) (int, error) {
	s.src.mu.Lock()
	region := *s.regionLocked()
	s.src.mu.Unlock()

	if uint64(off)+uint64(len(p)) > region.capacity {
		return 0, fmt.Errorf("tangle: read past region %q capacity", s.name)
	}

	return s.src.host.ReadAt(p, int64(region.offset)+off)
}

func (s *singleFileStream) WriteAt(p []byte, off int64) (int, error) {
	s.src.mu.Lock()
	region := *s.regionLocked()
	s.src.mu.Unlock()

	if uint64(off)+uint64(len(p)) > region.capacity {
		return 0, fmt.Errorf("tangle: write past region %q capacity", s.name)
	}

	return s.src.host.WriteAt(p, int64(region.offset)+off)
}

// Truncate grows name's region to size bytes. A region already at the
//	physical end of the host file grows in place; any other region is
//	relocated to the end first, copying its live bytes forward.
func (s *singleFileStream) Truncate(size int64) error {
	newSize := uint64(size)

	s.src.mu.Lock()
	defer s.src.mu.Unlock()

	region := s.regionLocked()
	if newSize <= region.capacity { return nil }

	isLast := region.offset+region.capacity == s.src.nextFree

	if isLast {
		newEnd := region.offset + newSize
		if err := s.src.host.Truncate(int64(newEnd)); err != nil { return err }

		region.capacity = newSize
		s.src.nextFree = newEnd
	} else {
		newOffset := alignUp(s.src.nextFree, singleFileRegionAlign)
		newEnd := newOffset + newSize

		if err := s.src.host.Truncate(int64(newEnd)); err != nil { return err }

		if region.capacity > 0 {
			buf := make([]byte, region.capacity)
			if _, err := s.src.host.ReadAt(buf, int64(region.offset)); err != nil { return err }
			if _, err := s.src.host.WriteAt(buf, int64(newOffset)); err != nil { return err }
		}

		region.offset = newOffset
		region.capacity = newSize
		s.src.nextFree = newEnd
	}

	return s.src.writeDirectoryLocked()
}

func (s *singleFileStream) Sync() error { return s.src.host.Sync() }

func (s *singleFileStream) Fd() uintptr { return s.src.host.Fd() }

// Close decrements the shared host file's reference count, closing it once
//	every stream opened against it (index, keys, data) has been closed.
func (s *singleFileStream) Close() error {
	s.src.mu.Lock()
	s.src.open--
	closeNow := s.src.open == 0
	s.src.mu.Unlock()

	if !closeNow { return nil }
	return s.src.host.Close()
}
