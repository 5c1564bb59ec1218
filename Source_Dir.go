package tangle

import (
	"os"
	"path/filepath"
)


//============================================= Directory Storage Source


// DirSource opens one prefixed file per named stream under a directory.
type DirSource struct {
	dir      string
	baseName string
}

// NewDirSource roots a DirSource at dir, naming streams "<baseName>.<name>".
func NewDirSource(dir, baseName string) *DirSource {
	return &DirSource{ dir: dir, baseName: baseName }
}

func (src *DirSource) path(name string) string {
	return filepath.Join(src.dir, src.baseName+"."+name)
}

func (src *DirSource) Open(name string) (Stream, error) {
	if mkdirErr := os.MkdirAll(src.dir, 0750); mkdirErr != nil { return nil, mkdirErr }

	flag := os.O_RDWR | os.O_CREATE
	file, openErr := os.OpenFile(src.path(name), flag, 0600)
	if openErr != nil { return nil, openErr }

	return &fileStream{ file: file }, nil
}

func (src *DirSource) Remove(name string) error {
	return os.Remove(src.path(name))
}

// fileStream adapts *os.File to the Stream contract.
type fileStream struct {
	file *os.File
}

func (fs *fileStream) ReadAt(p []byte, off int64) (int, error)  { return fs.file.ReadAt(p, off) }
func (fs *fileStream) WriteAt(p []byte, off int64) (int, error) { return fs.file.WriteAt(p, off) }
func (fs *fileStream) Name() string                             { return fs.file.Name() }
func (fs *fileStream) Truncate(size int64) error                { return fs.file.Truncate(size) }
func (fs *fileStream) Sync() error                              { return fs.file.Sync() }
func (fs *fileStream) Close() error                             { return fs.file.Close() }
func (fs *fileStream) Fd() uintptr                              { return fs.file.Fd() }
func (fs *fileStream) MmapOffset() int64                        { return 0 }

func (fs *fileStream) Stat() (int64, error) {
	info, statErr := fs.file.Stat()
	if statErr != nil { return 0, statErr }

	return info.Size(), nil
}
