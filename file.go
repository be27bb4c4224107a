package zstream

import (
	"io/fs"
	"os"
	"sync"

	"github.com/absfs/absfs"
)

// fsFile adapts a decompressing stream to the absfs.File interface.
// Metadata operations delegate to the backing file; all mutating
// operations are rejected.
type fsFile struct {
	*File
	base absfs.File
	name string
	cfs  *FS

	closed bool
	mu     sync.Mutex
}

// Name returns the name of the file
func (cf *fsFile) Name() string { return cf.name }

// Stat returns file information for the backing (compressed) file
func (cf *fsFile) Stat() (fs.FileInfo, error) { return cf.base.Stat() }

// Sync syncs the backing file
func (cf *fsFile) Sync() error { return cf.base.Sync() }

// Close records statistics and closes both the stream and the backing
// file. Close is idempotent.
func (cf *fsFile) Close() error {
	cf.mu.Lock()
	defer cf.mu.Unlock()

	if cf.closed {
		return nil
	}
	cf.closed = true

	cf.cfs.addBytes(&cf.cfs.stats.BytesCompressed, int64(cf.File.CompressedBytes()))
	cf.cfs.addBytes(&cf.cfs.stats.BytesDecompressed, int64(cf.File.DecodedBytes()))

	// File.Close closes the backing file too; it owns the source.
	return cf.File.Close()
}

// Write is not supported; the view is read-only
func (cf *fsFile) Write(p []byte) (int, error) { return 0, ErrWriteNotSupported }

// WriteAt is not supported; the view is read-only
func (cf *fsFile) WriteAt(b []byte, off int64) (int, error) { return 0, ErrWriteNotSupported }

// WriteString is not supported; the view is read-only
func (cf *fsFile) WriteString(s string) (int, error) { return 0, ErrWriteNotSupported }

// Truncate is not supported; the view is read-only
func (cf *fsFile) Truncate(size int64) error { return ErrWriteNotSupported }

// ReadAt is not supported: random access into a compressed stream would
// need arbitrary backward seeks
func (cf *fsFile) ReadAt(b []byte, off int64) (int, error) { return 0, ErrNotSupported }

// Readdir is not supported on a decompressing file
func (cf *fsFile) Readdir(n int) ([]os.FileInfo, error) { return nil, ErrNotSupported }

// Readdirnames is not supported on a decompressing file
func (cf *fsFile) Readdirnames(n int) ([]string, error) { return nil, ErrNotSupported }
