package zstream

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"sync"
	"sync/atomic"

	"github.com/absfs/absfs"
)

// FS is a read-only view of an absfs filesystem that transparently
// decompresses compressed files. Every opened file is probed by magic
// bytes: compressed files come back as decompressing streams, everything
// else is served as-is.
type FS struct {
	base   absfs.Filer
	config *Config
	stats  Stats
	mu     sync.RWMutex
}

// Stats holds decompression statistics
type Stats struct {
	FilesDecompressed  int64
	FilesPassedThrough int64

	// BytesCompressed counts encoded bytes consumed from the backing
	// files; BytesDecompressed counts decoded bytes produced.
	BytesCompressed   int64
	BytesDecompressed int64

	AlgorithmCounts sync.Map // map[Algorithm]int64
}

// GetAlgorithmCount returns the count for a specific algorithm
func (s *Stats) GetAlgorithmCount(algo Algorithm) int64 {
	if val, ok := s.AlgorithmCounts.Load(algo); ok {
		return val.(int64)
	}
	return 0
}

// IncrementAlgorithmCount increments the count for a specific algorithm
func (s *Stats) IncrementAlgorithmCount(algo Algorithm) {
	val, _ := s.AlgorithmCounts.LoadOrStore(algo, int64(0))
	s.AlgorithmCounts.Store(algo, val.(int64)+1)
}

// NewFS creates a read-only decompressing view over base
func NewFS(base absfs.Filer, config *Config) (*FS, error) {
	cfg := config.normalize()
	if cfg.Algorithm != AlgorithmAuto && !supported(cfg.Algorithm) {
		return nil, ErrUnsupportedAlgorithm
	}
	return &FS{
		base:   base,
		config: cfg,
	}, nil
}

// Open opens a file for reading
func (cfs *FS) Open(name string) (absfs.File, error) {
	return cfs.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens a file for reading, decompressing transparently when the
// file's magic bytes identify a supported format. Write, append, create
// and truncate flags are rejected: the view is read-only.
func (cfs *FS) OpenFile(name string, flag int, perm fs.FileMode) (absfs.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, ErrWriteNotSupported
	}

	base, err := cfs.base.OpenFile(name, flag, perm)
	if err != nil {
		return nil, err
	}

	f, err := New(base, cfs.configFor(name))
	switch {
	case err == nil:
		cfs.incrementStat(&cfs.stats.FilesDecompressed)
		cfs.stats.IncrementAlgorithmCount(f.Algorithm())
		return &fsFile{File: f, base: base, name: name, cfs: cfs}, nil

	case errors.Is(err, ErrNotCompressed), errors.Is(err, ErrHeaderTooShort):
		// Not a compressed file (or too small to be one); serve the
		// original, rewound.
		if _, serr := base.Seek(0, io.SeekStart); serr != nil {
			base.Close()
			return nil, serr
		}
		cfs.incrementStat(&cfs.stats.FilesPassedThrough)
		return base, nil

	default:
		base.Close()
		return nil, err
	}
}

// configFor resolves the config for one file. Extensions only matter for
// brotli, which has no magic bytes to detect.
func (cfs *FS) configFor(name string) *Config {
	cfs.mu.RLock()
	cfg := cfs.config
	cfs.mu.RUnlock()

	if cfg.Algorithm != AlgorithmAuto {
		return cfg
	}
	if algo, ok := DetectAlgorithmFromExtension(name); ok && algo == AlgorithmBrotli {
		c := *cfg
		c.Algorithm = AlgorithmBrotli
		return &c
	}
	return cfg
}

// Stat returns file information from the base filesystem. The reported
// size is the compressed size; the decompressed length is not known
// without decoding.
func (cfs *FS) Stat(name string) (fs.FileInfo, error) {
	return cfs.base.Stat(name)
}

// GetStats returns current statistics
func (cfs *FS) GetStats() *Stats {
	return &Stats{
		FilesDecompressed:  atomic.LoadInt64(&cfs.stats.FilesDecompressed),
		FilesPassedThrough: atomic.LoadInt64(&cfs.stats.FilesPassedThrough),
		BytesCompressed:    atomic.LoadInt64(&cfs.stats.BytesCompressed),
		BytesDecompressed:  atomic.LoadInt64(&cfs.stats.BytesDecompressed),
	}
}

// ResetStats resets statistics to zero
func (cfs *FS) ResetStats() {
	cfs.mu.Lock()
	defer cfs.mu.Unlock()
	atomic.StoreInt64(&cfs.stats.FilesDecompressed, 0)
	atomic.StoreInt64(&cfs.stats.FilesPassedThrough, 0)
	atomic.StoreInt64(&cfs.stats.BytesCompressed, 0)
	atomic.StoreInt64(&cfs.stats.BytesDecompressed, 0)
	cfs.stats.AlgorithmCounts = sync.Map{}
}

// incrementStat atomically increments a stat counter
func (cfs *FS) incrementStat(counter *int64) {
	atomic.AddInt64(counter, 1)
}

// addBytes atomically adds to a byte counter
func (cfs *FS) addBytes(counter *int64, n int64) {
	atomic.AddInt64(counter, n)
}
