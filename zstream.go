package zstream

import (
	"errors"
	"io"

	"go.uber.org/zap"
)

// Algorithm represents a compression algorithm
type Algorithm string

const (
	AlgorithmGzip   Algorithm = "gzip"
	AlgorithmZstd   Algorithm = "zstd"
	AlgorithmLZ4    Algorithm = "lz4"
	AlgorithmBrotli Algorithm = "brotli"
	AlgorithmSnappy Algorithm = "snappy"
	AlgorithmAuto   Algorithm = "auto"
)

// Source is the contract a compressed byte source must satisfy: blocking
// reads plus rewind-to-start. Only Seek(0, io.SeekStart) is ever issued;
// arbitrary seeking of the source is not assumed. If the source also
// implements io.Closer it is closed when the stream is closed.
type Source interface {
	io.Reader
	io.Seeker
}

// Config holds decompression stream configuration
type Config struct {
	// Algorithm to decode with. AlgorithmAuto (the default) detects the
	// format from magic bytes. Brotli carries no magic bytes and is only
	// reachable by setting it here explicitly.
	Algorithm Algorithm

	// InputBufferSize is the encoded-side chunk size. 0 selects the
	// decoder's recommended size.
	InputBufferSize int

	// OutputBufferSize is the decoded-side chunk size. 0 selects the
	// decoder's recommended size.
	OutputBufferSize int

	// SkipBufferSize bounds the scratch buffer used to emulate forward
	// seeks (default: 32KB).
	SkipBufferSize int

	// Logger receives diagnostics (truncation, emulated seeks). Nil
	// disables logging.
	Logger *zap.Logger
}

// DefaultConfig returns a config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Algorithm:      AlgorithmAuto,
		SkipBufferSize: 32 * 1024, // 32KB
	}
}

var (
	ErrUnsupportedAlgorithm = errors.New("zstream: unsupported compression algorithm")
	ErrWriteNotSupported    = errors.New("zstream: write mode not supported")
	ErrNotCompressed        = errors.New("zstream: source is not compressed")
	ErrHeaderTooShort       = errors.New("zstream: source shorter than format header")
	ErrTruncated            = errors.New("zstream: truncated compressed stream")
	ErrCorruptedData        = errors.New("zstream: corrupted compressed data")
	ErrInvalidWhence        = errors.New("zstream: seek whence not supported")
	ErrNegativeOffset       = errors.New("zstream: seek to negative offset")
	ErrBackwardSeek         = errors.New("zstream: backward seek not supported")
	ErrNotSupported         = errors.New("zstream: operation not supported on compressed stream")
)

// normalize fills in defaults for zero-valued fields, returning a private
// copy so later caller mutations cannot affect an open stream.
func (c *Config) normalize() *Config {
	cfg := Config{}
	if c != nil {
		cfg = *c
	}
	if cfg.Algorithm == "" {
		cfg.Algorithm = AlgorithmAuto
	}
	if cfg.SkipBufferSize <= 0 {
		cfg.SkipBufferSize = 32 * 1024
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &cfg
}
