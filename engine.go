package zstream

import (
	"io"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// engine is one decompression session. Read produces decoded bytes, pulling
// encoded chunks from the reader it was created over, and returns io.EOF at
// the end of the frame. Reset rebinds the session to a fresh encoded stream
// for rewinds; Close releases it.
type engine interface {
	io.Reader
	Reset(src io.Reader) error
	Close() error
}

// newEngine creates a decompression session for the specified algorithm
func newEngine(algo Algorithm, src io.Reader) (engine, error) {
	switch algo {
	case AlgorithmGzip:
		return newGzipEngine(src)
	case AlgorithmZstd:
		return newZstdEngine(src)
	case AlgorithmLZ4:
		return newLZ4Engine(src)
	case AlgorithmBrotli:
		return newBrotliEngine(src)
	case AlgorithmSnappy:
		return newSnappyEngine(src)
	default:
		return nil, ErrUnsupportedAlgorithm
	}
}

// chunkSizes returns the recommended encoded and decoded chunk sizes for an
// algorithm. zstd uses its streaming-recommended 128KB; the other formats
// use a common 64KB window.
func chunkSizes(algo Algorithm) (in, out int) {
	if algo == AlgorithmZstd {
		return 128 * 1024, 128 * 1024
	}
	return 64 * 1024, 64 * 1024
}

// Zstd implementation using github.com/klauspost/compress/zstd
type zstdEngine struct {
	dec *zstd.Decoder
}

func newZstdEngine(src io.Reader) (engine, error) {
	// Concurrency 1 keeps decoding synchronous in the caller's goroutine;
	// the stream does all I/O inline and owns no background work.
	dec, err := zstd.NewReader(src, zstd.WithDecoderConcurrency(1))
	if err != nil {
		return nil, err
	}
	return &zstdEngine{dec: dec}, nil
}

func (e *zstdEngine) Read(p []byte) (int, error) { return e.dec.Read(p) }
func (e *zstdEngine) Reset(src io.Reader) error  { return e.dec.Reset(src) }
func (e *zstdEngine) Close() error               { e.dec.Close(); return nil }

// Gzip implementation using github.com/klauspost/compress/gzip
type gzipEngine struct {
	zr *gzip.Reader
}

func newGzipEngine(src io.Reader) (engine, error) {
	zr, err := gzip.NewReader(src)
	if err != nil {
		return nil, err
	}
	// Stop at the first gzip stream instead of decoding concatenations.
	zr.Multistream(false)
	return &gzipEngine{zr: zr}, nil
}

func (e *gzipEngine) Read(p []byte) (int, error) { return e.zr.Read(p) }

func (e *gzipEngine) Reset(src io.Reader) error {
	if err := e.zr.Reset(src); err != nil {
		return err
	}
	e.zr.Multistream(false)
	return nil
}

func (e *gzipEngine) Close() error { return e.zr.Close() }

// LZ4 implementation using github.com/pierrec/lz4/v4
type lz4Engine struct {
	zr *lz4.Reader
}

func newLZ4Engine(src io.Reader) (engine, error) {
	return &lz4Engine{zr: lz4.NewReader(src)}, nil
}

func (e *lz4Engine) Read(p []byte) (int, error) { return e.zr.Read(p) }
func (e *lz4Engine) Reset(src io.Reader) error  { e.zr.Reset(src); return nil }
func (e *lz4Engine) Close() error               { return nil }

// Brotli implementation using github.com/andybalholm/brotli
type brotliEngine struct {
	br *brotli.Reader
}

func newBrotliEngine(src io.Reader) (engine, error) {
	return &brotliEngine{br: brotli.NewReader(src)}, nil
}

func (e *brotliEngine) Read(p []byte) (int, error) { return e.br.Read(p) }
func (e *brotliEngine) Reset(src io.Reader) error  { return e.br.Reset(src) }
func (e *brotliEngine) Close() error               { return nil }

// Snappy implementation using github.com/golang/snappy
type snappyEngine struct {
	sr *snappy.Reader
}

func newSnappyEngine(src io.Reader) (engine, error) {
	return &snappyEngine{sr: snappy.NewReader(src)}, nil
}

func (e *snappyEngine) Read(p []byte) (int, error) { return e.sr.Read(p) }
func (e *snappyEngine) Reset(src io.Reader) error  { e.sr.Reset(src); return nil }
func (e *snappyEngine) Close() error               { return nil }
