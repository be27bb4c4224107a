// Package zstream presents a compressed byte source as an ordinary,
// read-only, forward-seekable stream of decompressed bytes.
//
// Given any source that supports reads and rewind-to-start, Open checks the
// leading magic bytes and, when they identify a supported compression format,
// returns a stream that transparently decompresses on every Read. Sources
// that are not compressed are handed back untouched, so callers can treat
// every input the same way.
//
// # Features
//
//   - Transparent decompression behind io.Reader / io.Seeker / io.Closer
//   - 5 formats: gzip, zstd, lz4, brotli, snappy
//   - Magic-byte format detection (brotli requires an explicit algorithm)
//   - Partial seek model: rewind to 0, emulated forward seek, SEEK_CUR
//   - Byte-exact logical offsets across any mix of read sizes
//   - Truncation detection distinct from clean end-of-stream
//   - Read-only filesystem wrapper for absfs backends
//
// # Quick Start
//
//	f, _ := os.Open("data.txt.zst")
//
//	r, compressed, err := zstream.Open(f, os.O_RDONLY, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// r decompresses transparently; if data.txt.zst was not actually
//	// compressed, r is f itself.
//	_ = compressed
//	data, _ := io.ReadAll(r)
//
// # Seek Model
//
// Compressed formats do not support random access, so the stream emulates a
// restricted model instead:
//
//   - Seek(0, io.SeekStart) rewinds by resetting the decoder session
//   - forward seeks decode and discard until the target offset
//   - backward seeks to anywhere but 0 fail with ErrBackwardSeek
//   - io.SeekEnd fails with ErrInvalidWhence (the decoded length is not
//     known without decoding everything)
//
// Seeking past end-of-stream positions the stream at end-of-stream; the next
// Read returns io.EOF rather than an error.
//
// # Error Model
//
// Clean end-of-stream is io.EOF, never an error sentinel. A source that ends
// or fails mid-frame first yields whatever prefix was decodable as short
// reads, then exactly one ErrTruncated, after which the stream stays failed
// until Reset. Malformed compressed data surfaces as ErrCorruptedData; it is
// not retryable.
//
// A single stream must not be used from multiple goroutines without external
// synchronization.
package zstream
