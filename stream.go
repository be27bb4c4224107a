package zstream

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.uber.org/zap"
)

// File is a read-only view of the decompressed contents of a compressed
// source. It implements io.Reader, io.Seeker and io.Closer; see the package
// documentation for the seek and error models.
//
// A File owns its source: closing the File closes the source when the
// source implements io.Closer. A File must not be used concurrently.
type File struct {
	src    Source
	algo   Algorithm
	config *Config
	log    *zap.Logger

	// engine is created on first use so that a source that is truncated
	// inside the format header still opens and fails on Read, like any
	// other truncation.
	engine engine

	in *inputBuffer

	// out[outStart:outPos] is decoded data not yet delivered to the
	// caller; it survives across Read calls.
	out      []byte
	outStart int
	outPos   int

	// logicalOffset is the position the caller observes; decodeOffset is
	// how far decoding has produced. They advance together: nothing is
	// decoded ahead of delivery, and every Read starts with them equal.
	logicalOffset uint64
	decodeOffset  uint64

	// producedTotal counts all decoded bytes this session; diagnostic
	// only, it has no control-flow role.
	producedTotal uint64

	frameEnd  bool // the engine reported the end of the frame
	eof       bool // no further decoded data exists
	truncated bool // the source ended or failed mid-frame
	ferr      error
	closed    bool
}

// New wraps src in a decompressing stream. When config selects
// AlgorithmAuto the format is detected from the leading magic bytes, with
// the source rewound afterwards; sources that match no known format fail
// with ErrNotCompressed and are left rewound. Open is the more forgiving
// entry point for callers that want pass-through behavior instead.
func New(src Source, config *Config) (*File, error) {
	cfg := config.normalize()

	algo := cfg.Algorithm
	if algo == AlgorithmAuto {
		hdr, err := readHeader(src)
		if err != nil {
			return nil, err
		}
		detected, ok := DetectAlgorithm(hdr)
		if !ok {
			return nil, ErrNotCompressed
		}
		algo = detected
	} else if !supported(algo) {
		return nil, ErrUnsupportedAlgorithm
	}

	inSize, outSize := chunkSizes(algo)
	if cfg.InputBufferSize > 0 {
		inSize = cfg.InputBufferSize
	}
	if cfg.OutputBufferSize > 0 {
		outSize = cfg.OutputBufferSize
	}

	f := &File{
		src:    src,
		algo:   algo,
		config: cfg,
		log:    cfg.Logger,
		in:     newInputBuffer(src, inSize),
		out:    make([]byte, outSize),
	}
	f.log.Debug("opened compressed stream",
		zap.String("algorithm", string(algo)),
		zap.Int("input_chunk", inSize),
		zap.Int("output_chunk", outSize))
	return f, nil
}

// Open wraps src in a decompressing stream when its header identifies a
// supported compression format, reporting true. Sources that are not
// compressed are rewound and returned unchanged with false; callers get a
// usable stream either way. Write and append flags are rejected.
//
// When the returned stream is the wrapped form it is a *File, which also
// implements io.Closer and Reset.
func Open(src Source, flag int, config *Config) (io.ReadSeeker, bool, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND) != 0 {
		return nil, false, ErrWriteNotSupported
	}
	f, err := New(src, config)
	if errors.Is(err, ErrNotCompressed) {
		return src, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return f, true, nil
}

// readHeader reads the fixed detection header and rewinds the source.
// Sources shorter than the header cannot be a compressed stream of any
// supported format and fail with ErrHeaderTooShort.
func readHeader(src Source) ([]byte, error) {
	hdr := make([]byte, headerSize)
	if _, err := io.ReadFull(src, hdr); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, ErrHeaderTooShort
		}
		return nil, fmt.Errorf("zstream: read header: %w", err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("zstream: rewind source: %w", err)
	}
	return hdr, nil
}

func supported(algo Algorithm) bool {
	switch algo {
	case AlgorithmGzip, AlgorithmZstd, AlgorithmLZ4, AlgorithmBrotli, AlgorithmSnappy:
		return true
	}
	return false
}

// Read decodes up to len(p) bytes. It returns io.EOF at clean end of the
// frame and ErrTruncated once a truncated source has been fully drained;
// after that the stream stays failed until Reset. A return of n < len(p)
// with a nil error means a terminal condition was reached mid-call; retry
// to observe it.
func (f *File) Read(p []byte) (int, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}
	if len(p) == 0 {
		return 0, nil
	}
	if f.eof {
		if f.ferr != nil {
			return 0, f.ferr
		}
		return 0, io.EOF
	}

	total := 0
	for total < len(p) {
		// Drain undelivered decoded output first.
		if f.outStart < f.outPos {
			n := copy(p[total:], f.out[f.outStart:f.outPos])
			f.outStart += n
			f.decodeOffset += uint64(n)
			f.logicalOffset += uint64(n)
			total += n
			continue
		}

		// The output buffer is empty. A frame end seen on the previous
		// round means no more data exists.
		if f.frameEnd {
			f.eof = true
			break
		}
		if f.truncated || f.ferr != nil {
			break
		}

		if f.engine == nil {
			e, err := newEngine(f.algo, f.in)
			if err != nil {
				f.decodeFailure(err)
				continue
			}
			f.engine = e
		}

		// One engine round: decode the next chunk. The engine pulls
		// encoded chunks through the input buffer as it needs them.
		n, err := f.engine.Read(f.out)
		f.outStart, f.outPos = 0, n
		f.producedTotal += uint64(n)
		if err != nil {
			if errors.Is(err, io.EOF) {
				f.frameEnd = true
			} else {
				f.decodeFailure(err)
			}
		}
	}

	if total > 0 {
		// Short read: the caller observes the terminal condition on
		// the next call.
		return total, nil
	}
	if f.truncated {
		f.eof = true
		if f.ferr == nil {
			f.ferr = ErrTruncated
		}
		return 0, f.ferr
	}
	if f.ferr != nil {
		f.eof = true
		return 0, f.ferr
	}
	return 0, io.EOF
}

// decodeFailure classifies a failed engine round. Truncation is
// recoverable at the stream level; everything else marks the stream failed
// with a non-retryable error.
func (f *File) decodeFailure(err error) {
	srcErr := f.in.sourceErr()
	switch {
	case f.isTruncation(err):
		f.log.Warn("truncated compressed stream",
			zap.String("algorithm", string(f.algo)),
			zap.Uint64("offset", f.logicalOffset))
		f.truncated = true
	case srcErr != nil:
		f.ferr = fmt.Errorf("zstream: read source: %w", srcErr)
	default:
		f.ferr = fmt.Errorf("%w: %v", ErrCorruptedData, err)
	}
}

// isTruncation reports whether a decode failure means the source ended (or
// failed in a way indistinguishable from ending) before the frame
// completed.
func (f *File) isTruncation(err error) bool {
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	// A source that is itself a compressed stream surfaces its own
	// truncation here; treat it as truncation of this stream too.
	if srcErr := f.in.sourceErr(); srcErr != nil {
		return errors.Is(srcErr, ErrTruncated) || errors.Is(srcErr, io.ErrUnexpectedEOF)
	}
	// The engine failed right where the source cleanly ran out.
	return f.in.exhausted
}

// Seek repositions the stream. Only io.SeekStart and io.SeekCurrent are
// accepted. A target of 0 rewinds via Reset; targets beyond the current
// offset are emulated by decoding and discarding; other backward targets
// fail with ErrBackwardSeek without touching stream state. Seeking past
// end-of-stream lands at end-of-stream.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, fs.ErrClosed
	}

	var target int64
	switch whence {
	case io.SeekStart:
		target = offset
	case io.SeekCurrent:
		target = int64(f.logicalOffset) + offset
	default:
		// io.SeekEnd would require decoding to the end to learn the
		// length.
		return 0, ErrInvalidWhence
	}
	if target < 0 {
		return 0, ErrNegativeOffset
	}

	cur := int64(f.logicalOffset)
	switch {
	case target == cur:
		return cur, nil
	case target == 0:
		if err := f.Reset(); err != nil {
			return 0, err
		}
		return 0, nil
	case target < cur:
		return 0, ErrBackwardSeek
	}

	f.log.Debug("emulating forward seek",
		zap.Int64("skip_bytes", target-cur),
		zap.Int64("target", target))

	buf := make([]byte, f.config.SkipBufferSize)
	for int64(f.logicalOffset) < target {
		chunk := target - int64(f.logicalOffset)
		if chunk > int64(len(buf)) {
			chunk = int64(len(buf))
		}
		if _, err := f.Read(buf[:chunk]); err != nil {
			if err == io.EOF {
				// Seek past end-of-stream lands at
				// end-of-stream.
				break
			}
			return 0, err
		}
	}
	return int64(f.logicalOffset), nil
}

// Reset rewinds the stream to offset 0 by rewinding the source and
// resetting the decoder session in place, clearing any end or error state.
// Seek(0, io.SeekStart) is equivalent.
func (f *File) Reset() error {
	if f.closed {
		return fs.ErrClosed
	}
	if _, err := f.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("zstream: rewind source: %w", err)
	}
	f.in.reset()
	f.outStart, f.outPos = 0, 0
	f.logicalOffset = 0
	f.decodeOffset = 0
	f.producedTotal = 0
	f.frameEnd = false
	f.eof = false
	f.truncated = false
	f.ferr = nil
	if f.engine != nil {
		if err := f.engine.Reset(f.in); err != nil {
			return fmt.Errorf("zstream: reset decoder: %w", err)
		}
	}
	return nil
}

// Close releases the decoder session and closes the source when it
// implements io.Closer. Close is idempotent.
func (f *File) Close() error {
	if f.closed {
		return nil
	}
	f.closed = true

	var err error
	if f.engine != nil {
		err = f.engine.Close()
		f.engine = nil
	}
	f.in = nil
	f.out = nil

	if c, ok := f.src.(io.Closer); ok {
		if cerr := c.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}
	f.src = nil
	return err
}

// Algorithm returns the compression algorithm being decoded
func (f *File) Algorithm() Algorithm { return f.algo }

// Offset returns the current position in the decompressed stream, i.e. the
// number of decompressed bytes delivered so far.
func (f *File) Offset() int64 { return int64(f.logicalOffset) }

// DecodedBytes returns the total number of decompressed bytes produced this
// session, including bytes discarded by forward seeks.
func (f *File) DecodedBytes() uint64 { return f.producedTotal }

// CompressedBytes returns the number of encoded bytes consumed from the
// source this session.
func (f *File) CompressedBytes() uint64 {
	if f.in == nil {
		return 0
	}
	return f.in.consumed
}
