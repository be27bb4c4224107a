package zstream

import "io"

// inputBuffer feeds the decompression engine from the underlying source one
// fixed-size chunk at a time. buf[pos:size] holds the unconsumed encoded
// bytes; the rest of the buffer is stale. It also records how the source
// ended so the stream can tell clean exhaustion apart from hard failures.
type inputBuffer struct {
	src io.Reader
	buf []byte

	pos  int
	size int

	// consumed counts encoded bytes handed to the engine, for stats.
	consumed uint64

	// exhausted is set on clean end of source; err holds a deferred
	// source error. Both are sticky until reset.
	exhausted bool
	err       error
}

func newInputBuffer(src io.Reader, size int) *inputBuffer {
	return &inputBuffer{
		src: src,
		buf: make([]byte, size),
	}
}

func (b *inputBuffer) Read(p []byte) (int, error) {
	if b.pos == b.size {
		if err := b.fill(); err != nil {
			return 0, err
		}
	}
	n := copy(p, b.buf[b.pos:b.size])
	b.pos += n
	b.consumed += uint64(n)
	return n, nil
}

// fill reads the next encoded chunk from the source. On return either
// buf[pos:size] is non-empty or an error is reported.
func (b *inputBuffer) fill() error {
	if b.exhausted {
		return io.EOF
	}
	if b.err != nil {
		return b.err
	}
	for {
		n, err := b.src.Read(b.buf)
		b.pos, b.size = 0, n
		if err != nil {
			if err == io.EOF {
				b.exhausted = true
			} else {
				b.err = err
			}
			if n == 0 {
				if b.exhausted {
					return io.EOF
				}
				return b.err
			}
			return nil
		}
		if n > 0 {
			return nil
		}
	}
}

// sourceErr reports the deferred source error, if any. Clean end of source
// is not an error.
func (b *inputBuffer) sourceErr() error { return b.err }

// reset empties the buffer and clears end/error state. The caller rewinds
// the source separately.
func (b *inputBuffer) reset() {
	b.pos, b.size = 0, 0
	b.consumed = 0
	b.exhausted = false
	b.err = nil
}
