package zstream

import (
	"bytes"
	"errors"
	"io"
	"io/fs"
	"os"
	"testing"

	"github.com/andybalholm/brotli"
	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// compress builds a compressed fixture with the given algorithm
func compress(t testing.TB, algo Algorithm, data []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	var w io.WriteCloser
	switch algo {
	case AlgorithmGzip:
		w = gzip.NewWriter(&buf)
	case AlgorithmZstd:
		zw, err := zstd.NewWriter(&buf)
		if err != nil {
			t.Fatalf("Failed to create zstd writer: %v", err)
		}
		w = zw
	case AlgorithmLZ4:
		w = lz4.NewWriter(&buf)
	case AlgorithmBrotli:
		w = brotli.NewWriter(&buf)
	case AlgorithmSnappy:
		w = snappy.NewBufferedWriter(&buf)
	default:
		t.Fatalf("Unknown algorithm %q", algo)
	}

	if _, err := w.Write(data); err != nil {
		t.Fatalf("Failed to compress test data: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("Failed to close compressor: %v", err)
	}
	return buf.Bytes()
}

// testPayload returns compressible but non-uniform test data
func testPayload(n int) []byte {
	const sample = "the quick brown fox jumps over the lazy dog 0123456789 "
	b := make([]byte, 0, n+len(sample))
	for i := 0; len(b) < n; i++ {
		b = append(b, sample...)
		b = append(b, byte(i))
	}
	return b[:n]
}

func mustNew(t *testing.T, data []byte, config *Config) *File {
	t.Helper()
	f, err := New(bytes.NewReader(data), config)
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	return f
}

func TestHelloWorld(t *testing.T) {
	data := compress(t, AlgorithmZstd, []byte("hello world"))
	f := mustNew(t, data, nil)
	defer f.Close()

	buf := make([]byte, 5)
	n, err := f.Read(buf)
	if err != nil || n != 5 {
		t.Fatalf("First read: got (%d, %v), want (5, nil)", n, err)
	}
	if string(buf) != "hello" {
		t.Fatalf("First read: got %q, want %q", buf, "hello")
	}
	if f.Offset() != 5 {
		t.Fatalf("Offset after first read: got %d, want 5", f.Offset())
	}

	buf = make([]byte, 6)
	n, err = f.Read(buf)
	if err != nil || n != 6 {
		t.Fatalf("Second read: got (%d, %v), want (6, nil)", n, err)
	}
	if string(buf) != " world" {
		t.Fatalf("Second read: got %q, want %q", buf, " world")
	}
	if f.Offset() != 11 {
		t.Fatalf("Offset after second read: got %d, want 11", f.Offset())
	}

	n, err = f.Read(buf)
	if n != 0 || err != io.EOF {
		t.Fatalf("Read at end: got (%d, %v), want (0, io.EOF)", n, err)
	}
}

func TestReadSizeIndependence(t *testing.T) {
	payload := testPayload(300_001)

	algorithms := []struct {
		algo   Algorithm
		config *Config
	}{
		{AlgorithmGzip, nil},
		{AlgorithmZstd, nil},
		{AlgorithmLZ4, nil},
		{AlgorithmSnappy, nil},
		{AlgorithmBrotli, &Config{Algorithm: AlgorithmBrotli}},
	}
	sizes := []int{1, 7, 512, 4096, 65536, 1 << 20}

	for _, tt := range algorithms {
		t.Run(string(tt.algo), func(t *testing.T) {
			data := compress(t, tt.algo, payload)
			for _, size := range sizes {
				f := mustNew(t, data, tt.config)

				var got []byte
				buf := make([]byte, size)
				for {
					n, err := f.Read(buf)
					got = append(got, buf[:n]...)
					if err == io.EOF {
						break
					}
					if err != nil {
						t.Fatalf("Read size %d: %v", size, err)
					}
				}
				f.Close()

				if !bytes.Equal(got, payload) {
					t.Fatalf("Read size %d: decoded %d bytes, want %d, content mismatch",
						size, len(got), len(payload))
				}
			}
		})
	}
}

func TestRewind(t *testing.T) {
	payload := testPayload(200_000)
	data := compress(t, AlgorithmZstd, payload)
	f := mustNew(t, data, nil)
	defer f.Close()

	buf := make([]byte, 12_345)
	if _, err := io.ReadFull(f, buf); err != nil {
		t.Fatalf("Failed initial read: %v", err)
	}

	pos, err := f.Seek(0, io.SeekStart)
	if err != nil {
		t.Fatalf("Failed to rewind: %v", err)
	}
	if pos != 0 {
		t.Fatalf("Rewind position: got %d, want 0", pos)
	}

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("Failed to read after rewind: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("Data after rewind does not match original (%d vs %d bytes)",
			len(got), len(payload))
	}
}

func TestRewindIdempotence(t *testing.T) {
	payload := testPayload(100_000)
	data := compress(t, AlgorithmGzip, payload)
	f := mustNew(t, data, nil)
	defer f.Close()

	for i := 0; i < 3; i++ {
		got, err := io.ReadAll(f)
		if err != nil {
			t.Fatalf("Pass %d: read failed: %v", i, err)
		}
		if !bytes.Equal(got, payload) {
			t.Fatalf("Pass %d: data mismatch", i)
		}
		if _, err := f.Seek(0, io.SeekStart); err != nil {
			t.Fatalf("Pass %d: rewind failed: %v", i, err)
		}
	}
}

func TestSeekReadEquivalence(t *testing.T) {
	payload := testPayload(250_000)
	data := compress(t, AlgorithmZstd, payload)

	const k, n = 123_456, 50_000

	f := mustNew(t, data, nil)
	defer f.Close()

	pos, err := f.Seek(k, io.SeekStart)
	if err != nil {
		t.Fatalf("Forward seek failed: %v", err)
	}
	if pos != k {
		t.Fatalf("Seek position: got %d, want %d", pos, k)
	}

	got := make([]byte, n)
	if _, err := io.ReadFull(f, got); err != nil {
		t.Fatalf("Read after seek failed: %v", err)
	}
	if !bytes.Equal(got, payload[k:k+n]) {
		t.Fatalf("Bytes after seek to %d do not match a fresh read", k)
	}
}

func TestSeekCurrent(t *testing.T) {
	payload := testPayload(10_000)
	data := compress(t, AlgorithmZstd, payload)
	f := mustNew(t, data, nil)
	defer f.Close()

	buf := make([]byte, 100)
	if _, err := io.ReadFull(f, buf); err != nil {
		t.Fatalf("Failed initial read: %v", err)
	}

	pos, err := f.Seek(50, io.SeekCurrent)
	if err != nil {
		t.Fatalf("Relative seek failed: %v", err)
	}
	if pos != 150 {
		t.Fatalf("Relative seek position: got %d, want 150", pos)
	}

	// Zero-length relative seek reports the current offset.
	pos, err = f.Seek(0, io.SeekCurrent)
	if err != nil || pos != 150 {
		t.Fatalf("Tell: got (%d, %v), want (150, nil)", pos, err)
	}
}

func TestSeekPastEnd(t *testing.T) {
	payload := testPayload(5_000)
	data := compress(t, AlgorithmZstd, payload)
	f := mustNew(t, data, nil)
	defer f.Close()

	pos, err := f.Seek(int64(len(payload))+999, io.SeekStart)
	if err != nil {
		t.Fatalf("Seek past end failed: %v", err)
	}
	if pos != int64(len(payload)) {
		t.Fatalf("Seek past end: got %d, want clamp to %d", pos, len(payload))
	}

	n, err := f.Read(make([]byte, 10))
	if n != 0 || err != io.EOF {
		t.Fatalf("Read after seek past end: got (%d, %v), want (0, io.EOF)", n, err)
	}
}

func TestBackwardSeekRejected(t *testing.T) {
	payload := testPayload(10_000)
	data := compress(t, AlgorithmZstd, payload)
	f := mustNew(t, data, nil)
	defer f.Close()

	buf := make([]byte, 200)
	if _, err := io.ReadFull(f, buf); err != nil {
		t.Fatalf("Failed initial read: %v", err)
	}

	if _, err := f.Seek(100, io.SeekStart); !errors.Is(err, ErrBackwardSeek) {
		t.Fatalf("Backward seek: got %v, want ErrBackwardSeek", err)
	}
	if _, err := f.Seek(-1, io.SeekCurrent); !errors.Is(err, ErrBackwardSeek) {
		t.Fatalf("Relative backward seek: got %v, want ErrBackwardSeek", err)
	}

	// The failed seeks must not have moved the stream.
	pos, err := f.Seek(0, io.SeekCurrent)
	if err != nil || pos != 200 {
		t.Fatalf("Offset after rejected seeks: got (%d, %v), want (200, nil)", pos, err)
	}
	next := make([]byte, 100)
	if _, err := io.ReadFull(f, next); err != nil {
		t.Fatalf("Read after rejected seeks failed: %v", err)
	}
	if !bytes.Equal(next, payload[200:300]) {
		t.Fatal("Stream state was mutated by a rejected seek")
	}
}

func TestSeekInvalid(t *testing.T) {
	data := compress(t, AlgorithmZstd, []byte("hello world"))
	f := mustNew(t, data, nil)
	defer f.Close()

	if _, err := f.Seek(0, io.SeekEnd); !errors.Is(err, ErrInvalidWhence) {
		t.Fatalf("SeekEnd: got %v, want ErrInvalidWhence", err)
	}
	if _, err := f.Seek(-5, io.SeekStart); !errors.Is(err, ErrNegativeOffset) {
		t.Fatalf("Negative seek: got %v, want ErrNegativeOffset", err)
	}
	if _, err := f.Seek(-5, io.SeekCurrent); !errors.Is(err, ErrNegativeOffset) {
		t.Fatalf("Negative relative seek: got %v, want ErrNegativeOffset", err)
	}
}

func TestTruncated(t *testing.T) {
	payload := testPayload(200_000)

	for _, algo := range []Algorithm{AlgorithmZstd, AlgorithmGzip} {
		t.Run(string(algo), func(t *testing.T) {
			data := compress(t, algo, payload)
			f := mustNew(t, data[:len(data)/2], nil)
			defer f.Close()

			var got []byte
			var finalErr error
			buf := make([]byte, 4096)
			for {
				n, err := f.Read(buf)
				got = append(got, buf[:n]...)
				if err != nil {
					finalErr = err
					break
				}
			}

			if !errors.Is(finalErr, ErrTruncated) {
				t.Fatalf("Terminal error: got %v, want ErrTruncated", finalErr)
			}
			if !bytes.Equal(got, payload[:len(got)]) {
				t.Fatal("Decoded prefix does not match original data")
			}

			// The error is sticky until reset.
			if n, err := f.Read(buf); n != 0 || !errors.Is(err, ErrTruncated) {
				t.Fatalf("Read after truncation error: got (%d, %v), want (0, ErrTruncated)", n, err)
			}
		})
	}
}

func TestTruncatedInsideHeader(t *testing.T) {
	// The magic bytes are present but the format header is cut off.
	data := compress(t, AlgorithmGzip, []byte("hello world"))
	f := mustNew(t, data[:5], nil)
	defer f.Close()

	n, err := f.Read(make([]byte, 10))
	if n != 0 || !errors.Is(err, ErrTruncated) {
		t.Fatalf("Read of header-truncated stream: got (%d, %v), want (0, ErrTruncated)", n, err)
	}
}

func TestTruncatedNeverSilentEOF(t *testing.T) {
	payload := testPayload(100_000)
	data := compress(t, AlgorithmZstd, payload)

	// Cut at several points; all must end in ErrTruncated, never a clean
	// io.EOF.
	for _, cut := range []int{6, len(data) / 4, len(data) / 2, len(data) - 1} {
		f := mustNew(t, data[:cut], nil)

		_, err := io.ReadAll(f)
		if !errors.Is(err, ErrTruncated) {
			t.Fatalf("Cut at %d: got %v, want ErrTruncated", cut, err)
		}
		f.Close()
	}
}

func TestResetAfterTruncation(t *testing.T) {
	payload := testPayload(50_000)
	data := compress(t, AlgorithmZstd, payload)
	f := mustNew(t, data[:len(data)/2], nil)
	defer f.Close()

	if _, err := io.ReadAll(f); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Expected ErrTruncated, got %v", err)
	}

	// Reset clears the failed state; the same truncation shows up again
	// on re-reading.
	if err := f.Reset(); err != nil {
		t.Fatalf("Reset after truncation failed: %v", err)
	}
	got, err := io.ReadAll(f)
	if !errors.Is(err, ErrTruncated) {
		t.Fatalf("Expected ErrTruncated on second pass, got %v", err)
	}
	if !bytes.Equal(got, payload[:len(got)]) {
		t.Fatal("Decoded prefix after reset does not match original data")
	}
}

func TestOpenNotCompressed(t *testing.T) {
	src := bytes.NewReader([]byte("plain text, definitely not compressed"))

	r, compressed, err := Open(src, os.O_RDONLY, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if compressed {
		t.Fatal("Plain text reported as compressed")
	}
	if r != io.ReadSeeker(src) {
		t.Fatal("Expected the original source back, got a wrapper")
	}

	// The source must be rewound, not left with the header consumed.
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("Failed to read passthrough source: %v", err)
	}
	if string(got) != "plain text, definitely not compressed" {
		t.Fatalf("Passthrough content mismatch: %q", got)
	}
}

func TestOpenCompressed(t *testing.T) {
	payload := []byte("hello world")
	data := compress(t, AlgorithmZstd, payload)

	r, compressed, err := Open(bytes.NewReader(data), os.O_RDONLY, nil)
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if !compressed {
		t.Fatal("Compressed source not reported as compressed")
	}

	f, ok := r.(*File)
	if !ok {
		t.Fatalf("Expected *File, got %T", r)
	}
	defer f.Close()

	if f.Algorithm() != AlgorithmZstd {
		t.Fatalf("Algorithm: got %q, want %q", f.Algorithm(), AlgorithmZstd)
	}
	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatalf("Decoded %q, want %q", got, payload)
	}
}

func TestOpenRejectsWriteModes(t *testing.T) {
	data := compress(t, AlgorithmZstd, []byte("hello"))

	for _, flag := range []int{os.O_WRONLY, os.O_RDWR, os.O_RDONLY | os.O_APPEND} {
		_, _, err := Open(bytes.NewReader(data), flag, nil)
		if !errors.Is(err, ErrWriteNotSupported) {
			t.Fatalf("Flag %#x: got %v, want ErrWriteNotSupported", flag, err)
		}
	}
}

func TestOpenShortSource(t *testing.T) {
	_, _, err := Open(bytes.NewReader([]byte("abc")), os.O_RDONLY, nil)
	if !errors.Is(err, ErrHeaderTooShort) {
		t.Fatalf("Short source: got %v, want ErrHeaderTooShort", err)
	}
}

func TestNewNotCompressed(t *testing.T) {
	_, err := New(bytes.NewReader([]byte("plain text here")), nil)
	if !errors.Is(err, ErrNotCompressed) {
		t.Fatalf("Got %v, want ErrNotCompressed", err)
	}
}

func TestReadZeroLength(t *testing.T) {
	data := compress(t, AlgorithmZstd, []byte("hello"))
	f := mustNew(t, data, nil)
	defer f.Close()

	n, err := f.Read(nil)
	if n != 0 || err != nil {
		t.Fatalf("Zero-length read: got (%d, %v), want (0, nil)", n, err)
	}
}

func TestClose(t *testing.T) {
	data := compress(t, AlgorithmZstd, []byte("hello"))
	f := mustNew(t, data, nil)

	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Second close failed: %v", err)
	}
	if _, err := f.Read(make([]byte, 1)); !errors.Is(err, fs.ErrClosed) {
		t.Fatalf("Read after close: got %v, want fs.ErrClosed", err)
	}
	if _, err := f.Seek(0, io.SeekStart); !errors.Is(err, fs.ErrClosed) {
		t.Fatalf("Seek after close: got %v, want fs.ErrClosed", err)
	}
	if err := f.Reset(); !errors.Is(err, fs.ErrClosed) {
		t.Fatalf("Reset after close: got %v, want fs.ErrClosed", err)
	}
}

// closableSource wraps a bytes.Reader to track closes
type closableSource struct {
	*bytes.Reader
	closed bool
}

func (s *closableSource) Close() error {
	s.closed = true
	return nil
}

func TestCloseClosesSource(t *testing.T) {
	data := compress(t, AlgorithmZstd, []byte("hello"))
	src := &closableSource{Reader: bytes.NewReader(data)}

	f, err := New(src, nil)
	if err != nil {
		t.Fatalf("Failed to open stream: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !src.closed {
		t.Fatal("Close did not close the underlying source")
	}
}

func TestByteAccounting(t *testing.T) {
	payload := testPayload(100_000)
	data := compress(t, AlgorithmZstd, payload)
	f := mustNew(t, data, nil)
	defer f.Close()

	if _, err := io.ReadAll(f); err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if f.DecodedBytes() != uint64(len(payload)) {
		t.Fatalf("DecodedBytes: got %d, want %d", f.DecodedBytes(), len(payload))
	}
	if f.CompressedBytes() == 0 || f.CompressedBytes() > uint64(len(data)) {
		t.Fatalf("CompressedBytes: got %d, want (0, %d]", f.CompressedBytes(), len(data))
	}
	if f.Offset() != int64(len(payload)) {
		t.Fatalf("Offset: got %d, want %d", f.Offset(), len(payload))
	}
}
