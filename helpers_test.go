package zstream

import (
	"bytes"
	"errors"
	"testing"
)

func TestDecodeBytes(t *testing.T) {
	payload := testPayload(20_000)

	for _, algo := range []Algorithm{AlgorithmGzip, AlgorithmZstd, AlgorithmLZ4, AlgorithmSnappy} {
		t.Run(string(algo), func(t *testing.T) {
			got, detected, err := DecodeBytes(compress(t, algo, payload))
			if err != nil {
				t.Fatalf("DecodeBytes failed: %v", err)
			}
			if detected != algo {
				t.Fatalf("Detected algorithm: got %q, want %q", detected, algo)
			}
			if !bytes.Equal(got, payload) {
				t.Fatal("Decoded data mismatch")
			}
		})
	}
}

func TestDecodeBytesNotCompressed(t *testing.T) {
	if _, _, err := DecodeBytes([]byte("plain text here")); !errors.Is(err, ErrNotCompressed) {
		t.Fatalf("Got %v, want ErrNotCompressed", err)
	}
}

func TestDecodeBytesAlgorithm(t *testing.T) {
	payload := testPayload(20_000)
	got, err := DecodeBytesAlgorithm(compress(t, AlgorithmBrotli, payload), AlgorithmBrotli)
	if err != nil {
		t.Fatalf("DecodeBytesAlgorithm failed: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Fatal("Decoded data mismatch")
	}
}

func TestDecodeBytesTruncated(t *testing.T) {
	data := compress(t, AlgorithmZstd, testPayload(20_000))
	if _, _, err := DecodeBytes(data[:len(data)/2]); !errors.Is(err, ErrTruncated) {
		t.Fatalf("Got %v, want ErrTruncated", err)
	}
}
