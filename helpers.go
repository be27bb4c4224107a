package zstream

import (
	"bytes"
	"io"
)

// DecodeBytes decompresses a byte slice, detecting the format from its
// magic bytes. It returns the decoded data and the detected algorithm.
func DecodeBytes(data []byte) ([]byte, Algorithm, error) {
	return decodeBytes(data, nil)
}

// DecodeBytesAlgorithm decompresses a byte slice with an explicit
// algorithm, bypassing detection. This is the only way to decode brotli
// data, which carries no magic bytes.
func DecodeBytesAlgorithm(data []byte, algo Algorithm) ([]byte, error) {
	out, _, err := decodeBytes(data, &Config{Algorithm: algo})
	return out, err
}

func decodeBytes(data []byte, config *Config) ([]byte, Algorithm, error) {
	f, err := New(bytes.NewReader(data), config)
	if err != nil {
		return nil, "", err
	}
	defer f.Close()

	out, err := io.ReadAll(f)
	if err != nil {
		return nil, f.Algorithm(), err
	}
	return out, f.Algorithm(), nil
}
