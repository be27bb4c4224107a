package zstream

import (
	"bytes"
	"encoding/binary"
	"path/filepath"
	"strings"
)

// headerSize is the number of leading bytes inspected for format detection.
const headerSize = 4

// zstdMagic is the little-endian zstd frame magic, frozen since format 0.8.
const zstdMagic = 0xFD2FB528

// Magic bytes for compression format detection. Brotli has no magic bytes
// and is absent; it can only be selected explicitly via Config.Algorithm.
var magicBytes = map[Algorithm][]byte{
	AlgorithmGzip:   {0x1f, 0x8b},             // gzip
	AlgorithmLZ4:    {0x04, 0x22, 0x4d, 0x18}, // lz4 frame
	AlgorithmSnappy: {0xff, 0x06, 0x00, 0x00}, // snappy framed stream ident
}

// Reverse extension mapping (extension -> algorithm)
var reverseExtensionMap = map[string]Algorithm{
	".gz":     AlgorithmGzip,
	".gzip":   AlgorithmGzip,
	".zst":    AlgorithmZstd,
	".zstd":   AlgorithmZstd,
	".lz4":    AlgorithmLZ4,
	".br":     AlgorithmBrotli,
	".sz":     AlgorithmSnappy,
	".snappy": AlgorithmSnappy,
}

// DetectAlgorithm identifies the compression format from the leading bytes
// of a stream. It needs at most headerSize bytes; shorter input matches only
// formats whose magic fits in what was supplied.
func DetectAlgorithm(hdr []byte) (Algorithm, bool) {
	if len(hdr) >= 4 && binary.LittleEndian.Uint32(hdr) == zstdMagic {
		return AlgorithmZstd, true
	}
	for algo, magic := range magicBytes {
		if len(hdr) >= len(magic) && bytes.Equal(hdr[:len(magic)], magic) {
			return algo, true
		}
	}
	return "", false
}

// DetectAlgorithmFromExtension detects the algorithm from a file extension
func DetectAlgorithmFromExtension(name string) (Algorithm, bool) {
	ext := strings.ToLower(filepath.Ext(name))
	if algo, ok := reverseExtensionMap[ext]; ok {
		return algo, true
	}
	return "", false
}

// HasCompressionExtension checks if a filename has a compression extension
func HasCompressionExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	_, ok := reverseExtensionMap[ext]
	return ok
}
