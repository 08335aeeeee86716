package codec

import (
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression kinds understood by Decompress and Compress.
const (
	CompressionNone = ""
	CompressionGzip = "gzip"
	CompressionZstd = "zstd"
)

// ParseCompression maps a compression flag to a kind. Boolean true means
// gzip; false, "none" and "" mean no compression.
func ParseCompression(v string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "none", "false", "no", "0", "off":
		return CompressionNone, nil
	case "true", "yes", "1", "on", "gzip", "gz":
		return CompressionGzip, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	}
	return "", fmt.Errorf("codec: unknown compression %q", v)
}

// Decompress wraps r according to kind.
func Decompress(r io.Reader, kind string) (io.ReadCloser, error) {
	switch kind {
	case CompressionNone:
		return io.NopCloser(r), nil
	case CompressionGzip:
		zr, err := gzip.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("codec: gzip: %w", err)
		}
		return zr, nil
	case CompressionZstd:
		zr, err := zstd.NewReader(r)
		if err != nil {
			return nil, fmt.Errorf("codec: zstd: %w", err)
		}
		return zr.IOReadCloser(), nil
	}
	return nil, fmt.Errorf("codec: unknown compression %q", kind)
}

// Compress wraps w according to kind. Closing the result flushes the
// compressor but leaves w open.
func Compress(w io.Writer, kind string) (io.WriteCloser, error) {
	switch kind {
	case CompressionNone:
		return nopWriteCloser{w}, nil
	case CompressionGzip:
		return gzip.NewWriter(w), nil
	case CompressionZstd:
		zw, err := zstd.NewWriter(w)
		if err != nil {
			return nil, fmt.Errorf("codec: zstd: %w", err)
		}
		return zw, nil
	}
	return nil, fmt.Errorf("codec: unknown compression %q", kind)
}
