package contract

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// ReadCode reads a gzip-compressed bytecode file. The stream is checked for
// integrity and the compressed bytes are returned unchanged for upload.
func ReadCode(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read contract code: %w", err)
	}
	if _, err := Decompress(b); err != nil {
		return nil, fmt.Errorf("contract code %s: %w", path, err)
	}
	return b, nil
}

// Decompress inflates gzip-compressed bytecode. Uncompressed input is returned as is.
func Decompress(code []byte) ([]byte, error) {
	if !IsGzip(code) {
		return code, nil
	}
	r, err := gzip.NewReader(bytes.NewReader(code))
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer r.Close()

	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("inflate gzip stream: %w", err)
	}
	return out, nil
}

// Compress gzips raw bytecode.
func Compress(code []byte) ([]byte, error) {
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(code); err != nil {
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsGzip reports whether b starts with the gzip magic number.
func IsGzip(b []byte) bool {
	return len(b) >= 2 && b[0] == 0x1f && b[1] == 0x8b
}
