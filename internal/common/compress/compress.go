package compress

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/klauspost/compress/snappy"
	"github.com/pierrec/lz4/v4"

	"github.com/edgecomet/loadstats/pkg/types"
)

// ErrDecompression wraps every read failure of a compressed stream.
// Use errors.Is(err, ErrDecompression) to tell corrupt input from I/O errors upstream.
var ErrDecompression = errors.New("decompression failed")

// ErrUnknownAlgorithm is returned for algorithm names other than none, snappy and lz4
var ErrUnknownAlgorithm = errors.New("unknown compression algorithm")

// DetectAlgorithmFromPath returns the algorithm implied by the file extension
func DetectAlgorithmFromPath(path string) string {
	switch {
	case strings.HasSuffix(path, types.ExtSnappy):
		return types.CompressionSnappy
	case strings.HasSuffix(path, types.ExtLZ4):
		return types.CompressionLZ4
	default:
		return types.CompressionNone
	}
}

// Ext returns the file extension for algorithm, "" for none
func Ext(algorithm string) string {
	switch algorithm {
	case types.CompressionSnappy:
		return types.ExtSnappy
	case types.CompressionLZ4:
		return types.ExtLZ4
	default:
		return ""
	}
}

// WithExt appends the algorithm extension to path unless it is already there
func WithExt(path, algorithm string) string {
	ext := Ext(algorithm)
	if ext == "" || strings.HasSuffix(path, ext) {
		return path
	}
	return path + ext
}

// NewReader wraps r with a decompressing reader chosen from the path extension.
// Snappy input uses the framed stream format, LZ4 input the LZ4 frame format.
func NewReader(r io.Reader, path string) io.Reader {
	switch DetectAlgorithmFromPath(path) {
	case types.CompressionSnappy:
		return &errReader{r: snappy.NewReader(r), algorithm: types.CompressionSnappy}
	case types.CompressionLZ4:
		return &errReader{r: lz4.NewReader(r), algorithm: types.CompressionLZ4}
	default:
		return r
	}
}

type errReader struct {
	r         io.Reader
	algorithm string
}

func (e *errReader) Read(p []byte) (int, error) {
	n, err := e.r.Read(p)
	if err != nil && err != io.EOF {
		return n, fmt.Errorf("%w: %s: %v", ErrDecompression, e.algorithm, err)
	}
	return n, err
}

// NewWriter wraps w with a compressing writer. Close flushes the stream but
// does not close w.
func NewWriter(w io.Writer, algorithm string) (io.WriteCloser, error) {
	switch algorithm {
	case types.CompressionNone, "":
		return nopCloser{w}, nil
	case types.CompressionSnappy:
		return snappy.NewBufferedWriter(w), nil
	case types.CompressionLZ4:
		return lz4.NewWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownAlgorithm, algorithm)
	}
}

type nopCloser struct {
	io.Writer
}

func (nopCloser) Close() error { return nil }
