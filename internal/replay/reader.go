// Package replay reads recorded samples back from CSV results files.
package replay

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/edgecomet/loadstats/internal/common/compress"
	"github.com/edgecomet/loadstats/pkg/types"
)

// Column names of the CSV results header
const (
	ColTimestamp       = "timeStamp"
	ColElapsed         = "elapsed"
	ColLabel           = "label"
	ColResponseCode    = "responseCode"
	ColResponseMessage = "responseMessage"
	ColThreadName      = "threadName"
	ColSuccess         = "success"
	ColFailureMessage  = "failureMessage"
	ColBytes           = "bytes"
)

var (
	// ErrMissingColumn is returned when the header lacks a required column
	ErrMissingColumn = errors.New("missing required column")
	// ErrMalformedRecord is returned for records whose fields cannot be parsed
	ErrMalformedRecord = errors.New("malformed record")
)

var requiredColumns = []string{ColLabel, ColSuccess}

// Reader yields samples in file order
type Reader struct {
	csv     *csv.Reader
	columns map[string]int
	closer  io.Closer
	logger  *zap.Logger
	line    int
}

// NewReader reads the header from r. r must already be decompressed.
func NewReader(r io.Reader, logger *zap.Logger) (*Reader, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	header, err := cr.Read()
	if err != nil {
		if err == io.EOF {
			return nil, fmt.Errorf("%w: empty input", ErrMissingColumn)
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.TrimSpace(name)] = i
	}
	for _, name := range requiredColumns {
		if _, ok := columns[name]; !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingColumn, name)
		}
	}

	return &Reader{csv: cr, columns: columns, logger: logger, line: 1}, nil
}

// Open opens a results file, decompressing it by extension (.snappy, .lz4)
func Open(path string, logger *zap.Logger) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results file: %w", err)
	}

	r, err := NewReader(compress.NewReader(f, path), logger)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	r.closer = f

	r.logger.Debug("Opened results file",
		zap.String("path", path),
		zap.String("compression", compress.DetectAlgorithmFromPath(path)),
		zap.Int("columns", len(r.columns)))
	return r, nil
}

// Next returns the next sample, or io.EOF at the end of input
func (r *Reader) Next() (*types.Sample, error) {
	record, err := r.csv.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, fmt.Errorf("line %d: %w", r.line+1, err)
	}
	r.line++

	sample, err := r.parse(record)
	if err != nil {
		return nil, fmt.Errorf("line %d: %w", r.line, err)
	}
	return sample, nil
}

// ReadAll drains the reader
func (r *Reader) ReadAll() ([]*types.Sample, error) {
	var samples []*types.Sample
	for {
		s, err := r.Next()
		if err == io.EOF {
			return samples, nil
		}
		if err != nil {
			return samples, err
		}
		samples = append(samples, s)
	}
}

// Line returns the number of lines consumed including the header
func (r *Reader) Line() int {
	return r.line
}

func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *Reader) field(record []string, name string) string {
	i, ok := r.columns[name]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func (r *Reader) parse(record []string) (*types.Sample, error) {
	s := &types.Sample{
		Label:           r.field(record, ColLabel),
		ThreadName:      r.field(record, ColThreadName),
		ResponseCode:    r.field(record, ColResponseCode),
		ResponseMessage: r.field(record, ColResponseMessage),
		FailureMessage:  r.field(record, ColFailureMessage),
	}

	success, err := strconv.ParseBool(strings.TrimSpace(r.field(record, ColSuccess)))
	if err != nil {
		return nil, fmt.Errorf("%w: success %q", ErrMalformedRecord, r.field(record, ColSuccess))
	}
	s.Success = success

	if v := r.field(record, ColTimestamp); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: timeStamp %q", ErrMalformedRecord, v)
		}
		s.Timestamp = time.UnixMilli(ms).UTC()
	}
	if v := r.field(record, ColElapsed); v != "" {
		ms, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: elapsed %q", ErrMalformedRecord, v)
		}
		s.Elapsed = time.Duration(ms) * time.Millisecond
	}
	if v := r.field(record, ColBytes); v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: bytes %q", ErrMalformedRecord, v)
		}
		s.Bytes = n
	}

	s.MarkGroup()
	return s, nil
}
