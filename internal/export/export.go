// Package export implements Parquet snapshots of ensemble parameter state.
//
// A snapshot holds one row per (iteration, member, segment) with both the
// internal log-space value and the transformed linear value, so downstream
// analysis can work in either space without re-deriving the transform.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"

	"github.com/ovland/enkit/internal/param"
)

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// Options configures the snapshot writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// CompressionLevel for algorithms that support it (zstd: 1-22)
	CompressionLevel int
}

// DefaultOptions returns default snapshot options.
func DefaultOptions() Options {
	return Options{
		Compression:      CompressionZstd,
		CompressionLevel: 3,
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

// Row is one (iteration, member, segment) observation in a snapshot.
type Row struct {
	Iteration  int32   `parquet:"iteration"`
	Member     int32   `parquet:"member"`
	Kind       string  `parquet:"kind,zstd"`
	Segment    string  `parquet:"segment,zstd"`
	LogValue   float64 `parquet:"log_value"`
	Value      float64 `parquet:"value"`
	LowerBound float64 `parquet:"lower_bound"`
	UpperBound float64 `parquet:"upper_bound"`
	AtBound    bool    `parquet:"at_bound"`
}

// SnapshotWriter writes ensemble state rows to a Parquet file.
type SnapshotWriter struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	writer   *parquet.GenericWriter[Row]
	rowCount int64
	closed   bool
}

// NewSnapshotWriter creates a snapshot writer at path, creating parent
// directories as needed.
func NewSnapshotWriter(path string, opts Options) (*SnapshotWriter, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	writerOpts := []parquet.WriterOption{
		parquet.Compression(getCompression(opts.Compression)),
	}

	return &SnapshotWriter{
		path:   path,
		file:   f,
		writer: parquet.NewGenericWriter[Row](f, writerOpts...),
	}, nil
}

// Write appends rows to the snapshot.
func (w *SnapshotWriter) Write(rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	n, err := w.writer.Write(rows)
	if err != nil {
		return fmt.Errorf("write rows: %w", err)
	}

	w.rowCount += int64(n)
	return nil
}

// WriteMembers appends every segment of every node as rows stamped with
// iteration. Nodes are assumed to be the members of one ensemble, indexed
// in order.
func (w *SnapshotWriter) WriteMembers(iteration int, nodes []param.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	rows := make([]Row, 0, len(nodes)*nodes[0].Len())
	for m, n := range nodes {
		logVals := n.DataRef()
		linVals := n.OutputRef()
		for s := 0; s < n.Len(); s++ {
			lo, hi := n.Bounds(s)
			rows = append(rows, Row{
				Iteration:  int32(iteration),
				Member:     int32(m),
				Kind:       n.Kind(),
				Segment:    n.Name(s),
				LogValue:   logVals[s],
				Value:      linVals[s],
				LowerBound: lo,
				UpperBound: hi,
				AtBound:    linVals[s] == lo || linVals[s] == hi,
			})
		}
	}

	return w.Write(rows)
}

// Close closes the writer, flushing buffered row groups.
func (w *SnapshotWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	if err := w.writer.Close(); err != nil {
		w.file.Close()
		return fmt.Errorf("close writer: %w", err)
	}

	return w.file.Close()
}

// RowCount returns the number of rows written.
func (w *SnapshotWriter) RowCount() int64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.rowCount
}

// Path returns the file path.
func (w *SnapshotWriter) Path() string {
	return w.path
}

// ReadSnapshot reads every row from a snapshot file.
func ReadSnapshot(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open snapshot: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[Row](f)
	defer reader.Close()

	rows := make([]Row, reader.NumRows())
	if len(rows) == 0 {
		return nil, nil
	}

	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}

	return rows[:n], nil
}

// ErrWriterClosed is returned when writing to a closed writer.
var ErrWriterClosed = fmt.Errorf("snapshot writer is closed")
