// Package csv implements the PostSource port over comma-separated input with a
// header row.
package csv

import (
	"context"
	stdcsv "encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ericfisherdev/postimport/internal/domain/model"
	"github.com/ericfisherdev/postimport/internal/domain/port/driven"
)

// ContentColumn is the header name of the only column the importer reads.
const ContentColumn = "content"

// Compile-time interface satisfaction check.
var _ driven.PostSource = (*Reader)(nil)

// Reader yields one model.Post per data row. The header is consumed lazily on
// the first call to Next so that an empty input simply produces io.EOF.
type Reader struct {
	r      *stdcsv.Reader
	closer io.Closer

	headerRead bool
	contentIdx int // -1 when the header has no content column.
	row        int
}

// NewReader wraps r. Rows may have differing field counts; extra columns are ignored.
// Bare quotes inside unquoted fields are kept as literal text.
func NewReader(r io.Reader) *Reader {
	cr := stdcsv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true

	return &Reader{r: cr, contentIdx: -1}
}

// Open opens the file at path. The caller must Close the returned Reader.
func Open(path string) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}

	reader := NewReader(f)
	reader.closer = f
	return reader, nil
}

// Next returns the next data row as a post, or io.EOF after the last row.
func (r *Reader) Next(ctx context.Context) (model.Post, error) {
	if err := ctx.Err(); err != nil {
		return model.Post{}, err
	}

	if !r.headerRead {
		if err := r.readHeader(); err != nil {
			return model.Post{}, err
		}
	}

	record, err := r.r.Read()
	if errors.Is(err, io.EOF) {
		return model.Post{}, io.EOF
	}
	r.row++
	if err != nil {
		return model.Post{}, fmt.Errorf("read row %d: %w", r.row, err)
	}

	if r.contentIdx < 0 || r.contentIdx >= len(record) {
		return model.Post{}, fmt.Errorf("row %d: %w", r.row, driven.ErrMissingContent)
	}

	return model.Post{Row: r.row, Content: record[r.contentIdx]}, nil
}

// Close releases the underlying file, if the Reader owns one.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

func (r *Reader) readHeader() error {
	header, err := r.r.Read()
	if errors.Is(err, io.EOF) {
		r.headerRead = true
		return io.EOF
	}
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	r.headerRead = true

	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, "\ufeff")
		}
		// Later duplicates win, matching dict-style header mapping.
		if name == ContentColumn {
			r.contentIdx = i
		}
	}

	return nil
}
