package seqscan

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/meigma/seqscan/internal/fasta"
	"github.com/meigma/seqscan/internal/sizing"
)

// CountStream counts matches of m by decompressing the whole archive read
// from r in order, without indexes. It visits the same records as
// Archive.Count and returns the same total for a consistent archive.
func CountStream(ctx context.Context, r io.Reader, m Matcher) (uint64, error) {
	if m == nil {
		return 0, fmt.Errorf("%w: nil matcher", ErrInvalidPattern)
	}
	zr, err := gzip.NewReader(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	defer zr.Close()

	sc := fasta.NewScanner(decompressReader{zr})
	var total uint64
	for sc.Scan() {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		next, ok := sizing.AddUint64(total, m.Count(sc.Record().Sequence))
		if !ok {
			return 0, ErrCountOverflow
		}
		total = next
	}
	if err := sc.Err(); err != nil {
		return 0, err
	}
	return total, nil
}

// decompressReader tags failures of the wrapped decompressor.
type decompressReader struct {
	r io.Reader
}

func (d decompressReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, fmt.Errorf("%w: %v", ErrDecompression, err)
	}
	return n, err
}
