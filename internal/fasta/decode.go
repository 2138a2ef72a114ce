// Package fasta materializes sequence payloads from line-wrapped FASTA text.
package fasta

import (
	"errors"
	"fmt"
	"io"

	"github.com/meigma/seqscan/internal/fai"
	"github.com/meigma/seqscan/internal/seqtype"
	"github.com/meigma/seqscan/internal/sizing"
)

const scratchSize = 32 << 10

// chunkReader yields successive spans of the decompressed stream without
// copying. bgzf.Reader implements it.
type chunkReader interface {
	Next() ([]byte, error)
}

// Decode reads exactly rec.Length payload bytes from src, which must be
// positioned at rec.Offset. After every rec.LineBases payload bytes,
// rec.LineWidth-rec.LineBases terminator bytes are skipped. Accepted bytes
// are uppercased in the same pass. Bytes after the payload are not read.
//
// Decode fails with seqtype.ErrTruncatedRecord if src ends early.
func Decode(src io.Reader, rec fai.Record) ([]byte, error) {
	if err := rec.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", seqtype.ErrMalformedIndex, err)
	}
	n, err := sizing.ToInt(rec.Length, seqtype.ErrMalformedIndex)
	if err != nil {
		return nil, fmt.Errorf("record length %d: %w", rec.Length, err)
	}

	// The length is untrusted until the payload has actually been read.
	next := chunks(src)
	out := make([]byte, 0, min(n, scratchSize))
	col := uint32(0)
	for len(out) < n {
		chunk, err := next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, fmt.Errorf("%w: got %d of %d bytes", seqtype.ErrTruncatedRecord, len(out), n)
			}
			return nil, err
		}
		for len(chunk) > 0 && len(out) < n {
			if col < rec.LineBases {
				take := min(int(rec.LineBases-col), len(chunk), n-len(out))
				out = appendUpper(out, chunk[:take])
				chunk = chunk[take:]
				col += uint32(take) //nolint:gosec // take <= LineBases-col
			} else {
				skip := min(int(rec.LineWidth-col), len(chunk))
				chunk = chunk[skip:]
				col += uint32(skip) //nolint:gosec // skip <= LineWidth-col
			}
			if col == rec.LineWidth {
				col = 0
			}
		}
	}
	return out, nil
}

func chunks(src io.Reader) func() ([]byte, error) {
	if c, ok := src.(chunkReader); ok {
		return c.Next
	}
	buf := make([]byte, scratchSize)
	return func() ([]byte, error) {
		for {
			n, err := src.Read(buf)
			if n > 0 {
				return buf[:n], nil
			}
			if err != nil {
				return nil, err
			}
		}
	}
}

// appendUpper appends src to dst with ASCII lowercase letters uppercased.
func appendUpper(dst, src []byte) []byte {
	for _, b := range src {
		if 'a' <= b && b <= 'z' {
			b -= 'a' - 'A'
		}
		dst = append(dst, b)
	}
	return dst
}
