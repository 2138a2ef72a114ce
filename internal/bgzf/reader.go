// Package bgzf implements index-guided random access into BGZF archives.
//
// A BGZF archive is a concatenation of independent gzip members. Each member
// is decompressed on its own, so a reader positioned at a member boundary can
// start decoding without touching earlier data. The block index maps member
// boundaries to offsets in the decompressed stream.
package bgzf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"

	"github.com/meigma/seqscan/internal/gzi"
	"github.com/meigma/seqscan/internal/seqtype"
	"github.com/meigma/seqscan/internal/sizing"
)

// Reader decompresses a BGZF archive one block at a time.
//
// A Reader holds at most one decompressed block. It is not safe for
// concurrent use; each goroutine must own its Reader and its source.
type Reader struct {
	src   io.ReadSeeker
	index *gzi.Index
	br    *bufio.Reader
	zr    *gzip.Reader

	block []byte
	pos   int
	err   error
}

// NewReader returns a Reader over src. The index is required by Seek and may
// be nil for purely sequential reads from the current position of src.
func NewReader(src io.ReadSeeker, index *gzi.Index) *Reader {
	return &Reader{
		src:   src,
		index: index,
		br:    bufio.NewReader(src),
	}
}

// Seek positions the reader at target in the decompressed stream.
//
// The block with the greatest uncompressed offset not after target is
// decompressed and the remaining distance is skipped, pulling further blocks
// when the skip runs past the end of the first one. Seeking past the end of
// the stream fails with seqtype.ErrOffsetOutOfRange.
func (r *Reader) Seek(target uint64) error {
	if r.index == nil {
		return errors.New("bgzf: seek requires a block index")
	}
	entry := r.index.Locate(target)
	off, err := sizing.ToInt64(entry.Compressed, seqtype.ErrOffsetOutOfRange)
	if err != nil {
		return err
	}
	if _, err := r.src.Seek(off, io.SeekStart); err != nil {
		return seqtype.IOError("seek", err)
	}
	r.br.Reset(r.src)
	r.block = r.block[:0]
	r.pos = 0
	r.err = nil

	skip := target - entry.Uncompressed
	for {
		if err := r.nextBlock(); err != nil {
			if errors.Is(err, io.EOF) && skip == 0 {
				return nil
			}
			if errors.Is(err, io.EOF) {
				return fmt.Errorf("%w: %d is %d bytes past the end of the stream", seqtype.ErrOffsetOutOfRange, target, skip)
			}
			return err
		}
		if skip < uint64(len(r.block)) {
			r.pos = int(skip) //nolint:gosec // bounded by len(r.block)
			return nil
		}
		skip -= uint64(len(r.block))
		r.pos = len(r.block)
	}
}

// Next returns the unread remainder of the current block, decompressing the
// following block when the current one is exhausted. The returned slice is
// only valid until the next call on the Reader. Next returns io.EOF at the
// end of the archive.
func (r *Reader) Next() ([]byte, error) {
	for r.pos >= len(r.block) {
		if err := r.nextBlock(); err != nil {
			return nil, err
		}
	}
	chunk := r.block[r.pos:]
	r.pos = len(r.block)
	return chunk, nil
}

// Read implements io.Reader over the decompressed stream.
func (r *Reader) Read(p []byte) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	for r.pos >= len(r.block) {
		if err := r.nextBlock(); err != nil {
			return 0, err
		}
	}
	n := copy(p, r.block[r.pos:])
	r.pos += n
	return n, nil
}

// nextBlock replaces the current block with the next non-empty member.
func (r *Reader) nextBlock() error {
	if r.err != nil {
		return r.err
	}
	for {
		if _, err := r.br.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return io.EOF
			}
			r.err = seqtype.IOError("read block", err)
			return r.err
		}

		if r.zr == nil {
			zr, err := gzip.NewReader(r.br)
			if err != nil {
				r.err = fmt.Errorf("%w: %v", seqtype.ErrDecompression, err)
				return r.err
			}
			r.zr = zr
		} else if err := r.zr.Reset(r.br); err != nil {
			r.err = fmt.Errorf("%w: %v", seqtype.ErrDecompression, err)
			return r.err
		}
		// Reset re-enables multistream mode, so this must follow it.
		r.zr.Multistream(false)

		buf := bytes.NewBuffer(r.block[:0])
		if _, err := buf.ReadFrom(r.zr); err != nil {
			r.err = fmt.Errorf("%w: %v", seqtype.ErrDecompression, err)
			return r.err
		}
		r.block = buf.Bytes()
		r.pos = 0
		if len(r.block) > 0 {
			return nil
		}
	}
}
