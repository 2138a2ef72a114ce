// Package gzi loads BGZF block indexes in the bgzip layout.
//
// The file is a little-endian uint64 entry count followed by that many
// (compressed offset, uncompressed offset) pairs of little-endian uint64s.
// bgzip omits the pair for the first block; the archive start is always
// treated as an implicit (0, 0) origin so tables with or without it work.
package gzi

import (
	_ "crypto/sha256" // registers digest.Canonical
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"sort"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/seqscan/internal/seqtype"
)

const (
	countSize = 8
	entrySize = 16
)

// Entry maps the start of a compressed block to its position in the
// decompressed stream.
type Entry struct {
	Compressed   uint64
	Uncompressed uint64
}

// Index is an ordered block table.
//
// An Index is immutable after loading and safe for concurrent use.
type Index struct {
	entries []Entry
	digest  digest.Digest
}

type options struct {
	strict bool
}

// Option configures index loading.
type Option func(*options)

// WithStrict enables or disables monotonicity validation (default: enabled).
// When enabled, both offsets must be non-decreasing from one entry to the next.
func WithStrict(strict bool) Option {
	return func(o *options) {
		o.strict = strict
	}
}

// Load opens and parses the index at path.
// A missing file is reported as seqtype.ErrIndexNotFound.
func Load(path string, opts ...Option) (*Index, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the caller
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", seqtype.ErrIndexNotFound, path)
		}
		return nil, seqtype.IOError("open block index", err)
	}
	defer f.Close()

	idx, err := Read(f, opts...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

// Read parses an index from r.
func Read(r io.Reader, opts ...Option) (*Index, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, seqtype.IOError("read block index", err)
	}
	return Parse(data, opts...)
}

// Parse decodes an index from its serialized form.
func Parse(data []byte, opts ...Option) (*Index, error) {
	o := options{strict: true}
	for _, opt := range opts {
		opt(&o)
	}

	if len(data) < countSize {
		return nil, fmt.Errorf("%w: missing entry count (%d bytes)", seqtype.ErrMalformedIndex, len(data))
	}
	n := binary.LittleEndian.Uint64(data)
	body := data[countSize:]
	available := uint64(len(body) / entrySize)
	if n != available || len(body)%entrySize != 0 {
		return nil, fmt.Errorf("%w: count %d does not match %d bytes of entries", seqtype.ErrMalformedIndex, n, len(body))
	}

	entries := make([]Entry, n)
	for i := range entries {
		off := i * entrySize
		entries[i] = Entry{
			Compressed:   binary.LittleEndian.Uint64(body[off:]),
			Uncompressed: binary.LittleEndian.Uint64(body[off+8:]),
		}
	}

	if o.strict {
		for i := 1; i < len(entries); i++ {
			prev, cur := entries[i-1], entries[i]
			if cur.Compressed < prev.Compressed || cur.Uncompressed < prev.Uncompressed {
				return nil, fmt.Errorf("%w: entry %d (%d, %d) precedes entry %d (%d, %d)",
					seqtype.ErrMalformedIndex, i, cur.Compressed, cur.Uncompressed,
					i-1, prev.Compressed, prev.Uncompressed)
			}
		}
	}

	return &Index{
		entries: entries,
		digest:  digest.Canonical.FromBytes(data),
	}, nil
}

// Len returns the number of stored entries.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Entries returns the stored entries in file order.
// The returned slice must not be modified.
func (idx *Index) Entries() []Entry {
	return idx.entries
}

// Locate returns the block with the greatest uncompressed offset not after
// target. The implicit origin is returned when no stored entry qualifies.
func (idx *Index) Locate(target uint64) Entry {
	i := sort.Search(len(idx.entries), func(i int) bool {
		return idx.entries[i].Uncompressed > target
	})
	if i == 0 {
		return Entry{}
	}
	return idx.entries[i-1]
}

// Digest returns the digest of the serialized index.
func (idx *Index) Digest() digest.Digest {
	return idx.digest
}
