// Package testutil builds BGZF archives and their indexes for tests.
package testutil

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/stretchr/testify/require"

	"github.com/meigma/seqscan/internal/gzi"
)

// Sequence is one FASTA record to place in a fixture.
type Sequence struct {
	Name        string
	Description string
	Bases       string
}

// Options controls fixture layout.
type Options struct {
	// LineBases is the number of bases per line (default 60).
	LineBases int
	// Terminator ends every line (default "\n").
	Terminator string
	// BlockSize is the uncompressed size of each BGZF block (default 64KiB).
	BlockSize int
	// WithOrigin stores the (0, 0) pair for the first block in the block
	// index. bgzip omits it.
	WithOrigin bool
}

// Fixture is a compressed archive and its sidecar indexes.
type Fixture struct {
	// Plain is the uncompressed FASTA text.
	Plain []byte
	// Archive is Plain compressed as BGZF blocks followed by an EOF block.
	Archive []byte
	// FAI is the record index text.
	FAI []byte
	// GZI is the serialized block index.
	GZI []byte
	// Blocks are the block index entries, including the origin.
	Blocks []gzi.Entry
}

// Build lays out seqs as line-wrapped FASTA and compresses it.
func Build(tb testing.TB, seqs []Sequence, opts Options) Fixture {
	tb.Helper()
	if opts.LineBases <= 0 {
		opts.LineBases = 60
	}
	if opts.Terminator == "" {
		opts.Terminator = "\n"
	}
	if opts.BlockSize <= 0 {
		opts.BlockSize = 64 << 10
	}

	var plain bytes.Buffer
	var fai strings.Builder
	for _, seq := range seqs {
		plain.WriteString(">" + seq.Name)
		if seq.Description != "" {
			plain.WriteString(" " + seq.Description)
		}
		plain.WriteString(opts.Terminator)
		offset := plain.Len()
		for start := 0; start < len(seq.Bases); start += opts.LineBases {
			end := min(start+opts.LineBases, len(seq.Bases))
			plain.WriteString(seq.Bases[start:end])
			plain.WriteString(opts.Terminator)
		}
		fmt.Fprintf(&fai, "%s\t%d\t%d\t%d\t%d\n",
			seq.Name, len(seq.Bases), offset, opts.LineBases, opts.LineBases+len(opts.Terminator))
	}

	archive, blocks := CompressBlocks(tb, plain.Bytes(), opts.BlockSize)
	stored := blocks
	if !opts.WithOrigin && len(stored) > 0 {
		stored = stored[1:]
	}
	return Fixture{
		Plain:   plain.Bytes(),
		Archive: archive,
		FAI:     []byte(fai.String()),
		GZI:     EncodeGZI(stored),
		Blocks:  blocks,
	}
}

// CompressBlocks compresses data as consecutive gzip members of at most
// blockSize uncompressed bytes, followed by an empty EOF member. It returns
// the archive and one entry per non-empty block.
func CompressBlocks(tb testing.TB, data []byte, blockSize int) ([]byte, []gzi.Entry) {
	tb.Helper()
	var out bytes.Buffer
	var entries []gzi.Entry
	for start := 0; start < len(data); start += blockSize {
		end := min(start+blockSize, len(data))
		entries = append(entries, gzi.Entry{
			Compressed:   uint64(out.Len()),
			Uncompressed: uint64(start),
		})
		writeMember(tb, &out, data[start:end])
	}
	writeMember(tb, &out, nil)
	return out.Bytes(), entries
}

func writeMember(tb testing.TB, out *bytes.Buffer, data []byte) {
	tb.Helper()
	zw := gzip.NewWriter(out)
	_, err := zw.Write(data)
	require.NoError(tb, err)
	require.NoError(tb, zw.Close())
}

// EncodeGZI serializes entries in the block index layout.
func EncodeGZI(entries []gzi.Entry) []byte {
	buf := make([]byte, 8+16*len(entries))
	binary.LittleEndian.PutUint64(buf, uint64(len(entries)))
	for i, e := range entries {
		binary.LittleEndian.PutUint64(buf[8+16*i:], e.Compressed)
		binary.LittleEndian.PutUint64(buf[16+16*i:], e.Uncompressed)
	}
	return buf
}

// WriteFiles writes the fixture to dir as name, name.fai and name.gzi and
// returns the archive path.
func WriteFiles(tb testing.TB, dir, name string, fx Fixture) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	require.NoError(tb, os.WriteFile(path, fx.Archive, 0o600))
	require.NoError(tb, os.WriteFile(path+".fai", fx.FAI, 0o600))
	require.NoError(tb, os.WriteFile(path+".gzi", fx.GZI, 0o600))
	return path
}

// RandomBases returns n bases drawn from "ACGTacgtN" using rng.
func RandomBases(rng *rand.Rand, n int) string {
	const alphabet = "ACGTacgtN"
	b := make([]byte, n)
	for i := range b {
		b[i] = alphabet[rng.Intn(len(alphabet))]
	}
	return string(b)
}

// RandomSequences returns count sequences with lengths in [0, maxLen).
func RandomSequences(rng *rand.Rand, count, maxLen int) []Sequence {
	seqs := make([]Sequence, count)
	for i := range seqs {
		seqs[i] = Sequence{
			Name:        fmt.Sprintf("chr%d", i+1),
			Description: "synthetic",
			Bases:       RandomBases(rng, rng.Intn(maxLen)),
		}
	}
	return seqs
}

// CountOverlapping is a reference count of pattern in s, case-insensitive.
func CountOverlapping(s, pattern string) uint64 {
	s, pattern = strings.ToUpper(s), strings.ToUpper(pattern)
	var n uint64
	for i := 0; i+len(pattern) <= len(s); i++ {
		if s[i:i+len(pattern)] == pattern {
			n++
		}
	}
	return n
}
