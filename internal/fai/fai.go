// Package fai loads FASTA record indexes in the samtools faidx layout.
//
// Each line of an index describes one record:
//
//	name<TAB>length<TAB>offset<TAB>line_bases<TAB>line_width
//
// offset is the position of the first payload byte in the decompressed
// stream. line_width counts the line terminator, so line_width-line_bases
// bytes are skipped after every full line.
package fai

import (
	"bufio"
	_ "crypto/sha256" // registers digest.Canonical
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/seqscan/internal/seqtype"
)

const (
	fieldCount = 5

	// maxLineSize bounds a single index line; record names are short in practice.
	maxLineSize = 1 << 20
)

// Record describes the location and layout of one sequence record.
type Record struct {
	Name      string
	Length    uint64
	Offset    uint64
	LineBases uint32
	LineWidth uint32
}

// Index is an ordered, read-only list of records.
//
// An Index is immutable after loading and safe for concurrent use.
type Index struct {
	records []Record
	byName  map[string]int
	digest  digest.Digest
}

// Load opens and parses the index at path.
// A missing file is reported as seqtype.ErrIndexNotFound.
func Load(path string) (*Index, error) {
	f, err := os.Open(path) //nolint:gosec // path comes from the caller
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", seqtype.ErrIndexNotFound, path)
		}
		return nil, seqtype.IOError("open record index", err)
	}
	defer f.Close()

	idx, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return idx, nil
}

// Read parses an index from r.
func Read(r io.Reader) (*Index, error) {
	digester := digest.Canonical.Digester()
	sc := bufio.NewScanner(io.TeeReader(r, digester.Hash()))
	sc.Buffer(make([]byte, 0, 64*1024), maxLineSize)

	idx := &Index{byName: make(map[string]int)}
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := strings.TrimSuffix(sc.Text(), "\r")
		if line == "" {
			continue
		}
		rec, err := parseLine(line)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", seqtype.ErrMalformedIndex, lineNo, err)
		}
		if _, dup := idx.byName[rec.Name]; dup {
			return nil, fmt.Errorf("%w: line %d: duplicate record name %q", seqtype.ErrMalformedIndex, lineNo, rec.Name)
		}
		idx.byName[rec.Name] = len(idx.records)
		idx.records = append(idx.records, rec)
	}
	if err := sc.Err(); err != nil {
		if errors.Is(err, bufio.ErrTooLong) {
			return nil, fmt.Errorf("%w: line %d: %v", seqtype.ErrMalformedIndex, lineNo+1, err)
		}
		return nil, seqtype.IOError("read record index", err)
	}
	idx.digest = digester.Digest()
	return idx, nil
}

func parseLine(line string) (Record, error) {
	fields := strings.Split(line, "\t")
	if len(fields) != fieldCount {
		return Record{}, fmt.Errorf("expected %d fields, got %d", fieldCount, len(fields))
	}
	if fields[0] == "" {
		return Record{}, errors.New("empty record name")
	}

	length, err := strconv.ParseUint(fields[1], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("length: %w", err)
	}
	offset, err := strconv.ParseUint(fields[2], 10, 64)
	if err != nil {
		return Record{}, fmt.Errorf("offset: %w", err)
	}
	lineBases, err := strconv.ParseUint(fields[3], 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("line bases: %w", err)
	}
	lineWidth, err := strconv.ParseUint(fields[4], 10, 32)
	if err != nil {
		return Record{}, fmt.Errorf("line width: %w", err)
	}

	rec := Record{
		Name:      fields[0],
		Length:    length,
		Offset:    offset,
		LineBases: uint32(lineBases),
		LineWidth: uint32(lineWidth),
	}
	if err := rec.Validate(); err != nil {
		return Record{}, err
	}
	return rec, nil
}

// Validate checks the line layout of a record.
func (r Record) Validate() error {
	if r.LineWidth < r.LineBases {
		return fmt.Errorf("line width %d is less than line bases %d", r.LineWidth, r.LineBases)
	}
	if r.LineBases == 0 && r.Length > 0 {
		return errors.New("line bases is zero for a non-empty record")
	}
	return nil
}

// Len returns the number of records.
func (idx *Index) Len() int {
	return len(idx.records)
}

// Records returns the records in file order.
// The returned slice must not be modified.
func (idx *Index) Records() []Record {
	return idx.records
}

// Lookup returns the record with the given name.
func (idx *Index) Lookup(name string) (Record, bool) {
	i, ok := idx.byName[name]
	if !ok {
		return Record{}, false
	}
	return idx.records[i], true
}

// Digest returns the digest of the index file contents.
func (idx *Index) Digest() digest.Digest {
	return idx.digest
}
