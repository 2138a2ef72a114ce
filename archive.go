package seqscan

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/opencontainers/go-digest"

	"github.com/meigma/seqscan/internal/batch"
	"github.com/meigma/seqscan/internal/bgzf"
	"github.com/meigma/seqscan/internal/fai"
	"github.com/meigma/seqscan/internal/fasta"
	"github.com/meigma/seqscan/internal/gzi"
	"github.com/meigma/seqscan/internal/seqtype"
)

// Archive is a BGZF-compressed FASTA file with its loaded indexes.
//
// The indexes are immutable after Open; an Archive is safe for concurrent
// use. Every operation opens its own file handles.
type Archive struct {
	path    string
	records *fai.Index
	blocks  *gzi.Index
	opts    options
	logger  *slog.Logger
}

// IndexInfo summarizes the loaded indexes.
type IndexInfo struct {
	Records      int
	Blocks       int
	RecordDigest digest.Digest
	BlockDigest  digest.Digest
}

// Open loads the indexes stored next to path as path.fai and path.gzi.
func Open(path string, opts ...Option) (*Archive, error) {
	return OpenWithIndexes(path, path+".fai", path+".gzi", opts...)
}

// OpenWithIndexes loads the record index at faiPath and the block index at
// gziPath for the archive at path.
//
// Missing index files fail with ErrIndexNotFound. Parse failures fail with
// ErrMalformedIndex. No record is read.
func OpenWithIndexes(path, faiPath, gziPath string, opts ...Option) (*Archive, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	logger := o.logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	if _, err := os.Stat(path); err != nil {
		return nil, seqtype.IOError("stat archive", err)
	}

	records, err := fai.Load(faiPath)
	if err != nil {
		return nil, fmt.Errorf("load record index: %w", err)
	}
	blocks, err := gzi.Load(gziPath, gzi.WithStrict(o.strictBlocks))
	if err != nil {
		return nil, fmt.Errorf("load block index: %w", err)
	}

	logger.Debug("loaded indexes",
		"archive", path,
		"records", records.Len(),
		"record_digest", records.Digest().String(),
		"blocks", blocks.Len(),
		"block_digest", blocks.Digest().String(),
	)

	return &Archive{
		path:    path,
		records: records,
		blocks:  blocks,
		opts:    o,
		logger:  logger,
	}, nil
}

// Path returns the archive path.
func (a *Archive) Path() string {
	return a.path
}

// Records returns the indexed records in index order.
// The returned slice must not be modified.
func (a *Archive) Records() []Record {
	return a.records.Records()
}

// Info returns a summary of the loaded indexes.
func (a *Archive) Info() IndexInfo {
	return IndexInfo{
		Records:      a.records.Len(),
		Blocks:       a.blocks.Len(),
		RecordDigest: a.records.Digest(),
		BlockDigest:  a.blocks.Digest(),
	}
}

// ReadRecord returns the uppercased payload of the named record.
func (a *Archive) ReadRecord(name string) ([]byte, error) {
	rec, ok := a.records.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrRecordNotFound, name)
	}
	w, err := a.openWorker(nil)
	if err != nil {
		return nil, err
	}
	defer w.Close()

	buf, err := w.decode(rec)
	if err != nil {
		return nil, &RecordError{Name: rec.Name, Err: err}
	}
	return buf, nil
}

// Count counts matches of m across every record.
//
// Under FailFast the first record error is returned as a *RecordError and
// no result is produced. Under SkipAndContinue failing records are excluded
// from Result.Total and listed in Result.Skipped.
func (a *Archive) Count(ctx context.Context, m Matcher) (*Result, error) {
	if m == nil {
		return nil, fmt.Errorf("%w: nil matcher", ErrInvalidPattern)
	}
	p := batch.NewProcessor(
		func() (batch.Worker, error) {
			w, err := a.openWorker(m)
			if err != nil {
				return nil, err
			}
			return w, nil
		},
		batch.WithWorkers(a.opts.workers),
		batch.WithBackend(a.opts.backend),
		batch.WithFailurePolicy(a.opts.policy),
		batch.WithLogger(a.logger),
	)
	return p.Process(ctx, a.records.Records())
}

// recordWorker owns one file handle and one seeker. It is used by a single
// goroutine at a time.
type recordWorker struct {
	f       *os.File
	reader  *bgzf.Reader
	matcher Matcher
}

func (a *Archive) openWorker(m Matcher) (*recordWorker, error) {
	f, err := os.Open(a.path)
	if err != nil {
		return nil, seqtype.IOError("open archive", err)
	}
	return &recordWorker{
		f:       f,
		reader:  bgzf.NewReader(f, a.blocks),
		matcher: m,
	}, nil
}

func (w *recordWorker) decode(rec Record) ([]byte, error) {
	if err := w.reader.Seek(rec.Offset); err != nil {
		return nil, err
	}
	return fasta.Decode(w.reader, rec)
}

// Count implements batch.Worker.
func (w *recordWorker) Count(rec Record) (uint64, error) {
	buf, err := w.decode(rec)
	if err != nil {
		return 0, err
	}
	return w.matcher.Count(buf), nil
}

// Close implements batch.Worker.
func (w *recordWorker) Close() error {
	return w.f.Close()
}
