// Package batch distributes per-record work across a pool of workers and
// reduces the per-record match counts to a total.
//
// Every goroutine owns a private Worker (its own file handle, seeker and
// decode buffers). Records are read-only and shared; nothing else is.
package batch

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
	"slices"

	"github.com/meigma/seqscan/internal/fai"
	"github.com/meigma/seqscan/internal/seqtype"
	"github.com/meigma/seqscan/internal/sizing"
)

// Worker computes the match count of one record at a time.
// A Worker is used by a single goroutine.
type Worker interface {
	Count(rec fai.Record) (uint64, error)
	Close() error
}

// NewWorkerFunc creates a Worker. It is called once per goroutine.
type NewWorkerFunc func() (Worker, error)

// Backend selects the scheduling strategy.
type Backend int

const (
	// BackendPipeline feeds records through a bounded queue to workers and
	// collects counts through a bounded result queue into a single reducer.
	BackendPipeline Backend = iota

	// BackendPartition splits records across a fixed pool; each worker folds
	// its share into a partial count and partials are summed after join.
	BackendPartition
)

func (b Backend) String() string {
	switch b {
	case BackendPipeline:
		return "pipeline"
	case BackendPartition:
		return "partition"
	default:
		return fmt.Sprintf("backend(%d)", int(b))
	}
}

// FailurePolicy controls how record-level errors are handled.
type FailurePolicy int

const (
	// FailFast aborts the run on the first record error.
	FailFast FailurePolicy = iota

	// SkipAndContinue records the error, excludes the record from the total,
	// and keeps going.
	SkipAndContinue
)

func (f FailurePolicy) String() string {
	switch f {
	case FailFast:
		return "fail-fast"
	case SkipAndContinue:
		return "skip"
	default:
		return fmt.Sprintf("policy(%d)", int(f))
	}
}

// Result is the outcome of a run.
type Result struct {
	// Total is the sum of all counted records.
	Total uint64

	// Counts holds each record's count, aligned with the input records.
	// Skipped records have a zero count.
	Counts []uint64

	// Skipped lists record errors tolerated under SkipAndContinue, in
	// record order.
	Skipped []*seqtype.RecordError
}

// Processor runs a Worker over every record.
type Processor struct {
	newWorker NewWorkerFunc
	workers   int // 0 = auto, <0 = serial, >0 = fixed count
	backend   Backend
	policy    FailurePolicy
	logger    *slog.Logger
}

// ProcessorOption configures a Processor.
type ProcessorOption func(*Processor)

// WithWorkers sets the number of workers.
// Values < 0 force serial processing. Zero uses GOMAXPROCS.
func WithWorkers(n int) ProcessorOption {
	return func(p *Processor) {
		p.workers = n
	}
}

// WithBackend selects the scheduling backend (default: BackendPipeline).
func WithBackend(b Backend) ProcessorOption {
	return func(p *Processor) {
		p.backend = b
	}
}

// WithFailurePolicy sets the record error policy (default: FailFast).
func WithFailurePolicy(f FailurePolicy) ProcessorOption {
	return func(p *Processor) {
		p.policy = f
	}
}

// WithLogger sets the logger for worker lifecycle and skipped records.
func WithLogger(logger *slog.Logger) ProcessorOption {
	return func(p *Processor) {
		p.logger = logger
	}
}

// NewProcessor creates a Processor that builds workers with newWorker.
func NewProcessor(newWorker NewWorkerFunc, opts ...ProcessorOption) *Processor {
	p := &Processor{newWorker: newWorker}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.New(slog.DiscardHandler)
	}
	return p
}

// outcome is the result of processing the record at index.
type outcome struct {
	index int
	count uint64
	err   *seqtype.RecordError
}

// Process counts every record and reduces the counts.
//
// Under FailFast the first record error is returned, wrapped in a
// *seqtype.RecordError, and no partial result is produced.
func (p *Processor) Process(ctx context.Context, records []fai.Record) (*Result, error) {
	if p.backend != BackendPipeline && p.backend != BackendPartition {
		return nil, fmt.Errorf("batch: unknown backend %s", p.backend)
	}
	res := &Result{Counts: make([]uint64, len(records))}
	if len(records) == 0 {
		return res, nil
	}

	workers := p.workerCount(len(records))
	p.logger.Debug("processing records",
		"records", len(records),
		"workers", workers,
		"backend", p.backend.String(),
		"policy", p.policy.String(),
	)

	var err error
	switch {
	case workers < 2:
		err = p.processSerial(ctx, records, res)
	case p.backend == BackendPartition:
		err = p.processPartitioned(ctx, records, res, workers)
	default:
		err = p.processPipelined(ctx, records, res, workers)
	}
	if err != nil {
		return nil, err
	}

	if len(res.Skipped) > 1 {
		pos := make(map[string]int, len(records))
		for i, rec := range records {
			pos[rec.Name] = i
		}
		slices.SortFunc(res.Skipped, func(a, b *seqtype.RecordError) int {
			return pos[a.Name] - pos[b.Name]
		})
	}
	return res, nil
}

// processSerial runs every record on one worker in the calling goroutine.
func (p *Processor) processSerial(ctx context.Context, records []fai.Record, res *Result) error {
	w, err := p.newWorker()
	if err != nil {
		return fmt.Errorf("batch: start worker: %w", err)
	}
	defer p.closeWorker(w, 0)

	for i := range records {
		if err := ctx.Err(); err != nil {
			return err
		}
		out, err := p.run(w, records, i)
		if err != nil {
			return err
		}
		if err := res.add(out); err != nil {
			return err
		}
	}
	return nil
}

// run processes one record and applies the failure policy. A non-nil error
// aborts the run.
func (p *Processor) run(w Worker, records []fai.Record, i int) (outcome, error) {
	rec := records[i]
	n, err := w.Count(rec)
	if err == nil {
		return outcome{index: i, count: n}, nil
	}
	recErr := &seqtype.RecordError{Name: rec.Name, Err: err}
	if p.policy == SkipAndContinue {
		p.logger.Warn("skipping record", "record", rec.Name, "error", err)
		return outcome{index: i, err: recErr}, nil
	}
	return outcome{}, recErr
}

func (p *Processor) closeWorker(w Worker, id int) {
	if err := w.Close(); err != nil {
		p.logger.Warn("closing worker", "worker", id, "error", err)
	}
	p.logger.Debug("worker stopped", "worker", id)
}

// add folds one outcome into the result. It must only be called by the
// goroutine that owns res.
func (r *Result) add(out outcome) error {
	if out.err != nil {
		r.Skipped = append(r.Skipped, out.err)
		return nil
	}
	r.Counts[out.index] = out.count
	total, ok := sizing.AddUint64(r.Total, out.count)
	if !ok {
		return seqtype.ErrCountOverflow
	}
	r.Total = total
	return nil
}

// workerCount determines the number of workers to use.
func (p *Processor) workerCount(records int) int {
	if p.workers < 0 {
		return 1
	}
	workers := p.workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	if workers > records {
		workers = records
	}
	if workers < 1 {
		return 1
	}
	return workers
}
