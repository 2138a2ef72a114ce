package batch

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/meigma/seqscan/internal/fai"
	"github.com/meigma/seqscan/internal/seqtype"
	"github.com/meigma/seqscan/internal/sizing"
)

// processPipelined runs a producer, a fixed set of workers and a single
// reducer connected by queues bounded to the worker count, so in-flight
// work stays proportional to the pool size.
//
//nolint:gocognit // producer/worker/reducer coordination
func (p *Processor) processPipelined(ctx context.Context, records []fai.Record, res *Result, workers int) error {
	taskCh := make(chan int, workers)
	resultCh := make(chan outcome, workers)
	eg, ctx := errgroup.WithContext(ctx)

	eg.Go(func() error {
		defer close(taskCh)
		for i := range records {
			select {
			case taskCh <- i:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	var workerWg sync.WaitGroup
	workerWg.Add(workers)
	for id := range workers {
		eg.Go(func() error {
			defer workerWg.Done()
			w, err := p.newWorker()
			if err != nil {
				return fmt.Errorf("batch: start worker %d: %w", id, err)
			}
			defer p.closeWorker(w, id)
			p.logger.Debug("worker started", "worker", id)

			for i := range taskCh {
				if err := ctx.Err(); err != nil {
					return err
				}
				out, err := p.run(w, records, i)
				if err != nil {
					return err
				}
				select {
				case resultCh <- out:
				case <-ctx.Done():
					return ctx.Err()
				}
			}
			return nil
		})
	}

	go func() {
		workerWg.Wait()
		close(resultCh)
	}()

	eg.Go(func() error {
		for out := range resultCh {
			if err := res.add(out); err != nil {
				return err
			}
		}
		return nil
	})

	return eg.Wait()
}

// processPartitioned assigns record i to worker i%workers. Each worker folds
// its share into a private partial result; partials are reduced after all
// workers have joined.
func (p *Processor) processPartitioned(ctx context.Context, records []fai.Record, res *Result, workers int) error {
	partials := make([]*Result, workers)
	eg, ctx := errgroup.WithContext(ctx)

	for id := range workers {
		partial := &Result{Counts: res.Counts}
		partials[id] = partial
		eg.Go(func() error {
			w, err := p.newWorker()
			if err != nil {
				return fmt.Errorf("batch: start worker %d: %w", id, err)
			}
			defer p.closeWorker(w, id)
			p.logger.Debug("worker started", "worker", id)

			for i := id; i < len(records); i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				out, err := p.run(w, records, i)
				if err != nil {
					return err
				}
				// Counts is shared but each index is written by exactly one worker.
				if err := partial.add(out); err != nil {
					return err
				}
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return err
	}

	for _, partial := range partials {
		if err := res.merge(partial); err != nil {
			return err
		}
	}
	return nil
}

// merge folds a partial result into r. Counts are expected to share storage.
func (r *Result) merge(partial *Result) error {
	total, ok := sizing.AddUint64(r.Total, partial.Total)
	if !ok {
		return seqtype.ErrCountOverflow
	}
	r.Total = total
	r.Skipped = append(r.Skipped, partial.Skipped...)
	return nil
}
