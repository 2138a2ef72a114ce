// Package seqscan counts byte patterns in BGZF-compressed FASTA archives
// using the archive's sidecar indexes for random access.
//
// An archive is accompanied by two index files:
//   - Record index (.fai): name, length, offset and line layout of every record
//   - Block index (.gzi): compressed and uncompressed offsets of every BGZF block
//
// The indexes are loaded once and shared read-only. Each record is then
// processed independently: a worker seeks its own file handle to the block
// holding the record, decodes the line-wrapped payload into an uppercased
// buffer, and counts matches. Per-record counts are summed, so the total does
// not depend on the number of workers or the order in which records finish.
//
// # Quick Start
//
//	archive, err := seqscan.Open("genome.fa.gz")
//	if err != nil {
//	    return err
//	}
//	m, err := seqscan.NewSequenceMatcher("CAT")
//	if err != nil {
//	    return err
//	}
//	res, err := archive.Count(ctx, m)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(res.Total)
//
// # Scheduling
//
// Two interchangeable backends produce identical totals: [BackendPipeline]
// streams records through bounded queues to a single reducer, and
// [BackendPartition] splits records across a fixed pool and sums the
// per-worker partials. Use [WithWorkers] to size the pool; a negative value
// runs everything on the calling goroutine.
//
// # Errors
//
// By default the first record error aborts the run. With
// [WithFailurePolicy]([SkipAndContinue]) failing records are excluded from
// the total and reported in [Result].Skipped.
//
// [CountStream] decompresses an archive sequentially without indexes and is
// useful as a reference for the indexed path.
package seqscan
