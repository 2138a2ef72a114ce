package seqscan

import "github.com/meigma/seqscan/internal/seqtype"

// Errors re-exported from seqtype.
var (
	// ErrIndexNotFound is returned when a sidecar index file does not exist.
	ErrIndexNotFound = seqtype.ErrIndexNotFound

	// ErrMalformedIndex is returned when an index has a bad field count, a bad
	// integer, a truncated block table, or non-monotonic block offsets.
	ErrMalformedIndex = seqtype.ErrMalformedIndex

	// ErrOffsetOutOfRange is returned when a record starts beyond the data
	// covered by the block index.
	ErrOffsetOutOfRange = seqtype.ErrOffsetOutOfRange

	// ErrTruncatedRecord is returned when fewer payload bytes are available
	// than the record index promises.
	ErrTruncatedRecord = seqtype.ErrTruncatedRecord

	// ErrDecompression is returned when a compressed block is corrupt.
	ErrDecompression = seqtype.ErrDecompression

	// ErrIO is returned when opening, seeking or reading a file fails.
	ErrIO = seqtype.ErrIO

	// ErrRecordNotFound is returned when a record name is not in the index.
	ErrRecordNotFound = seqtype.ErrRecordNotFound

	// ErrCountOverflow is returned when the total exceeds uint64.
	ErrCountOverflow = seqtype.ErrCountOverflow

	// ErrInvalidPattern is returned when a matcher cannot be built.
	ErrInvalidPattern = seqtype.ErrInvalidPattern
)

// RecordError reports a failure while processing a single record.
type RecordError = seqtype.RecordError
