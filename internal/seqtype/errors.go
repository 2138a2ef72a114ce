package seqtype

import (
	"errors"
	"fmt"
)

// Sentinel errors for index loading and record scanning.
var (
	// ErrIndexNotFound is returned when a sidecar index file does not exist.
	ErrIndexNotFound = errors.New("seqscan: index not found")

	// ErrMalformedIndex is returned when an index file cannot be parsed.
	ErrMalformedIndex = errors.New("seqscan: malformed index")

	// ErrOffsetOutOfRange is returned when a seek target lies outside the
	// range covered by the block index.
	ErrOffsetOutOfRange = errors.New("seqscan: offset out of range")

	// ErrTruncatedRecord is returned when the stream ends before a record's
	// promised payload length has been read.
	ErrTruncatedRecord = errors.New("seqscan: truncated record")

	// ErrDecompression is returned when a compressed block is corrupt.
	ErrDecompression = errors.New("seqscan: decompression failed")

	// ErrIO is returned when opening, seeking or reading a file fails.
	ErrIO = errors.New("seqscan: i/o error")

	// ErrRecordNotFound is returned when a record name is not in the index.
	ErrRecordNotFound = errors.New("seqscan: record not found")

	// ErrCountOverflow is returned when a match total exceeds uint64.
	ErrCountOverflow = errors.New("seqscan: count overflow")

	// ErrInvalidPattern is returned when a matcher cannot be built.
	ErrInvalidPattern = errors.New("seqscan: invalid pattern")
)

// IOError wraps err so that it matches ErrIO while keeping the cause
// reachable through errors.Is and errors.As.
func IOError(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w: %w", op, ErrIO, err)
}

// RecordError reports a failure while processing a single record.
type RecordError struct {
	Name string
	Err  error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("record %s: %v", e.Name, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}
