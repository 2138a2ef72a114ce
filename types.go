package seqscan

import (
	"github.com/meigma/seqscan/internal/batch"
	"github.com/meigma/seqscan/internal/fai"
	"github.com/meigma/seqscan/internal/match"
)

// Record describes the location and line layout of one sequence record.
type Record = fai.Record

// Result is the outcome of Archive.Count.
type Result = batch.Result

// Matcher counts matches in an uppercased sequence buffer.
// Implementations must be safe for concurrent use.
type Matcher = match.Matcher

// Backend selects how records are scheduled across workers.
type Backend = batch.Backend

// Scheduling backends.
const (
	BackendPipeline  = batch.BackendPipeline
	BackendPartition = batch.BackendPartition
)

// FailurePolicy controls how record-level errors are handled.
type FailurePolicy = batch.FailurePolicy

// Failure policies.
const (
	FailFast        = batch.FailFast
	SkipAndContinue = batch.SkipAndContinue
)

// NewSequenceMatcher returns a matcher counting overlapping occurrences of
// pattern. The pattern is uppercased; buffers are expected to be uppercased
// already, as ReadRecord and Count produce them.
func NewSequenceMatcher(pattern string) (Matcher, error) {
	return match.NewSequence(pattern)
}

// NewClassMatcher returns a matcher counting bytes that belong to set.
// Matching is case-insensitive.
func NewClassMatcher(set string) (Matcher, error) {
	return match.NewClass(set)
}

// ParseMatcher builds a matcher from a kind ("sequence" or "class") and an
// expression.
func ParseMatcher(kind, expr string) (Matcher, error) {
	return match.Parse(kind, expr)
}
