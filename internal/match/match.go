// Package match counts byte patterns in decoded sequence buffers.
//
// Buffers are expected to be uppercased already, so matching is plain byte
// comparison. Patterns and classes are uppercased at construction.
package match

import (
	"fmt"
	"strings"

	"github.com/meigma/seqscan/internal/seqtype"
)

// Kinds accepted by Parse.
const (
	KindSequence = "sequence"
	KindClass    = "class"
)

// Matcher counts matches in a buffer.
type Matcher interface {
	Count(buf []byte) uint64
}

// Sequence counts occurrences of a fixed-width pattern. Overlapping
// occurrences are counted independently.
type Sequence struct {
	pattern []byte
}

// NewSequence returns a matcher for pattern.
func NewSequence(pattern string) (*Sequence, error) {
	if pattern == "" {
		return nil, fmt.Errorf("%w: empty sequence", seqtype.ErrInvalidPattern)
	}
	return &Sequence{pattern: []byte(strings.ToUpper(pattern))}, nil
}

// Count implements Matcher.
func (s *Sequence) Count(buf []byte) uint64 {
	width := len(s.pattern)
	if len(buf) < width {
		return 0
	}
	last := s.pattern[width-1]
	w := newWindow(width)
	var n uint64
	for _, b := range buf {
		if w.push(b) && b == last && w.equal(s.pattern) {
			n++
		}
	}
	return n
}

// Width returns the pattern length.
func (s *Sequence) Width() int {
	return len(s.pattern)
}

func (s *Sequence) String() string {
	return "sequence " + string(s.pattern)
}

// Predicate counts bytes satisfying an arbitrary test.
type Predicate func(b byte) bool

// Count implements Matcher.
func (p Predicate) Count(buf []byte) uint64 {
	var n uint64
	for _, b := range buf {
		if p(b) {
			n++
		}
	}
	return n
}

// Class counts bytes belonging to a set, matched case-insensitively.
type Class struct {
	member [256]bool
	expr   string
}

// NewClass returns a matcher for any byte in set.
func NewClass(set string) (*Class, error) {
	if set == "" {
		return nil, fmt.Errorf("%w: empty class", seqtype.ErrInvalidPattern)
	}
	c := &Class{expr: strings.ToUpper(set)}
	for i := range len(set) {
		b := set[i]
		c.member[b] = true
		c.member[upper(b)] = true
		c.member[lower(b)] = true
	}
	return c, nil
}

// Base returns a class matching the single byte b.
func Base(b byte) *Class {
	c, _ := NewClass(string([]byte{b})) //nolint:errcheck // a one-byte set is never empty
	return c
}

// Count implements Matcher.
func (c *Class) Count(buf []byte) uint64 {
	var n uint64
	for _, b := range buf {
		if c.member[b] {
			n++
		}
	}
	return n
}

func (c *Class) String() string {
	return "class [" + c.expr + "]"
}

// Parse builds a matcher from a kind and expression.
func Parse(kind, expr string) (Matcher, error) {
	switch kind {
	case KindSequence, "":
		return NewSequence(expr)
	case KindClass:
		return NewClass(expr)
	default:
		return nil, fmt.Errorf("%w: unknown kind %q", seqtype.ErrInvalidPattern, kind)
	}
}

func upper(b byte) byte {
	if 'a' <= b && b <= 'z' {
		return b - ('a' - 'A')
	}
	return b
}

func lower(b byte) byte {
	if 'A' <= b && b <= 'Z' {
		return b + ('a' - 'A')
	}
	return b
}
