package fasta

import (
	"bufio"
	"bytes"
	"errors"
	"io"
)

// ErrNoHeader is returned when sequence data precedes the first header line.
var ErrNoHeader = errors.New("fasta: sequence data before first header")

// Record is one sequence read by a Scanner.
type Record struct {
	Name     string
	Sequence []byte
}

// Scanner reads FASTA records sequentially from an uncompressed stream.
// Sequences are returned uppercased with line terminators removed.
type Scanner struct {
	br      *bufio.Reader
	line    []byte
	next    string
	started bool
	rec     Record
	err     error
	done    bool
}

// NewScanner returns a Scanner reading from r.
func NewScanner(r io.Reader) *Scanner {
	return &Scanner{br: bufio.NewReaderSize(r, scratchSize)}
}

// Scan advances to the next record. It returns false at the end of input or
// on error; Err reports which.
func (s *Scanner) Scan() bool {
	if s.done || s.err != nil {
		return false
	}
	s.rec = Record{Sequence: s.rec.Sequence[:0]}
	if s.started {
		s.rec.Name = s.next
	}

	for {
		line, err := s.readLine()
		if errors.Is(err, io.EOF) {
			s.done = true
			return s.started
		}
		if err != nil {
			s.err = err
			return false
		}

		if len(line) > 0 && line[0] == '>' {
			name := headerName(line)
			if !s.started {
				s.started = true
				s.rec.Name = name
				continue
			}
			s.next = name
			return true
		}
		if !s.started {
			if len(bytes.TrimSpace(line)) == 0 {
				continue
			}
			s.err = ErrNoHeader
			return false
		}
		s.rec.Sequence = appendUpper(s.rec.Sequence, line)
	}
}

// Record returns the current record. Its Sequence is reused by the next
// call to Scan.
func (s *Scanner) Record() Record {
	return s.rec
}

// Err returns the first error encountered by Scan.
func (s *Scanner) Err() error {
	return s.err
}

// readLine returns the next line without its terminator. The result aliases
// internal storage and is valid until the next call.
func (s *Scanner) readLine() ([]byte, error) {
	s.line = s.line[:0]
	for {
		frag, err := s.br.ReadSlice('\n')
		s.line = append(s.line, frag...)
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(s.line) > 0 {
				break
			}
			return nil, err
		}
		break
	}
	s.line = bytes.TrimSuffix(s.line, []byte("\n"))
	s.line = bytes.TrimSuffix(s.line, []byte("\r"))
	return s.line, nil
}

func headerName(line []byte) string {
	header := line[1:]
	if i := bytes.IndexAny(header, " \t"); i >= 0 {
		header = header[:i]
	}
	return string(header)
}
