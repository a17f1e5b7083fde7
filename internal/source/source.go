// Package source provides a buffered, seekable view over the input dump.
//
// The parser asks for byte windows at arbitrary offsets while it builds the
// tree, and the rewrite phase later streams the same input to the output.
// Only one buffer of the configured size is held in memory.
package source

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

// DefaultBufferSize is the buffer size used when none is configured.
const DefaultBufferSize = 8192

var (
	// ErrOutOfBounds is returned when seeking outside [0, Size()].
	ErrOutOfBounds = errors.New("offset out of bounds")
	// ErrBorrowed is returned when the source is used while a Section is outstanding.
	ErrBorrowed = errors.New("source is borrowed by an active section")
)

// Source is a randomly addressable byte source backed by an io.ReadSeeker.
type Source struct {
	rs      io.ReadSeeker
	r       *bufio.Reader
	pos     int64 // logical position: bytes consumed through r
	size    int64
	lender  *Section // outstanding borrow, if any
	observe func(n int64)
	werr    error // first failure seen by Window
}

// New wraps rs with a buffer of bufferSize bytes. The size of the input is
// determined once by seeking to its end.
func New(rs io.ReadSeeker, bufferSize int) (*Source, error) {
	if bufferSize <= 0 {
		bufferSize = DefaultBufferSize
	}
	size, err := rs.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, fmt.Errorf("determining input size: %w", err)
	}
	if _, err := rs.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("rewinding input: %w", err)
	}
	return &Source{
		rs:   rs,
		r:    bufio.NewReaderSize(rs, bufferSize),
		size: size,
	}, nil
}

// Size returns the total input size in bytes.
func (s *Source) Size() int64 {
	return s.size
}

// BufferSize returns the configured buffer size.
func (s *Source) BufferSize() int {
	return s.r.Size()
}

// Position returns the offset of the next byte to be read.
func (s *Source) Position() int64 {
	return s.pos
}

// SetObserver registers fn to be told how many bytes were handed to a writer
// by CopyN and CopyRemaining. Pass nil to remove it.
func (s *Source) SetObserver(fn func(n int64)) {
	s.observe = fn
}

// SeekTo moves the read position to offset. Seeking to Size() is allowed and
// leaves the source exhausted.
func (s *Source) SeekTo(offset int64) error {
	if s.borrowed() {
		return ErrBorrowed
	}
	if offset < 0 || offset > s.size {
		return fmt.Errorf("seek to %d (size %d): %w", offset, s.size, ErrOutOfBounds)
	}

	// Stay inside the current buffer when possible.
	if delta := offset - s.pos; delta >= 0 && delta <= int64(s.r.Buffered()) {
		n, err := s.r.Discard(int(delta))
		s.pos += int64(n)
		if err != nil {
			return fmt.Errorf("seek to %d: %w", offset, err)
		}
		return nil
	}

	if _, err := s.rs.Seek(offset, io.SeekStart); err != nil {
		return fmt.Errorf("seek to %d: %w", offset, err)
	}
	s.r.Reset(s.rs)
	s.pos = offset
	return nil
}

// Rewind seeks back to the start of the input.
func (s *Source) Rewind() error {
	return s.SeekTo(0)
}

// ReadExact reads exactly n bytes from the current position.
func (s *Source) ReadExact(n int) ([]byte, error) {
	if s.borrowed() {
		return nil, ErrBorrowed
	}
	buf := make([]byte, n)
	read, err := io.ReadFull(s.r, buf)
	s.pos += int64(read)
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}
		return nil, fmt.Errorf("reading %d bytes at %d: %w", n, s.pos-int64(read), err)
	}
	return buf, nil
}

// Window returns a copy of up to one buffer of bytes starting at offset. It
// returns nil at or past the end of input. It serves as the tree-sitter read
// callback, which has no way to report errors, so failures also yield nil and
// are kept for Err.
func (s *Source) Window(offset uint32) []byte {
	if int64(offset) >= s.size {
		return nil
	}
	if err := s.SeekTo(int64(offset)); err != nil {
		s.fail(err)
		return nil
	}
	chunk, err := s.r.Peek(s.r.Size())
	if err != nil && len(chunk) == 0 {
		s.fail(fmt.Errorf("reading window at %d: %w", offset, err))
		return nil
	}
	out := make([]byte, len(chunk))
	copy(out, chunk)
	return out
}

// Err returns the first error encountered by Window, if any.
func (s *Source) Err() error {
	return s.werr
}

func (s *Source) fail(err error) {
	if s.werr == nil {
		s.werr = err
	}
}

func (s *Source) borrowed() bool {
	return s.lender != nil
}

// Take lends the source to a Section limited to the next limit bytes. The
// source cannot be used, or taken again, until the Section is released.
func (s *Source) Take(limit int64) (*Section, error) {
	if s.borrowed() {
		return nil, ErrBorrowed
	}
	sec := &Section{parent: s, lr: io.LimitedReader{R: s.r, N: limit}}
	s.lender = sec
	return sec, nil
}

// CopyN copies exactly n bytes from the current position to w.
func (s *Source) CopyN(w io.Writer, n int64) error {
	sec, err := s.Take(n)
	if err != nil {
		return err
	}
	copied, err := io.Copy(w, sec)
	sec.Release()
	if s.observe != nil {
		s.observe(copied)
	}
	if err != nil {
		return fmt.Errorf("copying %d bytes: %w", n, err)
	}
	if copied != n {
		return fmt.Errorf("copying %d bytes: got %d: %w", n, copied, io.ErrUnexpectedEOF)
	}
	return nil
}

// CopyRemaining copies everything from the current position to the end of
// input into w.
func (s *Source) CopyRemaining(w io.Writer) (int64, error) {
	if s.borrowed() {
		return 0, ErrBorrowed
	}
	n, err := io.Copy(w, s.r)
	s.pos += n
	if s.observe != nil {
		s.observe(n)
	}
	if err != nil {
		return n, fmt.Errorf("copying remaining input: %w", err)
	}
	return n, nil
}

// Section is a bounded reader over its parent Source.
type Section struct {
	parent *Source
	lr     io.LimitedReader
}

// Read implements io.Reader. It returns io.EOF once the limit is reached or
// the section has been released.
func (sec *Section) Read(p []byte) (int, error) {
	if sec.parent == nil {
		return 0, io.EOF
	}
	n, err := sec.lr.Read(p)
	sec.parent.pos += int64(n)
	return n, err
}

// Remaining reports how many bytes the section may still yield.
func (sec *Section) Remaining() int64 {
	return sec.lr.N
}

// Release hands the parent source back with whatever it still has buffered.
// Calling Release more than once returns nil after the first call.
func (sec *Section) Release() *Source {
	parent := sec.parent
	if parent == nil {
		return nil
	}
	if parent.lender == sec {
		parent.lender = nil
	}
	sec.parent = nil
	return parent
}
