// Package buffer wraps a slicetable with the editor-facing concerns the
// engine itself stays out of: validated edits, revision tracking, and
// point-in-time snapshots safe for concurrent readers.
package buffer

import (
	"errors"
	"io"
	"sync"

	"github.com/dshills/slicetable"
)

// Errors returned by buffer operations.
var (
	// ErrOffsetOutOfRange indicates an offset outside the valid range.
	ErrOffsetOutOfRange = errors.New("offset out of range")

	// ErrRangeInvalid indicates an invalid range (end < start).
	ErrRangeInvalid = errors.New("invalid range")

	// ErrClosed indicates the buffer has been closed.
	ErrClosed = errors.New("buffer is closed")
)

// Buffer is a mutable text buffer. All methods are safe for concurrent
// use; writers serialize on an internal lock while Snapshot hands out
// stable views that need no locking at all.
type Buffer struct {
	mu       sync.Mutex
	st       *slicetable.SliceTable
	rev      uint64
	hashSeed uint32
}

// New creates an empty buffer.
func New(opts ...Option) *Buffer {
	b := &Buffer{st: slicetable.New()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// NewFromString creates a buffer with initial content.
func NewFromString(s string, opts ...Option) *Buffer {
	b := New(opts...)
	b.st.Close()
	b.st = slicetable.FromString(s)
	return b
}

// NewFromReader creates a buffer from an io.Reader.
func NewFromReader(r io.Reader, opts ...Option) (*Buffer, error) {
	st, err := slicetable.FromReader(r)
	if err != nil {
		return nil, err
	}
	b := New(opts...)
	b.st.Close()
	b.st = st
	return b, nil
}

// NewFromFile creates a buffer from the named file. Large files are
// memory-mapped rather than read.
func NewFromFile(path string, opts ...Option) (*Buffer, error) {
	st, err := slicetable.FromFile(path)
	if err != nil {
		return nil, err
	}
	b := New(opts...)
	b.st.Close()
	b.st = st
	return b, nil
}

// Close releases the buffer's backing storage. Outstanding snapshots
// remain valid until closed themselves.
func (b *Buffer) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st == nil {
		return nil
	}
	err := b.st.Close()
	b.st = nil
	return err
}

// Len returns the buffer length in bytes.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st == nil {
		return 0
	}
	return b.st.Size()
}

// LineCount returns the number of lines.
func (b *Buffer) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st == nil {
		return 1
	}
	return b.st.LineCount()
}

// Revision returns a counter that increases with every successful edit.
func (b *Buffer) Revision() uint64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.rev
}

// Insert inserts text at the byte offset.
func (b *Buffer) Insert(off int, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st == nil {
		return ErrClosed
	}
	if off < 0 || off > b.st.Size() {
		return ErrOffsetOutOfRange
	}
	if len(text) == 0 {
		return nil
	}
	b.st.InsertString(off, text)
	b.rev++
	return nil
}

// Delete removes the byte range [start, end).
func (b *Buffer) Delete(start, end int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st == nil {
		return ErrClosed
	}
	if end < start {
		return ErrRangeInvalid
	}
	if start < 0 || start > b.st.Size() {
		return ErrOffsetOutOfRange
	}
	if start == end {
		return nil
	}
	b.st.Delete(start, end-start)
	b.rev++
	return nil
}

// Replace replaces the byte range [start, end) with text.
func (b *Buffer) Replace(start, end int, text string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st == nil {
		return ErrClosed
	}
	if end < start {
		return ErrRangeInvalid
	}
	if start < 0 || start > b.st.Size() {
		return ErrOffsetOutOfRange
	}
	if start != end {
		b.st.Delete(start, end-start)
	}
	if len(text) > 0 {
		b.st.InsertString(start, text)
	}
	if start != end || len(text) > 0 {
		b.rev++
	}
	return nil
}

// Text returns the whole buffer content. Prefer Snapshot for repeated
// reads.
func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st == nil {
		return ""
	}
	return b.st.String()
}

// Snapshot returns a stable view of the current content. Snapshots are
// cheap, never change, and may be read from any goroutine; close them
// when done.
func (b *Buffer) Snapshot() *Snapshot {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.st == nil {
		return &Snapshot{st: slicetable.New(), hashSeed: b.hashSeed}
	}
	return &Snapshot{st: b.st.Clone(), rev: b.rev, hashSeed: b.hashSeed}
}

// WriteTo writes the buffer content to w.
func (b *Buffer) WriteTo(w io.Writer) (int64, error) {
	s := b.Snapshot()
	defer s.Close()
	if err := s.st.Dump(w); err != nil {
		return 0, err
	}
	return int64(s.Len()), nil
}
