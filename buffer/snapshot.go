package buffer

import (
	"unicode/utf8"

	"github.com/spaolacci/murmur3"

	"github.com/dshills/slicetable"
)

// Snapshot is a read-only view of a buffer at a specific revision. It
// shares structure with the live buffer and never observes later edits.
type Snapshot struct {
	st       *slicetable.SliceTable
	rev      uint64
	hashSeed uint32
}

// Close releases the snapshot's share of the backing storage.
func (s *Snapshot) Close() error {
	return s.st.Close()
}

// Revision returns the buffer revision the snapshot was taken at.
func (s *Snapshot) Revision() uint64 {
	return s.rev
}

// Len returns the snapshot length in bytes.
func (s *Snapshot) Len() int {
	return s.st.Size()
}

// LineCount returns the number of lines.
func (s *Snapshot) LineCount() int {
	return s.st.LineCount()
}

// Text returns the full content as a string.
func (s *Snapshot) Text() string {
	return s.st.String()
}

// TextRange returns the text in the byte range [start, end), clipped to
// the snapshot.
func (s *Snapshot) TextRange(start, end int) string {
	return string(s.st.Slice(start, end))
}

// ByteAt returns the byte at the offset.
func (s *Snapshot) ByteAt(off int) (byte, bool) {
	if off < 0 || off >= s.st.Size() {
		return 0, false
	}
	b := s.st.IterAt(off).Byte()
	return byte(b), true
}

// RuneAt decodes the UTF-8 rune at the byte offset. It returns
// utf8.RuneError with size 0 when the offset is out of range.
func (s *Snapshot) RuneAt(off int) (rune, int) {
	if off < 0 || off >= s.st.Size() {
		return utf8.RuneError, 0
	}
	return s.st.IterAt(off).Rune()
}

// LineStart returns the byte offset of the start of the given 0-indexed
// line; past-the-end lines report the snapshot length.
func (s *Snapshot) LineStart(line int) int {
	it := s.st.IterAt(0)
	for l := 0; l < line; l++ {
		if !it.NextLine() {
			return s.st.Size()
		}
	}
	return it.Pos()
}

// LineText returns the text of the given line without its line feed.
func (s *Snapshot) LineText(line int) string {
	start := s.LineStart(line)
	end := s.LineStart(line + 1)
	if end > start && end <= s.st.Size() {
		if b, ok := s.ByteAt(end - 1); ok && b == '\n' {
			end--
		}
	}
	return string(s.st.Slice(start, end))
}

// Fingerprint returns a murmur3 hash of the content, cheap to compare
// across revisions for change detection.
func (s *Snapshot) Fingerprint() uint32 {
	h := murmur3.New32WithSeed(s.hashSeed)
	it := s.st.IterAt(0)
	for chunk := it.Chunk(); chunk != nil; chunk = it.Chunk() {
		_, _ = h.Write(chunk)
		if !it.NextChunk() {
			break
		}
	}
	return h.Sum32()
}
