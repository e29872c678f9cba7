package slicetable

import (
	"bytes"
	"unicode/utf8"
)

// stackSize bounds the ancestor frames an iterator keeps. Steps that
// cross a boundary no recorded ancestor spans fall back to a fresh
// descent from the root.
const stackSize = 3

// iterFrame records one ancestor on the descent path.
type iterFrame struct {
	node *node
	slot int
}

// Iter is a read-only cursor over a SliceTable. It borrows the table
// without owning it; any mutation of the table invalidates the iterator.
// Traverse a Clone to iterate concurrently with edits.
type Iter struct {
	st     *SliceTable
	pos    int // absolute byte position
	leaf   *node
	slot   int // slot within leaf
	off    int // byte offset within the slot
	stack  [stackSize]iterFrame // nearest ancestors, deepest last
	depth  int
	offEnd bool
}

// IterAt returns an iterator positioned at pos; pos == Size() yields an
// off-end iterator.
func (st *SliceTable) IterAt(pos int) *Iter {
	it := &Iter{st: st}
	it.Seek(pos)
	return it
}

// Seek repositions the iterator with a fresh descent from the root,
// recording the ancestors nearest the leaf.
func (it *Iter) Seek(pos int) {
	st := it.st
	it.pos = pos
	it.depth = 0
	it.offEnd = false

	n := st.root
	key := pos
	for level := st.levels; level > 1; level-- {
		i := n.offset(&key)
		if i > 0 && (i >= maxSlots || n.children[i] == nil) {
			// pos == size: clamp onto the rightmost child
			i--
			key = n.spans[i]
		}
		it.push(n, i)
		n = n.children[i]
	}
	it.leaf = n

	fill := n.fill(0)
	i := n.offset(&key)
	if i >= fill {
		it.offEnd = true
		if fill > 0 {
			it.slot = fill - 1
			it.off = n.spans[it.slot]
		} else {
			it.slot, it.off = 0, 0
		}
		return
	}
	it.slot, it.off = i, key
}

// push appends an ancestor frame, discarding the shallowest one when the
// stack is full.
func (it *Iter) push(n *node, slot int) {
	if it.depth == stackSize {
		copy(it.stack[:], it.stack[1:])
		it.depth--
	}
	it.stack[it.depth] = iterFrame{n, slot}
	it.depth++
}

// Pos returns the iterator's absolute byte position.
func (it *Iter) Pos() int { return it.pos }

// Table returns the table the iterator traverses.
func (it *Iter) Table() *SliceTable { return it.st }

// OffEnd reports whether the iterator sits one past the last byte.
func (it *Iter) OffEnd() bool { return it.offEnd }

// Chunk returns the bytes from the cursor to the end of its slot, or nil
// off the end. Concatenating the chunks visited by successive NextChunk
// calls from position 0 reproduces the document.
func (it *Iter) Chunk() []byte {
	if it.offEnd || it.leaf.slices[it.slot].blk == nil {
		return nil
	}
	s := it.leaf.slices[it.slot]
	return s.blk.data[s.off+it.off : s.off+it.leaf.spans[it.slot]]
}

// Byte returns the byte at the cursor, or -1 off the end.
func (it *Iter) Byte() int {
	if it.offEnd {
		return -1
	}
	s := it.leaf.slices[it.slot]
	return int(s.blk.data[s.off+it.off])
}

// NextChunk advances to the start of the next slot, walking up the
// recorded ancestors to find the nearest right sibling and descending
// its leftmost spine. It reports false and goes off end when nothing
// follows.
func (it *Iter) NextChunk() bool {
	if it.offEnd {
		return false
	}
	span := it.leaf.spans[it.slot]
	newPos := it.pos + span - it.off

	if it.slot+1 < maxSlots && it.leaf.slices[it.slot+1].blk != nil {
		it.pos, it.slot, it.off = newPos, it.slot+1, 0
		return true
	}
	for d := it.depth - 1; d >= 0; d-- {
		f := &it.stack[d]
		if f.slot+1 < maxSlots && f.node.children[f.slot+1] != nil {
			level := 1 + (it.depth - 1 - d) // level of the child to enter
			f.slot++
			n := f.node.children[f.slot]
			it.depth = d + 1
			for l := level; l > 1; l-- {
				it.push(n, 0)
				n = n.children[0]
			}
			it.leaf, it.slot, it.off, it.pos = n, 0, 0, newPos
			return true
		}
	}
	if it.depth < it.st.levels-1 && newPos < it.st.Size() {
		// the ancestors beyond the recorded stack hold a right sibling
		it.Seek(newPos)
		return true
	}
	it.pos, it.off, it.offEnd = newPos, span, true
	return false
}

// PrevChunk moves to the start of the previous slot (of the last slot
// when the iterator is off end). It reports false at the first chunk.
func (it *Iter) PrevChunk() bool {
	if it.offEnd {
		if it.leaf.slices[0].blk == nil {
			return false // empty document
		}
		it.offEnd = false
		it.pos -= it.off
		it.off = 0
		return true
	}
	start := it.pos - it.off
	if it.slot > 0 {
		it.slot--
		it.off = 0
		it.pos = start - it.leaf.spans[it.slot]
		return true
	}
	for d := it.depth - 1; d >= 0; d-- {
		f := &it.stack[d]
		if f.slot > 0 {
			level := 1 + (it.depth - 1 - d)
			f.slot--
			n := f.node.children[f.slot]
			it.depth = d + 1
			for l := level; l > 1; l-- {
				last := n.fill(0) - 1
				it.push(n, last)
				n = n.children[last]
			}
			it.leaf = n
			it.slot = n.fill(0) - 1
			it.off = 0
			it.pos = start - n.spans[it.slot]
			return true
		}
	}
	if it.depth < it.st.levels-1 && start > 0 {
		it.Seek(start - 1)
		it.pos -= it.off
		it.off = 0
		return true
	}
	return false
}

// NextByte advances n bytes and returns the byte at the new position, or
// -1 once the iterator moves off the end.
func (it *Iter) NextByte(n int) int {
	for !it.offEnd {
		span := it.leaf.spans[it.slot]
		if it.off+n < span {
			it.off += n
			it.pos += n
			return it.Byte()
		}
		n -= span - it.off
		if !it.NextChunk() {
			return -1
		}
	}
	return -1
}

// PrevByte moves n bytes backward and returns the byte at the new
// position, or -1 when n overshoots the start (the iterator then stays
// put).
func (it *Iter) PrevByte(n int) int {
	target := it.pos - n
	if target < 0 {
		return -1
	}
	chunkStart := it.pos - it.off
	for target < chunkStart {
		if !it.PrevChunk() {
			return -1
		}
		chunkStart = it.pos
	}
	it.off = target - chunkStart
	it.pos = target
	if n > 0 {
		it.offEnd = false
	}
	return it.Byte()
}

// NextLine advances to the first byte after the next line feed. It
// reports false, leaving the iterator off end, when no line follows.
func (it *Iter) NextLine() bool {
	for !it.offEnd {
		if idx := bytes.IndexByte(it.Chunk(), '\n'); idx >= 0 {
			return it.NextByte(idx+1) >= 0
		}
		if !it.NextChunk() {
			break
		}
	}
	return false
}

// PrevLine moves to the start of the line preceding the one holding the
// cursor. It reports false when the cursor is already on the first line.
func (it *Iter) PrevLine() bool {
	start := it.findLineStart(it.pos)
	if start == 0 {
		return false
	}
	it.Seek(it.findLineStart(start - 1))
	return true
}

// findLineStart returns the offset of the first byte of the line holding
// position p.
func (it *Iter) findLineStart(p int) int {
	w := *it
	w.Seek(p)
	for {
		var seg []byte
		if s := w.leaf.slices[w.slot]; s.blk != nil {
			seg = s.blk.data[s.off : s.off+w.off]
		}
		if i := bytes.LastIndexByte(seg, '\n'); i >= 0 {
			return w.pos - w.off + i + 1
		}
		if w.pos-w.off == 0 {
			return 0
		}
		if !w.PrevChunk() {
			return 0
		}
		w.off = w.leaf.spans[w.slot]
		w.pos += w.off
	}
}

// Rune decodes the UTF-8 rune at the cursor. Off the end it returns
// utf8.RuneError with size 0.
func (it *Iter) Rune() (rune, int) {
	if it.offEnd {
		return utf8.RuneError, 0
	}
	chunk := it.Chunk()
	if r, size := utf8.DecodeRune(chunk); size > 0 && (r != utf8.RuneError || len(chunk) >= utf8.UTFMax) {
		return r, size
	}
	// the rune straddles a chunk boundary
	var buf [utf8.UTFMax]byte
	w := *it
	n := 0
	for n < utf8.UTFMax {
		b := w.Byte()
		if b < 0 {
			break
		}
		buf[n] = byte(b)
		n++
		if w.NextByte(1) < 0 {
			break
		}
	}
	return utf8.DecodeRune(buf[:n])
}

// NextRune advances past the rune at the cursor.
func (it *Iter) NextRune() bool {
	_, size := it.Rune()
	if size == 0 {
		return false
	}
	it.NextByte(size)
	return true
}

// PrevRune moves to the start of the rune preceding the cursor.
func (it *Iter) PrevRune() bool {
	if it.pos == 0 {
		return false
	}
	for {
		if it.PrevByte(1) < 0 {
			return false
		}
		if b := it.Byte(); b < 0x80 || b >= 0xC0 {
			return true
		}
		if it.pos == 0 {
			return true
		}
	}
}
