package slicetable

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/grailbio/base/log"
)

// SliceTable is a mutable byte sequence backed by a copy-on-write B+tree
// whose leaves point into shared, reference-counted blocks. Positional
// insertion, deletion and lookup are O(log n); Clone is O(1) and the
// resulting snapshot never observes later edits.
//
// A table may be mutated from one goroutine at a time. Any number of
// goroutines may traverse distinct snapshots concurrently.
type SliceTable struct {
	root   *node
	levels int // 1 for a leaf-only tree
	lfs    int // line feeds in the document
}

// New creates an empty table.
func New() *SliceTable {
	return &SliceTable{root: newLeaf(), levels: 1}
}

// FromBytes creates a table holding a copy of b.
func FromBytes(b []byte) *SliceTable {
	st := New()
	if len(b) == 0 {
		return st
	}
	st.root.spans[0] = len(b)
	st.root.slices[0] = newSlice(b)
	st.lfs = countLF(b)
	return st
}

// FromString creates a table holding s.
func FromString(s string) *SliceTable {
	return FromBytes([]byte(s))
}

// FromReader creates a table from the contents of r.
func FromReader(r io.Reader) (*SliceTable, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return FromBytes(data), nil
}

// FromFile creates a table from the named file. Files larger than
// HighWater are memory-mapped read-only rather than copied; the mapping
// lives until the last snapshot referencing it is closed.
func FromFile(path string) (*SliceTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("slicetable: %w", err)
	}
	defer f.Close()

	fi, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("slicetable: %w", err)
	}
	size := int(fi.Size())
	if size == 0 {
		return New(), nil
	}

	var blk *block
	if size <= HighWater {
		data := make([]byte, size)
		if _, err := io.ReadFull(f, data); err != nil {
			return nil, fmt.Errorf("slicetable: read %s: %w", path, err)
		}
		blk = newSmall(data)
	} else {
		if blk, err = mapFile(f); err != nil {
			return nil, fmt.Errorf("slicetable: map %s: %w", path, err)
		}
	}

	st := New()
	st.root.spans[0] = size
	st.root.slices[0] = slice{blk: blk}
	st.lfs = countLF(blk.data)
	return st, nil
}

// Clone returns a snapshot sharing all structure with st. Either handle
// may be edited afterwards without the other observing the change.
func (st *SliceTable) Clone() *SliceTable {
	st.root.incref()
	return &SliceTable{root: st.root, levels: st.levels, lfs: st.lfs}
}

// Close releases the table's reference to the tree. File mappings are
// unmapped once the last snapshot sharing them is closed. The table must
// not be used afterwards.
func (st *SliceTable) Close() error {
	if st.root != nil {
		st.root.drop(st.levels)
		st.root = nil
	}
	return nil
}

// Size returns the total number of bytes.
func (st *SliceTable) Size() int {
	return st.root.sum(st.root.fill(0))
}

// LineCount returns the number of lines (line feeds + 1).
func (st *SliceTable) LineCount() int {
	return st.lfs + 1
}

// Height returns the tree height. Useful for debugging and balance
// tests.
func (st *SliceTable) Height() int {
	return st.levels
}

// Insert inserts data before the byte at pos, which must lie in
// [0, Size()]. It returns the number of line feeds inserted.
func (st *SliceTable) Insert(pos int, data []byte) int {
	if pos < 0 || pos > st.Size() {
		panic(fmt.Sprintf("slicetable: insert position %d out of range [0, %d]", pos, st.Size()))
	}
	if len(data) == 0 {
		return 0
	}
	log.Debug.Printf("slicetable: insert %d bytes at %d", len(data), pos)

	lfs := countLF(data)
	ensureEditable(&st.root, st.levels)
	ctx := &editCtx{data: data, n: len(data)}
	_, split, splitsize := editRecurse(st.levels, st.root, pos, insertLeaf, ctx)
	st.collapseRoot()
	if split != nil {
		st.growRoot(split, splitsize)
	}
	st.lfs += lfs
	return lfs
}

// InsertString inserts s before the byte at pos.
func (st *SliceTable) InsertString(pos int, s string) int {
	return st.Insert(pos, []byte(s))
}

// Delete removes n bytes starting at pos, clipped to the end of the
// sequence. It returns the number of line feeds removed.
func (st *SliceTable) Delete(pos, n int) int {
	size := st.Size()
	if pos < 0 || pos > size {
		panic(fmt.Sprintf("slicetable: delete position %d out of range [0, %d]", pos, size))
	}
	if n > size-pos {
		n = size - pos
	}
	if n <= 0 {
		return 0
	}
	log.Debug.Printf("slicetable: delete %d bytes at %d", n, pos)

	ctx := &editCtx{n: n}
	for ctx.n > 0 {
		ensureEditable(&st.root, st.levels)
		_, split, splitsize := editRecurse(st.levels, st.root, pos, deleteLeaf, ctx)
		st.collapseRoot()
		if split != nil {
			st.growRoot(split, splitsize)
		}
	}
	st.lfs -= ctx.lfs
	return ctx.lfs
}

// collapseRoot promotes the child of a trivial root, shrinking the tree.
func (st *SliceTable) collapseRoot() {
	for st.levels > 1 && st.root.fill(0) == 1 {
		log.Debug.Printf("slicetable: collapsing root, height %d", st.levels)
		child := st.root.children[0]
		st.root.children[0] = nil
		st.root.drop(st.levels)
		st.root = child
		st.levels--
	}
}

// growRoot installs a new root above the current one and a freshly split
// right sibling.
func (st *SliceTable) growRoot(split *node, splitsize int) {
	log.Debug.Printf("slicetable: new root, height %d", st.levels+1)
	r := newNode()
	r.spans[0] = st.Size()
	r.children[0] = st.root
	r.spans[1] = splitsize
	r.children[1] = split
	st.root = r
	st.levels++
}

// Dump writes the whole sequence to w in order.
func (st *SliceTable) Dump(w io.Writer) error {
	return dumpNode(w, st.root, st.levels)
}

func dumpNode(w io.Writer, n *node, level int) error {
	fill := n.fill(0)
	if level == 1 {
		for i := 0; i < fill; i++ {
			if _, err := w.Write(n.slices[i].bytes(n.spans[i])); err != nil {
				return err
			}
		}
		return nil
	}
	for i := 0; i < fill; i++ {
		if err := dumpNode(w, n.children[i], level-1); err != nil {
			return err
		}
	}
	return nil
}

// String returns the whole sequence as a string. Use sparingly for large
// documents.
func (st *SliceTable) String() string {
	var sb strings.Builder
	sb.Grow(st.Size())
	_ = st.Dump(&sb)
	return sb.String()
}

// Slice returns a copy of the bytes in [start, end), clipped to the
// sequence.
func (st *SliceTable) Slice(start, end int) []byte {
	size := st.Size()
	if end > size {
		end = size
	}
	if start < 0 || start >= end {
		return nil
	}
	var buf bytes.Buffer
	buf.Grow(end - start)
	it := st.IterAt(start)
	for buf.Len() < end-start {
		chunk := it.Chunk()
		if chunk == nil {
			break
		}
		if rem := end - start - buf.Len(); len(chunk) > rem {
			chunk = chunk[:rem]
		}
		buf.Write(chunk)
		if !it.NextChunk() {
			break
		}
	}
	return buf.Bytes()
}
