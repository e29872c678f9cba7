package slicetable

import (
	"math"
	"sync/atomic"
)

// Tree geometry constants.
const (
	// HighWater is the largest span held in a small, in-place-editable
	// block. Larger spans are backed by immutable blocks and edited by
	// copy-on-write.
	HighWater = 1024

	// maxSlots is the node arity, sized so the span and pointer arrays
	// of a node together occupy about 256 bytes.
	maxSlots = 16

	// minFill is the minimum occupancy of a non-root node.
	minFill = maxSlots / 2

	// spanUnused marks a slot with no child. It doubles as the search
	// terminator in offset, which never skips past it.
	spanUnused = math.MaxInt
)

// slice is one leaf slot's view into a block: span bytes starting at off.
// The span itself lives in the owning node's spans array.
type slice struct {
	blk *block
	off int
}

// bytes returns the span bytes the slice refers to.
func (s slice) bytes(span int) []byte {
	return s.blk.data[s.off : s.off+span]
}

// view returns n bytes of the slice starting at the intra-slice offset.
func (s slice) view(off, n int) []byte {
	return s.blk.data[s.off+off : s.off+off+n]
}

// node is a fixed-arity B+tree node. At level 1 the populated side is
// slices (leaf slots pointing into blocks); above that it is children.
// Live slots are prefix-packed; unused slots carry spanUnused and a nil
// child.
type node struct {
	refs     atomic.Int32
	spans    [maxSlots]int
	children []*node // inner nodes only
	slices   []slice // leaves only
}

func newNode() *node {
	n := &node{children: make([]*node, maxSlots)}
	for i := range n.spans {
		n.spans[i] = spanUnused
	}
	n.refs.Store(1)
	return n
}

func newLeaf() *node {
	n := &node{slices: make([]slice, maxSlots)}
	for i := range n.spans {
		n.spans[i] = spanUnused
	}
	n.refs.Store(1)
	return n
}

func (n *node) leaf() bool { return n.slices != nil }

func (n *node) incref() { n.refs.Add(1) }

// drop releases one reference to n, recursively releasing its subtree on
// the last one. level distinguishes leaves (1) from inner nodes.
func (n *node) drop(level int) {
	if n.refs.Add(-1) > 0 {
		return
	}
	if level == 1 {
		for i := 0; i < maxSlots && n.slices[i].blk != nil; i++ {
			n.slices[i].blk.drop()
		}
		return
	}
	for i := 0; i < maxSlots && n.children[i] != nil; i++ {
		n.children[i].drop(level - 1)
	}
}

// fill counts live slots upward from start, returning the index of the
// first unused one.
func (n *node) fill(start int) int {
	i := start
	if n.leaf() {
		for i < maxSlots && n.slices[i].blk != nil {
			i++
		}
	} else {
		for i < maxSlots && n.children[i] != nil {
			i++
		}
	}
	return i
}

// sum totals the first fill spans.
func (n *node) sum(fill int) int {
	s := 0
	for i := 0; i < fill; i++ {
		s += n.spans[i]
	}
	return s
}

// offset locates the first slot whose span strictly exceeds the running
// *key, reducing *key by every span it skips; on return *key is the
// intra-slot offset. *key must not exceed the node's total span. A key
// equal to the total lands one past the last live slot with *key == 0.
func (n *node) offset(key *int) int {
	i := 0
	for *key > 0 && *key >= n.spans[i] {
		*key -= n.spans[i]
		i++
	}
	return i
}

// offsetClamped is offset for the edit descent: a key equal to the total
// span lands on the last child at its end rather than one past it.
func (n *node) offsetClamped(key *int) int {
	i := n.offset(key)
	if i > 0 && (i >= maxSlots || n.children[i] == nil) {
		i--
		*key = n.spans[i]
	}
	return i
}

// clrslots resets the half-open slot range [from, to) to unused.
func (n *node) clrslots(from, to int) {
	for i := from; i < to; i++ {
		n.spans[i] = spanUnused
		if n.leaf() {
			n.slices[i] = slice{}
		} else {
			n.children[i] = nil
		}
	}
}

// split moves slots [at, maxSlots) into a new right sibling and clears
// them here.
func (n *node) split(at int) *node {
	var s *node
	if n.leaf() {
		s = newLeaf()
		copy(s.slices, n.slices[at:])
	} else {
		s = newNode()
		copy(s.children, n.children[at:])
	}
	copy(s.spans[:], n.spans[at:])
	n.clrslots(at, maxSlots)
	return s
}

// insertChild inserts (span, child) at slot i of an inner node, splitting
// the node when it is full. Returns the new right sibling, if any; the
// slot lands in whichever half i falls into.
func (n *node) insertChild(i, span int, child *node) *node {
	fill := n.fill(0)
	target := n
	var split *node
	if fill == maxSlots {
		at := maxSlots / 2
		if i > maxSlots/2 {
			at++
		}
		split = n.split(at)
		if i > maxSlots/2 {
			target = split
			i -= at
			fill = maxSlots - at
		} else {
			fill = at
		}
	}
	copy(target.spans[i+1:fill+1], target.spans[i:fill])
	copy(target.children[i+1:fill+1], target.children[i:fill])
	target.spans[i] = span
	target.children[i] = child
	return split
}

// insertSlice is insertChild for leaves.
func (n *node) insertSlice(i, span int, s slice) *node {
	fill := n.fill(0)
	target := n
	var split *node
	if fill == maxSlots {
		at := maxSlots / 2
		if i > maxSlots/2 {
			at++
		}
		split = n.split(at)
		if i > maxSlots/2 {
			target = split
			i -= at
			fill = maxSlots - at
		} else {
			fill = at
		}
	}
	copy(target.spans[i+1:fill+1], target.spans[i:fill])
	copy(target.slices[i+1:fill+1], target.slices[i:fill])
	target.spans[i] = span
	target.slices[i] = s
	return split
}

// removeChild drops child i and closes the slot gap.
func (n *node) removeChild(i, level int) {
	n.children[i].drop(level - 1)
	fill := n.fill(0)
	copy(n.spans[i:fill-1], n.spans[i+1:fill])
	copy(n.children[i:fill-1], n.children[i+1:fill])
	n.clrslots(fill-1, fill)
}

// rebalance moves slots from v into u until u reaches minFill, or all of
// them when both nodes fit in one. uOnLeft gives the sibling order; the
// moved slots keep their left-to-right order. Cleared v slots are left
// for the caller to detect and remove.
func rebalance(u, v *node, ufill, vfill int, uOnLeft bool) {
	k := minFill - ufill
	if ufill+vfill <= maxSlots {
		k = vfill
	}
	if uOnLeft {
		copy(u.spans[ufill:ufill+k], v.spans[:k])
		if u.leaf() {
			copy(u.slices[ufill:ufill+k], v.slices[:k])
			copy(v.slices, v.slices[k:vfill])
		} else {
			copy(u.children[ufill:ufill+k], v.children[:k])
			copy(v.children, v.children[k:vfill])
		}
		copy(v.spans[:vfill-k], v.spans[k:vfill])
		v.clrslots(vfill-k, vfill)
	} else {
		copy(u.spans[k:k+ufill], u.spans[:ufill])
		copy(u.spans[:k], v.spans[vfill-k:vfill])
		if u.leaf() {
			copy(u.slices[k:k+ufill], u.slices[:ufill])
			copy(u.slices[:k], v.slices[vfill-k:vfill])
		} else {
			copy(u.children[k:k+ufill], u.children[:ufill])
			copy(u.children[:k], v.children[vfill-k:vfill])
		}
		v.clrslots(vfill-k, vfill)
	}
}

// mergeBoundary concatenates the boundary slots of two adjacent leaves
// into the right leaf's first slot when both are small, dropping the left
// slot's block. It precedes rebalancing so that slots moved across the
// boundary cannot create an adjacent small pair. Returns the span
// transferred.
func mergeBoundary(left, right *node) int {
	lf := left.fill(0)
	if lf == 0 || right.slices[0].blk == nil {
		return 0
	}
	lspan := left.spans[lf-1]
	if lspan > HighWater || right.spans[0] > HighWater {
		return 0
	}
	src := left.slices[lf-1]
	sliceInsert(&right.slices[0], 0, src.bytes(lspan), &right.spans[0])
	src.blk.drop()
	left.clrslots(lf-1, lf)
	return lspan
}
