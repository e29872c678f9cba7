package slicetable

// ensureEditable makes *np safe to mutate in place. A node whose
// refcount exceeds one is replaced by a copy holding fresh references to
// its children; a leaf copy also duplicates its small blocks, since a
// uniquely-owned leaf promises unique ownership of the small blocks it
// edits in place. The original loses the reference *np held.
func ensureEditable(np **node, level int) {
	n := *np
	if n.refs.Load() == 1 {
		return
	}
	var c *node
	if level == 1 {
		c = newLeaf()
		copy(c.spans[:], n.spans[:])
		copy(c.slices, n.slices)
		for i := 0; i < maxSlots && c.slices[i].blk != nil; i++ {
			s := &c.slices[i]
			if s.blk.kind == blockSmall {
				s.blk = newSmall(s.bytes(c.spans[i]))
				s.off = 0
			} else {
				s.blk.incref()
			}
		}
	} else {
		c = newNode()
		copy(c.spans[:], n.spans[:])
		copy(c.children, n.children)
		for i := 0; i < maxSlots && c.children[i] != nil; i++ {
			c.children[i].incref()
		}
	}
	n.drop(level)
	*np = c
}

// demote replaces a large-backed slice of span bytes with a fresh small
// block so it can be edited in place.
func demote(s *slice, span int) {
	nb := newSmall(s.bytes(span))
	s.blk.drop()
	s.blk = nb
	s.off = 0
}

// sliceInsert writes data into the slice at the intra-slice offset,
// updating *span. A small span still backed by an immutable block is
// demoted to a unique small copy first.
func sliceInsert(s *slice, off int, data []byte, span *int) {
	if *span <= HighWater && s.blk.kind != blockSmall {
		demote(s, *span)
	}
	s.blk.insert(s.off+off, data)
	*span += len(data)
}

// sliceDelete removes n bytes at the intra-slice offset, updating *span.
func sliceDelete(s *slice, off, n int, span *int) {
	if *span <= HighWater && s.blk.kind != blockSmall {
		demote(s, *span)
	}
	s.blk.delete(s.off+off, n)
	*span -= n
}
