package slicetable

// newSlice copies data into a fresh block and wraps it in a slice.
func newSlice(data []byte) slice {
	return slice{blk: newBlock(data)}
}

// insertLeaf is the insert base case: all of ctx.data goes in at the
// intra-leaf offset pos. In order of preference it appends onto a small
// left neighbor, edits a small slot in place (which also covers
// prepending into a small right neighbor), adds a slot at a boundary, or
// splits a large slot around the insertion point and re-merges the
// neighborhood.
func insertLeaf(lf *node, pos int, ctx *editCtx) (int, *node, int) {
	data := ctx.data
	before := lf.sum(lf.fill(0))
	i := lf.offset(&pos)
	fill := lf.fill(i)
	var split *node

	switch {
	case pos == 0 && i > 0 && lf.spans[i-1] <= HighWater:
		sliceInsert(&lf.slices[i-1], lf.spans[i-1], data, &lf.spans[i-1])
	case i < fill && lf.spans[i] <= HighWater:
		sliceInsert(&lf.slices[i], pos, data, &lf.spans[i])
	case pos == 0:
		// boundary between immutable slots (or the leaf's end): the new
		// slot cannot merge with either neighbor
		split = lf.insertSlice(i, len(data), newSlice(data))
	default:
		split = insertWithinSlice(lf, fill, i, pos, newSlice(data), len(data))
	}

	delta := lf.sum(lf.fill(0)) - before
	var splitsize int
	if split != nil {
		splitsize = split.sum(split.fill(0))
	} else if f := lf.fill(0); f < minFill {
		// the merge pass can coalesce slots away
		splitsize = f
	}
	return delta, split, splitsize
}

// insertWithinSlice splits the large slot i around pos, places s between
// the fragments, and runs the merge pass over the at-most-five affected
// slots before splicing them back.
func insertWithinSlice(lf *node, fill, i, pos int, s slice, slen int) *node {
	org := lf.slices[i]
	leftSpan := pos
	rightSpan := lf.spans[i] - pos
	left := slice{blk: org.blk, off: org.off}
	right := slice{blk: org.blk, off: org.off + pos}
	org.blk.incref()
	if leftSpan <= HighWater {
		demote(&left, leftSpan)
	}
	if rightSpan <= HighWater {
		demote(&right, rightSpan)
	}

	var spans [5]int
	var slices [5]slice
	lo, hi, k := i, i+1, 0
	if i > 0 {
		lo--
		spans[k], slices[k] = lf.spans[i-1], lf.slices[i-1]
		k++
	}
	spans[k], slices[k] = leftSpan, left
	k++
	spans[k], slices[k] = slen, s
	k++
	spans[k], slices[k] = rightSpan, right
	k++
	if i+1 < fill {
		spans[k], slices[k] = lf.spans[i+1], lf.slices[i+1]
		k++
		hi++
	}
	k = mergeSlices(spans[:], slices[:], k)
	return replaceRange(lf, lo, hi, spans[:k], slices[:k])
}

// mergeSlices coalesces adjacent small pairs left to right, in place,
// re-establishing the invariant that no two neighboring slots are both
// small. Returns the new run length.
func mergeSlices(spans []int, slices []slice, fill int) int {
	i := 1
	for i < fill {
		switch {
		case spans[i] > HighWater:
			i += 2
		case spans[i-1] <= HighWater:
			src := slices[i]
			sliceInsert(&slices[i-1], spans[i-1], src.bytes(spans[i]), &spans[i-1])
			src.blk.drop()
			copy(spans[i:fill-1], spans[i+1:fill])
			copy(slices[i:fill-1], slices[i+1:fill])
			fill--
		default:
			i++
		}
	}
	return fill
}

// replaceRange replaces leaf slots [lo, hi) with the given run, splitting
// the leaf when the result overflows. Returns the new right sibling, if
// any.
func replaceRange(lf *node, lo, hi int, spans []int, slices []slice) *node {
	fill := lf.fill(0)
	k := len(spans)
	newfill := fill - (hi - lo) + k
	if newfill <= maxSlots {
		copy(lf.spans[lo+k:newfill], lf.spans[hi:fill])
		copy(lf.slices[lo+k:newfill], lf.slices[hi:fill])
		copy(lf.spans[lo:lo+k], spans)
		copy(lf.slices[lo:lo+k], slices)
		if newfill < fill {
			lf.clrslots(newfill, fill)
		}
		return nil
	}

	// overflow: lay the whole run out and deal it across two leaves
	var allSpans [maxSlots + 2]int
	var allSlices [maxSlots + 2]slice
	copy(allSpans[:], lf.spans[:lo])
	copy(allSlices[:], lf.slices[:lo])
	copy(allSpans[lo:], spans)
	copy(allSlices[lo:], slices)
	copy(allSpans[lo+k:], lf.spans[hi:fill])
	copy(allSlices[lo+k:], lf.slices[hi:fill])

	split := newLeaf()
	leftFill := maxSlots / 2
	rightFill := newfill - leftFill
	copy(lf.spans[:leftFill], allSpans[:leftFill])
	copy(lf.slices[:leftFill], allSlices[:leftFill])
	lf.clrslots(leftFill, fill)
	copy(split.spans[:rightFill], allSpans[leftFill:newfill])
	copy(split.slices[:rightFill], allSlices[leftFill:newfill])
	return split
}
