package slicetable

import "bytes"

func countLF(b []byte) int { return bytes.Count(b, []byte{'\n'}) }

// deleteLeaf is the delete base case. It removes up to ctx.n bytes
// starting at the intra-leaf offset pos; bytes past the leaf's end stay
// in ctx.n for the driver's next descent, which bounds one descent's
// work by a single leaf's width.
func deleteLeaf(lf *node, pos int, ctx *editCtx) (int, *node, int) {
	before := lf.sum(lf.fill(0))
	i := lf.offset(&pos)
	fill := lf.fill(i)
	var split *node

	if pos+ctx.n < lf.spans[i] {
		split = deleteWithinSlice(lf, fill, i, pos, ctx)
	} else {
		deleteAcrossSlices(lf, fill, i, pos, ctx)
	}

	delta := lf.sum(lf.fill(0)) - before
	var splitsize int
	newfill := lf.fill(0)
	switch {
	case split != nil:
		splitsize = split.sum(split.fill(0))
	case newfill == 0:
		splitsize = emptyNode
	case newfill < minFill:
		splitsize = newfill
	}
	return delta, split, splitsize
}

// deleteWithinSlice removes a range lying strictly inside slot i. Small
// slots shift in place; a large slot is cut into fragments around the
// hole, which are demoted when small and re-merged with their neighbors.
// The merge can overflow a full leaf by one slot, forcing a split.
func deleteWithinSlice(lf *node, fill, i, pos int, ctx *editCtx) *node {
	n := ctx.n
	ctx.lfs += countLF(lf.slices[i].view(pos, n))
	ctx.n = 0

	if lf.spans[i] <= HighWater {
		sliceDelete(&lf.slices[i], pos, n, &lf.spans[i])
		return nil
	}

	org := lf.slices[i]
	leftSpan := pos
	rightSpan := lf.spans[i] - pos - n
	if leftSpan > 0 {
		// the left fragment takes a second reference before any demote
		// can release the block
		org.blk.incref()
	}
	right := slice{blk: org.blk, off: org.off + pos + n}
	if rightSpan <= HighWater {
		demote(&right, rightSpan)
	}

	var spans [4]int
	var slices [4]slice
	lo, hi, k := i, i+1, 0
	if i > 0 {
		lo--
		spans[k], slices[k] = lf.spans[i-1], lf.slices[i-1]
		k++
	}
	if leftSpan > 0 {
		left := slice{blk: org.blk, off: org.off}
		if leftSpan <= HighWater {
			demote(&left, leftSpan)
		}
		spans[k], slices[k] = leftSpan, left
		k++
	}
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

// deleteAcrossSlices removes from pos through the end of slot i and as
// many following slots as the remaining length covers within this leaf,
// then closes the gap and re-merges the slots around the seam.
func deleteAcrossSlices(lf *node, fill, i, pos int, ctx *editCtx) {
	seam := i
	if pos > 0 {
		cut := lf.spans[i] - pos
		ctx.lfs += countLF(lf.slices[i].view(pos, cut))
		ctx.n -= cut
		if lf.spans[i] <= HighWater {
			sliceDelete(&lf.slices[i], pos, cut, &lf.spans[i])
		} else {
			lf.spans[i] = pos
			if pos <= HighWater {
				demote(&lf.slices[i], pos)
			}
		}
		seam = i + 1
	}

	// wholly consumed slots
	j := seam
	for j < fill && ctx.n >= lf.spans[j] {
		ctx.lfs += countLF(lf.slices[j].bytes(lf.spans[j]))
		ctx.n -= lf.spans[j]
		lf.slices[j].blk.drop()
		j++
	}

	// leading part of the last touched slot
	if j < fill && ctx.n > 0 {
		ctx.lfs += countLF(lf.slices[j].view(0, ctx.n))
		if lf.spans[j] <= HighWater {
			sliceDelete(&lf.slices[j], 0, ctx.n, &lf.spans[j])
		} else {
			lf.slices[j].off += ctx.n
			lf.spans[j] -= ctx.n
			if lf.spans[j] <= HighWater {
				demote(&lf.slices[j], lf.spans[j])
			}
		}
		ctx.n = 0
	}

	if j > seam {
		copy(lf.spans[seam:fill-(j-seam)], lf.spans[j:fill])
		copy(lf.slices[seam:fill-(j-seam)], lf.slices[j:fill])
		newfill := fill - (j - seam)
		lf.clrslots(newfill, fill)
		fill = newfill
	}

	// the truncated and trimmed slots flanking the seam may both have
	// become small; re-merge the window around it
	lo, hi := seam-2, seam+2
	if lo < 0 {
		lo = 0
	}
	if hi > fill {
		hi = fill
	}
	if hi-lo >= 2 {
		var spans [4]int
		var slices [4]slice
		copy(spans[:], lf.spans[lo:hi])
		copy(slices[:], lf.slices[lo:hi])
		if k := mergeSlices(spans[:], slices[:], hi-lo); k < hi-lo {
			replaceRange(lf, lo, hi, spans[:k], slices[:k])
		}
	}
}
