package slicetable

// emptyNode signals through splitsize that a child has no live slots left
// and should be removed from its parent outright.
const emptyNode = -1

// editCtx carries a leaf base case's inputs and accumulators across one
// descent.
type editCtx struct {
	data []byte // insertion source
	n    int    // bytes still to insert or delete
	lfs  int    // line feeds added or removed so far
}

// leafEdit applies a base case to a leaf at an intra-leaf offset. It
// returns the leaf's span delta and either a new right sibling with its
// span (overflow), or an underflow signal: split == nil with splitsize
// holding the leaf's new fill, or emptyNode when nothing is left.
type leafEdit func(lf *node, pos int, ctx *editCtx) (delta int, split *node, splitsize int)

// editRecurse descends to the leaf covering pos, applies the base case,
// and on ascent maintains the spans, splits and fills of every node on
// the path. The same contract the leaf reports upward holds at every
// level: delta is this node's span change, split/splitsize report an
// overflow, a bare non-zero splitsize reports an underflow.
func editRecurse(level int, n *node, pos int, fn leafEdit, ctx *editCtx) (int, *node, int) {
	if level == 1 {
		return fn(n, pos, ctx)
	}
	before := n.sum(n.fill(0))
	i := n.offsetClamped(&pos)
	ensureEditable(&n.children[i], level-1)
	d, csplit, csize := editRecurse(level-1, n.children[i], pos, fn, ctx)
	n.spans[i] += d

	var split *node
	var splitsize int
	switch {
	case csplit != nil:
		split = n.insertChild(i+1, csize, csplit)
		if split != nil {
			splitsize = split.sum(split.fill(0))
		}
	case csize == emptyNode:
		n.removeChild(i, level)
	case csize != 0:
		n.fixUnderflow(level, i)
	}

	delta := n.sum(n.fill(0)) - before
	if split == nil {
		if f := n.fill(0); f < minFill {
			splitsize = f
			if f == 0 {
				splitsize = emptyNode
			}
		}
	}
	return delta, split, splitsize
}

// fixUnderflow restores the minimum occupancy of child i after an edit
// left it underfull, borrowing from or absorbing a neighbor. At level 2
// the leaves' boundary slots are merged first so that slots moved across
// the boundary cannot violate the adjacent-small invariant.
func (n *node) fixUnderflow(level, i int) {
	j := i - 1
	if i == 0 {
		j = 1
		if n.children[j] == nil {
			// single-child root; the driver collapses it
			return
		}
	}
	ensureEditable(&n.children[j], level-1)
	u, v := n.children[i], n.children[j]

	if level == 2 {
		if j < i {
			mergeBoundary(v, u)
		} else {
			mergeBoundary(u, v)
		}
	}

	ufill, vfill := u.fill(0), v.fill(0)
	if vfill > 0 && ufill < minFill {
		rebalance(u, v, ufill, vfill, i < j)
	}

	n.spans[i] = u.sum(u.fill(0))
	if vf := v.fill(0); vf == 0 {
		n.spans[j] = 0
		n.removeChild(j, level)
	} else {
		n.spans[j] = v.sum(vf)
	}
}
