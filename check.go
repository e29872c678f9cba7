package slicetable

import (
	"errors"
	"fmt"
)

// Check walks the whole tree and verifies its structural invariants:
// node occupancy bounds, strictly positive prefix-packed spans, the
// small-slot adjacency rule, agreement between inner spans and child
// totals, and agreement between slot spans and their backing blocks.
// It returns the first violation found. Intended for tests and debug
// builds; it visits every node.
func (st *SliceTable) Check() error {
	if st.root == nil {
		return errors.New("slicetable: table is closed")
	}
	total, err := checkNode(st.root, st.levels, st.levels)
	if err != nil {
		return err
	}
	if total != st.Size() {
		return fmt.Errorf("slicetable: tree total %d != size %d", total, st.Size())
	}
	return nil
}

func checkNode(n *node, level, height int) (int, error) {
	fill := n.fill(0)
	isRoot := level == height

	if level == 1 {
		if !isRoot && fill < minFill {
			return 0, fmt.Errorf("slicetable: leaf fill %d below minimum %d", fill, minFill)
		}
		total := 0
		lastSmall := false
		for i := 0; i < fill; i++ {
			span := n.spans[i]
			if span <= 0 || span == spanUnused {
				return 0, fmt.Errorf("slicetable: leaf slot %d has span %d", i, span)
			}
			small := span <= HighWater
			if small && lastSmall {
				return 0, fmt.Errorf("slicetable: adjacent small slots at %d and %d", i-1, i)
			}
			s := n.slices[i]
			if small && s.blk.kind != blockSmall {
				return 0, fmt.Errorf("slicetable: slot %d span %d backed by an immutable block", i, span)
			}
			if s.off+span > len(s.blk.data) {
				return 0, fmt.Errorf("slicetable: slot %d overruns its block (%d+%d > %d)", i, s.off, span, len(s.blk.data))
			}
			lastSmall = small
			total += span
		}
		return total, nil
	}

	if isRoot {
		if fill < 2 {
			return 0, fmt.Errorf("slicetable: inner root fill %d", fill)
		}
	} else if fill < minFill {
		return 0, fmt.Errorf("slicetable: inner fill %d below minimum %d", fill, minFill)
	}
	total := 0
	for i := 0; i < fill; i++ {
		sub, err := checkNode(n.children[i], level-1, height)
		if err != nil {
			return 0, err
		}
		if sub != n.spans[i] {
			return 0, fmt.Errorf("slicetable: slot %d span %d != child total %d", i, n.spans[i], sub)
		}
		total += sub
	}
	return total, nil
}
