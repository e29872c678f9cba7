package slicetable

import (
	"fmt"
	"io"
	"strings"
)

// treeString renders the tree level by level, one line per level, for
// debug logging. Leaf slots print their spans; S/L/M tags the block
// kind.
func (st *SliceTable) treeString() string {
	type entry struct {
		level int
		n     *node
	}
	var sb strings.Builder
	queue := []entry{{st.levels, st.root}}
	last := st.levels
	for len(queue) > 0 {
		e := queue[0]
		queue = queue[1:]
		if e.level != last {
			sb.WriteByte('\n')
			last = e.level
		}
		sb.WriteString(formatNode(e.n, e.level))
		sb.WriteByte(' ')
		if e.level > 1 {
			for i := 0; i < e.n.fill(0); i++ {
				queue = append(queue, entry{e.level - 1, e.n.children[i]})
			}
		}
	}
	return sb.String()
}

func formatNode(n *node, level int) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i := 0; i < n.fill(0); i++ {
		if i > 0 {
			sb.WriteByte('|')
		}
		if level == 1 {
			kind := "S"
			switch n.slices[i].blk.kind {
			case blockLarge:
				kind = "L"
			case blockMmap:
				kind = "M"
			}
			fmt.Fprintf(&sb, "%d%s", n.spans[i], kind)
		} else {
			fmt.Fprintf(&sb, "%d", n.spans[i])
		}
	}
	sb.WriteByte(']')
	return sb.String()
}

// WriteDot writes the tree structure in Graphviz dot form, one record
// per node and block.
func (st *SliceTable) WriteDot(w io.Writer) error {
	if _, err := fmt.Fprintln(w, "digraph slicetable {\n\tnode [shape=record];"); err != nil {
		return err
	}
	fmt.Fprintf(w, "\tt [label=\"height: %d\"];\n", st.levels)
	fmt.Fprintf(w, "\tt -> n%p;\n", st.root)
	if err := dotNode(w, st.root, st.levels); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "}")
	return err
}

func dotNode(w io.Writer, n *node, level int) error {
	fill := n.fill(0)
	var cells []string
	for i := 0; i < fill; i++ {
		cells = append(cells, fmt.Sprintf("<s%d> %d", i, n.spans[i]))
	}
	if _, err := fmt.Fprintf(w, "\tn%p [label=\"%s\"];\n", n, strings.Join(cells, "|")); err != nil {
		return err
	}
	for i := 0; i < fill; i++ {
		if level > 1 {
			fmt.Fprintf(w, "\tn%p:s%d -> n%p;\n", n, i, n.children[i])
			if err := dotNode(w, n.children[i], level-1); err != nil {
				return err
			}
			continue
		}
		s := n.slices[i]
		fmt.Fprintf(w, "\tb%p [label=\"off %d len %d\", color=darkgreen];\n", s.blk, s.off, len(s.blk.data))
		fmt.Fprintf(w, "\tn%p:s%d -> b%p;\n", n, i, s.blk)
	}
	return nil
}
