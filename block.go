package slicetable

import (
	"os"
	"sync/atomic"

	"github.com/edsrzf/mmap-go"
)

// blockKind discriminates the backing store of a block.
type blockKind uint8

const (
	// blockSmall is heap-allocated with capacity HighWater and may be
	// edited in place by the leaf that uniquely owns it.
	blockSmall blockKind = iota

	// blockLarge is heap-allocated and immutable; edits produce new
	// blocks that supersede the referring slot.
	blockLarge

	// blockMmap is a read-only file mapping, immutable like blockLarge.
	blockMmap
)

// block is a reference-counted byte buffer shared between leaf slots and
// tree snapshots. Go's sync/atomic is sequentially consistent, which
// subsumes the relaxed-increment / release-decrement ordering the
// refcount protocol needs.
type block struct {
	refs atomic.Int32
	kind blockKind
	data []byte
	m    mmap.MMap // retained for Unmap; nil unless kind == blockMmap
}

// newSmall allocates a small block holding a copy of data.
// len(data) must not exceed HighWater.
func newSmall(data []byte) *block {
	b := &block{kind: blockSmall, data: make([]byte, len(data), HighWater)}
	copy(b.data, data)
	b.refs.Store(1)
	return b
}

// newBlock copies data into a small or large heap block depending on its
// size.
func newBlock(data []byte) *block {
	if len(data) <= HighWater {
		return newSmall(data)
	}
	b := &block{kind: blockLarge, data: append([]byte(nil), data...)}
	b.refs.Store(1)
	return b
}

// mapFile maps f read-only into a new mmap-backed block. The file
// descriptor is not needed once the mapping exists.
func mapFile(f *os.File) (*block, error) {
	m, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		return nil, err
	}
	b := &block{kind: blockMmap, data: []byte(m), m: m}
	b.refs.Store(1)
	return b, nil
}

func (b *block) incref() { b.refs.Add(1) }

// drop releases one reference. The final reference unmaps file-backed
// storage; heap storage is left to the collector.
func (b *block) drop() {
	if b.refs.Add(-1) > 0 {
		return
	}
	if b.kind == blockMmap && b.m != nil {
		_ = b.m.Unmap()
		b.m = nil
	}
	b.data = nil
}

// insert shifts data into the block at off. Only the unique owner of a
// small block may call this; growth past HighWater promotes the block to
// blockLarge, after which it is never edited again.
func (b *block) insert(off int, data []byte) {
	n := len(data)
	b.data = append(b.data, data...)
	copy(b.data[off+n:], b.data[off:len(b.data)-n])
	copy(b.data[off:], data)
	if len(b.data) > HighWater {
		b.kind = blockLarge
	}
}

// delete removes n bytes at off. Unique small-block owners only.
func (b *block) delete(off, n int) {
	b.data = append(b.data[:off], b.data[off+n:]...)
}
