// Package slicetable provides a persistent, copy-on-write B+tree backed
// sequence of bytes, designed as the buffer representation for a text
// editor.
//
// The sequence is stored as a tree of fixed-arity nodes whose leaves
// point into shared, reference-counted byte blocks. Small runs of bytes
// live in mutable heap blocks and are edited in place; large runs —
// including memory-mapped file contents — are immutable and edited by
// copying only the affected path. This hybrid keeps local edits cheap
// while bulk content is never copied.
//
// Key properties:
//   - O(log n) insertion, deletion, and positional lookup
//   - O(1) snapshots via Clone; edits on one handle are never observed
//     through another
//   - iteration by chunk, byte, line, or rune in both directions with a
//     bounded iterator footprint
//   - documents opened with FromFile map the file read-only instead of
//     copying it
//
// Basic usage:
//
//	st := slicetable.FromString("hello world")
//	st.InsertString(5, ",")     // "hello, world"
//	st.Delete(0, 7)             // "world"
//	text := st.String()
//
// A table may be mutated by one goroutine at a time; snapshots from
// Clone may be read concurrently. Tables holding file mappings should be
// Closed when no longer needed.
package slicetable
