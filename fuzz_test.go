package slicetable

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// TestRandomEdits replays a deterministic pseudo-random edit sequence
// against a plain byte-slice reference, snapshotting along the way and
// verifying the snapshots never drift.
func TestRandomEdits(t *testing.T) {
	iters := 3000
	if testing.Short() {
		iters = 300
	}
	fz := fuzz.NewWithSeed(1).NilChance(0)
	st := New()
	defer st.Close()
	ref := []byte{}

	type snap struct {
		st   *SliceTable
		want string
	}
	var snaps []snap
	defer func() {
		for _, s := range snaps {
			s.st.Close()
		}
	}()

	var word string
	for i := 0; i < iters; i++ {
		pos := i * 2654435761 % (len(ref) + 1)
		switch i % 3 {
		case 0, 1:
			fz.Fuzz(&word)
			data := []byte(word)
			if i%13 == 0 {
				data = bytes.Repeat(data, 120) // push some inserts past HighWater
			}
			if i%7 == 0 {
				data = append(data, '\n')
			}
			lfs := st.Insert(pos, data)
			require.Equal(t, bytes.Count(data, []byte{'\n'}), lfs)
			ref = append(ref[:pos:pos], append(append([]byte{}, data...), ref[pos:]...)...)
		case 2:
			n := (i * 31) % 2048
			end := pos + n
			if end > len(ref) {
				end = len(ref)
			}
			lfs := st.Delete(pos, n)
			require.Equal(t, bytes.Count(ref[pos:end], []byte{'\n'}), lfs)
			ref = append(ref[:pos:pos], ref[end:]...)
		}
		require.Equal(t, len(ref), st.Size(), "iteration %d", i)
		require.NoError(t, st.Check(), "iteration %d\ntree:\n%s", i, st.treeString())
		if i%500 == 250 {
			snaps = append(snaps, snap{st.Clone(), string(ref)})
		}
	}

	require.Equal(t, string(ref), st.String())
	require.Equal(t, bytes.Count(ref, []byte{'\n'})+1, st.LineCount())
	for k, s := range snaps {
		require.Equal(t, s.want, s.st.String(), "snapshot %d", k)
		require.NoError(t, s.st.Check())
	}
}

// TestConcurrentSnapshotReaders mutates one handle while other
// goroutines traverse snapshots taken before the mutations began.
func TestConcurrentSnapshotReaders(t *testing.T) {
	content := strings.Repeat("every reader sees this exact line\n", 2000)
	st := FromString(content)
	defer st.Close()

	var g errgroup.Group
	for r := 0; r < 8; r++ {
		snap := st.Clone()
		g.Go(func() error {
			defer snap.Close()
			for pass := 0; pass < 10; pass++ {
				var sb strings.Builder
				it := snap.IterAt(0)
				for chunk := it.Chunk(); chunk != nil; chunk = it.Chunk() {
					sb.Write(chunk)
					if !it.NextChunk() {
						break
					}
				}
				if sb.String() != content {
					return errSnapshotDrift
				}
			}
			return nil
		})
	}

	for i := 0; i < 500; i++ {
		st.Delete(i%st.Size(), 3)
		st.Insert(i*37%st.Size(), []byte("mutation"))
	}
	require.NoError(t, g.Wait())
	require.NoError(t, st.Check())
}

var errSnapshotDrift = errors.New("snapshot content drifted during concurrent edits")

func FuzzInsertDelete(f *testing.F) {
	f.Add("hello\nworld", 3, 2, "wedge")
	f.Add("", 0, 0, "x")
	f.Add(strings.Repeat("a", 3000), 1500, 100, strings.Repeat("b", 2000))
	f.Add("line\n", 5, 1, "\n\n")

	f.Fuzz(func(t *testing.T, initial string, pos, n int, ins string) {
		st := FromString(initial)
		defer st.Close()

		m := len(initial) + 1
		pos = ((pos % m) + m) % m
		if n < 0 {
			n = 0
		}
		ref := []byte(initial)

		end := pos + n
		if end > len(ref) || end < pos {
			end = len(ref)
		}
		st.Delete(pos, n)
		ref = append(ref[:pos:pos], ref[end:]...)

		if pos > len(ref) {
			pos = len(ref)
		}
		st.Insert(pos, []byte(ins))
		ref = append(ref[:pos:pos], append([]byte(ins), ref[pos:]...)...)

		if err := st.Check(); err != nil {
			t.Fatal(err)
		}
		if got := st.String(); got != string(ref) {
			t.Fatalf("content mismatch: got %q want %q", got, ref)
		}
	})
}

func FuzzIterators(f *testing.F) {
	f.Add("abc\ndef", 2)
	f.Add(strings.Repeat("chunky\n", 500), 1234)

	f.Fuzz(func(t *testing.T, content string, pos int) {
		st := FromString(content)
		defer st.Close()
		m := len(content) + 1
		pos = ((pos % m) + m) % m

		it := st.IterAt(pos)
		if pos == len(content) {
			if !it.OffEnd() || it.Byte() != -1 {
				t.Fatal("expected off-end iterator")
			}
			return
		}
		if got := it.Byte(); got != int(content[pos]) {
			t.Fatalf("byte at %d: got %d want %d", pos, got, content[pos])
		}
		var sb strings.Builder
		for chunk := it.Chunk(); chunk != nil; chunk = it.Chunk() {
			sb.Write(chunk)
			if !it.NextChunk() {
				break
			}
		}
		if sb.String() != content[pos:] {
			t.Fatalf("suffix mismatch from %d", pos)
		}
	})
}
