package slicetable

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// requireContent checks the invariants and the full content in one go.
func requireContent(t *testing.T, st *SliceTable, want string) {
	t.Helper()
	require.NoError(t, st.Check(), "tree:\n%s", st.treeString())
	require.Equal(t, len(want), st.Size())
	require.Equal(t, want, st.String())
}

func TestNew(t *testing.T) {
	st := New()
	defer st.Close()
	require.Equal(t, 0, st.Size())
	require.Equal(t, 1, st.LineCount())
	require.Equal(t, "", st.String())
	require.NoError(t, st.Check())
}

func TestFromBytes(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"single byte", "a"},
		{"short", "hello"},
		{"with newlines", "a\nb\nc\n"},
		{"exactly high water", strings.Repeat("x", HighWater)},
		{"just over high water", strings.Repeat("x", HighWater+1)},
		{"large", strings.Repeat("abcdefghij", 2000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := FromBytes([]byte(tt.input))
			defer st.Close()
			requireContent(t, st, tt.input)
			require.Equal(t, strings.Count(tt.input, "\n")+1, st.LineCount())
		})
	}
}

func TestInsert(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		pos     int
		text    string
		want    string
	}{
		{"into empty", "", 0, "hello", "hello"},
		{"at start", "world", 0, "hello ", "hello world"},
		{"at end", "hello", 5, " world", "hello world"},
		{"in middle", "helloworld", 5, " ", "hello world"},
		{"empty text", "hello", 3, "", "hello"},
		{"large text", "ab", 1, strings.Repeat("x", 5000), "a" + strings.Repeat("x", 5000) + "b"},
		{"into large slot", strings.Repeat("x", 5000), 2500, "mid", strings.Repeat("x", 2500) + "mid" + strings.Repeat("x", 2500)},
		{"start of large slot", strings.Repeat("x", 5000), 0, "pre", "pre" + strings.Repeat("x", 5000)},
		{"end of large slot", strings.Repeat("x", 5000), 5000, "post", strings.Repeat("x", 5000) + "post"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := FromBytes([]byte(tt.initial))
			defer st.Close()
			st.Insert(tt.pos, []byte(tt.text))
			requireContent(t, st, tt.want)
		})
	}
}

func TestInsertOutOfRange(t *testing.T) {
	st := FromString("abc")
	defer st.Close()
	require.Panics(t, func() { st.Insert(4, []byte("x")) })
	require.Panics(t, func() { st.Insert(-1, []byte("x")) })
}

func TestDelete(t *testing.T) {
	tests := []struct {
		name    string
		initial string
		pos, n  int
		want    string
	}{
		{"from start", "hello world", 0, 6, "world"},
		{"from end", "hello world", 5, 6, "hello"},
		{"from middle", "hello world", 5, 1, "helloworld"},
		{"everything", "hello", 0, 5, ""},
		{"nothing", "hello", 3, 0, "hello"},
		{"clipped to end", "hello", 2, 100, "he"},
		{"inside large slot", strings.Repeat("x", 5000), 100, 4800, strings.Repeat("x", 200)},
		{"prefix of large slot", strings.Repeat("x", 5000), 0, 4000, strings.Repeat("x", 1000)},
		{"suffix of large slot", strings.Repeat("x", 5000), 1000, 4000, strings.Repeat("x", 1000)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st := FromBytes([]byte(tt.initial))
			defer st.Close()
			st.Delete(tt.pos, tt.n)
			requireContent(t, st, tt.want)
		})
	}
}

func TestHelloWorld(t *testing.T) {
	st := New()
	defer st.Close()
	st.Insert(0, []byte("hello"))
	st.Insert(5, []byte(" world"))
	requireContent(t, st, "hello world")
	require.Equal(t, 11, st.Size())
}

func TestInsertDelete(t *testing.T) {
	st := New()
	defer st.Close()
	st.Insert(0, []byte("abcdef"))
	st.Delete(2, 2)
	requireContent(t, st, "abef")
	require.Equal(t, 4, st.Size())
}

func TestLargeCarve(t *testing.T) {
	st := FromBytes(bytes.Repeat([]byte("X"), 10000))
	defer st.Close()
	st.Delete(100, 9800)
	requireContent(t, st, strings.Repeat("X", 200))
	require.Equal(t, 200, st.Size())
}

func TestCloneIsolation(t *testing.T) {
	st := New()
	defer st.Close()
	st.Insert(0, []byte("abc"))
	u := st.Clone()
	defer u.Close()
	u.Insert(1, []byte("ZZ"))
	requireContent(t, st, "abc")
	requireContent(t, u, "aZZbc")
}

func TestCloneSurvivesOriginalClose(t *testing.T) {
	st := FromString(strings.Repeat("payload\n", 400))
	u := st.Clone()
	require.NoError(t, st.Close())
	requireContent(t, u, strings.Repeat("payload\n", 400))
	require.NoError(t, u.Close())
}

func TestCloneDeepTree(t *testing.T) {
	st := New()
	defer st.Close()
	var want []byte
	chunk := []byte("0123456789abcdef")
	for i := 0; i < 2000; i++ {
		st.Insert(len(want), chunk)
		want = append(want, chunk...)
	}
	u := st.Clone()
	defer u.Close()
	u.Delete(1000, 20000)
	u.Insert(500, []byte("wedge"))
	requireContent(t, st, string(want))
	require.NoError(t, u.Check())
}

func TestLineCount(t *testing.T) {
	st := New()
	defer st.Close()
	require.Equal(t, 0, st.Insert(0, []byte("no newline")))
	require.Equal(t, 2, st.Insert(2, []byte("a\nb\nc")))
	require.Equal(t, 3, st.LineCount())

	lfs := st.Delete(0, st.Size())
	require.Equal(t, 2, lfs)
	require.Equal(t, 1, st.LineCount())
}

func TestSizeAdditivity(t *testing.T) {
	st := FromString("some starting content\nwith two lines")
	defer st.Close()
	size := st.Size()
	st.Insert(7, []byte("inserted"))
	require.Equal(t, size+8, st.Size())
	st.Delete(3, 5)
	require.Equal(t, size+3, st.Size())
	// clipped delete removes only what is there
	st.Delete(st.Size()-2, 100)
	require.Equal(t, size+1, st.Size())
	require.NoError(t, st.Check())
}

func TestInsertDeleteInverse(t *testing.T) {
	initial := strings.Repeat("round and round\n", 300)
	st := FromString(initial)
	defer st.Close()
	for _, pos := range []int{0, 17, 1024, 2048, len(initial) / 2, len(initial)} {
		st.Insert(pos, []byte("ephemeral"))
		st.Delete(pos, 9)
		requireContent(t, st, initial)
	}
}

func TestDeleteAcrossLeaves(t *testing.T) {
	st := New()
	defer st.Close()
	var want []byte
	piece := []byte("segment of twenty bt\n")
	for i := 0; i < 2000; i++ {
		st.Insert(len(want), piece)
		want = append(want, piece...)
	}
	require.Greater(t, st.Height(), 1)

	for _, cut := range []struct{ pos, n int }{
		{0, 1},           // first byte
		{100, 3000},      // a few leaves
		{500, 6000},      // several leaves
		{1, len(want)/2}, // half the document
	} {
		want = append(want[:cut.pos], want[cut.pos+cut.n:]...)
		st.Delete(cut.pos, cut.n)
		requireContent(t, st, string(want))
	}
	st.Delete(0, st.Size())
	requireContent(t, st, "")
}

func TestSlice(t *testing.T) {
	content := strings.Repeat("slicing and dicing\n", 300)
	st := FromString(content)
	defer st.Close()
	st.Insert(100, []byte("-mark-")) // force some structure
	content = content[:100] + "-mark-" + content[100:]

	assert.Equal(t, content[0:10], string(st.Slice(0, 10)))
	assert.Equal(t, content[95:120], string(st.Slice(95, 120)))
	assert.Equal(t, content[len(content)-7:], string(st.Slice(len(content)-7, len(content))))
	assert.Equal(t, content, string(st.Slice(0, len(content))))
	assert.Nil(t, st.Slice(5, 5))
}

func TestDump(t *testing.T) {
	content := strings.Repeat("dump me\n", 1000)
	st := FromString(content)
	defer st.Close()
	var buf bytes.Buffer
	require.NoError(t, st.Dump(&buf))
	require.Equal(t, content, buf.String())
}

func TestFromFileSmall(t *testing.T) {
	path := filepath.Join(t.TempDir(), "small.txt")
	content := []byte("just a few bytes\nacross two lines\n")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	st, err := FromFile(path)
	require.NoError(t, err)
	defer st.Close()
	requireContent(t, st, string(content))
	require.Equal(t, blockSmall, st.root.slices[0].blk.kind)
}

func TestFromFileMapped(t *testing.T) {
	path := filepath.Join(t.TempDir(), "big.txt")
	content := bytes.Repeat([]byte("0123456789abcde\n"), 1024) // 16 KiB
	require.NoError(t, os.WriteFile(path, content, 0o644))

	st, err := FromFile(path)
	require.NoError(t, err)
	requireContent(t, st, string(content))
	require.Equal(t, blockMmap, st.root.slices[0].blk.kind)
	require.Equal(t, 1025, st.LineCount())

	// editing a mapped document copies around the mapping, never into it
	st.Delete(16, 16)
	st.Insert(16, []byte("overwritten....\n"))
	require.Equal(t, len(content), st.Size())
	require.NoError(t, st.Check())
	require.NoError(t, st.Close())
}

func TestFromFileMissing(t *testing.T) {
	st, err := FromFile(filepath.Join(t.TempDir(), "definitely-not-here"))
	require.Error(t, err)
	require.Nil(t, st)
}

func TestFromFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty")
	require.NoError(t, os.WriteFile(path, nil, 0o644))
	st, err := FromFile(path)
	require.NoError(t, err)
	defer st.Close()
	require.Equal(t, 0, st.Size())
}

func TestFromReader(t *testing.T) {
	content := strings.Repeat("streamed\n", 500)
	st, err := FromReader(strings.NewReader(content))
	require.NoError(t, err)
	defer st.Close()
	requireContent(t, st, content)
}

func TestWriteDot(t *testing.T) {
	st := FromString(strings.Repeat("dot dot dot\n", 400))
	defer st.Close()
	st.Insert(40, []byte("edge"))
	var buf bytes.Buffer
	require.NoError(t, st.WriteDot(&buf))
	assert.Contains(t, buf.String(), "digraph slicetable")
}
