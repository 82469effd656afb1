package scan

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/unicode"

	"github.com/greatbody/encoding-probe/internal/family"
	"github.com/greatbody/encoding-probe/internal/lineending"
	"github.com/greatbody/encoding-probe/internal/transcoder"
	"github.com/greatbody/encoding-probe/internal/vfs"
)

func TestScan(t *testing.T) {
	fs := memfs.New()
	utf16, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("one\r\ntwo\r\n"))
	require.NoError(t, err)

	require.NoError(t, util.WriteFile(fs, "src/a.txt", []byte("alpha\nbeta\n"), 0o644))
	require.NoError(t, util.WriteFile(fs, "src/nested/b.txt", []byte("日本語\r\nテキスト\r\n"), 0o644))
	require.NoError(t, util.WriteFile(fs, "src/nested/c.txt", utf16, 0o644))
	require.NoError(t, util.WriteFile(fs, "src/empty.txt", nil, 0o644))
	require.NoError(t, util.WriteFile(fs, "src/skip.png", []byte{0x89, 'P', 'N', 'G'}, 0o644))

	s := New(fs, WithFilter(vfs.NewFilter(nil, []string{".txt"})), WithConcurrency(2))
	results, err := s.Scan(context.Background(), "src")
	require.NoError(t, err)
	require.Len(t, results, 4)

	byPath := map[string]Result{}
	for _, r := range results {
		byPath[r.Path] = r
	}

	a := byPath["src/a.txt"]
	assert.True(t, a.Detected())
	assert.Equal(t, lineending.LF, a.LineEnding)
	assert.Empty(t, a.Error)

	b := byPath["src/nested/b.txt"]
	assert.Equal(t, "UTF-8", b.Charset)
	assert.Equal(t, family.Unicode, b.Family)
	assert.Equal(t, lineending.CRLF, b.LineEnding)

	c := byPath["src/nested/c.txt"]
	assert.Equal(t, "UTF-16LE", c.Charset)
	assert.Equal(t, lineending.CRLF, c.LineEnding)

	empty := byPath["src/empty.txt"]
	assert.False(t, empty.Detected())
	assert.Empty(t, empty.LineEnding)

	assert.Equal(t, "src/a.txt", results[0].Path, "results are sorted")
}

func TestScanCancelled(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "a.txt", []byte("x\n"), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New(fs).Scan(ctx, "/")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProbeMissingFile(t *testing.T) {
	res := New(memfs.New()).Probe("ghost.txt")
	assert.False(t, res.Detected())
	assert.Contains(t, res.Error, transcoder.ErrIoFailure.Error())
}
