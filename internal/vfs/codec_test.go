package vfs

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"

	"github.com/greatbody/encoding-probe/internal/charset"
	"github.com/greatbody/encoding-probe/internal/transcoder"
)

func TestCodecRoundTrip(t *testing.T) {
	c := NewCodec(nil, nil, "GB18030", nil)
	text := strings.Repeat("吾輩は猫である。名前はまだ無い。どこで生れたかとんと見当がつかぬ。\r\n", 20)
	raw, err := japanese.ShiftJIS.NewEncoder().Bytes([]byte(text))
	require.NoError(t, err)

	utf8Content, name := c.Decode(raw)
	require.NotEmpty(t, name)
	assert.Equal(t, text, string(utf8Content))

	back, err := c.Encode(utf8Content, name)
	require.NoError(t, err)
	assert.Equal(t, raw, back)
}

func TestCodecUndetermined(t *testing.T) {
	c := NewCodec(nil, nil, "GB18030", nil)

	out, name := c.Decode(nil)
	assert.Empty(t, name)
	assert.Empty(t, out)

	// GB18030 "你好"
	out, err := c.Encode([]byte("你好"), "")
	require.NoError(t, err)
	assert.Equal(t, []byte{0xC4, 0xE3, 0xBA, 0xC3}, out)

	raw := []byte{0xFF, 0xFE, 'x'}
	out, err = c.Encode(raw, "")
	require.NoError(t, err)
	assert.Equal(t, raw, out, "raw bytes are written back untouched")

	out, err = NewCodec(nil, nil, "", nil).Encode([]byte("你好"), "")
	require.NoError(t, err)
	assert.Equal(t, []byte("你好"), out)
}

func TestCodecASCIIEditedToNonASCII(t *testing.T) {
	c := NewCodec(nil, nil, "GB18030", nil)
	raw := []byte("Attribute VB_Name = \"Module1\"\r\nSub Main()\r\nEnd Sub\r\n")

	content, name := c.Decode(raw)
	require.True(t, charset.Default().Equivalent(name, "US-ASCII"), name)
	assert.Equal(t, raw, content)

	unchanged, err := c.Encode(content, name)
	require.NoError(t, err)
	assert.Equal(t, raw, unchanged)

	edited := append(append([]byte{}, content...), []byte("' 你好\r\n")...)
	back, err := c.Encode(edited, name)
	require.NoError(t, err)

	text, err := transcoder.ToUTF8(back, "GB18030", charset.Default())
	require.NoError(t, err)
	assert.Equal(t, string(edited), string(text))
	assert.True(t, bytes.HasSuffix(back, []byte{'\'', ' ', 0xC4, 0xE3, 0xBA, 0xC3, '\r', '\n'}))
}

func TestCodecStripsBOM(t *testing.T) {
	c := NewCodec(nil, nil, "GB18030", nil)
	out, name := c.Decode([]byte("\xEF\xBB\xBFhello, world"))
	assert.Equal(t, "UTF-8", name)
	assert.Equal(t, "hello, world", string(out))
}
