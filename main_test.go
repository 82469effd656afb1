package main

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/greatbody/encoding-probe/internal/lineending"
	"github.com/greatbody/encoding-probe/internal/scan"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	out, _, err := runWithStderr(t, args...)
	return out, err
}

func runWithStderr(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })

	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

func TestEqualCommand(t *testing.T) {
	out, err := run(t, "equal", "utf8", "UTF-8")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)

	out, err = run(t, "equal", "not-a-real-charset", "utf-8")
	require.NoError(t, err)
	assert.Equal(t, "false\n", out)
}

func TestMissingConfigFileUsesDefaults(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "config.json")
	out, stderr, err := runWithStderr(t, "--config", missing, "equal", "utf8", "UTF-8")
	require.NoError(t, err)
	assert.Equal(t, "true\n", out)
	assert.Contains(t, stderr, "config file not found")
}

func TestEOLCommandMissingFile(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "gone.txt")
	_, err := run(t, "eol", "--charset", "UTF-8", missing)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), missing)
}

func TestDetectCommand(t *testing.T) {
	dir := t.TempDir()
	utf8File := writeFile(t, dir, "ja.txt", strings.Repeat("日本語のテキストです。\n", 30))
	emptyFile := writeFile(t, dir, "empty.txt", "")

	out, err := run(t, "detect", utf8File, emptyFile)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{utf8File, "UTF-8", "unicode"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{emptyFile, "-", "none"}, strings.Fields(lines[1]))
}

func TestDetectCommandMissingFile(t *testing.T) {
	_, err := run(t, "detect", filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestEOLCommand(t *testing.T) {
	dir := t.TempDir()
	crlf := writeFile(t, dir, "crlf.txt", "a\r\nb\r\n")
	mixed := writeFile(t, dir, "mixed.txt", "a\r\nb\n")

	out, err := run(t, "eol", crlf, mixed)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, []string{crlf, "CRLF"}, strings.Fields(lines[0]))
	assert.Equal(t, []string{mixed, "Mixed"}, strings.Fields(lines[1]))

	out, err = run(t, "eol", "--charset", "latin1", crlf)
	require.NoError(t, err)
	assert.Equal(t, []string{crlf, "CRLF"}, strings.Fields(out))
}

func TestScanCommandJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "a.txt", "one\ntwo\n")
	writeFile(t, dir, "sub/b.csv", "x,y\r\n1,2\r\n")
	writeFile(t, dir, "c.bin", "\x00\x01")

	out, err := run(t, "scan", "--json", dir)
	require.NoError(t, err)

	var results []scan.Result
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 2)
	assert.Equal(t, "a.txt", results[0].Path)
	assert.Equal(t, lineending.LF, results[0].LineEnding)
	assert.Equal(t, "sub/b.csv", results[1].Path)
	assert.Equal(t, lineending.CRLF, results[1].LineEnding)
}

func TestUnknownEngine(t *testing.T) {
	_, err := run(t, "--engine", "oracle", "equal", "a", "b")
	assert.Error(t, err)
}
