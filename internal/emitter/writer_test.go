package emitter

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrite_CreatesNestedFiles(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	w, err := New(filepath.Join(dir, "out"))
	require.NoError(t, err)

	p, err := w.Write("types/user.ts", []byte("export interface User {}\n"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "types", "user.ts"), p)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "export interface User {}\n", string(data))

	st, err := os.Stat(p)
	require.NoError(t, err)
	assert.Equal(t, fileMode, st.Mode().Perm())

	entries, err := os.ReadDir(filepath.Dir(p))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temp files are cleaned up")
}

func TestWrite_OverwritesExisting(t *testing.T) {
	t.Parallel()
	w, err := New(t.TempDir())
	require.NoError(t, err)
	_, err = w.Write("index.ts", []byte("old"))
	require.NoError(t, err)
	p, err := w.Write("index.ts", []byte("new"))
	require.NoError(t, err)

	data, err := os.ReadFile(p)
	require.NoError(t, err)
	assert.Equal(t, "new", string(data))
}

func TestWrite_DryRun(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "out")
	w, err := New(dir, WithDryRun(true))
	require.NoError(t, err)

	_, err = w.Write("services/index.ts", []byte("export {};\n"))
	require.NoError(t, err)
	_, err = w.Write("index.ts", []byte("x"))
	require.NoError(t, err)

	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err), "dry run must not create the output dir")

	planned := w.Planned()
	require.Len(t, planned, 2)
	assert.Equal(t, "services/index.ts", planned[0].RelPath)
	assert.Equal(t, 11, planned[0].Size)
	assert.Equal(t, "index.ts", planned[1].RelPath)
}

func TestWrite_RejectsEscapingPaths(t *testing.T) {
	t.Parallel()
	w, err := New(t.TempDir())
	require.NoError(t, err)
	for _, rel := range []string{"../evil.ts", "/abs.ts", ""} {
		_, err := w.Write(rel, nil)
		assert.Error(t, err, rel)
	}
}

func TestNew_RequiresDir(t *testing.T) {
	t.Parallel()
	_, err := New("")
	assert.Error(t, err)
}

func TestRemoveDir(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "out")
	removed, err := RemoveDir(dir)
	require.NoError(t, err)
	assert.False(t, removed)

	require.NoError(t, os.MkdirAll(filepath.Join(dir, "types"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "types", "a.ts"), []byte("x"), 0o644))
	removed, err = RemoveDir(dir)
	require.NoError(t, err)
	assert.True(t, removed)
	_, err = os.Stat(dir)
	assert.True(t, os.IsNotExist(err))

	file := filepath.Join(t.TempDir(), "plain.txt")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0o644))
	_, err = RemoveDir(file)
	assert.Error(t, err)
}
