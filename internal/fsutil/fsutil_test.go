package fsutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTempSibling(t *testing.T) {
	assert.Equal(t, filepath.Join("/a/b", ".baby.partial.mp4"), TempSibling("/a/b/baby.mp4"))
	assert.Equal(t, filepath.Join("/a", ".thumb.partial.png"), TempSibling("/a/thumb.png"))
}

func TestCopyFile_DoesNotOverwrite(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.mp4")
	dst := filepath.Join(dir, "out", "dst.mp4")
	require.NoError(t, os.WriteFile(src, []byte("first"), 0o644))

	require.NoError(t, CopyFile(src, dst))
	got, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))

	require.NoError(t, os.WriteFile(src, []byte("second"), 0o644))
	require.NoError(t, CopyFile(src, dst))
	got, err = os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "first", string(got))
}

func TestCommit(t *testing.T) {
	dir := t.TempDir()
	final := filepath.Join(dir, "cut.mp4")
	tmp := TempSibling(final)
	require.NoError(t, os.WriteFile(tmp, []byte("x"), 0o644))

	require.NoError(t, Commit(tmp, final))
	assert.True(t, Exists(final))
	assert.False(t, Exists(tmp))
}

func TestConfineRelPath(t *testing.T) {
	root := t.TempDir()

	got, err := ConfineRelPath(root, "1001")
	require.NoError(t, err)
	assert.Equal(t, "1001", filepath.Base(got))

	for _, bad := range []string{"../etc", "..", "/abs", `a\b`, ""} {
		_, err := ConfineRelPath(root, bad)
		assert.Error(t, err, bad)
	}
}

func TestConfineRelPath_SymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	require.NoError(t, os.Symlink(outside, filepath.Join(root, "evil")))

	_, err := ConfineRelPath(root, "evil")
	assert.Error(t, err)
}
