package discovery

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) string {
	t.Helper()

	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestScanner_ScanRoot(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "readme.md", "# hello")
	writeFile(t, root, "notes/deep/todo.txt", "todo")
	writeFile(t, root, "image.png", "binary")

	scanner := NewScanner(root, []string{".md", ".txt"})
	files, err := scanner.ScanRoot()
	require.NoError(t, err)
	require.Len(t, files, 2)

	paths := []string{files[0].RelativePath, files[1].RelativePath}
	assert.Contains(t, paths, "readme.md")
	assert.Contains(t, paths, "notes/deep/todo.txt")

	for _, f := range files {
		assert.False(t, f.ModTime.IsZero())
		assert.Greater(t, f.Size, int64(0))
	}
}

func TestScanner_ExtensionMatchingIsCaseInsensitive(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "UPPER.MD", "# caps")

	scanner := NewScanner(root, []string{".md"})
	files, err := scanner.ScanRoot()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "UPPER.MD", files[0].RelativePath)
}

func TestScanner_MissingRoot(t *testing.T) {
	scanner := NewScanner(filepath.Join(t.TempDir(), "missing"), []string{".md"})
	_, err := scanner.ScanRoot()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestScanner_RootIsFile(t *testing.T) {
	root := t.TempDir()
	path := writeFile(t, root, "file.md", "x")

	scanner := NewScanner(path, []string{".md"})
	_, err := scanner.ScanRoot()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a directory")
}

func TestScanner_SymlinkToRegularFile(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	target := writeFile(t, outside, "target.md", "# linked")

	link := filepath.Join(root, "link.md")
	require.NoError(t, os.Symlink(target, link))

	scanner := NewScanner(root, []string{".md"})
	files, err := scanner.ScanRoot()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "link.md", files[0].RelativePath)
	assert.Equal(t, int64(len("# linked")), files[0].Size)
}

func TestScanner_DanglingSymlinkSkipped(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Symlink(filepath.Join(root, "gone.md"), filepath.Join(root, "dangling.md")))
	writeFile(t, root, "real.md", "ok")

	scanner := NewScanner(root, []string{".md"})
	files, err := scanner.ScanRoot()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "real.md", files[0].RelativePath)
}

func TestScanner_UnreadableSubtreeSkipped(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}

	root := t.TempDir()
	writeFile(t, root, "visible.md", "ok")
	writeFile(t, root, "locked/hidden.md", "secret")

	locked := filepath.Join(root, "locked")
	require.NoError(t, os.Chmod(locked, 0000))
	t.Cleanup(func() { _ = os.Chmod(locked, 0755) })

	// The walk must skip the unreadable subtree for this cycle and still
	// report everything else.
	scanner := NewScanner(root, []string{".md"})
	files, err := scanner.ScanRoot()
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "visible.md", files[0].RelativePath)
}

func TestScanner_ReadFileContent(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "docs/a.md", "content here")

	scanner := NewScanner(root, []string{".md"})
	content, err := scanner.ReadFileContent("docs/a.md")
	require.NoError(t, err)
	assert.Equal(t, "content here", content)

	_, err = scanner.ReadFileContent("docs/missing.md")
	require.Error(t, err)
}
