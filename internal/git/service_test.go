package git

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tildaslashalef/codeboost/internal/loggy"
)

// setupRepo creates a repository with one commit holding main.py and README.md
func setupRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()
	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	writeFile(t, dir, "main.py", "print('hi')\n")
	writeFile(t, dir, "README.md", "# test\n")
	commitAll(t, repo, "Initial commit")

	return dir, repo
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func commitAll(t *testing.T, repo *git.Repository, message string) string {
	t.Helper()
	worktree, err := repo.Worktree()
	require.NoError(t, err)
	require.NoError(t, worktree.AddWithOptions(&git.AddOptions{All: true}))
	hash, err := worktree.Commit(message, &git.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)
	return hash.String()
}

func paths(files []ChangedFile) map[string]ChangeType {
	out := make(map[string]ChangeType, len(files))
	for _, f := range files {
		out[f.RelPath] = f.ChangeType
	}
	return out
}

func TestChangedFiles(t *testing.T) {
	dir, repo := setupRepo(t)
	service := NewService(loggy.NewNoopLogger())
	require.NoError(t, service.Open(filepath.Join(dir)))

	t.Run("clean tree", func(t *testing.T) {
		files, err := service.ChangedFiles(ScopeWorking)
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	writeFile(t, dir, "main.py", "print('changed')\n")
	writeFile(t, dir, "pkg/util.js", "module.exports = 1\n")
	writeFile(t, dir, "staged.c", "int main(){return 0;}\n")

	worktree, err := repo.Worktree()
	require.NoError(t, err)
	_, err = worktree.Add("staged.c")
	require.NoError(t, err)

	t.Run("working scope", func(t *testing.T) {
		files, err := service.ChangedFiles(ScopeWorking)
		require.NoError(t, err)
		assert.Equal(t, map[string]ChangeType{
			"main.py":     ChangeTypeModified,
			"pkg/util.js": ChangeTypeAdded,
			"staged.c":    ChangeTypeAdded,
		}, paths(files))

		assert.Equal(t, "main.py", files[0].RelPath)
		assert.Equal(t, filepath.Join(dir, "main.py"), files[0].Path)
		assert.True(t, files[0].Exists())
	})

	t.Run("staged scope", func(t *testing.T) {
		files, err := service.ChangedFiles(ScopeStaged)
		require.NoError(t, err)
		assert.Equal(t, map[string]ChangeType{"staged.c": ChangeTypeAdded}, paths(files))
	})
}

func TestChangedFilesFromSubdirectory(t *testing.T) {
	dir, _ := setupRepo(t)
	writeFile(t, dir, "sub/a.go", "package sub\n")

	service := NewService(loggy.NewNoopLogger())
	require.NoError(t, service.Open(filepath.Join(dir, "sub")))

	files, err := service.ChangedFiles(ScopeWorking)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "sub/a.go", files[0].RelPath)
	assert.Equal(t, filepath.Join(dir, "sub", "a.go"), files[0].Path)
}

func TestCommitFiles(t *testing.T) {
	dir, repo := setupRepo(t)
	service := NewService(loggy.NewNoopLogger())
	require.NoError(t, service.Open(dir))

	writeFile(t, dir, "main.py", "print('v2')\n")
	writeFile(t, dir, "lib.rs", "fn main() {}\n")
	require.NoError(t, os.Remove(filepath.Join(dir, "README.md")))
	second := commitAll(t, repo, "Second commit")

	files, err := service.CommitFiles(second)
	require.NoError(t, err)
	assert.Equal(t, map[string]ChangeType{
		"README.md": ChangeTypeDeleted,
		"lib.rs":    ChangeTypeAdded,
		"main.py":   ChangeTypeModified,
	}, paths(files))

	files, err = service.CommitFiles("HEAD~1")
	require.NoError(t, err)
	assert.Equal(t, map[string]ChangeType{
		"README.md": ChangeTypeAdded,
		"main.py":   ChangeTypeAdded,
	}, paths(files))
}

func TestListCommits(t *testing.T) {
	dir, repo := setupRepo(t)
	writeFile(t, dir, "main.py", "print('v2')\n")
	commitAll(t, repo, "Second commit")

	service := NewService(loggy.NewNoopLogger())
	require.NoError(t, service.Open(dir))

	commits, err := service.ListCommits(1)
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "Second commit", commits[0].Message)

	commits, err = service.ListCommits(0)
	require.NoError(t, err)
	assert.Len(t, commits, 2)
}

func TestNotARepository(t *testing.T) {
	service := NewService(loggy.NewNoopLogger())
	dir := t.TempDir()

	assert.False(t, service.HasGitRepo(dir))
	assert.Error(t, service.Open(dir))

	_, err := service.ChangedFiles(ScopeWorking)
	assert.Error(t, err)
}
