package git

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"
	"github.com/go-git/go-git/v5/utils/merkletrie"

	"github.com/tildaslashalef/codeboost/internal/loggy"
)

// Service provides Git operations
type Service struct {
	logger *loggy.Logger
	repo   *git.Repository
	root   string
}

// NewService creates a new Git service
func NewService(logger *loggy.Logger) *Service {
	return &Service{
		logger: logger,
	}
}

// Open opens the repository containing path, searching parent directories
func (s *Service) Open(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}

	repo, err := git.PlainOpenWithOptions(abs, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return fmt.Errorf("opening git repo: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("getting worktree: %w", err)
	}

	s.repo = repo
	s.root = worktree.Filesystem.Root()
	s.logger.Debug("Opened git repository", "root", s.root)
	return nil
}

// Root returns the working tree root of the opened repository
func (s *Service) Root() string {
	return s.root
}

func (s *Service) ensureRepo() error {
	if s.repo == nil {
		return fmt.Errorf("git repository not initialized")
	}
	return nil
}

// HasGitRepo checks whether path lies inside a Git working tree
func (s *Service) HasGitRepo(path string) bool {
	_, err := git.PlainOpenWithOptions(path, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		s.logger.Debug("Not a valid Git repository", "path", path, "error", err)
		return false
	}
	return true
}

// ChangedFiles lists the files changed in the working tree, sorted by path
func (s *Service) ChangedFiles(scope Scope) ([]ChangedFile, error) {
	if err := s.ensureRepo(); err != nil {
		return nil, err
	}

	worktree, err := s.repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("getting worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("getting worktree status: %w", err)
	}

	var files []ChangedFile
	for path, fileStatus := range status {
		code := fileStatus.Staging
		switch scope {
		case ScopeStaged:
			if code == git.Unmodified || code == git.Untracked {
				continue
			}
		default:
			if fileStatus.Worktree != git.Unmodified {
				code = fileStatus.Worktree
			}
			if code == git.Unmodified {
				continue
			}
		}

		files = append(files, s.changedFile(path, getChangeType(code)))
	}

	sortFiles(files)
	s.logger.Debug("Collected changed files", "scope", scope, "count", len(files))
	return files, nil
}

// CommitFiles lists the files a commit changed relative to its first parent
func (s *Service) CommitFiles(commitID string) ([]ChangedFile, error) {
	if err := s.ensureRepo(); err != nil {
		return nil, err
	}

	hash, err := s.repo.ResolveRevision(plumbing.Revision(commitID))
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", commitID, err)
	}

	commit, err := s.repo.CommitObject(*hash)
	if err != nil {
		return nil, fmt.Errorf("getting commit object: %w", err)
	}

	tree, err := commit.Tree()
	if err != nil {
		return nil, fmt.Errorf("getting commit tree: %w", err)
	}

	parentTree := &object.Tree{}
	if commit.NumParents() > 0 {
		parent, err := commit.Parent(0)
		if err != nil {
			return nil, fmt.Errorf("getting parent commit: %w", err)
		}
		if parentTree, err = parent.Tree(); err != nil {
			return nil, fmt.Errorf("getting parent tree: %w", err)
		}
	}

	changes, err := parentTree.Diff(tree)
	if err != nil {
		return nil, fmt.Errorf("getting changes: %w", err)
	}

	var files []ChangedFile
	for _, change := range changes {
		name := change.To.Name
		if name == "" {
			name = change.From.Name
		}
		files = append(files, s.changedFile(name, getChangeTypeFromChange(change)))
	}

	sortFiles(files)
	return files, nil
}

// ListCommits returns up to limit commits reachable from HEAD, newest first
func (s *Service) ListCommits(limit int) ([]*Commit, error) {
	if err := s.ensureRepo(); err != nil {
		return nil, err
	}

	headRef, err := s.repo.Head()
	if err != nil {
		return nil, fmt.Errorf("getting HEAD: %w", err)
	}

	commit, err := s.repo.CommitObject(headRef.Hash())
	if err != nil {
		return nil, fmt.Errorf("getting HEAD commit: %w", err)
	}

	commitIter := object.NewCommitIterCTime(commit, nil, nil)
	defer commitIter.Close()

	var commits []*Commit
	err = commitIter.ForEach(func(c *object.Commit) error {
		if limit > 0 && len(commits) >= limit {
			return storer.ErrStop
		}
		commits = append(commits, &Commit{
			Hash:      c.Hash.String(),
			Author:    c.Author.Name,
			Email:     c.Author.Email,
			Message:   c.Message,
			Timestamp: c.Author.When,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("iterating commits: %w", err)
	}

	return commits, nil
}

func (s *Service) changedFile(rel string, changeType ChangeType) ChangedFile {
	return ChangedFile{
		Path:       filepath.Join(s.root, filepath.FromSlash(rel)),
		RelPath:    rel,
		ChangeType: changeType,
	}
}

func sortFiles(files []ChangedFile) {
	sort.Slice(files, func(i, j int) bool { return files[i].RelPath < files[j].RelPath })
}

func getChangeTypeFromChange(change *object.Change) ChangeType {
	action, err := change.Action()
	if err != nil {
		return ChangeTypeModified
	}
	switch action {
	case merkletrie.Insert:
		return ChangeTypeAdded
	case merkletrie.Delete:
		return ChangeTypeDeleted
	default:
		return ChangeTypeModified
	}
}

// getChangeType converts go-git StatusCode to our ChangeType
func getChangeType(code git.StatusCode) ChangeType {
	switch code {
	case git.Added, git.Untracked:
		return ChangeTypeAdded
	case git.Deleted:
		return ChangeTypeDeleted
	case git.Renamed:
		return ChangeTypeRenamed
	default:
		return ChangeTypeModified
	}
}
