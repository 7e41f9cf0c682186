// Package git finds the files a working tree or commit has touched
package git

import (
	"time"
)

// Scope selects which changes ChangedFiles reports
type Scope string

const (
	// ScopeWorking reports staged, unstaged and untracked files
	ScopeWorking Scope = "working"
	// ScopeStaged reports only files staged in the index
	ScopeStaged Scope = "staged"
)

// ChangeType represents the type of change to a file
type ChangeType string

const (
	// ChangeTypeAdded represents a file that was added
	ChangeTypeAdded ChangeType = "added"
	// ChangeTypeModified represents a file that was modified
	ChangeTypeModified ChangeType = "modified"
	// ChangeTypeDeleted represents a file that was deleted
	ChangeTypeDeleted ChangeType = "deleted"
	// ChangeTypeRenamed represents a file that was renamed
	ChangeTypeRenamed ChangeType = "renamed"
)

// ChangedFile is a file touched by a change. Path is absolute, RelPath is
// relative to the repository root.
type ChangedFile struct {
	Path       string     `json:"path"`
	RelPath    string     `json:"rel_path"`
	ChangeType ChangeType `json:"change_type"`
}

// Exists reports whether the change leaves a file on disk
func (f ChangedFile) Exists() bool {
	return f.ChangeType != ChangeTypeDeleted
}

// Commit represents a Git commit
type Commit struct {
	Hash      string    `json:"hash"`
	Author    string    `json:"author"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
