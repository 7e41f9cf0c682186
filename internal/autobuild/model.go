// Package autobuild runs a file and feeds its errors back to the model until
// it runs cleanly
package autobuild

import (
	"time"

	"github.com/tildaslashalef/codeboost/internal/runner"
	"github.com/tildaslashalef/codeboost/internal/ulid"
)

// Messages shown to the user
const (
	MessageSuccess    = "Code executed successfully."
	MessageMaxReached = "Max attempts reached."
)

// Attempt is one save-and-run cycle
type Attempt struct {
	ID        string      `json:"id"`
	FilePath  string      `json:"file_path"`
	Attempt   int         `json:"attempt"`
	Command   string      `json:"command"`
	ExitCode  int         `json:"exit_code"`
	Kind      runner.Kind `json:"kind"`
	Output    string      `json:"output,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// NewAttempt records the outcome of a run
func NewAttempt(path string, n int, res *runner.Result) *Attempt {
	return &Attempt{
		ID:        ulid.BuildAttemptID(),
		FilePath:  path,
		Attempt:   n,
		Command:   res.Command,
		ExitCode:  res.ExitCode,
		Kind:      res.Kind,
		Output:    res.ErrorText(),
		CreatedAt: time.Now(),
	}
}

// Level tags progress events the way editor notifications are tagged
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Event is a progress notification from the loop
type Event struct {
	Level   Level
	Attempt int
	Max     int
	Message string
	Result  *runner.Result
}

// Report summarises a finished loop
type Report struct {
	FilePath string     `json:"file_path"`
	Success  bool       `json:"success"`
	Message  string     `json:"message"`
	Attempts []*Attempt `json:"attempts"`
}
