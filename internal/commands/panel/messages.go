package panel

import (
	"github.com/tildaslashalef/codeboost/internal/watcher"
)

// resultMsg carries a finished watch-mode analysis
type resultMsg struct {
	result watcher.Result
}

// resultsClosedMsg is sent once the watcher stops delivering
type resultsClosedMsg struct{}

// appliedMsg reports the outcome of an apply request
type appliedMsg struct {
	path         string
	suggestionID string
	line         int
	err          error
}
