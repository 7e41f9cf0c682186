// Package watcher re-analyses source files after edits settle
package watcher

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/tildaslashalef/codeboost/internal/assist"
	"github.com/tildaslashalef/codeboost/internal/document"
	"github.com/tildaslashalef/codeboost/internal/loggy"
	"github.com/tildaslashalef/codeboost/internal/runner"
)

// AnalyzeFunc analyses one document. It must return promptly once ctx is done.
type AnalyzeFunc func(ctx context.Context, doc *document.Document) (*assist.Analysis, error)

// SaveFunc persists an analysis that is about to be published
type SaveFunc func(ctx context.Context, analysis *assist.Analysis) error

// Result is a finished analysis of a file whose text has not changed since
// the analysis started
type Result struct {
	Path     string
	Document *document.Document
	Analysis *assist.Analysis
	Err      error
}

// Options configures a Watcher
type Options struct {
	// Save runs only for analyses of text that is still on disk. Nil skips it.
	Save           SaveFunc
	Debounce       time.Duration
	IgnorePatterns []string
	// Extensions limits which files are analysed. Empty means every
	// extension with a known language.
	Extensions []string
	BufferSize int
}

type change struct {
	path   string
	remove bool
}

type flight struct {
	cancel context.CancelFunc
}

// Watcher debounces file changes per path and runs the analyser on the
// settled text
type Watcher struct {
	root    string
	fsw     *fsnotify.Watcher
	analyze AnalyzeFunc
	opts    Options
	logger  *loggy.Logger

	changes chan change
	results chan Result

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	lastText map[string]string
	inflight map[string]*flight
	started  bool

	loops    sync.WaitGroup
	analyses sync.WaitGroup
	stopOnce sync.Once
}

// New creates a watcher rooted at root. Call Start to begin watching.
func New(root string, analyze AnalyzeFunc, opts Options) (*Watcher, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", root, err)
	}
	if opts.Debounce <= 0 {
		opts.Debounce = time.Second
	}
	if opts.BufferSize <= 0 {
		opts.BufferSize = 256
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating fsnotify watcher: %w", err)
	}

	return &Watcher{
		root:     abs,
		fsw:      fsw,
		analyze:  analyze,
		opts:     opts,
		logger:   loggy.Component("watcher"),
		changes:  make(chan change, opts.BufferSize),
		results:  make(chan Result, opts.BufferSize),
		lastText: make(map[string]string),
		inflight: make(map[string]*flight),
	}, nil
}

// Results delivers analyses. The channel is closed by Stop.
func (w *Watcher) Results() <-chan Result {
	return w.results
}

// Start watches root and every directory below it
func (w *Watcher) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.started {
		w.mu.Unlock()
		return errors.New("watcher already started")
	}
	w.started = true
	w.ctx, w.cancel = context.WithCancel(ctx)
	w.mu.Unlock()

	if err := w.addRecursive(w.root); err != nil {
		return fmt.Errorf("watching %s: %w", w.root, err)
	}

	w.loops.Add(2)
	go w.processEvents()
	go w.debounceLoop()

	w.logger.Info("Watching for changes", "root", w.root, "debounce", w.opts.Debounce)
	return nil
}

// Stop cancels pending and running analyses, waits for them and closes
// the results channel
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		w.mu.Lock()
		started := w.started
		if w.cancel != nil {
			w.cancel()
		}
		w.mu.Unlock()

		if err := w.fsw.Close(); err != nil {
			w.logger.Warn("Closing fsnotify watcher", "error", err)
		}
		if started {
			w.loops.Wait()
			w.analyses.Wait()
		}
		close(w.results)
	})
}

// Touch schedules path as if it had been written. It is a no-op before Start.
func (w *Watcher) Touch(path string) {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return
	}
	w.enqueue(change{path: abs})
}

func (w *Watcher) enqueue(c change) {
	select {
	case w.changes <- c:
	case <-w.ctx.Done():
	}
}

func (w *Watcher) addRecursive(root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.shouldIgnore(path) {
			return filepath.SkipDir
		}
		return w.fsw.Add(path)
	})
}

// shouldIgnore matches every path element below root against the ignore
// patterns
func (w *Watcher) shouldIgnore(path string) bool {
	rel, err := filepath.Rel(w.root, path)
	if err != nil {
		rel = path
	}
	for _, part := range strings.Split(rel, string(filepath.Separator)) {
		for _, pattern := range w.opts.IgnorePatterns {
			if part == pattern {
				return true
			}
			if ok, _ := filepath.Match(pattern, part); ok {
				return true
			}
		}
	}
	return false
}

func (w *Watcher) wanted(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	if len(w.opts.Extensions) == 0 {
		_, ok := runner.LanguageByExtension(path)
		return ok
	}
	for _, e := range w.opts.Extensions {
		if strings.ToLower(e) == ext {
			return true
		}
	}
	return false
}

func (w *Watcher) processEvents() {
	defer w.loops.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.shouldIgnore(event.Name) {
				continue
			}

			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := w.addRecursive(event.Name); err != nil {
						w.logger.Warn("Failed to watch new directory", "path", event.Name, "error", err)
					}
					continue
				}
			}
			if !w.wanted(event.Name) {
				continue
			}

			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create):
				w.enqueue(change{path: event.Name})
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				w.enqueue(change{path: event.Name, remove: true})
			}

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Watcher error", "error", err)
		}
	}
}

// debounceLoop holds a deadline per path and fires each once its file has
// been quiet for the debounce period
func (w *Watcher) debounceLoop() {
	defer w.loops.Done()

	pending := make(map[string]time.Time)
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	rearm := func() {
		timer.Stop()
		var next time.Time
		for _, deadline := range pending {
			if next.IsZero() || deadline.Before(next) {
				next = deadline
			}
		}
		if !next.IsZero() {
			timer.Reset(time.Until(next))
		}
	}

	for {
		select {
		case <-w.ctx.Done():
			return

		case c := <-w.changes:
			w.cancelInflight(c.path)
			if c.remove {
				delete(pending, c.path)
				w.forget(c.path)
			} else {
				pending[c.path] = time.Now().Add(w.opts.Debounce)
			}
			rearm()

		case <-timer.C:
			now := time.Now()
			for path, deadline := range pending {
				if !deadline.After(now) {
					delete(pending, path)
					w.dispatch(path)
				}
			}
			rearm()
		}
	}
}

func (w *Watcher) cancelInflight(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if f, ok := w.inflight[path]; ok {
		f.cancel()
		delete(w.inflight, path)
	}
}

func (w *Watcher) forget(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.lastText, path)
}

// forgetIf drops the remembered text only if it is still text
func (w *Watcher) forgetIf(path, text string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.lastText[path] == text {
		delete(w.lastText, path)
	}
}

func (w *Watcher) dispatch(path string) {
	doc, err := document.Load(path)
	if err != nil {
		w.logger.Debug("Skipping unreadable file", "path", path, "error", err)
		return
	}
	text := doc.Text()

	w.mu.Lock()
	if last, ok := w.lastText[path]; ok && last == text {
		w.mu.Unlock()
		w.logger.Debug("Skipping unchanged file", "path", path)
		return
	}
	w.lastText[path] = text
	ctx, cancel := context.WithCancel(w.ctx)
	f := &flight{cancel: cancel}
	w.inflight[path] = f
	w.mu.Unlock()

	w.analyses.Add(1)
	go func() {
		defer w.analyses.Done()
		defer cancel()

		analysis, err := w.analyze(ctx, doc)

		w.mu.Lock()
		if w.inflight[path] == f {
			delete(w.inflight, path)
		}
		w.mu.Unlock()

		if ctx.Err() != nil {
			w.forgetIf(path, text)
			w.logger.Debug("Dropped stale analysis", "path", path)
			return
		}
		if err != nil {
			w.forgetIf(path, text)
			w.publish(Result{Path: path, Document: doc, Err: err})
			return
		}

		current, readErr := os.ReadFile(path)
		if readErr != nil || string(current) != text {
			w.forgetIf(path, text)
			w.logger.Debug("File changed during analysis, dropping result", "path", path)
			return
		}

		if w.opts.Save != nil {
			if err := w.opts.Save(ctx, analysis); err != nil {
				w.forgetIf(path, text)
				w.publish(Result{Path: path, Document: doc, Err: err})
				return
			}
		}

		w.publish(Result{Path: path, Document: doc, Analysis: analysis})
	}()
}

func (w *Watcher) publish(r Result) {
	select {
	case w.results <- r:
	case <-w.ctx.Done():
	}
}
