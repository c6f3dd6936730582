// Package watch submits ingestion tasks for files dropped into a
// watched intake directory.
package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/casefile/internal/core/domain"
	"github.com/custodia-labs/casefile/internal/core/ports/driven"
	"github.com/custodia-labs/casefile/internal/core/ports/driving"
	"github.com/custodia-labs/casefile/internal/logger"
)

// settleDelay is how long a file must stay quiet before it is
// ingested. Copies into the drop folder arrive as a burst of write
// events.
const settleDelay = 2 * time.Second

// Watcher monitors a drop directory and submits ingestion tasks for
// new chat exports (.txt) and PDF documents (.pdf). Other files are
// ignored.
type Watcher struct {
	dir       string
	caseID    string
	tasks     driving.TaskService
	extractor driven.Extractor

	mu      sync.Mutex
	pending map[string]*time.Timer

	wg sync.WaitGroup
}

// New creates a watcher over the given directory. Submitted tasks
// are scoped to the given case.
func New(dir, caseID string, tasks driving.TaskService, extractor driven.Extractor) *Watcher {
	return &Watcher{
		dir:       dir,
		caseID:    caseID,
		tasks:     tasks,
		extractor: extractor,
		pending:   make(map[string]*time.Timer),
	}
}

// Run watches until the context is cancelled. The directory is
// created when absent.
func (w *Watcher) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0700); err != nil {
		return err
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}

	logger.Info("Watching intake directory %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			w.drainTimers()
			w.wg.Wait()
			return ctx.Err()

		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) != 0 {
				w.schedule(ctx, event.Name)
			}

		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// schedule (re)starts the settle timer for a path. The file is only
// ingested after no events arrive for settleDelay.
func (w *Watcher) schedule(ctx context.Context, path string) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".pdf":
	default:
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[path]; ok {
		timer.Reset(settleDelay)
		return
	}
	// The wait group is joined before the timer is armed; a callback
	// firing during shutdown must never race Run's Wait.
	w.wg.Add(1)
	w.pending[path] = time.AfterFunc(settleDelay, func() {
		defer w.wg.Done()

		w.mu.Lock()
		delete(w.pending, path)
		w.mu.Unlock()

		w.ingest(ctx, path)
	})
}

// drainTimers stops all settle timers on shutdown. A timer stopped
// before firing releases its wait-group slot here; one that already
// fired releases it from the callback.
func (w *Watcher) drainTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	for path, timer := range w.pending {
		if timer.Stop() {
			w.wg.Done()
		}
		delete(w.pending, path)
	}
}

// ingest submits the appropriate task for one settled file. Conflict
// rejections are logged and the file is left in place for a retry by
// hand.
func (w *Watcher) ingest(ctx context.Context, path string) {
	if ctx.Err() != nil {
		return
	}

	name := filepath.Base(path)
	var (
		kind   domain.TaskKind
		params domain.TaskParams
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt":
		content, err := os.ReadFile(path)
		if err != nil {
			logger.Warn("Reading dropped file %s: %v", name, err)
			return
		}
		kind = domain.TaskIngestChat
		params.Chat = &domain.ChatExport{FileName: name, Content: content}

	case ".pdf":
		doc, err := w.extractor.Extract(ctx, path)
		if err != nil {
			logger.Warn("Extracting dropped file %s: %v", name, err)
			return
		}
		kind = domain.TaskIngestPDF
		params.PDF = doc
	}

	task, err := w.tasks.Submit(ctx, w.caseID, kind, params)
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			logger.Warn("Ingestion already running, leaving %s for later", name)
		} else {
			logger.Warn("Submitting %s for %s: %v", kind, name, err)
		}
		return
	}
	logger.Info("Submitted %s task %s for dropped file %s", kind, task.ID, name)
}
