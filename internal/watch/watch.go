// Package watch observes the transcripts directory and triggers ingestion
// when a session file stops changing.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long a transcript must be quiet before it is handled.
// Assistant sessions append continuously, so firing on every write would
// re-ingest the same file hundreds of times.
const DefaultSettle = 2 * time.Second

// Watcher invokes a handler for each transcript that settles under root.
type Watcher struct {
	root   string
	settle time.Duration
	handle func(path string)

	fw *fsnotify.Watcher

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a watcher over root. The handler receives the absolute path of
// each settled .jsonl transcript.
func New(root string, settle time.Duration, handle func(path string)) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &Watcher{
		root:   root,
		settle: settle,
		handle: handle,
		fw:     fw,
		timers: make(map[string]*time.Timer),
	}

	if err := fw.Add(root); err != nil {
		fw.Close()
		return nil, fmt.Errorf("watch %s: %w", root, err)
	}

	// Transcripts live one level down, in per-project directories.
	dirs, err := os.ReadDir(root)
	if err != nil {
		fw.Close()
		return nil, fmt.Errorf("read %s: %w", root, err)
	}
	for _, d := range dirs {
		if d.IsDir() {
			if err := fw.Add(filepath.Join(root, d.Name())); err != nil {
				fw.Close()
				return nil, fmt.Errorf("watch %s: %w", d.Name(), err)
			}
		}
	}

	return w, nil
}

// Run processes events until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			w.dispatch(ev)
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watch: %w", err)
		}
	}
}

// Close stops the watcher and cancels pending timers.
func (w *Watcher) Close() error {
	w.mu.Lock()
	for _, t := range w.timers {
		t.Stop()
	}
	w.timers = make(map[string]*time.Timer)
	w.mu.Unlock()
	return w.fw.Close()
}

func (w *Watcher) dispatch(ev fsnotify.Event) {
	if ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}

	// A new project directory appears when the assistant first runs there.
	if ev.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			_ = w.fw.Add(ev.Name)
			return
		}
	}

	if !strings.HasSuffix(ev.Name, ".jsonl") {
		return
	}
	w.reset(ev.Name)
}

// reset restarts the settle timer for a transcript path.
func (w *Watcher) reset(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.settle, func() {
		w.mu.Lock()
		delete(w.timers, path)
		w.mu.Unlock()
		w.handle(path)
	})
}
