// Package inbox watches the snapshot drop directory and hands each settled snapshot file to the
// import pass, one at a time.
package inbox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"

	"github.com/mmdatafocus/fieldsales_backend/snapshot"
)

const (
	ProcessedDir  = "processed"
	DefaultSettle = 500 * time.Millisecond
)

var ErrStopped = errors.New("inbox: watcher stopped")

// Watcher reports snapshot files dropped into Dir once no write has touched them for Settle.
// Only names that map to an importable kind are reported.
type Watcher struct {
	Dir    string
	Settle time.Duration
	Logger *logrus.Logger

	watcher *fsnotify.Watcher
	ready   chan string
	done    chan struct{}
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
	timers  map[string]*time.Timer
	pending map[string]bool
}

func NewWatcher(dir string, logger *logrus.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Watcher{
		Dir:     dir,
		Settle:  DefaultSettle,
		Logger:  logger,
		watcher: fw,
		ready:   make(chan string, 64),
		done:    make(chan struct{}),
		timers:  make(map[string]*time.Timer),
		pending: make(map[string]bool),
	}, nil
}

// Start watches Dir and queues the snapshots already in it.
func (w *Watcher) Start() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.running {
		return fmt.Errorf("watcher already running")
	}
	if err := os.MkdirAll(w.Dir, 0o750); err != nil {
		return fmt.Errorf("failed to create inbox %s: %w", w.Dir, err)
	}
	if err := w.watcher.Add(w.Dir); err != nil {
		return fmt.Errorf("failed to watch inbox %s: %w", w.Dir, err)
	}

	entries, err := os.ReadDir(w.Dir)
	if err != nil {
		_ = w.watcher.Remove(w.Dir)
		return fmt.Errorf("failed to read inbox %s: %w", w.Dir, err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() && accepts(e.Name()) {
			w.scheduleLocked(e.Name(), 0)
		}
	}

	w.running = true
	w.wg.Add(1)
	go w.processEvents()
	return nil
}

// Stop ends the watch and blocks until the event loop exits.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	for name, t := range w.timers {
		t.Stop()
		delete(w.timers, name)
	}
	w.mu.Unlock()

	close(w.done)
	if err := w.watcher.Close(); err != nil {
		return fmt.Errorf("failed to close watcher: %w", err)
	}
	w.wg.Wait()
	return nil
}

// Pick blocks until a snapshot is ready and opens it. Closing the reader moves the file into
// the processed directory.
func (w *Watcher) Pick(ctx context.Context) (io.ReadCloser, string, error) {
	for {
		select {
		case <-ctx.Done():
			return nil, "", ctx.Err()
		case <-w.done:
			return nil, "", ErrStopped
		case name := <-w.ready:
			f, err := os.Open(filepath.Join(w.Dir, name))
			if err != nil {
				w.release(name)
				if os.IsNotExist(err) {
					continue
				}
				return nil, "", fmt.Errorf("inbox: open %s: %w", name, err)
			}
			return &pickedFile{File: f, w: w, name: name}, name, nil
		}
	}
}

// Archive moves name into the processed directory under a timestamped name.
func (w *Watcher) Archive(name string) (string, error) {
	defer w.release(name)
	dst := filepath.Join(w.Dir, ProcessedDir)
	if err := os.MkdirAll(dst, 0o750); err != nil {
		return "", err
	}
	target := filepath.Join(dst, time.Now().UTC().Format("20060102T150405.000Z")+"-"+name)
	if err := os.Rename(filepath.Join(w.Dir, name), target); err != nil {
		return "", fmt.Errorf("inbox: archive %s: %w", name, err)
	}
	return target, nil
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.Logger.WithError(err).WithField("module", "inbox").Warn("watch error")
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if filepath.Dir(event.Name) != filepath.Clean(w.Dir) {
		return
	}
	name := filepath.Base(event.Name)
	if !accepts(name) {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	switch {
	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		w.scheduleLocked(name, w.Settle)
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if t, ok := w.timers[name]; ok {
			t.Stop()
			delete(w.timers, name)
		}
	}
}

// scheduleLocked (re)arms the settle timer of name; w.mu must be held.
func (w *Watcher) scheduleLocked(name string, after time.Duration) {
	if w.pending[name] {
		return
	}
	if t, ok := w.timers[name]; ok {
		t.Reset(after)
		return
	}
	w.timers[name] = time.AfterFunc(after, func() { w.fire(name) })
}

func (w *Watcher) fire(name string) {
	w.mu.Lock()
	delete(w.timers, name)
	if w.pending[name] {
		w.mu.Unlock()
		return
	}
	w.pending[name] = true
	w.mu.Unlock()

	w.Logger.WithFields(logrus.Fields{"module": "inbox", "file": name}).Info("snapshot ready")
	select {
	case w.ready <- name:
	case <-w.done:
	}
}

func (w *Watcher) release(name string) {
	w.mu.Lock()
	delete(w.pending, name)
	w.mu.Unlock()
}

func accepts(name string) bool {
	if filepath.Ext(name) == "" {
		return false
	}
	_, err := snapshot.KindFromFileName(name)
	return err == nil
}

type pickedFile struct {
	*os.File
	w    *Watcher
	name string
	once sync.Once
}

func (p *pickedFile) Close() error {
	err := p.File.Close()
	p.once.Do(func() {
		if _, aerr := p.w.Archive(p.name); aerr != nil {
			p.w.Logger.WithError(aerr).WithField("file", p.name).Warn("failed to archive snapshot")
			if err == nil {
				err = aerr
			}
		}
	})
	return err
}
