// Package watch re-runs the pipeline when a new extract lands in a drop
// directory. Each run keeps batch semantics; the watcher only decides when
// to start one.
package watch

import (
	"context"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Monitor watches one directory for CSV drops.
type Monitor struct {
	watcher *fsnotify.Watcher
	logger  *zap.Logger
	mu      sync.Mutex
	seen    map[string]bool
}

// NewMonitor starts watching dir. Close the returned Monitor to release the
// underlying watcher.
func NewMonitor(dir string, logger *zap.Logger) (*Monitor, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, err
	}
	return &Monitor{
		watcher: watcher,
		logger:  logger,
		seen:    make(map[string]bool),
	}, nil
}

// Run invokes handler for every newly written CSV until ctx is cancelled or
// the watcher fails. A file triggers at most one handler call per appearance;
// handler runs synchronously so runs never overlap.
func (m *Monitor) Run(ctx context.Context, handler func(path string)) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case event, ok := <-m.watcher.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Ext(event.Name), ".csv") {
				continue
			}
			// A removed or renamed-away file may reappear under the same
			// name later; forget it so the next drop triggers again.
			if event.Op.Has(fsnotify.Remove) || event.Op.Has(fsnotify.Rename) {
				m.forget(event.Name)
				continue
			}
			if !event.Op.Has(fsnotify.Create) && !event.Op.Has(fsnotify.Write) {
				continue
			}
			if !m.mark(event.Name) {
				continue
			}
			m.logger.Info("New extract detected", zap.String("path", event.Name))
			handler(event.Name)
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func (m *Monitor) mark(path string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.seen[path] {
		return false
	}
	m.seen[path] = true
	return true
}

func (m *Monitor) forget(path string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.seen, path)
}

// Close releases the watcher.
func (m *Monitor) Close() error {
	return m.watcher.Close()
}
