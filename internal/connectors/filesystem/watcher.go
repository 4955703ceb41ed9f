package filesystem

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/custodia-labs/sercha-index/internal/core/domain"
	"github.com/custodia-labs/sercha-index/internal/logger"
)

// Watch streams file changes under the root until ctx is cancelled or
// the connector is closed. Events for one path are coalesced until the
// path has been quiet for the debounce interval.
func (c *Connector) Watch(ctx context.Context) (<-chan domain.RawDocumentChange, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	if err := c.addRecursive(watcher, c.rootPath); err != nil {
		_ = watcher.Close()
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	c.closers = append(c.closers, func() error { cancel(); return nil })
	c.mu.Unlock()

	out := make(chan domain.RawDocumentChange)
	go c.watchLoop(ctx, watcher, out)
	return out, nil
}

func (c *Connector) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, out chan<- domain.RawDocumentChange) {
	defer close(out)
	defer watcher.Close()

	deb := newDebouncer(c.debounce)
	defer deb.stop()

	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if event.Has(fsnotify.Create) {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := c.addRecursive(watcher, event.Name); err != nil {
						logger.Warn("Watch %s: %v", event.Name, err)
					}
					continue
				}
			}
			deb.add(event)

		case path := <-deb.ready:
			event, ok := deb.take(path)
			if !ok {
				continue
			}
			change, ok := c.handleFsEvent(event)
			if !ok {
				continue
			}
			select {
			case out <- *change:
			case <-ctx.Done():
				return
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("Watcher error: %v", err)
		}
	}
}

// handleFsEvent converts a filesystem event into a document change.
// It returns false for events that should be ignored.
func (c *Connector) handleFsEvent(event fsnotify.Event) (*domain.RawDocumentChange, bool) {
	rel, err := c.relative(event.Name)
	if err != nil || !c.matches(rel) {
		return nil, false
	}

	deleted := func() (*domain.RawDocumentChange, bool) {
		return &domain.RawDocumentChange{
			Type:     domain.ChangeDeleted,
			Document: domain.RawDocument{Source: ConnectorType, URI: event.Name},
		}, true
	}

	switch {
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		if _, err := os.Stat(event.Name); errors.Is(err, fs.ErrNotExist) {
			return deleted()
		}
		return nil, false

	case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
		doc, err := c.readFile(event.Name)
		if errors.Is(err, fs.ErrNotExist) {
			return deleted()
		}
		if err != nil {
			logger.Warn("Watch %s: %v", event.Name, err)
			return nil, false
		}
		if doc == nil {
			return nil, false
		}
		changeType := domain.ChangeUpdated
		if event.Has(fsnotify.Create) {
			changeType = domain.ChangeCreated
		}
		return &domain.RawDocumentChange{Type: changeType, Document: *doc}, true

	default:
		return nil, false
	}
}

func (c *Connector) addRecursive(watcher *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != c.rootPath && isHidden(filepath.ToSlash(d.Name())) {
			return filepath.SkipDir
		}
		if err := watcher.Add(path); err != nil {
			return fmt.Errorf("watch %s: %w", path, err)
		}
		return nil
	})
}

// debouncer holds the latest event per path and signals the path on
// ready once no new event arrived for delay.
type debouncer struct {
	delay time.Duration
	ready chan string
	done  chan struct{}

	mu      sync.Mutex
	pending map[string]fsnotify.Event
	timers  map[string]*time.Timer
}

func newDebouncer(delay time.Duration) *debouncer {
	return &debouncer{
		delay:   delay,
		ready:   make(chan string),
		done:    make(chan struct{}),
		pending: make(map[string]fsnotify.Event),
		timers:  make(map[string]*time.Timer),
	}
}

func (d *debouncer) add(event fsnotify.Event) {
	d.mu.Lock()
	defer d.mu.Unlock()

	// A create followed by writes is still a create.
	if prev, ok := d.pending[event.Name]; ok && prev.Has(fsnotify.Create) && event.Has(fsnotify.Write) {
		event.Op |= fsnotify.Create
	}
	d.pending[event.Name] = event

	if t, ok := d.timers[event.Name]; ok {
		t.Stop()
	}
	name := event.Name
	d.timers[name] = time.AfterFunc(d.delay, func() {
		select {
		case d.ready <- name:
		case <-d.done:
		}
	})
}

func (d *debouncer) take(name string) (fsnotify.Event, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	event, ok := d.pending[name]
	delete(d.pending, name)
	delete(d.timers, name)
	return event, ok
}

func (d *debouncer) stop() {
	close(d.done)
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, t := range d.timers {
		t.Stop()
	}
}
