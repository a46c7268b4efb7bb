package eop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/signalsfoundry/timescale/iau"
	"github.com/signalsfoundry/timescale/internal/logging"
)

// FileProvider serves EOP lookups from a finals file on disk and
// hot-swaps its in-memory table when the file changes or when a refresh
// source supplies a newer one.
type FileProvider struct {
	path string
	log  logging.Logger

	mu    sync.RWMutex
	table *Table

	watcher *fsnotify.Watcher
	done    chan struct{}
}

// NewFileProvider loads the finals file at path and starts watching it
// for rewrites. Close must be called to release the watcher.
func NewFileProvider(path string, log logging.Logger) (*FileProvider, error) {
	if log == nil {
		log = logging.Noop()
	}

	table, err := LoadFile(path)
	if err != nil {
		return nil, err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("watch finals file: %w", err)
	}
	if err := watcher.Add(path); err != nil {
		watcher.Close()
		return nil, fmt.Errorf("watch finals file: %w", err)
	}

	p := &FileProvider{
		path:    path,
		log:     log,
		table:   table,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go p.run()
	return p, nil
}

// Close stops the file watcher.
func (p *FileProvider) Close() {
	p.watcher.Close()
	<-p.done
}

func (p *FileProvider) run() {
	defer close(p.done)

	for {
		select {
		case event, ok := <-p.watcher.Events:
			if !ok {
				return
			}
			if event.Op&fsnotify.Write == 0 && event.Op&fsnotify.Create == 0 {
				continue
			}
			// Writers rarely produce the file atomically; give them a
			// moment to finish before reading.
			time.Sleep(10 * time.Millisecond)
			if err := p.Reload(); err != nil {
				p.log.Warn(context.Background(), "finals reload failed, keeping previous table",
					logging.String("path", p.path), logging.Err(err))
			}

		case _, ok := <-p.watcher.Errors:
			if !ok {
				return
			}
		}
	}
}

// Reload re-reads the finals file and swaps the table in. On failure
// the previous table stays in service.
func (p *FileProvider) Reload() error {
	table, err := LoadFile(p.path)
	if err != nil {
		return err
	}
	p.Swap(table)

	first, last := table.Span()
	p.log.Info(context.Background(), "earth orientation table reloaded",
		logging.String("path", p.path),
		logging.Int("rows", table.Len()),
		logging.Float64("first_mjd", first),
		logging.Float64("last_mjd", last),
	)
	return nil
}

// Swap replaces the in-memory table, typically after a network refresh.
func (p *FileProvider) Swap(table *Table) {
	p.mu.Lock()
	p.table = table
	p.mu.Unlock()
}

// Current returns the table presently in service.
func (p *FileProvider) Current() *Table {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.table
}

// TTMinusUT1 implements Provider.
func (p *FileProvider) TTMinusUT1(ctx context.Context, utc iau.SplitDate) (float64, error) {
	return p.Current().TTMinusUT1(ctx, utc)
}
