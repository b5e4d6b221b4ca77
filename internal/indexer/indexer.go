package indexer

import (
	"context"
	"log"
	"sync"

	"github.com/adrg/xdg"

	"github.com/0xADE/ade-launch/internal/config"
	"github.com/0xADE/ade-launch/internal/entry"
	"github.com/0xADE/ade-launch/internal/indexer/desktop"
	"github.com/0xADE/ade-launch/internal/indexer/executable"
)

// Indexer coordinates discovery of executables and desktop files
type Indexer struct {
	index       *Index
	desktopDirs []string
	mu          sync.RWMutex
	indexCancel context.CancelFunc
	runMu       sync.Mutex // serializes indexing passes
}

// NewIndexer creates an indexer that reads desktop files from the XDG application directories
func NewIndexer() *Indexer {
	return NewIndexerWithDesktopDirs(xdg.ApplicationDirs)
}

// NewIndexerWithDesktopDirs creates an indexer that reads desktop files from dirs
func NewIndexerWithDesktopDirs(dirs []string) *Indexer {
	return &Indexer{
		index:       NewIndex(),
		desktopDirs: dirs,
	}
}

// Start indexes the configured search paths
func (idx *Indexer) Start(ctx context.Context) error {
	return idx.runIndexing(ctx, config.Get().Path())
}

// Reindex reindexes executables in the provided paths, or all configured paths if none provided.
// Returns the total number of indexed entries
func (idx *Indexer) Reindex(ctx context.Context, paths []string) (int, error) {
	if len(paths) == 0 {
		paths = config.Get().Path()
	}

	if err := idx.runIndexing(ctx, paths); err != nil {
		return 0, err
	}
	return idx.GetIndex().Count(), nil
}

// Entries returns the discovered entries sorted by ID
func (idx *Indexer) Entries() []*entry.Entry {
	return idx.GetIndex().GetAll()
}

func (idx *Indexer) runIndexing(ctx context.Context, paths []string) error {
	// Cancel previous indexing if running
	idx.mu.Lock()
	if idx.indexCancel != nil {
		idx.indexCancel()
	}
	idx.mu.Unlock()

	idx.runMu.Lock()
	defer idx.runMu.Unlock()

	indexCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	idx.mu.Lock()
	idx.indexCancel = cancel
	idx.mu.Unlock()

	index := NewIndex()
	execChan := make(chan *executable.ExecutableInfo, 100)
	desktopChan := make(chan *desktop.DesktopEntry, 100)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := executable.ScanPaths(paths, execChan); err != nil {
			log.Printf("[WARN] Executable scan failed: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if err := desktop.ScanDesktopFiles(idx.desktopDirs, desktopChan); err != nil {
			log.Printf("[WARN] Desktop file scan failed: %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		processResults(indexCtx, index, execChan, desktopChan)
	}()
	wg.Wait()

	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.indexCancel = nil

	// A cancelled pass is incomplete; keep the previous index.
	if err := indexCtx.Err(); err != nil {
		return err
	}
	idx.index = index
	log.Printf("[DEBUG] Indexed %d entries from %d paths", index.Count(), len(paths))
	return nil
}

func processResults(ctx context.Context, index *Index, execChan <-chan *executable.ExecutableInfo, desktopChan <-chan *desktop.DesktopEntry) {
	// Keep draining after cancellation so the scanners can finish.
	for execChan != nil || desktopChan != nil {
		select {
		case exe, ok := <-execChan:
			if !ok {
				execChan = nil
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			index.Add(&entry.Entry{
				ID:   exe.Path,
				Exec: exe.Path,
				Name: exe.Name,
			})
		case desk, ok := <-desktopChan:
			if !ok {
				desktopChan = nil
				continue
			}
			if ctx.Err() != nil || desk.NoDisplay {
				continue
			}
			index.Add(&entry.Entry{
				ID:         desk.Path,
				Exec:       desk.Exec,
				IsDesktop:  true,
				Terminal:   desk.Terminal,
				Name:       desk.Name,
				Names:      desk.Names,
				Categories: desk.Categories,
			})
		}
	}
}

// GetIndex returns the index built by the last completed run
func (idx *Indexer) GetIndex() *Index {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.index
}

// Stop cancels a running indexing pass and waits for it
func (idx *Indexer) Stop() {
	idx.mu.Lock()
	if idx.indexCancel != nil {
		idx.indexCancel()
	}
	idx.mu.Unlock()

	idx.runMu.Lock()
	idx.runMu.Unlock()
}
