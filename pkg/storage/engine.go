package storage

import (
	"fmt"
	"path/filepath"
	"sync"

	"github.com/mdbase/mdbase/pkg/domain"
	"github.com/mdbase/mdbase/pkg/indexing"
	"github.com/mdbase/mdbase/pkg/query"
)

// Engine is one open database handle: collections and schemas in memory, a
// snapshot file for persistence, and the index manager that keeps secondary
// indexes consistent with every mutation.
//
// Concurrency model: a single RWMutex serializes mutations against reads.
// Read queries run concurrently with each other; callers must not issue two
// mutating operations concurrently on the same handle. Index state belongs
// exclusively to this handle; separate handles (or processes) synchronize
// only through the persisted files.
type Engine struct {
	mu          sync.RWMutex
	collections map[string]*domain.Collection
	schemas     map[string]Schema
	indexes     *indexing.Manager

	planner  *query.Planner
	executor *query.Executor

	dataDir  string
	dataFile string
	autosave bool // persist the snapshot after every mutation
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithDataDir sets the directory holding the snapshot and index files.
func WithDataDir(dir string) EngineOption {
	return func(e *Engine) {
		e.dataDir = dir
	}
}

// WithDataFile sets the snapshot file name inside the data directory.
func WithDataFile(name string) EngineOption {
	return func(e *Engine) {
		e.dataFile = name
	}
}

// WithoutAutosave disables the per-mutation snapshot write. Data is then
// only saved on an explicit Save call (e.g. graceful shutdown).
func WithoutAutosave() EngineOption {
	return func(e *Engine) {
		e.autosave = false
	}
}

// NewEngine opens a database handle: it loads the snapshot if one exists,
// then discovers and loads all persisted indexes (rebuilding any corrupt
// file from the just-loaded documents).
func NewEngine(options ...EngineOption) (*Engine, error) {
	e := &Engine{
		collections: make(map[string]*domain.Collection),
		schemas:     make(map[string]Schema),
		dataDir:     ".",
		dataFile:    "mdbase_data" + FileExtension,
		autosave:    true,
	}
	for _, option := range options {
		option(e)
	}

	if err := e.loadSnapshot(e.SnapshotPath()); err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}

	manager, err := indexing.OpenManager(filepath.Join(e.dataDir, "indexes"), e)
	if err != nil {
		return nil, fmt.Errorf("failed to open index manager: %w", err)
	}
	e.indexes = manager
	e.planner = query.NewPlanner(manager)
	e.executor = query.NewExecutor(e, manager)
	return e, nil
}

// SnapshotPath returns the full path of the snapshot file.
func (e *Engine) SnapshotPath() string {
	return filepath.Join(e.dataDir, e.dataFile)
}

// Indexes exposes the engine's index manager.
func (e *Engine) Indexes() *indexing.Manager {
	return e.indexes
}

// saveAfterMutation persists the snapshot when autosave is on. Index files
// were already persisted by the manager before the mutation returned.
func (e *Engine) saveAfterMutation() error {
	if !e.autosave {
		return nil
	}
	return e.saveSnapshotLocked(e.SnapshotPath())
}
