package indexing

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mdbase/mdbase/pkg/domain"
)

// Manager owns every open index for one database handle: discovery and
// loading at open, creation and drops, and incremental maintenance on each
// document mutation. Index state is never shared between managers; the
// persisted files are the only cross-process channel.
type Manager struct {
	mu      sync.RWMutex
	root    string
	store   domain.DocumentStore
	indexes map[string]map[string]*Index // collection -> field -> index
}

// OpenManager discovers all persisted index files under root and loads
// them. An unreadable or corrupt file is logged and rebuilt in place from
// the document store, never silently dropped: callers must be able to query
// successfully afterward.
func OpenManager(root string, store domain.DocumentStore) (*Manager, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create index directory %s: %w", root, err)
	}
	m := &Manager{
		root:    root,
		store:   store,
		indexes: make(map[string]map[string]*Index),
	}

	pattern := filepath.Join(root, "*"+IndexFileExtension)
	files, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("failed to scan index directory %s: %w", root, err)
	}
	for _, path := range files {
		collection, field, ok := parseIndexFileName(filepath.Base(path))
		if !ok {
			log.Printf("WARN: Ignoring unrecognized index file %s", path)
			continue
		}
		idx, err := loadIndexFile(path, collection, field)
		if err != nil {
			log.Printf("WARN: Index %s.%s unreadable (%v), rebuilding from documents", collection, field, err)
			idx, err = m.rebuildFromFile(path, collection, field)
			if err != nil {
				return nil, fmt.Errorf("failed to rebuild index %s.%s: %w", collection, field, err)
			}
		}
		m.put(idx)
	}
	return m, nil
}

// Get returns the open index for (collection, field). Absence means "no
// index available", never an error. A stale index is rebuilt from documents
// before it is handed out; if that rebuild fails the index is withheld so
// queries fall back to a full scan rather than stale results.
func (m *Manager) Get(collection, field string) (*Index, bool) {
	m.mu.RLock()
	idx, ok := m.indexes[collection][field]
	stale := ok && idx.stale
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if !stale {
		return idx, true
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if !idx.stale {
		return idx, true
	}
	if err := m.rebuildLocked(idx); err != nil {
		log.Printf("ERROR: Rebuild of stale index %s.%s failed: %v", collection, field, err)
		return nil, false
	}
	return idx, true
}

// Create builds a new index by a full scan of the document store and
// persists it. It fails with domain.ErrIndexExists if the (collection,
// field) pair is already indexed and domain.ErrFieldNotIndexable for types
// without a key ordering.
func (m *Manager) Create(collection, field string, fieldType domain.FieldType) error {
	if !fieldType.Indexable() {
		return fmt.Errorf("%w: %s.%s has type %s", domain.ErrFieldNotIndexable, collection, field, fieldType)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexes[collection][field]; ok {
		return fmt.Errorf("%w: %s.%s", domain.ErrIndexExists, collection, field)
	}

	docs, err := m.store.List(collection)
	if err != nil {
		return fmt.Errorf("failed to scan collection %s: %w", collection, err)
	}
	idx := NewIndex(collection, field, fieldType)
	idx.Build(docs)
	if err := m.persistLocked(idx); err != nil {
		return fmt.Errorf("failed to persist index %s.%s: %w", collection, field, err)
	}
	m.put(idx)
	return nil
}

// Drop removes the persisted file and the in-memory handle. It fails with
// domain.ErrIndexNotFound if the index does not exist.
func (m *Manager) Drop(collection, field string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.indexes[collection][field]; !ok {
		return fmt.Errorf("%w: %s.%s", domain.ErrIndexNotFound, collection, field)
	}
	if err := os.Remove(m.filePath(collection, field)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove index file for %s.%s: %w", collection, field, err)
	}
	delete(m.indexes[collection], field)
	if len(m.indexes[collection]) == 0 {
		delete(m.indexes, collection)
	}
	return nil
}

// Fields returns the indexed field names of a collection, sorted.
func (m *Manager) Fields(collection string) []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fields := make([]string, 0, len(m.indexes[collection]))
	for field := range m.indexes[collection] {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// FieldTypes returns the key type of every index on a collection.
func (m *Manager) FieldTypes(collection string) map[string]domain.FieldType {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make(map[string]domain.FieldType, len(m.indexes[collection]))
	for field, idx := range m.indexes[collection] {
		types[field] = idx.Type
	}
	return types
}

// OnInsert reflects a completed document insert into every index of the
// collection. It runs before the mutation is acknowledged to the caller.
func (m *Manager) OnInsert(collection string, doc domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := doc.ID()
	for field, idx := range m.indexes[collection] {
		if value, ok := doc[field]; ok {
			idx.Insert(value, id)
			m.persistOrMarkStale(idx)
		}
	}
}

// OnUpdate reflects a document update. Only indexed fields whose value
// actually changed are touched; unchanged fields keep their entries.
func (m *Manager) OnUpdate(collection string, oldDoc, newDoc domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := newDoc.ID()
	for field, idx := range m.indexes[collection] {
		oldVal, hadOld := oldDoc[field]
		newVal, hasNew := newDoc[field]
		if hadOld && hasNew && domain.ValuesEqual(oldVal, newVal) {
			continue
		}
		if !hadOld && !hasNew {
			continue
		}
		if hadOld {
			idx.Remove(oldVal, id)
		}
		if hasNew {
			idx.Insert(newVal, id)
		}
		m.persistOrMarkStale(idx)
	}
}

// OnDelete reflects a document delete, removing its entries everywhere.
func (m *Manager) OnDelete(collection string, doc domain.Document) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id := doc.ID()
	for field, idx := range m.indexes[collection] {
		if value, ok := doc[field]; ok {
			idx.Remove(value, id)
			m.persistOrMarkStale(idx)
		}
	}
}

// Analyze gathers cardinality statistics for every index of the collection,
// enabling numeric selectivity estimates in the planner.
func (m *Manager) Analyze(collection string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	indexes := m.indexes[collection]
	if len(indexes) == 0 {
		return fmt.Errorf("%w: collection %s has no indexes", domain.ErrIndexNotFound, collection)
	}
	for _, idx := range indexes {
		idx.stats = gatherStats(idx)
	}
	return nil
}

// put registers an index handle. Caller holds no lock during OpenManager;
// elsewhere the write lock is already held.
func (m *Manager) put(idx *Index) {
	if m.indexes[idx.Collection] == nil {
		m.indexes[idx.Collection] = make(map[string]*Index)
	}
	m.indexes[idx.Collection][idx.Field] = idx
}

// persistOrMarkStale persists after a mutation; on failure the index is
// marked stale and will be rebuilt from documents on next access. Document
// data is the source of truth, the index is derived and rebuildable.
func (m *Manager) persistOrMarkStale(idx *Index) {
	if err := m.persistLocked(idx); err != nil {
		idx.stale = true
		log.Printf("ERROR: Failed to persist index %s.%s, marked stale: %v", idx.Collection, idx.Field, err)
	}
}

// persistLocked writes the index to a temporary file and renames it over
// the final path, so a concurrent loader never observes a partial file.
func (m *Manager) persistLocked(idx *Index) error {
	tmp, err := os.CreateTemp(m.root, "."+idx.Collection+"-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if err := idx.WriteTo(tmp); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, m.filePath(idx.Collection, idx.Field)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace index file: %w", err)
	}
	return nil
}

// rebuildLocked repopulates an index from a full document scan and
// persists the result.
func (m *Manager) rebuildLocked(idx *Index) error {
	docs, err := m.store.List(idx.Collection)
	if err != nil {
		return fmt.Errorf("failed to scan collection %s: %w", idx.Collection, err)
	}
	idx.Build(docs)
	if err := m.persistLocked(idx); err != nil {
		return err
	}
	idx.stale = false
	return nil
}

// rebuildFromFile recovers a corrupt index file. The field type comes from
// the damaged header when readable, otherwise it is inferred from the
// collection's documents.
func (m *Manager) rebuildFromFile(path, collection, field string) (*Index, error) {
	fieldType := fieldTypeFromHeader(path)
	docs, err := m.store.List(collection)
	if err != nil {
		return nil, fmt.Errorf("failed to scan collection %s: %w", collection, err)
	}
	if fieldType == domain.FieldTypeUnknown {
		fieldType = inferFieldType(docs, field)
	}
	if !fieldType.Indexable() {
		return nil, fmt.Errorf("%w: cannot determine field type for %s.%s", domain.ErrIndexCorrupt, collection, field)
	}
	idx := NewIndex(collection, field, fieldType)
	idx.Build(docs)
	if err := m.persistLocked(idx); err != nil {
		return nil, err
	}
	return idx, nil
}

// fieldTypeFromHeader salvages the field type from a damaged file when the
// header itself survived.
func fieldTypeFromHeader(path string) domain.FieldType {
	f, err := os.Open(path)
	if err != nil {
		return domain.FieldTypeUnknown
	}
	defer f.Close()
	header, err := ReadHeader(f)
	if err != nil {
		return domain.FieldTypeUnknown
	}
	t := domain.FieldType(header.FieldType)
	if !t.Indexable() {
		return domain.FieldTypeUnknown
	}
	return t
}

// inferFieldType picks the type of the first typed value seen for a field.
func inferFieldType(docs []domain.Document, field string) domain.FieldType {
	for _, doc := range docs {
		if value, ok := doc[field]; ok && value != nil {
			return domain.InferFieldType(value)
		}
	}
	return domain.FieldTypeUnknown
}

func loadIndexFile(path, collection, field string) (*Index, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	idx := &Index{Collection: collection, Field: field}
	if err := idx.ReadFrom(f); err != nil {
		return nil, err
	}
	return idx, nil
}

// Index files are named <collection>__<field>.mdix; collection names must
// not contain "__".
func (m *Manager) filePath(collection, field string) string {
	return filepath.Join(m.root, collection+"__"+field+IndexFileExtension)
}

func parseIndexFileName(name string) (collection, field string, ok bool) {
	name = strings.TrimSuffix(name, IndexFileExtension)
	parts := strings.SplitN(name, "__", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
