package indexing

import (
	"sort"

	"github.com/mdbase/mdbase/pkg/domain"
)

// Entry maps one key value to the sorted set of document ids holding it.
// IDs stay lexically sorted and deduplicated so lookups are deterministic.
type Entry struct {
	Key interface{}
	IDs []string
}

// Index is a persistent ordered key -> document-id-set structure for one
// (collection, field) pair. Entries are kept sorted by key, which gives the
// ascending iteration order range lookups and the file format require.
type Index struct {
	Collection string
	Field      string
	Type       domain.FieldType
	Kind       IndexKind

	entries []Entry
	stats   *Statistics

	// stale marks an index whose persisted state may lag the document
	// store (a failed write after a successful mutation). The manager
	// rebuilds stale indexes before handing them out.
	stale bool
}

// NewIndex creates an empty ordered index for the given field.
func NewIndex(collection, field string, fieldType domain.FieldType) *Index {
	return &Index{
		Collection: collection,
		Field:      field,
		Type:       fieldType,
		Kind:       KindOrdered,
	}
}

// search returns the position of key in the entry slice and whether an
// entry with that exact key exists.
func (idx *Index) search(key interface{}) (int, bool) {
	i := sort.Search(len(idx.entries), func(i int) bool {
		return domain.CompareValues(idx.entries[i].Key, key) >= 0
	})
	if i < len(idx.entries) && domain.CompareValues(idx.entries[i].Key, key) == 0 {
		return i, true
	}
	return i, false
}

// Insert adds the (key, id) pair, creating the entry if absent. The raw
// value is normalized to the index's field type first; values of a
// different type are skipped, not an error. Inserting an existing pair is
// a no-op, so the operation is idempotent.
func (idx *Index) Insert(value interface{}, id string) {
	key, ok := domain.NormalizeKey(value, idx.Type)
	if !ok {
		return
	}
	i, found := idx.search(key)
	if !found {
		idx.entries = append(idx.entries, Entry{})
		copy(idx.entries[i+1:], idx.entries[i:])
		idx.entries[i] = Entry{Key: key, IDs: []string{id}}
		return
	}
	ids := idx.entries[i].IDs
	j := sort.SearchStrings(ids, id)
	if j < len(ids) && ids[j] == id {
		return
	}
	ids = append(ids, "")
	copy(ids[j+1:], ids[j:])
	ids[j] = id
	idx.entries[i].IDs = ids
}

// Remove deletes the (key, id) pair. Entries whose id set becomes empty are
// pruned so they never persist. Removing a pair that is not present is a
// no-op, not an error.
func (idx *Index) Remove(value interface{}, id string) {
	key, ok := domain.NormalizeKey(value, idx.Type)
	if !ok {
		return
	}
	i, found := idx.search(key)
	if !found {
		return
	}
	ids := idx.entries[i].IDs
	j := sort.SearchStrings(ids, id)
	if j >= len(ids) || ids[j] != id {
		return
	}
	ids = append(ids[:j], ids[j+1:]...)
	if len(ids) == 0 {
		idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
		return
	}
	idx.entries[i].IDs = ids
}

// LookupEq returns the ids holding exactly the given value, in lexical
// order. An absent key yields an empty result, never an error.
func (idx *Index) LookupEq(value interface{}) []string {
	i, found := idx.search(value)
	if !found {
		return nil
	}
	out := make([]string, len(idx.entries[i].IDs))
	copy(out, idx.entries[i].IDs)
	return out
}

// LookupRange returns ids for keys between low and high in ascending key
// order; ids within one key come in lexical order. A nil bound means
// unbounded on that side.
func (idx *Index) LookupRange(low, high interface{}, includeLow, includeHigh bool) []string {
	start := 0
	if low != nil {
		start = sort.Search(len(idx.entries), func(i int) bool {
			cmp := domain.CompareValues(idx.entries[i].Key, low)
			if includeLow {
				return cmp >= 0
			}
			return cmp > 0
		})
	}
	end := len(idx.entries)
	if high != nil {
		end = sort.Search(len(idx.entries), func(i int) bool {
			cmp := domain.CompareValues(idx.entries[i].Key, high)
			if includeHigh {
				return cmp > 0
			}
			return cmp >= 0
		})
	}
	var out []string
	for i := start; i < end; i++ {
		out = append(out, idx.entries[i].IDs...)
	}
	return out
}

// Build replaces the index contents from a full scan of the collection.
// Documents whose field is absent, null, or of a mismatched type contribute
// no entry.
func (idx *Index) Build(docs []domain.Document) {
	idx.entries = nil
	idx.stats = nil
	for _, doc := range docs {
		id := doc.ID()
		if id == "" {
			continue
		}
		if value, ok := doc[idx.Field]; ok {
			idx.Insert(value, id)
		}
	}
}

// Len returns the number of distinct keys in the index.
func (idx *Index) Len() int {
	return len(idx.entries)
}

// Bounds returns the smallest and largest key, or ok=false for an empty index.
func (idx *Index) Bounds() (min, max interface{}, ok bool) {
	if len(idx.entries) == 0 {
		return nil, nil, false
	}
	return idx.entries[0].Key, idx.entries[len(idx.entries)-1].Key, true
}

// Stats returns gathered statistics, or nil if Analyze has not run since
// the last rebuild.
func (idx *Index) Stats() *Statistics {
	return idx.stats
}
