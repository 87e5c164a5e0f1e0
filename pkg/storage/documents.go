package storage

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/mdbase/mdbase/pkg/domain"
)

// Insert adds a document to a collection, creating the collection if it
// does not exist, and returns the assigned id. Indexes are updated and
// persisted before the insert is reported successful.
func (e *Engine) Insert(collName string, doc domain.Document) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	coll, exists := e.collections[collName]
	if !exists {
		if err := validateCollectionName(collName); err != nil {
			return "", err
		}
		coll = domain.NewCollection(collName)
		e.collections[collName] = coll
	}
	if err := e.checkFieldTypesLocked(collName, doc); err != nil {
		return "", err
	}

	id := doc.ID()
	if id == "" {
		id = uuid.NewString()
	} else if _, taken := coll.Documents[id]; taken {
		return "", fmt.Errorf("document with id %s already exists in collection %s", id, collName)
	}
	doc = doc.Clone()
	doc[domain.IDField] = id

	coll.Documents[id] = doc
	e.indexes.OnInsert(collName, doc)

	return id, e.saveAfterMutation()
}

// checkFieldTypesLocked rejects values that do not conform to a field's
// declared schema type or, absent one, the type of an index on the field.
// Rejecting up front keeps indexes complete: a stored value an index had to
// skip could still match a scan-side filter, and indexed plans would return
// fewer documents than scans.
func (e *Engine) checkFieldTypesLocked(collName string, doc domain.Document) error {
	schema := e.schemas[collName]
	indexed := e.indexes.FieldTypes(collName)
	for field, value := range doc {
		if field == domain.IDField {
			continue
		}
		t, ok := schema[field]
		if !ok {
			t, ok = indexed[field]
		}
		if ok && !domain.ConformsTo(value, t) {
			return fmt.Errorf("%w: %s.%s expects %s, got %T", domain.ErrTypeMismatch, collName, field, t, value)
		}
	}
	return nil
}

// GetByID retrieves a specific document by its ID
func (e *Engine) GetByID(collName, docID string) (domain.Document, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	coll, exists := e.collections[collName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collName)
	}
	doc, exists := coll.Documents[docID]
	if !exists {
		return nil, fmt.Errorf("%w: %s in collection %s", domain.ErrDocumentNotFound, docID, collName)
	}
	return doc, nil
}

// UpdateByID applies a partial update to a document. Indexed fields whose
// value changed are reflected into their indexes before the call returns.
func (e *Engine) UpdateByID(collName, docID string, updates domain.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	coll, exists := e.collections[collName]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collName)
	}
	oldDoc, exists := coll.Documents[docID]
	if !exists {
		return fmt.Errorf("%w: %s in collection %s", domain.ErrDocumentNotFound, docID, collName)
	}
	if err := e.checkFieldTypesLocked(collName, updates); err != nil {
		return err
	}

	newDoc := oldDoc.Clone()
	for key, value := range updates {
		if key == domain.IDField {
			continue // the id is immutable
		}
		newDoc[key] = value
	}

	coll.Documents[docID] = newDoc
	e.indexes.OnUpdate(collName, oldDoc, newDoc)

	return e.saveAfterMutation()
}

// ReplaceByID swaps a document's entire content, keeping only its id.
func (e *Engine) ReplaceByID(collName, docID string, doc domain.Document) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	coll, exists := e.collections[collName]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collName)
	}
	oldDoc, exists := coll.Documents[docID]
	if !exists {
		return fmt.Errorf("%w: %s in collection %s", domain.ErrDocumentNotFound, docID, collName)
	}
	if err := e.checkFieldTypesLocked(collName, doc); err != nil {
		return err
	}

	newDoc := doc.Clone()
	newDoc[domain.IDField] = docID

	coll.Documents[docID] = newDoc
	e.indexes.OnUpdate(collName, oldDoc, newDoc)

	return e.saveAfterMutation()
}

// DeleteByID removes a document and its index entries.
func (e *Engine) DeleteByID(collName, docID string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	coll, exists := e.collections[collName]
	if !exists {
		return fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collName)
	}
	doc, exists := coll.Documents[docID]
	if !exists {
		return fmt.Errorf("%w: %s in collection %s", domain.ErrDocumentNotFound, docID, collName)
	}

	delete(coll.Documents, docID)
	e.indexes.OnDelete(collName, doc)

	return e.saveAfterMutation()
}

// List returns every document in the collection sorted by id. Id order is
// the engine's native iteration order; full scans and index lookups rely
// on it being deterministic. This implements domain.DocumentStore.
func (e *Engine) List(collName string) ([]domain.Document, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	coll, exists := e.collections[collName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collName)
	}
	docs := make([]domain.Document, 0, len(coll.Documents))
	for _, id := range sortedIDs(coll) {
		docs = append(docs, coll.Documents[id])
	}
	return docs, nil
}

// Get returns a document by id, or ok=false when the collection or the
// document is missing. This implements domain.DocumentStore.
func (e *Engine) Get(collName, docID string) (domain.Document, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	coll, exists := e.collections[collName]
	if !exists {
		return nil, false
	}
	doc, exists := coll.Documents[docID]
	return doc, exists
}
