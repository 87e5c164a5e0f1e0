package storage

import (
	"fmt"
	"sort"
	"strings"

	"github.com/mdbase/mdbase/pkg/domain"
)

// Schema maps field names to their declared types for one collection.
type Schema map[string]domain.FieldType

// Collection names become index file names (<collection>__<field>.mdix),
// so the separator and path characters are reserved.
func validateCollectionName(name string) error {
	if name == "" {
		return fmt.Errorf("collection name cannot be empty")
	}
	if strings.Contains(name, "__") || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("invalid collection name %q: must not contain '__' or path separators", name)
	}
	return nil
}

// CreateCollection creates a collection, optionally with declared field
// types (field name -> type name, e.g. "priority": "int").
func (e *Engine) CreateCollection(collName string, fieldTypes map[string]string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := validateCollectionName(collName); err != nil {
		return err
	}
	if _, exists := e.collections[collName]; exists {
		return fmt.Errorf("collection %s already exists", collName)
	}

	schema := make(Schema, len(fieldTypes))
	for field, typeName := range fieldTypes {
		t := domain.ParseFieldType(typeName)
		if t == domain.FieldTypeUnknown {
			return fmt.Errorf("unknown field type %q for field %s", typeName, field)
		}
		schema[field] = t
	}

	e.collections[collName] = domain.NewCollection(collName)
	if len(schema) > 0 {
		e.schemas[collName] = schema
	}
	return e.saveAfterMutation()
}

// GetCollection returns a collection by name.
func (e *Engine) GetCollection(collName string) (*domain.Collection, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	coll, exists := e.collections[collName]
	if !exists {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collName)
	}
	return coll, nil
}

// CollectionNames returns all collection names, sorted.
func (e *Engine) CollectionNames() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.collections))
	for name := range e.collections {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldType resolves a field's type for index validation: the declared
// schema wins; without one, the type is inferred from the first document
// carrying a non-null value. ok=false means the field is unknown.
// This implements domain.SchemaProvider.
func (e *Engine) FieldType(collection, field string) (domain.FieldType, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.fieldTypeLocked(collection, field)
}

func (e *Engine) fieldTypeLocked(collection, field string) (domain.FieldType, bool) {
	if schema, ok := e.schemas[collection]; ok {
		if t, ok := schema[field]; ok {
			return t, true
		}
	}
	coll, ok := e.collections[collection]
	if !ok {
		return domain.FieldTypeUnknown, false
	}
	for _, id := range sortedIDs(coll) {
		if value, ok := coll.Documents[id][field]; ok && value != nil {
			return domain.InferFieldType(value), true
		}
	}
	return domain.FieldTypeUnknown, false
}

func sortedIDs(coll *domain.Collection) []string {
	ids := make([]string, 0, len(coll.Documents))
	for id := range coll.Documents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
