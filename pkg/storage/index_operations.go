package storage

import (
	"fmt"
	"strings"

	"github.com/mdbase/mdbase/pkg/domain"
)

// CreateIndex creates an index on a collection field. The field type comes
// from the declared schema (or is inferred from existing documents) unless
// typeName names one explicitly. Non-scalar and unknown fields are
// rejected with domain.ErrFieldNotIndexable.
//
// The engine lock is deliberately not held here: the index manager scans
// the collection through the DocumentStore contract, which takes its own
// read lock.
func (e *Engine) CreateIndex(collName, fieldName, typeName string) error {
	if fieldName == "" || strings.ContainsAny(fieldName, `/\`) {
		return fmt.Errorf("invalid field name %q", fieldName)
	}
	var fieldType domain.FieldType
	if typeName != "" {
		fieldType = domain.ParseFieldType(typeName)
		if fieldType == domain.FieldTypeUnknown {
			return fmt.Errorf("%w: unknown type %q for %s.%s", domain.ErrFieldNotIndexable, typeName, collName, fieldName)
		}
	} else {
		var ok bool
		fieldType, ok = e.FieldType(collName, fieldName)
		if !ok {
			return fmt.Errorf("%w: %s.%s has no declared or inferable type", domain.ErrFieldNotIndexable, collName, fieldName)
		}
	}

	// A stored value in the key's ordered family that cannot normalize to a
	// key (a fractional number against an int index) would be invisible to
	// lookups yet still match scan-side filters. Reject rather than build an
	// index that disagrees with scans. Values outside the family are fine:
	// type-strict filters never match them, so skipping them is harmless.
	docs, err := e.List(collName)
	if err != nil {
		return err
	}
	for _, doc := range docs {
		value, ok := doc[fieldName]
		if !ok || value == nil {
			continue
		}
		if domain.KeyAligned(value, fieldType) && !domain.ConformsTo(value, fieldType) {
			return fmt.Errorf("%w: %s.%s holds %v, not representable as %s", domain.ErrTypeMismatch, collName, fieldName, value, fieldType)
		}
	}
	return e.indexes.Create(collName, fieldName, fieldType)
}

// DropIndex removes an index from a collection
func (e *Engine) DropIndex(collName, fieldName string) error {
	return e.indexes.Drop(collName, fieldName)
}

// ListIndexes returns the indexed field names of a collection, sorted.
func (e *Engine) ListIndexes(collName string) []string {
	return e.indexes.Fields(collName)
}

// Analyze gathers per-index cardinality statistics for a collection,
// switching the planner to numeric selectivity estimates.
func (e *Engine) Analyze(collName string) error {
	return e.indexes.Analyze(collName)
}
