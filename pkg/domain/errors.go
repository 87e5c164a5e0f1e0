package domain

import "errors"

// Sentinel errors for the index and query subsystem. Callers match them with
// errors.Is; the wrapping message carries collection/field context.
var (
	// ErrIndexExists is returned when creating an index that already exists.
	ErrIndexExists = errors.New("index already exists")

	// ErrIndexNotFound is returned when dropping or rebuilding an index that
	// does not exist.
	ErrIndexNotFound = errors.New("index not found")

	// ErrIndexCorrupt indicates a persisted index file failed validation
	// (bad magic, version, or entry count). It is handled internally by
	// rebuilding from documents and surfaces only if the rebuild itself fails.
	ErrIndexCorrupt = errors.New("index file corrupt")

	// ErrFieldNotIndexable is returned when creating an index on a field
	// whose declared type has no key ordering (array, object, unknown).
	ErrFieldNotIndexable = errors.New("field not indexable")

	// ErrTypeMismatch is returned when a write carries a value that does not
	// conform to the field's declared or indexed type.
	ErrTypeMismatch = errors.New("value does not match field type")

	// ErrCollectionNotFound is returned for operations on collections the
	// store does not have.
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrDocumentNotFound is returned for point operations on missing ids.
	ErrDocumentNotFound = errors.New("document not found")
)
