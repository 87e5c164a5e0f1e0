package domain

// DocumentStore is the contract the index and query subsystem consumes from
// document storage: whole-collection iteration and point lookup by id.
// Implementations must return documents that include their IDField.
type DocumentStore interface {
	// List returns every document currently in the collection, in the
	// store's native iteration order.
	List(collection string) ([]Document, error)

	// Get returns the document with the given id, or ok=false if the
	// collection or document does not exist.
	Get(collection, id string) (doc Document, ok bool)
}

// SchemaProvider resolves declared field types, used to validate index
// creation requests. A field with no declared type resolves ok=false.
type SchemaProvider interface {
	FieldType(collection, field string) (t FieldType, ok bool)
}
