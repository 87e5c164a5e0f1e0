package domain

// Reserved document keys. IDField is assigned by the engine on insert and is
// immutable afterwards. BodyField holds the document's free-form body text;
// it is stored like any other field but is never indexable.
const (
	IDField   = "_id"
	BodyField = "_body"
)

// Document represents a document in the database
type Document map[string]interface{}

// ID returns the document's identifier, or "" if it has none yet.
func (d Document) ID() string {
	id, _ := d[IDField].(string)
	return id
}

// Body returns the document's body text, or "" if it has none.
func (d Document) Body() string {
	body, _ := d[BodyField].(string)
	return body
}

// Clone returns a shallow copy of the document. Mutation paths clone before
// applying updates so index maintenance can compare old and new versions.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Collection represents a collection of documents
type Collection struct {
	Name      string              `json:"name"`
	Documents map[string]Document `json:"documents"`
}

// NewCollection creates a new collection
func NewCollection(name string) *Collection {
	return &Collection{
		Name:      name,
		Documents: make(map[string]Document),
	}
}
