package query

// Expr kinds. Comparison kinds on a single field are candidates for index
// lookups; everything else is evaluated by the residual filter.
const (
	KindEq       = "eq"
	KindNe       = "ne"
	KindLt       = "lt"
	KindLe       = "le"
	KindGt       = "gt"
	KindGe       = "ge"
	KindBetween  = "between"
	KindAnd      = "and"
	KindOr       = "or"
	KindNot      = "not"
	KindContains = "contains"
	KindHasTag   = "has_tag"
	KindLike     = "like"
	KindIn       = "in"
	KindIsNull   = "is_null"
)

// Expr is one node of a predicate tree. It doubles as the wire form of
// WHERE clauses on the statement surface, so every variant lives in a
// single tagged struct rather than an interface hierarchy.
type Expr struct {
	Kind  string      `json:"kind"`
	Field string      `json:"field,omitempty"`
	Value interface{} `json:"value,omitempty"`

	// Between bounds, inclusive on both ends.
	Low  interface{} `json:"low,omitempty"`
	High interface{} `json:"high,omitempty"`

	// Children of and/or; not takes exactly one child.
	Exprs []*Expr `json:"exprs,omitempty"`

	Text    string        `json:"text,omitempty"`    // contains: body search text
	Tag     string        `json:"tag,omitempty"`     // has_tag: tag to look for
	Pattern string        `json:"pattern,omitempty"` // like: % and _ wildcards
	Values  []interface{} `json:"values,omitempty"`  // in: candidate values

	// Negated flips between, has_tag, like, in, and is_null.
	Negated bool `json:"negated,omitempty"`
}

// Constructors for programmatic predicate building, mirroring the wire form.

func Eq(field string, value interface{}) *Expr {
	return &Expr{Kind: KindEq, Field: field, Value: value}
}

func Ne(field string, value interface{}) *Expr {
	return &Expr{Kind: KindNe, Field: field, Value: value}
}

func Lt(field string, value interface{}) *Expr {
	return &Expr{Kind: KindLt, Field: field, Value: value}
}

func Le(field string, value interface{}) *Expr {
	return &Expr{Kind: KindLe, Field: field, Value: value}
}

func Gt(field string, value interface{}) *Expr {
	return &Expr{Kind: KindGt, Field: field, Value: value}
}

func Ge(field string, value interface{}) *Expr {
	return &Expr{Kind: KindGe, Field: field, Value: value}
}

func Between(field string, low, high interface{}) *Expr {
	return &Expr{Kind: KindBetween, Field: field, Low: low, High: high}
}

func And(exprs ...*Expr) *Expr {
	return &Expr{Kind: KindAnd, Exprs: exprs}
}

func Or(exprs ...*Expr) *Expr {
	return &Expr{Kind: KindOr, Exprs: exprs}
}

func Not(expr *Expr) *Expr {
	return &Expr{Kind: KindNot, Exprs: []*Expr{expr}}
}

func Contains(text string) *Expr {
	return &Expr{Kind: KindContains, Text: text}
}

func HasTag(tag string) *Expr {
	return &Expr{Kind: KindHasTag, Tag: tag}
}

func Like(field, pattern string) *Expr {
	return &Expr{Kind: KindLike, Field: field, Pattern: pattern}
}

func In(field string, values ...interface{}) *Expr {
	return &Expr{Kind: KindIn, Field: field, Values: values}
}

func IsNull(field string) *Expr {
	return &Expr{Kind: KindIsNull, Field: field}
}

// OrderKey is one ORDER BY component.
type OrderKey struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// Request is a complete query: predicate, ordering, and pagination.
// A nil Limit means unlimited.
type Request struct {
	Collection string     `json:"collection,omitempty"`
	Where      *Expr      `json:"where,omitempty"`
	OrderBy    []OrderKey `json:"order_by,omitempty"`
	Limit      *int       `json:"limit,omitempty"`
	Offset     int        `json:"offset,omitempty"`
}
