package domain

import "strings"

// FieldType identifies the declared type of a collection field. The numeric
// values are part of the index file format and must not be reordered.
type FieldType uint8

const (
	FieldTypeUnknown FieldType = iota
	FieldTypeBool
	FieldTypeInt
	FieldTypeFloat
	FieldTypeString
	FieldTypeDate     // normalized "YYYY-MM-DD" string
	FieldTypeDateTime // normalized RFC 3339 string
	FieldTypeArray
	FieldTypeObject
)

// String returns the lowercase name used in schemas and API payloads.
func (t FieldType) String() string {
	switch t {
	case FieldTypeBool:
		return "bool"
	case FieldTypeInt:
		return "int"
	case FieldTypeFloat:
		return "float"
	case FieldTypeString:
		return "string"
	case FieldTypeDate:
		return "date"
	case FieldTypeDateTime:
		return "datetime"
	case FieldTypeArray:
		return "array"
	case FieldTypeObject:
		return "object"
	default:
		return "unknown"
	}
}

// ParseFieldType converts a schema/API type name to a FieldType.
func ParseFieldType(s string) FieldType {
	switch strings.ToLower(s) {
	case "bool", "boolean":
		return FieldTypeBool
	case "int", "integer":
		return FieldTypeInt
	case "float", "double":
		return FieldTypeFloat
	case "string", "text":
		return FieldTypeString
	case "date":
		return FieldTypeDate
	case "datetime":
		return FieldTypeDateTime
	case "array":
		return FieldTypeArray
	case "object":
		return FieldTypeObject
	default:
		return FieldTypeUnknown
	}
}

// Indexable reports whether fields of this type can carry a secondary index.
// Only scalar types qualify; arrays and objects have no key ordering.
func (t FieldType) Indexable() bool {
	switch t {
	case FieldTypeBool, FieldTypeInt, FieldTypeFloat, FieldTypeString, FieldTypeDate, FieldTypeDateTime:
		return true
	default:
		return false
	}
}

// Type ranks for cross-type ordering: Null < Bool < numeric < String.
// Arrays and objects rank last and are never index keys.
const (
	rankNull = iota
	rankBool
	rankNumber
	rankString
	rankOther
)

func rankOf(v interface{}) int {
	if v == nil {
		return rankNull
	}
	switch v.(type) {
	case bool:
		return rankBool
	case string:
		return rankString
	}
	if _, ok := ToFloat64(v); ok {
		return rankNumber
	}
	return rankOther
}

// CompareValues imposes the total order used for index keys and sorting:
// Null < Bool (false < true) < Int/Float in numeric order < String bytewise.
// Values of unordered types (arrays, objects) compare equal to each other
// and sort after everything else.
func CompareValues(a, b interface{}) int {
	ra, rb := rankOf(a), rankOf(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case rankNull, rankOther:
		return 0
	case rankBool:
		av, bv := a.(bool), b.(bool)
		switch {
		case av == bv:
			return 0
		case !av:
			return -1
		default:
			return 1
		}
	case rankNumber:
		av, _ := ToFloat64(a)
		bv, _ := ToFloat64(b)
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		default:
			return 0
		}
	default:
		return strings.Compare(a.(string), b.(string))
	}
}

// ValuesEqual reports whether two field values are equal under the index
// ordering. Int and Float values compare numerically, so 2 == 2.0.
func ValuesEqual(a, b interface{}) bool {
	if rankOf(a) != rankOf(b) {
		return false
	}
	if rankOf(a) == rankOther {
		return false
	}
	return CompareValues(a, b) == 0
}

// Comparable reports whether two values belong to the same ordered family
// (bool, numeric, or string) and may legally participate in an ordered
// comparison. Nulls and unordered types are comparable to nothing.
func Comparable(a, b interface{}) bool {
	ra, rb := rankOf(a), rankOf(b)
	if ra != rb {
		return false
	}
	return ra == rankBool || ra == rankNumber || ra == rankString
}

// KeyAligned reports whether a comparison constant lives in the same
// ordered family as the keys of an index with the given field type. The
// planner only routes a condition through an index when its constants are
// aligned; misaligned conditions fall back to filtering, which keeps index
// results identical to a full scan.
func KeyAligned(value interface{}, t FieldType) bool {
	switch t {
	case FieldTypeBool:
		return rankOf(value) == rankBool
	case FieldTypeInt, FieldTypeFloat:
		return rankOf(value) == rankNumber
	case FieldTypeString, FieldTypeDate, FieldTypeDateTime:
		return rankOf(value) == rankString
	default:
		return false
	}
}

// ToFloat64 converts various numeric types to float64 for comparison
func ToFloat64(value interface{}) (float64, bool) {
	switch v := value.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	default:
		return 0, false
	}
}

// ToInt64 converts integral numeric values to int64. Floats convert only
// when they carry no fractional part, which lets JSON-decoded numbers land
// in Int-typed index keys.
func ToInt64(value interface{}) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int8:
		return int64(v), true
	case int16:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case uint:
		return int64(v), true
	case uint8:
		return int64(v), true
	case uint16:
		return int64(v), true
	case uint32:
		return int64(v), true
	case uint64:
		return int64(v), true
	case float32:
		if float32(int64(v)) == v {
			return int64(v), true
		}
	case float64:
		if float64(int64(v)) == v {
			return int64(v), true
		}
	}
	return 0, false
}

// NormalizeKey coerces a raw document value into the canonical key
// representation for the given field type: bool, int64, float64, or string.
// It returns false when the value is absent, null, or of a different type;
// such values simply contribute no index entry.
func NormalizeKey(value interface{}, t FieldType) (interface{}, bool) {
	if value == nil {
		return nil, false
	}
	switch t {
	case FieldTypeBool:
		b, ok := value.(bool)
		return b, ok
	case FieldTypeInt:
		return normalizeInt(value)
	case FieldTypeFloat:
		f, ok := ToFloat64(value)
		return f, ok
	case FieldTypeString, FieldTypeDate, FieldTypeDateTime:
		s, ok := value.(string)
		return s, ok
	default:
		return nil, false
	}
}

func normalizeInt(value interface{}) (interface{}, bool) {
	i, ok := ToInt64(value)
	if !ok {
		return nil, false
	}
	return i, true
}

// InferFieldType reports the field type a raw document value would have,
// used when a collection carries no declared schema. Numeric values always
// infer Float: a Float key space admits every numeric value, so an index
// on an inferred field never misses a document a scan would match.
func InferFieldType(value interface{}) FieldType {
	switch value.(type) {
	case nil:
		return FieldTypeUnknown
	case bool:
		return FieldTypeBool
	case string:
		return FieldTypeString
	case []interface{}:
		return FieldTypeArray
	case map[string]interface{}:
		return FieldTypeObject
	default:
		if _, ok := ToFloat64(value); ok {
			return FieldTypeFloat
		}
		return FieldTypeUnknown
	}
}

// ConformsTo reports whether a document value may be stored in a field of
// the given type. Nulls are always allowed. Int admits only integral
// numerics, so every stored value normalizes to an index key and index
// lookups agree with scan-side filtering.
func ConformsTo(value interface{}, t FieldType) bool {
	if value == nil {
		return true
	}
	switch t {
	case FieldTypeBool:
		_, ok := value.(bool)
		return ok
	case FieldTypeInt:
		_, ok := ToInt64(value)
		return ok
	case FieldTypeFloat:
		_, ok := ToFloat64(value)
		return ok
	case FieldTypeString, FieldTypeDate, FieldTypeDateTime:
		_, ok := value.(string)
		return ok
	case FieldTypeArray:
		_, ok := value.([]interface{})
		return ok
	case FieldTypeObject:
		_, ok := value.(map[string]interface{})
		return ok
	default:
		return true
	}
}
