package query

import (
	"regexp"
	"strings"

	"github.com/mdbase/mdbase/pkg/domain"
)

// Evaluate reports whether the document matches the predicate. Evaluation
// is pure: no side effects, no mutation of doc or expr. A nil expression
// matches everything.
//
// Ordered comparisons (lt/le/gt/ge/between) are type-strict: they hold only
// when both operands belong to the same ordered family (numeric, string, or
// bool). A document whose field holds a value of a different type than the
// comparison constant never matches, which keeps full scans consistent with
// index lookups that only ever contain values of the indexed type.
func Evaluate(e *Expr, doc domain.Document) bool {
	if e == nil {
		return true
	}
	switch e.Kind {
	case KindEq:
		return domain.ValuesEqual(doc[e.Field], e.Value)
	case KindNe:
		return !domain.ValuesEqual(doc[e.Field], e.Value)
	case KindLt:
		v := doc[e.Field]
		return domain.Comparable(v, e.Value) && domain.CompareValues(v, e.Value) < 0
	case KindLe:
		v := doc[e.Field]
		return domain.Comparable(v, e.Value) && domain.CompareValues(v, e.Value) <= 0
	case KindGt:
		v := doc[e.Field]
		return domain.Comparable(v, e.Value) && domain.CompareValues(v, e.Value) > 0
	case KindGe:
		v := doc[e.Field]
		return domain.Comparable(v, e.Value) && domain.CompareValues(v, e.Value) >= 0
	case KindBetween:
		v := doc[e.Field]
		in := domain.Comparable(v, e.Low) && domain.Comparable(v, e.High) &&
			domain.CompareValues(v, e.Low) >= 0 && domain.CompareValues(v, e.High) <= 0
		return in != e.Negated
	case KindAnd:
		for _, child := range e.Exprs {
			if !Evaluate(child, doc) {
				return false
			}
		}
		return true
	case KindOr:
		for _, child := range e.Exprs {
			if Evaluate(child, doc) {
				return true
			}
		}
		return false
	case KindNot:
		if len(e.Exprs) != 1 {
			return false
		}
		return !Evaluate(e.Exprs[0], doc)
	case KindContains:
		return strings.Contains(strings.ToLower(doc.Body()), strings.ToLower(e.Text))
	case KindHasTag:
		return evalHasTag(e, doc) != e.Negated
	case KindLike:
		v, ok := doc[e.Field].(string)
		matched := ok && matchPattern(v, e.Pattern)
		return matched != e.Negated
	case KindIn:
		v := doc[e.Field]
		found := false
		for _, candidate := range e.Values {
			if domain.ValuesEqual(v, candidate) {
				found = true
				break
			}
		}
		return found != e.Negated
	case KindIsNull:
		v, present := doc[e.Field]
		isNull := !present || v == nil
		return isNull != e.Negated
	default:
		return false
	}
}

// evalHasTag checks array membership. The field defaults to "tags" when the
// expression names none.
func evalHasTag(e *Expr, doc domain.Document) bool {
	field := e.Field
	if field == "" {
		field = "tags"
	}
	arr, ok := doc[field].([]interface{})
	if !ok {
		return false
	}
	for _, item := range arr {
		if s, ok := item.(string); ok && s == e.Tag {
			return true
		}
	}
	return false
}

// matchPattern implements LIKE globbing: % matches any sequence, _ any
// single character. Everything else is literal.
func matchPattern(s, pattern string) bool {
	var b strings.Builder
	b.WriteString("^")
	for _, r := range pattern {
		switch r {
		case '%':
			b.WriteString(".*")
		case '_':
			b.WriteString(".")
		default:
			b.WriteString(regexp.QuoteMeta(string(r)))
		}
	}
	b.WriteString("$")
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(s)
}
