package query

import (
	"github.com/mdbase/mdbase/pkg/domain"
	"github.com/mdbase/mdbase/pkg/indexing"
)

// Ordinal selectivity weights used when no statistics have been gathered.
// The exact numbers are a free design choice; only the ranking matters:
// equality beats a bounded range beats a half-bounded range.
const (
	selEqualityDefault    = 0.05
	selBoundedDefault     = 0.25
	selHalfBoundedDefault = 0.6
)

// Planner turns a query request into a plan tree. It consults the index
// manager for available indexes and their statistics but never touches
// documents; the chosen plan is purely an optimization and must produce
// exactly what a full scan with the original predicate would.
type Planner struct {
	indexes *indexing.Manager
}

// NewPlanner creates a planner over the given index manager.
func NewPlanner(indexes *indexing.Manager) *Planner {
	return &Planner{indexes: indexes}
}

// Plan builds the plan tree for a request:
//
//	Limit( Sort( Filter( IndexLookup | FullScan ) ) )
//
// The single most selective indexable condition drives the lookup; all
// other conditions and the non-decomposable residual go into the filter.
// Sort is elided when the driver's natural order already satisfies the
// requested ordering, and Limit is always outermost.
func (p *Planner) Plan(req *Request) Plan {
	conds, residual := decompose(req.Where)

	driver := p.chooseDriver(req.Collection, conds)

	var root Plan
	if driver != nil {
		root = &IndexLookupNode{
			Collection: req.Collection,
			Field:      driver.Field,
			Condition:  driver,
		}
	} else {
		root = &FullScanNode{Collection: req.Collection}
	}

	var filters []*Expr
	for _, c := range conds {
		if c != driver {
			filters = append(filters, c)
		}
	}
	filters = append(filters, residual...)
	if len(filters) > 0 {
		root = &FilterNode{Input: root, Conditions: filters}
	}

	if !orderSatisfied(driver, req.OrderBy) {
		root = &SortNode{Input: root, Keys: effectiveOrder(req.OrderBy)}
	}

	if req.Limit != nil || req.Offset > 0 {
		count := -1
		if req.Limit != nil {
			count = *req.Limit
		}
		root = &LimitNode{Input: root, Count: count, Offset: req.Offset}
	}
	return root
}

// decompose splits a predicate at its top-level conjunction into primitive
// single-field comparisons (in WHERE-clause order) and a residual of
// everything else. OR, NOT, and the text/array operators are never
// decomposed; they always evaluate in the filter.
func decompose(e *Expr) (conds []*Expr, residual []*Expr) {
	if e == nil {
		return nil, nil
	}
	if e.Kind == KindAnd {
		for _, child := range e.Exprs {
			c, r := decompose(child)
			conds = append(conds, c...)
			residual = append(residual, r...)
		}
		return conds, residual
	}
	if isPrimitive(e) {
		return []*Expr{e}, nil
	}
	return nil, []*Expr{e}
}

// isPrimitive reports whether a condition is a candidate index driver.
func isPrimitive(e *Expr) bool {
	switch e.Kind {
	case KindEq, KindLt, KindLe, KindGt, KindGe:
		return e.Field != ""
	case KindBetween:
		return e.Field != "" && !e.Negated
	default:
		return false
	}
}

// chooseDriver picks the most selective indexable condition. Ties resolve
// deterministically to the condition listed first in the WHERE clause: the
// comparison below is strict, so a later condition only wins by being
// strictly more selective.
func (p *Planner) chooseDriver(collection string, conds []*Expr) *Expr {
	var best *Expr
	bestSel := 0.0
	for _, c := range conds {
		idx, ok := p.indexes.Get(collection, c.Field)
		if !ok || !conditionAligned(c, idx) {
			continue
		}
		sel := selectivity(c, idx)
		if best == nil || sel < bestSel {
			best = c
			bestSel = sel
		}
	}
	return best
}

// conditionAligned reports whether the condition's constants live in the
// same ordered family as the index's keys. A misaligned condition (say,
// a string bound against an int index) can never be answered by the index
// consistently with filter semantics, so it stays in the filter.
func conditionAligned(c *Expr, idx *indexing.Index) bool {
	if c.Kind == KindBetween {
		return domain.KeyAligned(c.Low, idx.Type) && domain.KeyAligned(c.High, idx.Type)
	}
	return domain.KeyAligned(c.Value, idx.Type)
}

// selectivity estimates the fraction of the collection a condition matches;
// lower is more selective. With gathered statistics: 1/distinct for
// equality and bounded-range/key-span for ranges. Without them, the
// ordinal heuristic.
func selectivity(c *Expr, idx *indexing.Index) float64 {
	stats := idx.Stats()
	if stats == nil || stats.DistinctKeys == 0 {
		return ordinalSelectivity(c)
	}
	switch c.Kind {
	case KindEq:
		return 1.0 / float64(stats.DistinctKeys)
	case KindBetween:
		return rangeSelectivity(c.Low, c.High, stats, selBoundedDefault)
	case KindLt, KindLe:
		return rangeSelectivity(stats.MinKey, c.Value, stats, selHalfBoundedDefault)
	case KindGt, KindGe:
		return rangeSelectivity(c.Value, stats.MaxKey, stats, selHalfBoundedDefault)
	default:
		return ordinalSelectivity(c)
	}
}

func ordinalSelectivity(c *Expr) float64 {
	switch c.Kind {
	case KindEq:
		return selEqualityDefault
	case KindBetween:
		return selBoundedDefault
	default:
		return selHalfBoundedDefault
	}
}

// rangeSelectivity computes (high-low)/span for numeric keys, clamped to
// [0,1]. Non-numeric keys fall back to the ordinal weight.
func rangeSelectivity(low, high interface{}, stats *indexing.Statistics, fallback float64) float64 {
	span, ok := stats.KeySpan()
	if !ok {
		return fallback
	}
	lo, okLo := domain.ToFloat64(low)
	hi, okHi := domain.ToFloat64(high)
	if !okLo || !okHi {
		return fallback
	}
	frac := (hi - lo) / span
	if frac < 0 {
		return 0
	}
	if frac > 1 {
		return 1
	}
	return frac
}

// effectiveOrder returns the requested ordering, defaulting to document id
// ascending so results are deterministic when no ORDER BY is given.
func effectiveOrder(keys []OrderKey) []OrderKey {
	if len(keys) == 0 {
		return []OrderKey{{Field: domain.IDField}}
	}
	return keys
}

// orderSatisfied reports whether the plan's natural output order already
// matches the requested ordering, making a Sort node redundant.
//
//   - A full scan (optionally filtered) emits documents in the store's
//     native order, which is id ascending, so it satisfies an absent or
//     id-ascending ORDER BY.
//   - An index range lookup emits ascending key order with ids ascending
//     within one key, satisfying "field asc" (with optional trailing
//     "_id asc").
//   - An index equality lookup emits a single key's ids ascending, which
//     satisfies id order and any ordering led by the driver field.
func orderSatisfied(driver *Expr, requested []OrderKey) bool {
	keys := effectiveOrder(requested)
	if driver == nil {
		return len(keys) == 1 && keys[0].Field == domain.IDField && !keys[0].Desc
	}
	if driver.Kind == KindEq {
		// All results share the driver value; strip leading ascending
		// keys on the driver field before checking.
		for len(keys) > 0 && keys[0].Field == driver.Field && !keys[0].Desc {
			keys = keys[1:]
		}
		return len(keys) == 0 || (len(keys) == 1 && keys[0].Field == domain.IDField && !keys[0].Desc)
	}
	if len(keys) == 0 || keys[0].Field != driver.Field || keys[0].Desc {
		return false
	}
	rest := keys[1:]
	return len(rest) == 0 || (len(rest) == 1 && rest[0].Field == domain.IDField && !rest[0].Desc)
}
