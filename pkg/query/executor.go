package query

import (
	"fmt"
	"sort"

	"github.com/mdbase/mdbase/pkg/domain"
	"github.com/mdbase/mdbase/pkg/indexing"
)

// Executor interprets a plan tree into the final ordered document
// sequence. Execution is synchronous; the result is fully materialized.
type Executor struct {
	store   domain.DocumentStore
	indexes *indexing.Manager
}

// NewExecutor creates an executor over the given store and index manager.
func NewExecutor(store domain.DocumentStore, indexes *indexing.Manager) *Executor {
	return &Executor{store: store, indexes: indexes}
}

// Run evaluates the plan bottom-up.
func (e *Executor) Run(plan Plan) ([]domain.Document, error) {
	switch n := plan.(type) {
	case *FullScanNode:
		docs, err := e.store.List(n.Collection)
		if err != nil {
			return nil, fmt.Errorf("full scan of %s failed: %w", n.Collection, err)
		}
		return docs, nil

	case *IndexLookupNode:
		return e.runIndexLookup(n)

	case *FilterNode:
		input, err := e.Run(n.Input)
		if err != nil {
			return nil, err
		}
		var out []domain.Document
		for _, doc := range input {
			if matchesAll(n.Conditions, doc) {
				out = append(out, doc)
			}
		}
		return out, nil

	case *SortNode:
		input, err := e.Run(n.Input)
		if err != nil {
			return nil, err
		}
		sortDocuments(input, n.Keys)
		return input, nil

	case *LimitNode:
		input, err := e.Run(n.Input)
		if err != nil {
			return nil, err
		}
		offset := n.Offset
		if offset < 0 {
			offset = 0
		}
		if offset >= len(input) {
			return nil, nil
		}
		input = input[offset:]
		if n.Count >= 0 && n.Count < len(input) {
			input = input[:n.Count]
		}
		return input, nil

	default:
		return nil, fmt.Errorf("unsupported plan node %T", plan)
	}
}

// runIndexLookup resolves the driver condition to document ids and fetches
// each document. An id present in the index but missing from the store (a
// stale entry awaiting rebuild) is silently skipped, not an error. If the
// index was dropped between planning and execution, the lookup degrades to
// a scan filtered by the same condition.
func (e *Executor) runIndexLookup(n *IndexLookupNode) ([]domain.Document, error) {
	idx, ok := e.indexes.Get(n.Collection, n.Field)
	if !ok {
		return e.Run(&FilterNode{
			Input:      &FullScanNode{Collection: n.Collection},
			Conditions: []*Expr{n.Condition},
		})
	}

	var ids []string
	switch n.Condition.Kind {
	case KindEq:
		ids = idx.LookupEq(n.Condition.Value)
	case KindLt:
		ids = idx.LookupRange(nil, n.Condition.Value, false, false)
	case KindLe:
		ids = idx.LookupRange(nil, n.Condition.Value, false, true)
	case KindGt:
		ids = idx.LookupRange(n.Condition.Value, nil, false, false)
	case KindGe:
		ids = idx.LookupRange(n.Condition.Value, nil, true, false)
	case KindBetween:
		ids = idx.LookupRange(n.Condition.Low, n.Condition.High, true, true)
	default:
		return nil, fmt.Errorf("condition %q cannot drive an index lookup", n.Condition.Kind)
	}

	docs := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		if doc, ok := e.store.Get(n.Collection, id); ok {
			docs = append(docs, doc)
		}
	}
	return docs, nil
}

func matchesAll(conds []*Expr, doc domain.Document) bool {
	for _, c := range conds {
		if !Evaluate(c, doc) {
			return false
		}
	}
	return true
}

// sortDocuments orders documents by the given keys. Missing values sort
// before present ones; ties always break by document id ascending so equal
// inputs produce identical output everywhere.
func sortDocuments(docs []domain.Document, keys []OrderKey) {
	sort.SliceStable(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		for _, key := range keys {
			cmp := domain.CompareValues(a[key.Field], b[key.Field])
			if cmp == 0 {
				continue
			}
			if key.Desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return a.ID() < b.ID()
	})
}
