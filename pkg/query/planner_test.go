package query

import (
	"fmt"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdbase/mdbase/pkg/domain"
	"github.com/mdbase/mdbase/pkg/indexing"
)

// testStore is a minimal in-memory domain.DocumentStore for planner and
// executor tests.
type testStore struct {
	collections map[string]map[string]domain.Document
}

func newTestStore() *testStore {
	return &testStore{collections: make(map[string]map[string]domain.Document)}
}

func (s *testStore) add(collection string, doc domain.Document) {
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]domain.Document)
	}
	s.collections[collection][doc.ID()] = doc
}

func (s *testStore) remove(collection, id string) {
	delete(s.collections[collection], id)
}

func (s *testStore) List(collection string) ([]domain.Document, error) {
	docs, ok := s.collections[collection]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrCollectionNotFound, collection)
	}
	ids := make([]string, 0, len(docs))
	for id := range docs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	out := make([]domain.Document, 0, len(ids))
	for _, id := range ids {
		out = append(out, docs[id])
	}
	return out, nil
}

func (s *testStore) Get(collection, id string) (domain.Document, bool) {
	doc, ok := s.collections[collection][id]
	return doc, ok
}

func seededStore() *testStore {
	store := newTestStore()
	store.add("tasks", domain.Document{"_id": "t1", "priority": 1, "status": "open", "estimate": 2.5})
	store.add("tasks", domain.Document{"_id": "t2", "priority": 3, "status": "open", "estimate": 1.0})
	store.add("tasks", domain.Document{"_id": "t3", "priority": 3, "status": "done", "estimate": 4.0})
	return store
}

func plannerFixture(t *testing.T) (*Planner, *testStore, *indexing.Manager) {
	t.Helper()
	store := seededStore()
	manager, err := indexing.OpenManager(t.TempDir(), store)
	require.NoError(t, err)
	return NewPlanner(manager), store, manager
}

func TestPlan_NoWhereNoIndex(t *testing.T) {
	planner, _, _ := plannerFixture(t)

	plan := planner.Plan(&Request{Collection: "tasks"})
	scan, ok := plan.(*FullScanNode)
	require.True(t, ok, "expected bare full scan, got %T", plan)
	assert.Equal(t, "tasks", scan.Collection)
}

func TestPlan_UnindexedConditionFiltersScan(t *testing.T) {
	planner, _, _ := plannerFixture(t)

	plan := planner.Plan(&Request{Collection: "tasks", Where: Eq("status", "open")})
	filter, ok := plan.(*FilterNode)
	require.True(t, ok, "expected filter, got %T", plan)
	require.Len(t, filter.Conditions, 1)
	_, ok = filter.Input.(*FullScanNode)
	assert.True(t, ok)
}

func TestPlan_EqualityUsesIndex(t *testing.T) {
	planner, _, manager := plannerFixture(t)
	require.NoError(t, manager.Create("tasks", "priority", domain.FieldTypeInt))

	plan := planner.Plan(&Request{Collection: "tasks", Where: Eq("priority", 3)})
	lookup, ok := plan.(*IndexLookupNode)
	require.True(t, ok, "expected index lookup, got %T", plan)
	assert.Equal(t, "priority", lookup.Field)
	assert.Equal(t, KindEq, lookup.Condition.Kind)
}

func TestPlan_RangeGetsSortForDefaultOrder(t *testing.T) {
	planner, _, manager := plannerFixture(t)
	require.NoError(t, manager.Create("tasks", "priority", domain.FieldTypeInt))

	// A range lookup emits key order, but the default ordering is id
	// ascending, so a sort is required.
	plan := planner.Plan(&Request{Collection: "tasks", Where: Gt("priority", 1)})
	sortNode, ok := plan.(*SortNode)
	require.True(t, ok, "expected sort, got %T", plan)
	require.Len(t, sortNode.Keys, 1)
	assert.Equal(t, domain.IDField, sortNode.Keys[0].Field)
	_, ok = sortNode.Input.(*IndexLookupNode)
	assert.True(t, ok)
}

func TestPlan_RangeElidesSortForDriverOrder(t *testing.T) {
	planner, _, manager := plannerFixture(t)
	require.NoError(t, manager.Create("tasks", "priority", domain.FieldTypeInt))

	plan := planner.Plan(&Request{
		Collection: "tasks",
		Where:      Gt("priority", 1),
		OrderBy:    []OrderKey{{Field: "priority"}},
	})
	_, ok := plan.(*IndexLookupNode)
	assert.True(t, ok, "expected bare index lookup, got %T", plan)

	// With a trailing id tiebreak the index order still suffices.
	plan = planner.Plan(&Request{
		Collection: "tasks",
		Where:      Gt("priority", 1),
		OrderBy:    []OrderKey{{Field: "priority"}, {Field: domain.IDField}},
	})
	_, ok = plan.(*IndexLookupNode)
	assert.True(t, ok, "expected bare index lookup, got %T", plan)

	// Descending breaks the elision.
	plan = planner.Plan(&Request{
		Collection: "tasks",
		Where:      Gt("priority", 1),
		OrderBy:    []OrderKey{{Field: "priority", Desc: true}},
	})
	_, ok = plan.(*SortNode)
	assert.True(t, ok, "expected sort, got %T", plan)
}

func TestPlan_EqualityElidesSortOnDriverField(t *testing.T) {
	planner, _, manager := plannerFixture(t)
	require.NoError(t, manager.Create("tasks", "priority", domain.FieldTypeInt))

	// All results share the driver value, so ordering by it is vacuous.
	plan := planner.Plan(&Request{
		Collection: "tasks",
		Where:      Eq("priority", 3),
		OrderBy:    []OrderKey{{Field: "priority"}},
	})
	_, ok := plan.(*IndexLookupNode)
	assert.True(t, ok, "expected bare index lookup, got %T", plan)

	// Ordering by another field still needs a sort.
	plan = planner.Plan(&Request{
		Collection: "tasks",
		Where:      Eq("priority", 3),
		OrderBy:    []OrderKey{{Field: "estimate"}},
	})
	_, ok = plan.(*SortNode)
	assert.True(t, ok, "expected sort, got %T", plan)
}

func TestPlan_NonDriverConditionsBecomeFilter(t *testing.T) {
	planner, _, manager := plannerFixture(t)
	require.NoError(t, manager.Create("tasks", "priority", domain.FieldTypeInt))

	plan := planner.Plan(&Request{
		Collection: "tasks",
		Where:      And(Eq("priority", 3), Eq("status", "open")),
	})
	filter, ok := plan.(*FilterNode)
	require.True(t, ok, "expected filter, got %T", plan)
	require.Len(t, filter.Conditions, 1)
	assert.Equal(t, "status", filter.Conditions[0].Field)

	lookup, ok := filter.Input.(*IndexLookupNode)
	require.True(t, ok)
	assert.Equal(t, "priority", lookup.Field)
}

func TestPlan_ResidualStaysInFilter(t *testing.T) {
	planner, _, manager := plannerFixture(t)
	require.NoError(t, manager.Create("tasks", "priority", domain.FieldTypeInt))

	// OR is never decomposed, even when its branches mention indexed fields.
	plan := planner.Plan(&Request{
		Collection: "tasks",
		Where:      Or(Eq("priority", 3), Eq("priority", 1)),
	})
	filter, ok := plan.(*FilterNode)
	require.True(t, ok, "expected filter, got %T", plan)
	_, ok = filter.Input.(*FullScanNode)
	assert.True(t, ok)
}

func TestPlan_TieBreaksToFirstListedCondition(t *testing.T) {
	planner, _, manager := plannerFixture(t)
	require.NoError(t, manager.Create("tasks", "priority", domain.FieldTypeInt))
	require.NoError(t, manager.Create("tasks", "status", domain.FieldTypeString))

	// Both are equality conditions with no stats: identical ordinal
	// selectivity, so the first WHERE condition drives.
	plan := planner.Plan(&Request{
		Collection: "tasks",
		Where:      And(Eq("status", "open"), Eq("priority", 3)),
	})
	filter, ok := plan.(*FilterNode)
	require.True(t, ok, "expected filter, got %T", plan)
	lookup, ok := filter.Input.(*IndexLookupNode)
	require.True(t, ok)
	assert.Equal(t, "status", lookup.Field)
}

func TestPlan_StatsPreferHigherCardinality(t *testing.T) {
	planner, _, manager := plannerFixture(t)
	// status has 2 distinct values, estimate has 3: with stats gathered,
	// equality on estimate is more selective and wins despite being listed
	// second.
	require.NoError(t, manager.Create("tasks", "status", domain.FieldTypeString))
	require.NoError(t, manager.Create("tasks", "estimate", domain.FieldTypeFloat))
	require.NoError(t, manager.Analyze("tasks"))

	plan := planner.Plan(&Request{
		Collection: "tasks",
		Where:      And(Eq("status", "open"), Eq("estimate", 4.0)),
	})
	filter, ok := plan.(*FilterNode)
	require.True(t, ok, "expected filter, got %T", plan)
	lookup, ok := filter.Input.(*IndexLookupNode)
	require.True(t, ok)
	assert.Equal(t, "estimate", lookup.Field)
}

func TestPlan_MisalignedConditionNeverDrives(t *testing.T) {
	planner, _, manager := plannerFixture(t)
	require.NoError(t, manager.Create("tasks", "priority", domain.FieldTypeInt))

	// A string constant against an int index cannot use the index; the
	// condition evaluates in the filter so results match a full scan.
	plan := planner.Plan(&Request{Collection: "tasks", Where: Eq("priority", "high")})
	filter, ok := plan.(*FilterNode)
	require.True(t, ok, "expected filter, got %T", plan)
	_, ok = filter.Input.(*FullScanNode)
	assert.True(t, ok)
}

func TestPlan_NegatedBetweenNeverDrives(t *testing.T) {
	planner, _, manager := plannerFixture(t)
	require.NoError(t, manager.Create("tasks", "priority", domain.FieldTypeInt))

	negated := Between("priority", 1, 2)
	negated.Negated = true
	plan := planner.Plan(&Request{Collection: "tasks", Where: negated})
	filter, ok := plan.(*FilterNode)
	require.True(t, ok, "expected filter, got %T", plan)
	_, ok = filter.Input.(*FullScanNode)
	assert.True(t, ok)
}

func TestPlan_LimitIsOutermost(t *testing.T) {
	planner, _, manager := plannerFixture(t)
	require.NoError(t, manager.Create("tasks", "priority", domain.FieldTypeInt))

	limit := 2
	plan := planner.Plan(&Request{
		Collection: "tasks",
		Where:      Gt("priority", 0),
		OrderBy:    []OrderKey{{Field: "estimate", Desc: true}},
		Limit:      &limit,
		Offset:     1,
	})
	limitNode, ok := plan.(*LimitNode)
	require.True(t, ok, "expected limit, got %T", plan)
	assert.Equal(t, 2, limitNode.Count)
	assert.Equal(t, 1, limitNode.Offset)
	_, ok = limitNode.Input.(*SortNode)
	assert.True(t, ok)
}

func TestPlan_OffsetAloneStillGetsLimitNode(t *testing.T) {
	planner, _, _ := plannerFixture(t)

	plan := planner.Plan(&Request{Collection: "tasks", Offset: 1})
	limitNode, ok := plan.(*LimitNode)
	require.True(t, ok, "expected limit, got %T", plan)
	assert.Equal(t, -1, limitNode.Count)
	assert.Equal(t, 1, limitNode.Offset)
}

func TestPlan_DescribeShape(t *testing.T) {
	planner, _, manager := plannerFixture(t)
	require.NoError(t, manager.Create("tasks", "priority", domain.FieldTypeInt))

	limit := 5
	plan := planner.Plan(&Request{
		Collection: "tasks",
		Where:      And(Gt("priority", 1), Eq("status", "open")),
		Limit:      &limit,
	})
	desc := plan.Describe()

	require.Equal(t, NodeLimit, desc.Node)
	assert.Equal(t, 5, desc.Count)
	require.Equal(t, NodeSort, desc.Input.Node)
	require.Equal(t, NodeFilter, desc.Input.Input.Node)
	lookup := desc.Input.Input.Input
	require.Equal(t, NodeIndexLookup, lookup.Node)
	assert.Equal(t, "tasks", lookup.Collection)
	assert.Equal(t, "priority", lookup.Field)
	assert.Nil(t, lookup.Input)
}
