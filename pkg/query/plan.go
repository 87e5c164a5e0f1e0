package query

// Plan is one node of a query execution strategy. Plans are immutable
// trees built per query and discarded after execution; each node
// exclusively owns its input.
type Plan interface {
	// Describe renders the node and its inputs as a descriptive tree,
	// used by the explain statement.
	Describe() *PlanDesc
}

// Plan node names used in PlanDesc.Node.
const (
	NodeFullScan    = "full_scan"
	NodeIndexLookup = "index_lookup"
	NodeFilter      = "filter"
	NodeSort        = "sort"
	NodeLimit       = "limit"
)

// PlanDesc is the JSON-friendly rendering of a plan tree.
type PlanDesc struct {
	Node       string     `json:"node"`
	Collection string     `json:"collection,omitempty"`
	Field      string     `json:"field,omitempty"`
	Condition  *Expr      `json:"condition,omitempty"`
	Conditions []*Expr    `json:"conditions,omitempty"`
	OrderBy    []OrderKey `json:"order_by,omitempty"`
	Count      int        `json:"count,omitempty"`
	Offset     int        `json:"offset,omitempty"`
	Input      *PlanDesc  `json:"input,omitempty"`
}

// FullScanNode produces every document of a collection in the store's
// native iteration order.
type FullScanNode struct {
	Collection string
}

func (n *FullScanNode) Describe() *PlanDesc {
	return &PlanDesc{Node: NodeFullScan, Collection: n.Collection}
}

// IndexLookupNode resolves one comparison condition through the index on
// (Collection, Field) and fetches the matching documents by id.
type IndexLookupNode struct {
	Collection string
	Field      string
	Condition  *Expr
}

func (n *IndexLookupNode) Describe() *PlanDesc {
	return &PlanDesc{
		Node:       NodeIndexLookup,
		Collection: n.Collection,
		Field:      n.Field,
		Condition:  n.Condition,
	}
}

// FilterNode keeps input documents matching every condition.
type FilterNode struct {
	Input      Plan
	Conditions []*Expr
}

func (n *FilterNode) Describe() *PlanDesc {
	return &PlanDesc{
		Node:       NodeFilter,
		Conditions: n.Conditions,
		Input:      n.Input.Describe(),
	}
}

// SortNode orders its input by the given keys, stable, with document id
// ascending as the final tiebreak.
type SortNode struct {
	Input Plan
	Keys  []OrderKey
}

func (n *SortNode) Describe() *PlanDesc {
	return &PlanDesc{
		Node:    NodeSort,
		OrderBy: n.Keys,
		Input:   n.Input.Describe(),
	}
}

// LimitNode skips Offset documents then yields up to Count. Count < 0 means
// unlimited (offset-only pagination); Offset < 0 is treated as zero.
type LimitNode struct {
	Input  Plan
	Count  int
	Offset int
}

func (n *LimitNode) Describe() *PlanDesc {
	return &PlanDesc{
		Node:   NodeLimit,
		Count:  n.Count,
		Offset: n.Offset,
		Input:  n.Input.Describe(),
	}
}
