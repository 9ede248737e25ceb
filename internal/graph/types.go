package graph

// RelatedEntity is one Schedule R relationship as reported on the parent's
// filing, before the related org itself has been resolved.
type RelatedEntity struct {
	EIN            string   `json:"ein"`
	Name           string   `json:"name"`
	Relationship   string   `json:"relationship"`
	ControllingPct *float64 `json:"controlling_pct"`
}

// EntityNode is one organization in the relationship graph. Children holds
// the resolved subtrees for the related entities that were traversed;
// RelatedEntities always holds the full Schedule R listing, including
// entities beyond the depth limit.
type EntityNode struct {
	EIN             string          `json:"ein"`
	Name            string          `json:"name"`
	City            string          `json:"city,omitempty"`
	State           string          `json:"state,omitempty"`
	TotalRevenue    *int64          `json:"total_revenue"`
	FilingYear      *int            `json:"filing_year"`
	RelatedEntities []RelatedEntity `json:"related_entities"`
	Children        []*EntityNode   `json:"children"`
}

// Result is a completed traversal.
type Result struct {
	Root          *EntityNode `json:"root"`
	TotalEntities int         `json:"total_entities"`
	Depth         int         `json:"depth"`
}

// TraversalState tracks which EINs a single build has touched. It belongs
// to one Build call and is never shared across requests.
type TraversalState struct {
	visited  map[string]struct{}
	resolved int
}

func NewTraversalState() *TraversalState {
	return &TraversalState{visited: make(map[string]struct{})}
}

// Visited reports whether ein has already been entered during this build.
func (s *TraversalState) Visited(ein string) bool {
	_, ok := s.visited[ein]
	return ok
}

// MarkVisiting records ein before its metadata is fetched, so that cycles
// through in-progress nodes are cut as well.
func (s *TraversalState) MarkVisiting(ein string) {
	s.visited[ein] = struct{}{}
}

// MarkResolved counts a node whose metadata lookup succeeded.
func (s *TraversalState) MarkResolved() {
	s.resolved++
}

func (s *TraversalState) ResolvedCount() int {
	return s.resolved
}
