package graph

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/h2theoran1984/Spaghetti-990/internal/util"
	"github.com/h2theoran1984/Spaghetti-990/pkg/logger"
)

const (
	minDepth = 1
	maxDepth = 3

	// stubName marks a node that was already expanded elsewhere in the
	// graph; the stub keeps the edge visible without re-traversing.
	stubName = "[Already mapped]"
)

// OrgMetadata is what the metadata service knows about an organization,
// independent of any filing document.
type OrgMetadata struct {
	Name               string
	City               string
	State              string
	Revenue            *int64
	CandidateObjectIDs []string
}

// MetadataResolver looks up basic organization facts by EIN.
type MetadataResolver interface {
	ResolveOrganization(ctx context.Context, ein string) (OrgMetadata, error)
}

// FilingResolver extracts Schedule R relations for an EIN. Candidate object
// IDs collected from metadata are passed through as extra hints. A filing
// that cannot be located yields empty results, not an error.
type FilingResolver interface {
	ResolveRelations(ctx context.Context, ein string, candidateObjectIDs []string) ([]RelatedEntity, string, error)
}

// Builder assembles entity relationship graphs by breadth of Schedule R
// listings and depth of recursive metadata lookups.
type Builder struct {
	metadata MetadataResolver
	filings  FilingResolver
}

type NewBuilderParams struct {
	Metadata MetadataResolver
	Filings  FilingResolver
}

func NewBuilder(params NewBuilderParams) *Builder {
	return &Builder{
		metadata: params.Metadata,
		filings:  params.Filings,
	}
}

// Build constructs the graph rooted at ein, following related entities to
// the requested depth. Depth is clamped to [1, 3]; depth 1 resolves only
// the root and lists its relations without expanding them. A failure on the
// root is fatal, a failure below it prunes that subtree only.
func (b *Builder) Build(ctx context.Context, ein string, depth int) (Result, error) {
	if depth < minDepth {
		depth = minDepth
	}
	if depth > maxDepth {
		depth = maxDepth
	}

	state := NewTraversalState()
	root, err := b.buildNode(ctx, util.CanonicalEIN(ein), 1, depth, state)
	if err != nil {
		return Result{}, err
	}

	return Result{
		Root:          root,
		TotalEntities: state.ResolvedCount(),
		Depth:         depth,
	}, nil
}

func (b *Builder) buildNode(ctx context.Context, ein string, currentDepth, depth int, state *TraversalState) (*EntityNode, error) {
	if state.Visited(ein) {
		return &EntityNode{EIN: ein, Name: stubName}, nil
	}
	state.MarkVisiting(ein)

	meta, err := b.metadata.ResolveOrganization(ctx, ein)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve organization %s: %w", ein, err)
	}
	state.MarkResolved()

	node := &EntityNode{
		EIN:          ein,
		Name:         meta.Name,
		City:         meta.City,
		State:        meta.State,
		TotalRevenue: meta.Revenue,
	}

	related, year, err := b.filings.ResolveRelations(ctx, ein, meta.CandidateObjectIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve relations for %s: %w", ein, err)
	}
	if parsed, err := strconv.Atoi(year); err == nil {
		node.FilingYear = &parsed
	}
	node.RelatedEntities = related

	if currentDepth >= depth {
		return node, nil
	}

	for _, entity := range related {
		childEIN := util.CanonicalEIN(entity.EIN)
		if childEIN == "" || state.Visited(childEIN) {
			continue
		}
		child, err := b.buildNode(ctx, childEIN, currentDepth+1, depth, state)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil, err
			}
			logger.Warn("Skipping unresolvable related entity", "ein", childEIN, "parent", ein, "err", err)
			continue
		}
		node.Children = append(node.Children, child)
	}

	return node, nil
}
