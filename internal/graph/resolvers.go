package graph

import (
	"context"

	"github.com/h2theoran1984/Spaghetti-990/internal/irs"
	"github.com/h2theoran1984/Spaghetti-990/internal/propublica"
	"github.com/h2theoran1984/Spaghetti-990/internal/util"
)

// ProPublicaMetadataResolver backs MetadataResolver with the Nonprofit
// Explorer API, carrying along the object IDs gleaned from the filing list.
type ProPublicaMetadataResolver struct {
	client *propublica.Client
}

func NewProPublicaMetadataResolver(client *propublica.Client) *ProPublicaMetadataResolver {
	return &ProPublicaMetadataResolver{client: client}
}

func (r *ProPublicaMetadataResolver) ResolveOrganization(ctx context.Context, ein string) (OrgMetadata, error) {
	data, err := r.client.GetOrganization(ctx, ein)
	if err != nil {
		return OrgMetadata{}, err
	}
	return OrgMetadata{
		Name:               data.Organization.Name,
		City:               data.Organization.City,
		State:              data.Organization.State,
		Revenue:            data.Organization.RevenueAmount,
		CandidateObjectIDs: propublica.ExtractObjectIDs(data),
	}, nil
}

// IRSFilingResolver backs FilingResolver with the bulk-archive extraction
// pipeline.
type IRSFilingResolver struct {
	service *irs.FilingService
}

func NewIRSFilingResolver(service *irs.FilingService) *IRSFilingResolver {
	return &IRSFilingResolver{service: service}
}

func (r *IRSFilingResolver) ResolveRelations(ctx context.Context, ein string, candidateObjectIDs []string) ([]RelatedEntity, string, error) {
	related, year, err := r.service.GetScheduleR(ctx, ein, candidateObjectIDs)
	if err != nil {
		return nil, "", err
	}

	entities := make([]RelatedEntity, 0, len(related))
	for _, org := range related {
		entities = append(entities, RelatedEntity{
			EIN:            util.CanonicalEIN(org.EIN),
			Name:           org.Name,
			Relationship:   org.Relationship,
			ControllingPct: org.ControllingPct,
		})
	}
	return entities, year, nil
}
