package irs

import (
	"context"
	"errors"
	"time"

	"github.com/h2theoran1984/Spaghetti-990/internal/remotezip"
	"github.com/h2theoran1984/Spaghetti-990/internal/util"
	"github.com/h2theoran1984/Spaghetti-990/pkg/logger"
)

// ObjectIDFinder is the full-text search fallback: it maps an EIN to the
// newest known object ID, when the search service is reachable.
type ObjectIDFinder interface {
	FindLatestObjectID(ctx context.Context, ein string) (string, error)
}

// FilingService resolves an EIN to its Schedule R relations by locating
// the filing document inside the monthly bulk archives and extracting
// exactly that document via byte-range requests.
type FilingService struct {
	extractor  *remotezip.Client
	index      *IndexClient
	search     ObjectIDFinder
	zipBaseURL string
	now        func() time.Time
}

// NewFilingServiceParams configures a FilingService. Search is optional.
type NewFilingServiceParams struct {
	Extractor  *remotezip.Client
	Index      *IndexClient
	Search     ObjectIDFinder
	ZipBaseURL string
	Now        func() time.Time
}

func NewFilingService(params NewFilingServiceParams) *FilingService {
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &FilingService{
		extractor:  params.Extractor,
		index:      params.Index,
		search:     params.Search,
		zipBaseURL: params.ZipBaseURL,
		now:        now,
	}
}

// GetScheduleR returns the related organizations and filing year for ein.
// candidateObjectIDs are additional identifiers supplied by the metadata
// service, tried after the index-resolved one. Exhausting every candidate
// yields an empty result, not an error: a missing filing is a legitimate
// answer.
func (s *FilingService) GetScheduleR(ctx context.Context, ein string, candidateObjectIDs []string) ([]RelatedOrg, string, error) {
	clean := util.CanonicalEIN(ein)

	objectIDs, err := s.collectObjectIDs(ctx, clean, candidateObjectIDs)
	if err != nil {
		return nil, "", err
	}

	for _, objectID := range objectIDs {
		related, year, ok := s.tryObjectID(ctx, objectID)
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		if ok {
			return related, year, nil
		}
	}

	logger.Info("No filing document located", "ein", clean, "candidates", len(objectIDs))
	return nil, "", nil
}

func (s *FilingService) collectObjectIDs(ctx context.Context, cleanEIN string, candidates []string) ([]string, error) {
	var ids []string

	filing, err := s.index.FindLatestFiling(ctx, cleanEIN)
	switch {
	case err == nil:
		ids = append(ids, filing.ObjectID)
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return nil, err
	default:
		logger.Debug("Index lookup did not resolve an object ID", "ein", cleanEIN, "err", err)
	}

	ids = append(ids, candidates...)

	if s.search != nil {
		id, err := s.search.FindLatestObjectID(ctx, cleanEIN)
		if err != nil {
			logger.Debug("Full-text search fallback failed", "ein", cleanEIN, "err", err)
		} else if id != "" {
			ids = append(ids, id)
		}
	}

	return dedupe(ids), nil
}

// tryObjectID walks the candidate archive URLs for one object ID. Every
// failure class moves on to the next URL: a corrupt archive at a guessed
// URL does not mean the other guesses are wrong.
func (s *FilingService) tryObjectID(ctx context.Context, objectID string) ([]RelatedOrg, string, bool) {
	entry := EntryName(objectID)
	for _, url := range CandidateZipURLs(s.zipBaseURL, objectID, s.now()) {
		if ctx.Err() != nil {
			return nil, "", false
		}
		document, err := s.extractor.ExtractFile(ctx, url, entry)
		if err != nil {
			logger.Debug("Candidate archive failed", "url", url, "entry", entry, "err", err)
			continue
		}
		related, year, err := ParseScheduleR(document)
		if err != nil {
			logger.Warn("Extracted filing did not parse", "url", url, "entry", entry, "err", err)
			continue
		}
		logger.Info("Extracted filing", "entry", entry, "url", url, "related", len(related))
		return related, year, true
	}
	return nil, "", false
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
