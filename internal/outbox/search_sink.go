package outbox

import (
	"context"

	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/search"
)

// SearchSink adapts a search.Indexer to the Sink interface, translating
// buffered outbox Records into the Indexer's index()/remove() calls
// (: "records are handed to the external search-indexer
// collaborator").
type SearchSink struct {
	indexer  search.Indexer
	resolve  func(ctx context.Context, id idcodec.ProjectID) (search.ProjectAggregate, error)
}

// NewSearchSink takes resolve, a loader from project id to the current
// searchable aggregate, since outbox Records carry only the fields that
// changed, not the full aggregate the indexer wants.
func NewSearchSink(indexer search.Indexer, resolve func(ctx context.Context, id idcodec.ProjectID) (search.ProjectAggregate, error)) *SearchSink {
	return &SearchSink{indexer: indexer, resolve: resolve}
}

func (s *SearchSink) Index(ctx context.Context, records []Record) error {
	var toIndex []search.ProjectAggregate
	var toRemove []idcodec.VersionID
	seen := make(map[idcodec.ProjectID]bool)

	for _, r := range records {
		switch r.Kind {
		case KindProjectUpserted, KindVersionUpserted:
			if seen[r.ProjectID] {
				continue
			}
			seen[r.ProjectID] = true
			agg, err := s.resolve(ctx, r.ProjectID)
			if err != nil {
				return err
			}
			toIndex = append(toIndex, agg)
		case KindProjectDeleted:
			// Project removal drops every one of its versions from the
			// index too; the Store is the source of truth for which
			// version ids those were, so nothing to do here beyond the
			// per-version KindVersionDeleted records already enqueued.
		case KindVersionDeleted:
			if r.VersionID != nil {
				toRemove = append(toRemove, *r.VersionID)
			}
		case KindWebhook:
			// Webhooks are delivered by a separate collaborator; a
			// search sink has nothing to do with them.
		}
	}

	if len(toIndex) > 0 {
		if err := s.indexer.Index(ctx, toIndex); err != nil {
			return err
		}
	}
	if len(toRemove) > 0 {
		if err := s.indexer.Remove(ctx, toRemove); err != nil {
			return err
		}
	}
	return nil
}
