// Package search defines the Search indexer collaborator:
// index(project_aggregate), remove(version_ids). Grounded on
// original_source/src/search/indexing/{mod,queue}.rs, which has two
// diverging backend implementations (Meilisearch, Elasticsearch) treated
// here as one interface — this package is that single interface, with an
// in-memory implementation standing in for either backend in dev/tests.
package search

import (
	"context"
	"sync"

	"github.com/modhub/platform/internal/idcodec"
)

// ProjectAggregate is the denormalized document handed to index(); it
// carries only the searchable fields, not the full Project entity.
type ProjectAggregate struct {
	ProjectID  idcodec.ProjectID
	Slug       string
	Name       string
	Summary    string
	Categories []string
	Loaders    []string
	Status     string
	Downloads  int64
	Follows    int64
}

// Indexer is the external search-indexer collaborator.
// Implementations are expected to be idempotent by project id, since the
// outbox delivers at-most-once-per-commit, best-effort.
type Indexer interface {
	Index(ctx context.Context, projects []ProjectAggregate) error
	Remove(ctx context.Context, versionIDs []idcodec.VersionID) error
}

// MemoryIndexer is an in-memory stand-in for a Meilisearch/Elasticsearch
// backend, treating search as a single Indexer interface so only one
// implementation exists here.
type MemoryIndexer struct {
	mu       sync.RWMutex
	byID     map[idcodec.ProjectID]ProjectAggregate
	removed  map[idcodec.VersionID]struct{}
}

func NewMemoryIndexer() *MemoryIndexer {
	return &MemoryIndexer{
		byID:    make(map[idcodec.ProjectID]ProjectAggregate),
		removed: make(map[idcodec.VersionID]struct{}),
	}
}

func (m *MemoryIndexer) Index(ctx context.Context, projects []ProjectAggregate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range projects {
		m.byID[p.ProjectID] = p
	}
	return nil
}

func (m *MemoryIndexer) Remove(ctx context.Context, versionIDs []idcodec.VersionID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range versionIDs {
		m.removed[id] = struct{}{}
	}
	return nil
}

// Get returns the currently indexed aggregate for a project, for tests
// asserting that an outbox flush reached the indexer.
func (m *MemoryIndexer) Get(id idcodec.ProjectID) (ProjectAggregate, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.byID[id]
	return p, ok
}

func (m *MemoryIndexer) WasRemoved(id idcodec.VersionID) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.removed[id]
	return ok
}
