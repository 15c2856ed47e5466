// Package vocabcache wraps VocabStore's raw list queries with the
// lifecycle server-managed vocabularies need: loaded once at startup,
// held in memory for the life of the process, and refreshed only when an
// admin mutates a vocabulary — never on a read-path cache miss, since
// these tables change orders of magnitude less often than any entity they
// validate.
package vocabcache

import (
	"context"
	"sync"

	"github.com/modhub/platform/internal/domain/vocab"
)

// Store is the narrow slice of internal/store's VocabStore this package
// depends on, declared locally to avoid importing internal/store from a
// package several services below it will depend on.
type Store interface {
	ListCategories(ctx context.Context) ([]vocab.Category, error)
	ListLoaders(ctx context.Context) ([]vocab.Loader, error)
	ListLoaderFields(ctx context.Context) ([]vocab.LoaderField, error)
	ListLinkPlatforms(ctx context.Context) ([]vocab.LinkPlatform, error)
}

// snapshot is the whole in-memory vocabulary at one point in time,
// swapped atomically on refresh so readers never observe a half-updated
// set.
type snapshot struct {
	categories    map[idCategoryKey]vocab.Category
	loaders       map[idLoaderKey]vocab.Loader
	loaderFields  map[idFieldKey]vocab.LoaderField
	loaderFieldsByKey map[string]vocab.LoaderField
	linkPlatforms map[idLinkKey]vocab.LinkPlatform
}

type (
	idCategoryKey = uint64
	idLoaderKey   = uint64
	idFieldKey    = uint64
	idLinkKey     = uint64
)

// Cache holds the current vocabulary snapshot; Load populates it at
// startup and Refresh replaces it after an admin mutation.
type Cache struct {
	store Store

	mu   sync.RWMutex
	snap *snapshot
}

func New(store Store) *Cache {
	return &Cache{store: store, snap: &snapshot{}}
}

// Load fetches every vocabulary table once; callers run this at process
// startup before serving any request.
func (c *Cache) Load(ctx context.Context) error {
	return c.Refresh(ctx)
}

// Refresh re-fetches every vocabulary table and swaps the snapshot
// atomically. Called after an admin vocabulary mutation (a new category,
// a loader-field addition, etc) so the next request sees it without a
// process restart.
func (c *Cache) Refresh(ctx context.Context) error {
	categories, err := c.store.ListCategories(ctx)
	if err != nil {
		return err
	}
	loaders, err := c.store.ListLoaders(ctx)
	if err != nil {
		return err
	}
	fields, err := c.store.ListLoaderFields(ctx)
	if err != nil {
		return err
	}
	links, err := c.store.ListLinkPlatforms(ctx)
	if err != nil {
		return err
	}

	next := &snapshot{
		categories:        make(map[idCategoryKey]vocab.Category, len(categories)),
		loaders:           make(map[idLoaderKey]vocab.Loader, len(loaders)),
		loaderFields:      make(map[idFieldKey]vocab.LoaderField, len(fields)),
		loaderFieldsByKey: make(map[string]vocab.LoaderField, len(fields)),
		linkPlatforms:     make(map[idLinkKey]vocab.LinkPlatform, len(links)),
	}
	for _, cat := range categories {
		next.categories[uint64(cat.ID)] = cat
	}
	for _, l := range loaders {
		next.loaders[uint64(l.ID)] = l
	}
	for _, f := range fields {
		next.loaderFields[uint64(f.ID)] = f
		next.loaderFieldsByKey[f.Key] = f
	}
	for _, p := range links {
		next.linkPlatforms[uint64(p.ID)] = p
	}

	c.mu.Lock()
	c.snap = next
	c.mu.Unlock()
	return nil
}

func (c *Cache) current() *snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.snap
}

// CategoryExists reports whether id names a known category.
func (c *Cache) CategoryExists(id uint64) bool {
	_, ok := c.current().categories[id]
	return ok
}

// LoaderExists reports whether id names a known mod loader.
func (c *Cache) LoaderExists(id uint64) bool {
	_, ok := c.current().loaders[id]
	return ok
}

// LoaderField resolves a loader-field id to its typed definition.
func (c *Cache) LoaderField(id uint64) (vocab.LoaderField, bool) {
	f, ok := c.current().loaderFields[id]
	return f, ok
}

// LoaderFieldByKey resolves a loader-field by its string key, the form a
// version's loader-field map is keyed by.
func (c *Cache) LoaderFieldByKey(key string) (vocab.LoaderField, bool) {
	f, ok := c.current().loaderFieldsByKey[key]
	return f, ok
}

// LinkPlatformExists reports whether id names a known link platform.
func (c *Cache) LinkPlatformExists(id uint64) bool {
	_, ok := c.current().linkPlatforms[id]
	return ok
}
