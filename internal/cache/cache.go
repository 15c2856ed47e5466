// Package cache implements the namespaced write-through Cache: batched
// fills via get_cached_keys, and invalidate fanning out to every alias of
// a mutated entity. Backend plays the role a CacheService interface would,
// generalized from flat string keys to namespace-scoped ones.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Namespace names a cache partition.
type Namespace string

const (
	NamespaceUsers        Namespace = "users"
	NamespaceUsernames    Namespace = "usernames"
	NamespaceProjects     Namespace = "projects"
	NamespaceProjectSlugs Namespace = "project_slugs"
	NamespaceTeams        Namespace = "teams"
	NamespaceOrgs         Namespace = "organizations"
	NamespaceOrgSlugs     Namespace = "org_slugs"
	NamespaceVersions     Namespace = "versions"
	NamespaceLoaderFields Namespace = "loader_fields"
	NamespaceThreads      Namespace = "threads"
)

// DefaultTTL bounds how stale a cached read may be; WithTTL replaces it
// for every namespace of a Cache.
const DefaultTTL = 5 * time.Minute

// Backend is the storage substrate Cache is built on: either an in-memory
// map (dev/tests) or Redis (production).
type Backend interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key string, value string, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// Cache is the namespaced write-through layer in front of the Store.
type Cache struct {
	backend Backend
	ttl     time.Duration
}

func New(backend Backend) *Cache {
	return &Cache{backend: backend, ttl: DefaultTTL}
}

func (c *Cache) WithTTL(ttl time.Duration) *Cache {
	c.ttl = ttl
	return c
}

func namespacedKey(ns Namespace, key string) string {
	return fmt.Sprintf("%s:%s", ns, key)
}

// FillFunc is the batched loader get_cached_keys invokes for cache misses;
// it is handed the subset of requested keys that missed and returns their
// values, keyed the same way (missing map entries mean "does not exist").
type FillFunc func(ctx context.Context, missingKeys []string) (map[string][]byte, error)

// GetCachedKeys returns a value per requested key, invoking fill once as a
// batched loader for every key that misses, and writing the loaded values
// back with the bounded TTL. A cache read failure degrades to treating
// every key as a miss rather than failing the caller — cache failures on a
// read path degrade to a Store hit, they never surface to the caller.
func (c *Cache) GetCachedKeys(ctx context.Context, ns Namespace, keys []string, fill FillFunc) (map[string][]byte, error) {
	result := make(map[string][]byte, len(keys))
	var missing []string

	for _, k := range keys {
		raw, ok, err := c.backend.Get(ctx, namespacedKey(ns, k))
		if err != nil || !ok {
			missing = append(missing, k)
			continue
		}
		var v []byte
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			missing = append(missing, k)
			continue
		}
		result[k] = v
	}

	if len(missing) == 0 {
		return result, nil
	}

	loaded, err := fill(ctx, missing)
	if err != nil {
		return nil, err
	}
	for k, v := range loaded {
		result[k] = v
		encoded, err := json.Marshal(v)
		if err != nil {
			continue
		}
		// Best-effort: a failed write-back degrades to an uncached read
		// next time, it never fails the request that just loaded the value.
		_ = c.backend.Set(ctx, namespacedKey(ns, k), string(encoded), c.ttl)
	}
	return result, nil
}

// Put writes a single value through to the backend, bypassing the
// get_cached_keys batching path — used when a service already has the
// freshly-mutated aggregate in hand and wants to seed the cache instead of
// forcing the next reader to miss.
func (c *Cache) Put(ctx context.Context, ns Namespace, key string, value []byte) error {
	encoded, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.backend.Set(ctx, namespacedKey(ns, key), string(encoded), c.ttl)
}

// Invalidate removes every given key synchronously. The
// caller is responsible for passing every alias key for the entity (id and
// slug, id and username, etc) — Cache itself has no notion of which
// namespaces alias which entity; callers build that list themselves (see
// Alias and InvalidateAliases below).
func (c *Cache) Invalidate(ctx context.Context, ns Namespace, keys ...string) error {
	full := make([]string, len(keys))
	for i, k := range keys {
		full[i] = namespacedKey(ns, k)
	}
	return c.backend.Delete(ctx, full...)
}

// Alias pairs a namespace and key for multi-namespace invalidation fan-out.
type Alias struct {
	Namespace Namespace
	Key       string
}

// InvalidateAliases fans an entity mutation out across every namespace that
// caches a copy of it and every entity whose cached aggregate embeds a copy
// of the mutated field (e.g. a project slug change invalidates both
// `projects` and `project_slugs`; a team roster change invalidates `teams`
// plus any `projects`/`organizations` aggregate entries that embed it).
func (c *Cache) InvalidateAliases(ctx context.Context, aliases ...Alias) error {
	byNamespace := make(map[Namespace][]string)
	for _, a := range aliases {
		byNamespace[a.Namespace] = append(byNamespace[a.Namespace], a.Key)
	}
	for ns, keys := range byNamespace {
		if err := c.Invalidate(ctx, ns, keys...); err != nil {
			return err
		}
	}
	return nil
}
