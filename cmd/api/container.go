package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	apporganization "github.com/modhub/platform/internal/application/organization"
	appproject "github.com/modhub/platform/internal/application/project"
	appteam "github.com/modhub/platform/internal/application/team"
	appthread "github.com/modhub/platform/internal/application/thread"
	appversion "github.com/modhub/platform/internal/application/version"
	"github.com/modhub/platform/internal/application/common"
	"github.com/modhub/platform/internal/blob"
	"github.com/modhub/platform/internal/cache"
	"github.com/modhub/platform/internal/config"
	"github.com/modhub/platform/internal/handlers"
	"github.com/modhub/platform/internal/idcodec"
	"github.com/modhub/platform/internal/infrastructure/services"
	appmiddleware "github.com/modhub/platform/internal/middleware"
	"github.com/modhub/platform/internal/outbox"
	"github.com/modhub/platform/internal/permission"
	"github.com/modhub/platform/internal/principal"
	"github.com/modhub/platform/internal/search"
	"github.com/modhub/platform/internal/store"
	"github.com/modhub/platform/internal/vocabcache"
)

// Container wires every collaborator the HTTP layer needs: stores,
// caches, the permission/principal resolvers, the five application
// services, and the handlers built on top of them.
type Container struct {
	Config *config.Config
	Store  *store.Store
	Logger common.Logger

	Cache      *cache.Cache
	VocabCache *vocabcache.Cache
	Search     search.Indexer
	Blob       blob.Host
	Outbox     *outbox.Flusher

	PermissionResolver *permission.Resolver
	PrincipalResolver   *principal.Resolver
	PrincipalMiddleware *appmiddleware.PrincipalMiddleware
	RateLimiter         *appmiddleware.RateLimiter

	TeamHandler         *handlers.TeamHandler
	OrganizationHandler *handlers.OrganizationHandler
	ProjectHandler      *handlers.ProjectHandler
	VersionHandler      *handlers.VersionHandler
	ThreadHandler       *handlers.ThreadHandler
}

// NewContainer builds every collaborator in dependency order: the cache
// and rate limiter, then the stores, the vocabulary cache, blob host and
// search/outbox, then the principal and permission resolvers, then the
// application services, then the HTTP handlers.
func NewContainer(cfg *config.Config, db *store.Store) (*Container, error) {
	c := &Container{Config: cfg, Store: db, Logger: services.NewLogger()}

	if err := c.initializeCaches(); err != nil {
		return nil, fmt.Errorf("cache initialization failed: %w", err)
	}
	c.initializeRateLimiter()
	stores := c.initializeStores()
	if err := c.initializeVocabCache(stores); err != nil {
		return nil, fmt.Errorf("vocab cache initialization failed: %w", err)
	}
	c.initializeBlob()
	c.initializeSearchAndOutbox(stores)
	if err := c.initializePrincipal(stores); err != nil {
		return nil, fmt.Errorf("principal resolver initialization failed: %w", err)
	}
	c.initializePermission(stores)

	useCases := c.initializeUseCases(stores)
	c.initializeHandlers(stores, useCases)

	c.Logger.Info("container initialized successfully")
	return c, nil
}

type entityStores struct {
	projects       *store.ProjectStore
	projectFollows *store.ProjectFollowStore
	teams          *store.TeamStore
	members        *store.TeamMemberStore
	organizations  *store.OrganizationStore
	versions       *store.VersionStore
	threads        *store.ThreadStore
	users          *store.UserStore
	vocab          *store.VocabStore
	seq            *store.SequenceAllocator
}

func (c *Container) initializeStores() entityStores {
	return entityStores{
		projects:       store.NewProjectStore(c.Store),
		projectFollows: store.NewProjectFollowStore(c.Store),
		teams:          store.NewTeamStore(c.Store),
		members:        store.NewTeamMemberStore(c.Store),
		organizations:  store.NewOrganizationStore(c.Store),
		versions:       store.NewVersionStore(c.Store),
		threads:        store.NewThreadStore(c.Store),
		users:          store.NewUserStore(c.Store),
		vocab:          store.NewVocabStore(c.Store),
		seq:            store.NewSequenceAllocator(c.Store),
	}
}

func (c *Container) initializeCaches() error {
	if c.Config.Cache.Addr != "" {
		backend, err := cache.NewRedisBackend(c.Config.Cache.Addr, c.Config.Cache.Password, 0)
		if err != nil {
			c.Logger.Warn("redis cache unavailable, falling back to in-memory cache", "error", err)
			c.Cache = cache.New(cache.NewMemoryBackend())
			return nil
		}
		c.Cache = cache.New(backend)
		return nil
	}
	c.Cache = cache.New(cache.NewMemoryBackend())
	return nil
}

// initializeRateLimiter connects a dedicated Redis client for the sliding
// window counters; degrades to a nil RateLimiter (router skips the
// middleware) when Redis is unreachable, matching initializeCaches'
// fallback posture.
func (c *Container) initializeRateLimiter() {
	client := redis.NewClient(&redis.Options{Addr: c.Config.Cache.Addr, Password: c.Config.Cache.Password})
	if err := client.Ping(context.Background()).Err(); err != nil {
		c.Logger.Warn("redis rate limiter unavailable, rate limiting disabled", "error", err)
		return
	}
	c.RateLimiter = appmiddleware.NewRateLimiter(client, c.Logger)
}

func (c *Container) initializeVocabCache(s entityStores) error {
	c.VocabCache = vocabcache.New(s.vocab)
	return c.VocabCache.Load(context.Background())
}

// initializeBlob wires the local-disk Host; an S3-compatible Host selected
// by BLOB_PUBLIC_BUCKET/BLOB_PRIVATE_BUCKET is a deployment-time swap this
// constructor does not need to make.
func (c *Container) initializeBlob() {
	c.Blob = blob.NewLocalDiskHost("./data/blobs", c.Config.CDNURL, c.Config.SelfAddr+"/raw")
}

func (c *Container) initializeSearchAndOutbox(s entityStores) {
	indexer := search.NewMemoryIndexer()
	c.Search = indexer

	resolve := func(ctx context.Context, id idcodec.ProjectID) (search.ProjectAggregate, error) {
		p, err := s.projects.FindByID(ctx, id)
		if err != nil {
			return search.ProjectAggregate{}, err
		}
		if p == nil {
			return search.ProjectAggregate{}, nil
		}
		categories := make([]string, 0, len(p.PrimaryCategories()))
		for _, id := range p.PrimaryCategories() {
			categories = append(categories, id.String())
		}
		return search.ProjectAggregate{
			ProjectID:  p.ID(),
			Slug:       p.Slug(),
			Name:       p.Name(),
			Summary:    p.Summary(),
			Categories: categories,
			Status:     string(p.Status()),
			Downloads:  p.Downloads(),
			Follows:    p.Follows(),
		}, nil
	}
	sink := outbox.NewSearchSink(indexer, resolve)
	c.Outbox = outbox.NewFlusher(sink, float64(c.Config.RateLimit.RequestsPerSecond), c.Config.RateLimit.Burst, func(err error, records []outbox.Record) {
		c.Logger.Error("outbox flush failed", "error", err, "record_count", len(records))
	})
}

// noopRevocations never reports a credential revoked; session/PAT/OAuth
// revocation bookkeeping is not part of this service's scope.
type noopRevocations struct{}

func (noopRevocations) IsRevoked(ctx context.Context, jti string) (bool, error) { return false, nil }

func (c *Container) initializePrincipal(s entityStores) error {
	c.PrincipalResolver = principal.NewResolver(c.Config.Security.JWTAccessSecret, s.users, noopRevocations{}, store.NewPersonalAccessTokenStore(c.Store))
	c.PrincipalMiddleware = appmiddleware.NewPrincipalMiddleware(c.PrincipalResolver)
	return nil
}

// organizationTeamResolver adapts organization.Repository to
// permission.OrganizationTeamResolver.
type organizationTeamResolver struct {
	orgs *store.OrganizationStore
}

func (r organizationTeamResolver) OrganizationTeamID(ctx context.Context, orgID idcodec.OrganizationID) (idcodec.TeamID, error) {
	org, err := r.orgs.FindByID(ctx, orgID)
	if err != nil {
		return 0, err
	}
	if org == nil {
		return 0, nil
	}
	return org.TeamID(), nil
}

func (c *Container) initializePermission(s entityStores) {
	c.PermissionResolver = permission.NewResolver(s.members).WithOrganizations(organizationTeamResolver{orgs: s.organizations})
}

type useCases struct {
	team         *appteam.Service
	organization *apporganization.Service
	project      *appproject.Service
	version      *appversion.Service
	thread       *appthread.Service
}

func (c *Container) initializeUseCases(s entityStores) useCases {
	return useCases{
		team:         appteam.NewService(s.teams, s.members, s.organizations, c.PermissionResolver, c.Cache, c.Store, c.Logger),
		organization: apporganization.NewService(s.organizations, s.projects, s.teams, s.members, s.seq, c.PermissionResolver, c.Cache, c.Store, c.Logger),
		project:      appproject.NewService(s.projects, s.versions, s.teams, s.members, s.projectFollows, c.PermissionResolver, c.Cache, c.Outbox, c.Logger),
		version:      appversion.NewService(s.versions, s.projects, c.VocabCache, c.Blob, c.Cache, c.Outbox, c.Store, c.Logger),
		thread:       appthread.NewService(s.threads, c.Cache, c.Logger),
	}
}

func (c *Container) initializeHandlers(s entityStores, u useCases) {
	c.TeamHandler = handlers.NewTeamHandler(s.members, u.team)
	c.OrganizationHandler = handlers.NewOrganizationHandler(s.organizations, s.projects, s.members, u.organization, c.PermissionResolver)
	c.ProjectHandler = handlers.NewProjectHandler(s.projects, s.members, u.project, c.PermissionResolver)
	c.VersionHandler = handlers.NewVersionHandler(s.versions, s.projects, u.version, c.PermissionResolver, s.seq)
	c.ThreadHandler = handlers.NewThreadHandler(s.threads, s.projects, s.versions, u.thread, c.PermissionResolver, s.seq)
}
