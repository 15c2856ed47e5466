// Package outbox implements IndexHook/Outbox: a
// per-transaction queue of search-index and webhook side effects that
// becomes visible only on commit, flushed to an external search-indexer
// collaborator at-most-once-per-commit, best-effort.
//
// Delivery is throttled with golang.org/x/time/rate's token-bucket
// limiter, applied to outbound delivery to the search indexer. The inbound
// API rate limiter in internal/middleware is a separate Redis sliding
// window and does not use this package.
package outbox

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/modhub/platform/internal/domain/project"
	"github.com/modhub/platform/internal/domain/version"
	"github.com/modhub/platform/internal/idcodec"
)

// RecordKind distinguishes what changed, so a Sink can decide how to
// re-index without re-deriving it from the payload.
type RecordKind string

const (
	KindProjectUpserted RecordKind = "project_upserted"
	KindProjectDeleted  RecordKind = "project_deleted"
	KindVersionUpserted RecordKind = "version_upserted"
	KindVersionDeleted  RecordKind = "version_deleted"
	KindWebhook         RecordKind = "webhook"
)

// Record is one outbox entry. ProjectID is always populated (the indexer
// is expected to be idempotent by project id); Payload carries kind-specific
// data a Sink may use (e.g. the webhook event name).
type Record struct {
	Kind      RecordKind
	ProjectID idcodec.ProjectID
	VersionID *idcodec.VersionID
	Payload   map[string]any
	EnqueuedAt time.Time
}

// Sink is the external search-indexer/webhook collaborator outbox records
// are flushed to. Expected to be idempotent by project id.
type Sink interface {
	Index(ctx context.Context, records []Record) error
}

// Outbox buffers records for the lifetime of a single request/transaction;
// a fresh Outbox is created per mutation and handed to Flush only after its
// Store transaction commits.
type Outbox struct {
	mu      sync.Mutex
	records []Record
}

func New() *Outbox { return &Outbox{} }

func (o *Outbox) append(r Record) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.records = append(o.records, r)
}

// RecordProjectUpserted enqueues a re-index for a project whose searchable
// fields changed (name, summary, categories, status).
func (o *Outbox) RecordProjectUpserted(p *project.Project) {
	o.append(Record{Kind: KindProjectUpserted, ProjectID: p.ID(), Payload: map[string]any{
		"name":       p.Name(),
		"summary":    p.Summary(),
		"status":     p.Status(),
		"categories": p.PrimaryCategories(),
	}})
}

func (o *Outbox) RecordProjectDeleted(id idcodec.ProjectID) {
	o.append(Record{Kind: KindProjectDeleted, ProjectID: id})
}

// RecordVersionUpserted enqueues a re-index for a new/removed version or a
// loader-field change.
func (o *Outbox) RecordVersionUpserted(projectID idcodec.ProjectID, v *version.Version) {
	vid := v.ID()
	o.append(Record{Kind: KindVersionUpserted, ProjectID: projectID, VersionID: &vid, Payload: map[string]any{
		"version_number": v.VersionNumber(),
		"loaders":        v.Loaders(),
		"status":         v.Status(),
	}})
}

func (o *Outbox) RecordVersionDeleted(projectID idcodec.ProjectID, versionID idcodec.VersionID) {
	o.append(Record{Kind: KindVersionDeleted, ProjectID: projectID, VersionID: &versionID})
}

// RecordWebhook enqueues a moderation-event webhook, queued the same way
// as index records.
func (o *Outbox) RecordWebhook(projectID idcodec.ProjectID, event string, payload map[string]any) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["event"] = event
	o.append(Record{Kind: KindWebhook, ProjectID: projectID, Payload: payload})
}

// Records returns a snapshot of the buffered entries; Flusher reads this
// after the caller's transaction commits.
func (o *Outbox) Records() []Record {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Record, len(o.records))
	copy(out, o.records)
	return out
}

// Flusher delivers committed outboxes to a Sink, throttled so a burst of
// commits never overwhelms the search indexer. Delivery is best-effort:
// failures are handed to onError and never propagated back to the request
// that produced the records; a failed batch is not retried.
type Flusher struct {
	sink    Sink
	limiter *rate.Limiter
	onError func(err error, records []Record)
}

// NewFlusher constructs a Flusher throttled to rps requests per second with
// the given burst allowance, a token bucket applied to outbound indexer
// calls.
func NewFlusher(sink Sink, rps float64, burst int, onError func(err error, records []Record)) *Flusher {
	return &Flusher{
		sink:    sink,
		limiter: rate.NewLimiter(rate.Limit(rps), burst),
		onError: onError,
	}
}

// Flush waits for the rate limiter's turn, then delivers the outbox's
// records. Call this only after the Outbox's originating transaction has
// committed.
func (f *Flusher) Flush(ctx context.Context, o *Outbox) {
	records := o.Records()
	if len(records) == 0 {
		return
	}
	if err := f.limiter.Wait(ctx); err != nil {
		if f.onError != nil {
			f.onError(err, records)
		}
		return
	}
	if err := f.sink.Index(ctx, records); err != nil && f.onError != nil {
		f.onError(err, records)
	}
}

// FlushAsync runs Flush on a background goroutine so the caller's response
// is never blocked on indexer delivery.
func (f *Flusher) FlushAsync(ctx context.Context, o *Outbox) {
	go f.Flush(ctx, o)
}
