// Package refresh coordinates one progressive refresh cycle: hydrate
// from cache, try the snapshot fast path once for all categories, and
// only if that fails run a bounded direct-fetch pool. Progress is
// reported as events on a channel the caller drains; emission never
// blocks the cycle.
package refresh

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"pulso/internal/cache"
	"pulso/internal/dedupe"
	"pulso/internal/logging"
	"pulso/internal/news"
	"pulso/internal/snapshot"
	"pulso/internal/sources"
)

// EventKind tags a refresh progress event.
type EventKind string

const (
	EventCached     EventKind = "cached-category"
	EventFresh      EventKind = "fresh-category"
	EventError      EventKind = "category-error"
	EventCheckpoint EventKind = "checkpoint-update"
)

// Event is one progress notification from a refresh cycle. The fields
// populated depend on Kind: Items/Stale/Origin for cached, Items for
// fresh, Err for error, Watermark for checkpoint updates.
type Event struct {
	Kind      EventKind
	Category  news.Category
	Items     []news.Item
	Stale     bool
	Origin    cache.Origin
	Watermark int64
	Err       error
}

// CategoryFetcher is the direct-fetch fallback path.
type CategoryFetcher interface {
	FetchCategory(ctx context.Context, category news.Category) ([]news.Item, error)
}

// SnapshotClient is the delta-sync fast path.
type SnapshotClient interface {
	FetchSnapshot(ctx context.Context, categories []news.Category, sinceByCategory map[news.Category]int64) (*snapshot.Response, error)
}

// CheckpointStore persists per-category watermarks for a client.
type CheckpointStore interface {
	Checkpoints(client string) map[news.Category]int64
	SaveCheckpoints(client string, checkpoints map[news.Category]int64) error
}

const (
	defaultConcurrency = 3
	defaultTTL         = 10 * time.Minute
	eventBuffer        = 64
)

// Orchestrator drives refresh cycles. Snapshot and Checkpoints are
// optional; a nil snapshot client disables the fast path and a nil
// checkpoint store makes watermarks cycle-local.
type Orchestrator struct {
	Registry    *sources.Registry
	Cache       *cache.Cache
	Fetcher     CategoryFetcher
	Snapshot    SnapshotClient
	Checkpoints CheckpointStore

	// Client identifies this consumer's checkpoint namespace.
	Client string

	// TTL applies to cache entries written during the cycle.
	TTL time.Duration

	// Concurrency bounds the fallback pool. Clamped per cycle to
	// [1, len(categories)]; zero means the default of 3.
	Concurrency int
}

// Refresh runs one cycle for the given categories and returns the event
// channel. Caller-supplied watermark overrides win over persisted
// checkpoints. The channel is closed when the cycle completes; events
// that find the buffer full are dropped rather than blocking.
func (o *Orchestrator) Refresh(ctx context.Context, categories []news.Category, overrides map[news.Category]int64) <-chan Event {
	events := make(chan Event, eventBuffer)
	go func() {
		defer close(events)
		o.run(ctx, categories, overrides, events)
	}()
	return events
}

func (o *Orchestrator) run(ctx context.Context, categories []news.Category, overrides map[news.Category]int64, events chan<- Event) {
	cycle := uuid.NewString()[:8]
	now := time.Now()
	ttl := o.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	// Hydrate: paint whatever the cache already has, no network.
	working := make(map[news.Category][]news.Item, len(categories))
	signatures := make(map[news.Category]string, len(categories))
	for _, cat := range categories {
		sig := o.Registry.Signature(cat)
		signatures[cat] = sig
		if entry := o.Cache.Get(cat, sig); entry.Origin != cache.OriginMiss {
			working[cat] = entry.Items
			emit(events, Event{
				Kind:     EventCached,
				Category: cat,
				Items:    entry.Items,
				Stale:    entry.Stale,
				Origin:   entry.Origin,
			})
		}
	}

	since := make(map[news.Category]int64, len(categories))
	if o.Checkpoints != nil {
		for cat, wm := range o.Checkpoints.Checkpoints(o.Client) {
			since[cat] = wm
		}
	}
	for cat, wm := range overrides {
		since[cat] = wm
	}

	next := make(map[news.Category]int64)

	// Fast path: one batched snapshot request for everything. Any
	// failure falls through to direct fetching; success skips it.
	if o.Snapshot != nil {
		resp, err := o.Snapshot.FetchSnapshot(ctx, categories, since)
		if err == nil {
			for _, cat := range categories {
				merged := dedupe.Merge(working[cat], resp.Categories[cat], now)
				o.Cache.Set(cat, signatures[cat], merged, ttl)
				emit(events, Event{Kind: EventFresh, Category: cat, Items: merged})
				if cp := snapshot.NextCheckpoint(resp.Checkpoints[cat], merged); cp > 0 {
					next[cat] = cp
					emit(events, Event{Kind: EventCheckpoint, Category: cat, Watermark: cp})
				}
			}
			o.persist(next, cycle)
			logging.Info("refresh complete via snapshot", "cycle", cycle, "categories", len(categories))
			return
		}
		logging.Warn("snapshot fast path failed, falling back", "cycle", cycle, "error", err)
	}

	// Fallback: bounded pool of direct category fetches. One category
	// failing is reported and does not touch its siblings.
	limit := o.Concurrency
	if limit <= 0 {
		limit = defaultConcurrency
	}
	if limit > len(categories) {
		limit = len(categories)
	}
	if limit < 1 {
		limit = 1
	}

	var mu sync.Mutex
	g := new(errgroup.Group)
	g.SetLimit(limit)
	for _, cat := range categories {
		g.Go(func() error {
			items, err := o.Fetcher.FetchCategory(ctx, cat)
			if err != nil {
				logging.Warn("category fetch failed", "cycle", cycle, "category", cat, "error", err)
				emit(events, Event{Kind: EventError, Category: cat, Err: err})
				return nil
			}

			mu.Lock()
			merged := dedupe.Merge(working[cat], items, now)
			working[cat] = merged
			cp := snapshot.NextCheckpoint(0, merged)
			if cp > 0 {
				next[cat] = cp
			}
			mu.Unlock()

			o.Cache.Set(cat, signatures[cat], merged, ttl)
			emit(events, Event{Kind: EventFresh, Category: cat, Items: merged})
			if cp > 0 {
				emit(events, Event{Kind: EventCheckpoint, Category: cat, Watermark: cp})
			}
			return nil
		})
	}
	g.Wait()

	o.persist(next, cycle)
	logging.Info("refresh complete via direct fetch", "cycle", cycle, "categories", len(categories))
}

// persist writes the cycle's accumulated checkpoints in one batch.
// Best-effort: checkpoints are an optimization.
func (o *Orchestrator) persist(next map[news.Category]int64, cycle string) {
	if o.Checkpoints == nil || len(next) == 0 {
		return
	}
	if err := o.Checkpoints.SaveCheckpoints(o.Client, next); err != nil {
		logging.Warn("checkpoint save failed", "cycle", cycle, "error", err)
	}
}

// emit performs a non-blocking send. A slow consumer loses events
// rather than stalling the refresh.
func emit(events chan<- Event, e Event) {
	select {
	case events <- e:
	default:
	}
}
