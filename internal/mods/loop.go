package mods

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quasar/mclauncher-core/internal/api"
)

// targetSelector tracks what the two remote enrichment loops are
// currently watching — a "backend override" (a specific instance a
// caller is awaiting completion for) takes priority over the ambient
// "priority" instance (the one currently focused in the UI) — plus the
// "waiting set" of instance ids queued for a local scan. Every mutation
// notifies watchers so the loops react without polling, per spec.md
// §4.5's lock-notify channel description.
type targetSelector struct {
	mu       sync.Mutex
	override *int64
	priority *int64
	waiting  map[int64]struct{}

	subMu sync.Mutex
	subs  map[chan struct{}]struct{}
}

func newTargetSelector() *targetSelector {
	return &targetSelector{
		waiting: make(map[int64]struct{}),
		subs:    make(map[chan struct{}]struct{}),
	}
}

// Current returns the instance id remote enrichment should be working
// on, preferring a backend override over the ambient priority instance.
func (s *targetSelector) Current() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.override != nil {
		return *s.override, true
	}
	if s.priority != nil {
		return *s.priority, true
	}
	return 0, false
}

// SetOverride pins instanceID as the backend override until ClearOverride
// is called.
func (s *targetSelector) SetOverride(instanceID int64) {
	s.mu.Lock()
	id := instanceID
	s.override = &id
	s.mu.Unlock()
	s.notify()
}

// ClearOverride releases the backend override, falling back to the
// ambient priority instance if one is set.
func (s *targetSelector) ClearOverride() {
	s.mu.Lock()
	s.override = nil
	s.mu.Unlock()
	s.notify()
}

// SetPriority updates the ambient focused instance the loops watch when
// no override is pinned.
func (s *targetSelector) SetPriority(instanceID int64) {
	s.mu.Lock()
	id := instanceID
	s.priority = &id
	s.mu.Unlock()
	s.notify()
}

// Enqueue adds instanceID to the local scan loop's waiting set.
func (s *targetSelector) Enqueue(instanceID int64) {
	s.mu.Lock()
	s.waiting[instanceID] = struct{}{}
	s.mu.Unlock()
	s.notify()
}

// DrainWaiting empties and returns the waiting set, the way the local
// scan loop claims its next batch of work when it wakes.
func (s *targetSelector) DrainWaiting() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.waiting))
	for id := range s.waiting {
		ids = append(ids, id)
	}
	s.waiting = make(map[int64]struct{})
	return ids
}

// Watch subscribes to target changes. The returned channel is buffered
// by one and notifications are dropped, never blocked, if the reader is
// behind — a loop only cares that something changed, not by how much.
func (s *targetSelector) Watch() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()
	cancel := func() {
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *targetSelector) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// enrichFunc is the shape both platform enrichers expose, letting
// remoteLoop drive either one identically.
type enrichFunc func(ctx context.Context, now nowFunc, rows []*ModMetadata) error

// remoteLoop drives one platform's enrichment continuously against
// whatever instance the shared targetSelector currently names. It
// implements spec.md §4.5's "interrupting variant": when the watched
// target changes to a different instance mid-run, the in-flight pass is
// aborted and restarted against the new target; when the target still
// names the instance already in flight, the current run is left to
// finish rather than being torn down early.
type remoteLoop struct {
	selector *targetSelector
	rowsFor  func(instanceID int64) []*ModMetadata
	enrich   enrichFunc
	now      nowFunc
}

func newRemoteLoop(selector *targetSelector, rowsFor func(int64) []*ModMetadata, enrich enrichFunc, now nowFunc) *remoteLoop {
	if now == nil {
		now = time.Now
	}
	return &remoteLoop{selector: selector, rowsFor: rowsFor, enrich: enrich, now: now}
}

// Run blocks driving the loop until ctx is cancelled.
func (l *remoteLoop) Run(ctx context.Context) error {
	watch, cancelWatch := l.selector.Watch()
	defer cancelWatch()

	var (
		running   bool
		runTarget int64
		runCancel context.CancelFunc
		runDone   chan struct{}
	)

	stop := func() {
		if !running {
			return
		}
		runCancel()
		<-runDone
		running = false
	}
	defer stop()

	start := func(instanceID int64) {
		runCtx, cancel := context.WithCancel(ctx)
		done := make(chan struct{})
		running, runTarget, runCancel, runDone = true, instanceID, cancel, done
		go func() {
			defer close(done)
			_ = l.enrich(runCtx, l.now, l.rowsFor(instanceID))
		}()
	}

	for {
		switch id, ok := l.selector.Current(); {
		case !ok:
			stop()
		case !running:
			start(id)
		case id != runTarget:
			stop()
			start(id)
		}

		var doneCh chan struct{}
		if running {
			doneCh = runDone
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-watch:
		case <-doneCh:
			running = false
		}
	}
}

// Cache is the Mod Metadata Cache's top-level coordinator: it owns the
// local scan loop, one remote enrichment loop per platform, and the icon
// loop, tying them together through a shared targetSelector per spec.md
// §4.5's three-loop architecture.
type Cache struct {
	store      *Store
	selector   *targetSelector
	modsDirFor func(instanceID int64) string

	curseforge *CurseForgeEnricher
	modrinth   *ModrinthEnricher
	icons      *IconFetcher
	now        nowFunc
}

// NewCache wires a Cache over an existing Store. modsDirFor resolves an
// instance id to its mods directory on disk, the way the caller's
// instance manager already knows instance layout.
func NewCache(store *Store, modsDirFor func(int64) string, cf *api.CurseForgeClient, mr *api.ModrinthClient, httpClient *http.Client, now nowFunc) *Cache {
	if now == nil {
		now = time.Now
	}
	return &Cache{
		store:      store,
		selector:   newTargetSelector(),
		modsDirFor: modsDirFor,
		curseforge: NewCurseForgeEnricher(cf, store),
		modrinth:   NewModrinthEnricher(mr, store),
		icons:      NewIconFetcher(httpClient),
		now:        now,
	}
}

// Focus sets the ambient priority instance both remote loops and the
// icon loop watch, and enqueues it for an immediate local scan. The
// priority is published first, so the remote loops start enriching the
// instance's currently stored rows at once; they do not wait for the
// local scan to finish.
func (c *Cache) Focus(instanceID int64) {
	c.selector.SetPriority(instanceID)
	c.selector.Enqueue(instanceID)
}

// Await pins instanceID as the backend override, preempting any
// non-priority in-flight enrichment, until the returned func is called.
// Callers that need a specific instance's enrichment to complete (e.g.
// before listing its mods) call this and defer the returned release.
func (c *Cache) Await(instanceID int64) (release func()) {
	c.selector.Enqueue(instanceID)
	c.selector.SetOverride(instanceID)
	return c.selector.ClearOverride
}

// Run blocks driving the scan loop, both remote enrichment loops, and
// the icon loop until ctx is cancelled or one of them returns a non-nil
// error (e.g. the context itself being cancelled).
func (c *Cache) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return c.runScanLoop(ctx) })
	eg.Go(func() error {
		return newRemoteLoop(c.selector, c.store.MetadataForInstance, c.curseforge.EnrichPending, c.now).Run(ctx)
	})
	eg.Go(func() error {
		return newRemoteLoop(c.selector, c.store.MetadataForInstance, c.modrinth.EnrichPending, c.now).Run(ctx)
	})
	eg.Go(func() error { return c.runIconLoop(ctx) })
	return eg.Wait()
}

// runScanLoop is the local scan loop: woken by the waiting set, it scans
// each queued instance's mods directory and leaves unscannable ids for
// the next wake rather than dropping them.
func (c *Cache) runScanLoop(ctx context.Context) error {
	watch, cancel := c.selector.Watch()
	defer cancel()

	for {
		for _, id := range c.selector.DrainWaiting() {
			if _, err := ScanInstance(c.store, id, c.modsDirFor(id)); err != nil {
				c.selector.Enqueue(id)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-watch:
		}
	}
}

// runIconLoop processes shadows whose logo isn't up to date for whatever
// instance is currently watched, re-running whenever the target changes.
func (c *Cache) runIconLoop(ctx context.Context) error {
	watch, cancel := c.selector.Watch()
	defer cancel()

	for {
		if id, ok := c.selector.Current(); ok {
			for _, m := range c.store.MetadataForInstance(id) {
				c.refreshIcons(ctx, m)
			}
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-watch:
		}
	}
}

func (c *Cache) refreshIcons(ctx context.Context, m *ModMetadata) {
	if m.CurseForge != nil && m.CurseForge.Logo.URL != "" && !m.CurseForge.Logo.UpToDate {
		c.icons.RefreshLogo(ctx, &m.CurseForge.Logo, m.CurseForge.Logo.URL)
	}
	if m.Modrinth != nil && m.Modrinth.Logo.URL != "" && !m.Modrinth.Logo.UpToDate {
		c.icons.RefreshLogo(ctx, &m.Modrinth.Logo, m.Modrinth.Logo.URL)
	}
}
