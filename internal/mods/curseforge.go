package mods

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/quasar/mclauncher-core/internal/api"
)

// nowFunc lets tests supply a deterministic clock for backoff checks.
type nowFunc func() time.Time

// curseforgeBatchSize is the largest fingerprint batch CurseForge's
// /fingerprints endpoint accepts in one request, per spec.md §4.5.
const curseforgeBatchSize = 1000

// CurseForgeEnricher resolves unrecognized local mod jars against
// CurseForge's fingerprint-match endpoint and keeps their CurseForgeShadow
// up to date, backing off per metadata row on repeated failure.
type CurseForgeEnricher struct {
	client  *api.CurseForgeClient
	store   *Store
	backoff *backoffSet
}

func NewCurseForgeEnricher(client *api.CurseForgeClient, store *Store) *CurseForgeEnricher {
	return &CurseForgeEnricher{client: client, store: store, backoff: newBackoffSet()}
}

// EnrichPending fingerprint-matches every metadata row lacking a
// CurseForgeShadow (or whose shadow is stale), batching up to 1000
// fingerprints per request. Rows currently backed off are skipped.
func (e *CurseForgeEnricher) EnrichPending(ctx context.Context, now nowFunc, rows []*ModMetadata) error {
	var pending []*ModMetadata
	for _, m := range rows {
		if m.CurseForge != nil && !stale(m.CurseForge.CachedAt, now()) {
			continue
		}
		if !e.backoff.Ready(m.SHA512, now()) {
			continue
		}
		pending = append(pending, m)
	}
	if len(pending) == 0 {
		return nil
	}

	var firstErr error
	var mu sync.Mutex

	for start := 0; start < len(pending); start += curseforgeBatchSize {
		end := start + curseforgeBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		fingerprints := make([]int64, len(batch))
		byFingerprint := make(map[int64]*ModMetadata, len(batch))
		for i, m := range batch {
			fingerprints[i] = int64(m.Murmur2)
			byFingerprint[int64(m.Murmur2)] = m
		}

		matches, err := e.client.GetFingerprintMatches(ctx, fingerprints)
		if err != nil {
			mu.Lock()
			if firstErr == nil {
				firstErr = fmt.Errorf("fingerprint matching: %w", err)
			}
			mu.Unlock()
			for _, m := range batch {
				e.backoff.Fail(m.SHA512, now())
			}
			continue
		}

		matched := make(map[int64]bool, len(matches))
		for _, fm := range matches {
			m, ok := byFingerprint[int64(fm.File.FileFingerprint)]
			if !ok {
				continue
			}
			matched[int64(fm.File.FileFingerprint)] = true

			shadow := m.CurseForge
			if shadow == nil {
				shadow = &CurseForgeShadow{}
			}
			shadow.ProjectID = fm.File.ModID
			shadow.FileID = fm.File.ID
			shadow.Channel = curseForgeChannel(fm.File.ReleaseType)
			shadow.CachedAt = now()
			if mod, err := e.client.GetMod(ctx, fm.File.ModID); err == nil {
				shadow.UpdatePath = EncodeUpdatePath(curseForgeUpdateEntries(mod.LatestFiles))
				if mod.Logo != nil {
					shadow.Logo.URL = mod.Logo.URL
				}
			}
			m.CurseForge = shadow

			e.store.PutMetadata(m)
			e.backoff.Succeed(m.SHA512)
		}
		for fp, m := range byFingerprint {
			if !matched[fp] {
				e.backoff.Fail(m.SHA512, now())
			}
		}
	}

	return firstErr
}

// RunLoop enriches the given rows with a bounded goroutine pool (mirrors
// the example pack's errgroup+SetLimit pattern for dependency hydration),
// one batch request in flight per logical shard at a time.
func (e *CurseForgeEnricher) RunLoop(ctx context.Context, now nowFunc, shards [][]*ModMetadata) error {
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(4)
	for _, shard := range shards {
		eg.Go(func() error {
			return e.EnrichPending(ctx, now, shard)
		})
	}
	return eg.Wait()
}

// curseForgeLoaderTokens recognizes the loader names CurseForge mixes
// into a file's gameVersions array. Per spec.md §9's design note, this
// heuristic ("if it parses as a known loader name it is a loader") is
// preserved as-is even though it's fragile against future loader names.
var curseForgeLoaderTokens = map[string]string{
	"forge":      "forge",
	"fabric":     "fabric",
	"quilt":      "quilt",
	"neoforge":   "neoforge",
	"liteloader": "liteloader",
	"rift":       "rift",
}

// curseForgeChannel maps CurseForge's releaseType integer to a Channel.
func curseForgeChannel(releaseType int) Channel {
	switch releaseType {
	case 2:
		return ChannelBeta
	case 3:
		return ChannelAlpha
	default:
		return ChannelStable
	}
}

// curseForgeUpdateEntries builds update-path entries from a mod's latest
// files, splitting each file's mixed loader/game-version token list.
func curseForgeUpdateEntries(files []api.CFFile) []UpdateEntry {
	var entries []UpdateEntry
	for _, f := range files {
		loader := ""
		var gameVersions []string
		for _, tok := range f.GameVersions {
			if l, ok := curseForgeLoaderTokens[strings.ToLower(tok)]; ok {
				loader = l
				continue
			}
			gameVersions = append(gameVersions, tok)
		}
		channel := curseForgeChannel(f.ReleaseType)
		for _, gv := range gameVersions {
			entries = append(entries, UpdateEntry{GameVersion: gv, Loader: loader, Channel: channel})
		}
	}
	return entries
}
