package mods

import (
	"context"
	"fmt"

	"github.com/quasar/mclauncher-core/internal/api"
)

// modrinthBatchSize bounds how many SHA512 hashes go into a single
// version_files lookup request.
const modrinthBatchSize = 200

// ModrinthEnricher resolves unrecognized local mod jars against
// Modrinth's version_files-by-hash endpoint and keeps their
// ModrinthShadow up to date, backing off per metadata row on failure.
type ModrinthEnricher struct {
	client  *api.ModrinthClient
	store   *Store
	backoff *backoffSet
}

func NewModrinthEnricher(client *api.ModrinthClient, store *Store) *ModrinthEnricher {
	return &ModrinthEnricher{client: client, store: store, backoff: newBackoffSet()}
}

// EnrichPending looks up every metadata row lacking a ModrinthShadow (or
// whose shadow is stale) by its SHA512 hash, batching requests.
func (e *ModrinthEnricher) EnrichPending(ctx context.Context, now nowFunc, rows []*ModMetadata) error {
	var pending []*ModMetadata
	for _, m := range rows {
		if m.Modrinth != nil && !stale(m.Modrinth.CachedAt, now()) {
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

	for start := 0; start < len(pending); start += modrinthBatchSize {
		end := start + modrinthBatchSize
		if end > len(pending) {
			end = len(pending)
		}
		batch := pending[start:end]

		hashes := make([]string, len(batch))
		byHash := make(map[string]*ModMetadata, len(batch))
		for i, m := range batch {
			hashes[i] = m.SHA512
			byHash[m.SHA512] = m
		}

		results, err := e.client.GetVersionFilesByHash(ctx, hashes)
		if err != nil {
			if firstErr == nil {
				firstErr = fmt.Errorf("version file lookup: %w", err)
			}
			for _, m := range batch {
				e.backoff.Fail(m.SHA512, now())
			}
			continue
		}

		for _, m := range batch {
			version, ok := results[m.SHA512]
			if !ok {
				e.backoff.Fail(m.SHA512, now())
				continue
			}

			shadow := m.Modrinth
			if shadow == nil {
				shadow = &ModrinthShadow{}
			}
			shadow.ProjectID = version.ProjectID
			shadow.VersionID = version.ID
			shadow.Channel = ParseChannel(version.VersionType)
			shadow.CachedAt = now()

			if versions, err := e.client.GetProjectVersions(ctx, version.ProjectID, nil, nil); err == nil {
				shadow.UpdatePath = EncodeUpdatePath(modrinthUpdateEntries(versions))
			}
			if project, err := e.client.GetProject(ctx, version.ProjectID); err == nil {
				shadow.Logo.URL = project.IconURL
			}
			m.Modrinth = shadow

			e.store.PutMetadata(m)
			e.backoff.Succeed(m.SHA512)
		}
	}

	return firstErr
}

// modrinthUpdateEntries builds update-path entries from a project's full
// version list, fanning each version out across its supported loaders
// and game versions.
func modrinthUpdateEntries(versions []api.ProjectVersion) []UpdateEntry {
	var entries []UpdateEntry
	for _, v := range versions {
		channel := ParseChannel(v.VersionType)
		loaders := v.Loaders
		if len(loaders) == 0 {
			loaders = []string{""}
		}
		for _, loader := range loaders {
			for _, gv := range v.GameVersions {
				entries = append(entries, UpdateEntry{GameVersion: gv, Loader: loader, Channel: channel})
			}
		}
	}
	return entries
}
