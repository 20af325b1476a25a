package mods

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/quasar/mclauncher-core/internal/api"
)

func TestModrinthUpdateEntries_FansOutLoadersAndGameVersions(t *testing.T) {
	versions := []api.ProjectVersion{
		{VersionType: "release", Loaders: []string{"forge", "neoforge"}, GameVersions: []string{"1.20.1"}},
	}
	entries := modrinthUpdateEntries(versions)
	if len(entries) != 2 {
		t.Fatalf("expected 2 entries (one per loader), got %d: %+v", len(entries), entries)
	}
	for _, e := range entries {
		if e.GameVersion != "1.20.1" || e.Channel != ChannelStable {
			t.Errorf("unexpected entry: %+v", e)
		}
	}
}

func TestModrinthEnricher_EnrichPending_SetsCachedAtAndUpdatePath(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/version_files", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"abc": map[string]any{
				"id": "ver1", "project_id": "proj1", "version_type": "release",
			},
		})
	})
	mux.HandleFunc("/project/proj1/version", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "ver1", "project_id": "proj1", "version_type": "release", "loaders": []string{"fabric"}, "game_versions": []string{"1.21"}},
		})
	})
	mux.HandleFunc("/project/proj1", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"id": "proj1", "icon_url": "https://example.test/icon.png"})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	client := api.NewModrinthClient().WithBaseURL(ts.URL)
	store := NewStore()
	enricher := NewModrinthEnricher(client, store)

	row := &ModMetadata{SHA512: "abc"}
	fixedNow := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixedNow }

	if err := enricher.EnrichPending(context.Background(), now, []*ModMetadata{row}); err != nil {
		t.Fatalf("EnrichPending: %v", err)
	}

	if row.Modrinth == nil {
		t.Fatal("expected a ModrinthShadow to be written")
	}
	if !row.Modrinth.CachedAt.Equal(fixedNow) {
		t.Errorf("expected CachedAt %v, got %v", fixedNow, row.Modrinth.CachedAt)
	}
	if row.Modrinth.Logo.URL != "https://example.test/icon.png" {
		t.Errorf("expected the project icon URL to be cached on the logo shadow, got %q", row.Modrinth.Logo.URL)
	}
	entries := ParseUpdatePath(row.Modrinth.UpdatePath)
	if len(entries) != 1 || entries[0].GameVersion != "1.21" || entries[0].Loader != "fabric" {
		t.Errorf("unexpected decoded update path: %+v", entries)
	}

	// Within the TTL, a re-enrichment pass must skip the row entirely.
	row.Modrinth.UpdatePath = "sentinel"
	if err := enricher.EnrichPending(context.Background(), now, []*ModMetadata{row}); err != nil {
		t.Fatalf("EnrichPending (second pass): %v", err)
	}
	if row.Modrinth.UpdatePath != "sentinel" {
		t.Error("expected a fresh shadow to be skipped rather than re-enriched")
	}
}
