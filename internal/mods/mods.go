// Package mods implements the Mod Metadata Cache: a coherent local
// catalog of mod jars enriched with CurseForge and Modrinth remote
// metadata, per spec.md §4.5. It is the largest component of this module,
// net new relative to the teacher (which has no mod management at all).
package mods

import (
	"fmt"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
)

// Channel is a release channel ordering used by update-path selection:
// alpha < beta < stable.
type Channel int

const (
	ChannelAlpha Channel = iota
	ChannelBeta
	ChannelStable
)

func (c Channel) String() string {
	switch c {
	case ChannelAlpha:
		return "alpha"
	case ChannelBeta:
		return "beta"
	default:
		return "stable"
	}
}

// ParseChannel maps a platform's release-type string to a Channel.
// Unrecognized values are treated as stable, matching the conservative
// default both CurseForge and Modrinth's public APIs fall back to for
// malformed "releaseType"/"version_type" fields.
func ParseChannel(s string) Channel {
	switch strings.ToLower(s) {
	case "alpha":
		return ChannelAlpha
	case "beta":
		return ChannelBeta
	default:
		return ChannelStable
	}
}

// ModFile is the record of one on-disk jar in an instance's mods
// directory, keyed by (instance id, filename) per spec.md §3.
type ModFile struct {
	InstanceID int64
	Filename   string // on-disk name, including a ".disabled" suffix when Enabled is false
	Enabled    bool
	SizeBytes  int64
	MetadataID string // foreign key into the ModMetadata table, keyed by SHA512
}

// DisplayFilename strips the disable suffix, if present, for UI display.
func (f *ModFile) DisplayFilename() string {
	return strings.TrimSuffix(f.Filename, disabledSuffix)
}

const disabledSuffix = ".disabled"

// EnabledFilename returns the on-disk name a file should have when
// enabled/disabled, preserving its declared extension.
func EnabledFilename(name string) string {
	return strings.TrimSuffix(name, disabledSuffix)
}

func DisabledFilename(name string) string {
	if strings.HasSuffix(name, disabledSuffix) {
		return name
	}
	return name + disabledSuffix
}

// ModMetadata is a content-addressed row: two jars with identical SHA512
// share exactly one metadata row, per spec.md §3's identity invariant.
type ModMetadata struct {
	SHA512      string // primary key
	Murmur2     uint32 // secondary lookup key, CurseForge's fingerprint
	ModID       string
	Name        string
	Version     string
	Description string
	Authors     []string
	Modloaders  []string
	Icon        []byte // 45x45 PNG, nil if the jar had none or extraction failed

	CurseForge *CurseForgeShadow
	Modrinth   *ModrinthShadow
}

// LogoShadow is a cached representation of a remote project's icon.
type LogoShadow struct {
	URL        string
	Data       []byte
	UpToDate   bool
	FetchedErr string // non-empty if the last fetch failed; cleared on success
}

// CurseForgeShadow is the cached CurseForge-side view of a metadata row,
// keyed by Murmur2 hash + project/file ids per spec.md §3.
type CurseForgeShadow struct {
	ProjectID  int
	FileID     int
	Channel    Channel
	UpdatePath string // ";"-separated gameVersion,loader,channel triples
	CachedAt   time.Time
	Logo       LogoShadow
}

// ModrinthShadow is the cached Modrinth-side view, keyed by SHA512 +
// project/version ids per spec.md §3.
type ModrinthShadow struct {
	ProjectID  string
	VersionID  string
	Channel    Channel
	UpdatePath string
	CachedAt   time.Time
	Logo       LogoShadow
}

// UpdateEntry is one parsed triple from an UpdatePath string.
type UpdateEntry struct {
	GameVersion string
	Loader      string
	Channel     Channel
}

// EncodeUpdatePath renders a list of update entries back into the
// ";"-separated wire form spec.md §4.5 describes.
func EncodeUpdatePath(entries []UpdateEntry) string {
	parts := make([]string, len(entries))
	for i, e := range entries {
		parts[i] = fmt.Sprintf("%s,%s,%s", e.GameVersion, e.Loader, e.Channel)
	}
	return strings.Join(parts, ";")
}

// ParseUpdatePath decodes an UpdatePath string back into entries,
// skipping malformed triples rather than failing the whole parse (a
// single bad entry from an upstream API quirk shouldn't black out every
// other available update).
func ParseUpdatePath(s string) []UpdateEntry {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ";")
	entries := make([]UpdateEntry, 0, len(raw))
	for _, r := range raw {
		fields := strings.SplitN(r, ",", 3)
		if len(fields) != 3 {
			continue
		}
		entries = append(entries, UpdateEntry{
			GameVersion: fields[0],
			Loader:      fields[1],
			Channel:     ParseChannel(fields[2]),
		})
	}
	return entries
}

// shadowTTL is how long a cached remote shadow is trusted before it
// requalifies for re-enrichment, per spec.md §4.5's invariant that an
// instance is never queried remotely unless at least one of its records
// is stale or uncached.
const shadowTTL = 24 * time.Hour

// stale reports whether a shadow last cached at cachedAt should be
// re-enriched as of now.
func stale(cachedAt, now time.Time) bool {
	return cachedAt.IsZero() || now.Sub(cachedAt) > shadowTTL
}

// BestUpdate selects, among entries compatible with the given loader and
// at or above the caller's minimum acceptable channel, the one with the
// highest semver-comparable game version. Channel does not rank entries
// beyond that filter: of entries with equal game versions the first wins.
// Returns false if nothing matches.
func BestUpdate(entries []UpdateEntry, loader string, minChannel Channel) (UpdateEntry, bool) {
	var best UpdateEntry
	found := false
	var bestVer *semver.Version

	for _, e := range entries {
		if loader != "" && !strings.EqualFold(e.Loader, loader) {
			continue
		}
		if e.Channel < minChannel {
			continue
		}
		ver, err := semver.NewVersion(e.GameVersion)
		if err != nil {
			if !found {
				best, found = e, true
			}
			continue
		}
		if !found || bestVer == nil || ver.GreaterThan(bestVer) {
			best, found, bestVer = e, true, ver
		}
	}
	return best, found
}
