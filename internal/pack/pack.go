// Package pack implements the Pack Import/Export component of spec.md §6:
// reading and writing the two archive formats a modpack can be shared as, a
// Modrinth .mrpack and a CurseForge modpack export. Net new relative to the
// teacher, which has no archive format of its own, built the way the
// teacher structures its other format-handling code (the JSON round-trip
// style of internal/core, the archive extraction in internal/java/download.go).
package pack

import (
	"fmt"
	"strings"

	"github.com/quasar/mclauncher-core/internal/core"
)

// FileHashes are the two digests spec.md §6 requires on every exported
// file reference, mirroring internal/mods.ModMetadata's SHA512 key plus
// the SHA-1 the Version & Library Resolver already carries on libraries.
type FileHashes struct {
	SHA1   string `json:"sha1"`
	SHA512 string `json:"sha512"`
}

// ModFileRef describes one file under an instance's data directory that a
// pack export may either embed (copied under overrides/) or reference by
// URL (a "linked" file, when the caller knows where it can be
// re-downloaded from). RelPath is relative to the instance's data/
// directory, e.g. "mods/NaturesCompass-1.16.5-1.9.1-forge.jar".
type ModFileRef struct {
	RelPath     string
	SizeBytes   int64
	Hashes      FileHashes
	DownloadURL string // empty if this file has no known remote source

	// CurseForge identifies the project/file ids when this file's
	// provenance is a CurseForge mod, used by WriteCurseForgePack's
	// files[] list instead of embedding the jar.
	CurseForge *CurseForgeFileID
}

// CurseForgeFileID names a CurseForge mod file by its numeric project and
// file ids, the pair a CF manifest.json references a mod by.
type CurseForgeFileID struct {
	ProjectID int
	FileID    int
}

// category returns the top-level directory component of a RelPath (e.g.
// "mods" for "mods/Foo.jar"), the unit spec.md §6's export filter and the
// data directory's layout (spec.md §6: mods/, resourcepacks/, ...) both key
// on.
func category(relPath string) string {
	rel := strings.TrimPrefix(filepathToSlash(relPath), "/")
	if i := strings.IndexByte(rel, '/'); i >= 0 {
		return rel[:i]
	}
	return rel
}

func filepathToSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}

// ExportFilter controls which files an export includes, keyed by
// category (spec.md's example is the literal `{"mods": null}`). A
// category present in Categories is included in full unless explicitly
// excluded; a category absent from Categories is dropped entirely from
// the export (both from files[] and from overrides/).
type ExportFilter struct {
	// Categories maps a category name to an explicit per-file exclude
	// list. A nil or empty slice means "include every file in this
	// category" — the `null` in spec.md's `{"mods": null}` example.
	Categories map[string][]string
}

// Includes reports whether relPath should be part of the export under f.
func (f ExportFilter) Includes(relPath string) bool {
	cat := category(relPath)
	excluded, ok := f.Categories[cat]
	if !ok {
		return false
	}
	base := relPath
	if i := strings.LastIndexByte(filepathToSlash(relPath), '/'); i >= 0 {
		base = relPath[i+1:]
	}
	for _, e := range excluded {
		if e == base {
			return false
		}
	}
	return true
}

// DependencyConstraints is the {minecraft, forge?, neoforge?,
// fabric-loader?, quilt-loader?} dependency block spec.md §6 describes,
// written as the Modrinth export's dependencies map. The CurseForge
// writer does not use it; it builds its minecraft block from the
// GameVersion directly.
type DependencyConstraints struct {
	Minecraft    string
	Forge        string
	NeoForge     string
	FabricLoader string
	QuiltLoader  string
}

// DependenciesFromGameVersion derives the dependency block from a
// core.GameVersion's release + modloader list. Returns an error if the
// version is a custom version file, which has no well-known release
// string to export.
func DependenciesFromGameVersion(gv core.GameVersion) (DependencyConstraints, error) {
	if gv.IsCustom() {
		return DependencyConstraints{}, fmt.Errorf("export: custom version file %q has no exportable release", gv.CustomVersionFile)
	}
	d := DependencyConstraints{Minecraft: gv.Release}
	for _, l := range gv.Modloaders {
		switch l.Type {
		case core.LoaderForge:
			d.Forge = l.Version
		case core.LoaderNeoForge:
			d.NeoForge = l.Version
		case core.LoaderFabric:
			d.FabricLoader = l.Version
		case core.LoaderQuilt:
			d.QuiltLoader = l.Version
		}
	}
	return d, nil
}

// ExportOptions carries the knobs both archive writers share.
type ExportOptions struct {
	Name     string
	Summary  string
	Version  string // modpack version string, e.g. "1.0.0"
	Author   string
	Filter   ExportFilter
	LinkMods bool // reference files with a known DownloadURL instead of embedding them
}
