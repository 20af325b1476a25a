package pack

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/quasar/mclauncher-core/internal/core"
)

const (
	cfManifestType    = "minecraftModpack"
	cfManifestVersion = 1
)

// CFManifest is the CurseForge v1 `manifest.json` layout, per spec.md §6:
// "A CurseForge export follows the equivalent CF v1 manifest.json layout."
// Unlike a .mrpack, CurseForge packs never embed mod jars directly — every
// mod is referenced by project/file id and fetched by the client at
// install time; only the overrides/ tree is embedded.
type CFManifest struct {
	Minecraft       CFManifestMinecraft `json:"minecraft"`
	ManifestType    string              `json:"manifestType"`
	ManifestVersion int                 `json:"manifestVersion"`
	Name            string              `json:"name"`
	Version         string              `json:"version"`
	Author          string              `json:"author"`
	Files           []CFManifestFile    `json:"files"`
	Overrides       string              `json:"overrides"`
}

// CFManifestMinecraft names the base game version and the modloader(s)
// the pack requires.
type CFManifestMinecraft struct {
	Version    string             `json:"version"`
	ModLoaders []CFManifestLoader `json:"modLoaders"`
}

// CFManifestLoader is one entry of the minecraft.modLoaders array, e.g.
// {"id":"forge-36.2.34","primary":true}.
type CFManifestLoader struct {
	ID      string `json:"id"`
	Primary bool   `json:"primary"`
}

// CFManifestFile references one mod by CurseForge project/file id.
type CFManifestFile struct {
	ProjectID int  `json:"projectID"`
	FileID    int  `json:"fileID"`
	Required  bool `json:"required"`
}

func loaderManifestID(l core.LoaderRef) string {
	return fmt.Sprintf("%s-%s", l.Type, l.Version)
}

// WriteCurseForgePack writes a CurseForge modpack zip to w. files whose
// CurseForge field is set become manifest.json file references (no jar is
// embedded for those); every other file passing opts.Filter is embedded
// under overrides/, exactly as a non-CurseForge mod would be in a real CF
// export (the client has nowhere else to fetch it from).
func WriteCurseForgePack(w io.Writer, dataDir string, gv core.GameVersion, files []ModFileRef, opts ExportOptions) error {
	if gv.IsCustom() {
		return fmt.Errorf("export: custom version file %q has no exportable release", gv.CustomVersionFile)
	}

	manifest := CFManifest{
		Minecraft:       CFManifestMinecraft{Version: gv.Release},
		ManifestType:    cfManifestType,
		ManifestVersion: cfManifestVersion,
		Name:            opts.Name,
		Version:         opts.Version,
		Author:          opts.Author,
		Overrides:       "overrides",
		Files:           []CFManifestFile{},
	}
	for i, l := range gv.Modloaders {
		manifest.Minecraft.ModLoaders = append(manifest.Minecraft.ModLoaders, CFManifestLoader{
			ID:      loaderManifestID(l),
			Primary: i == 0,
		})
	}

	zw := zip.NewWriter(w)

	for _, f := range files {
		if !opts.Filter.Includes(f.RelPath) {
			continue
		}
		if f.CurseForge != nil {
			manifest.Files = append(manifest.Files, CFManifestFile{
				ProjectID: f.CurseForge.ProjectID,
				FileID:    f.CurseForge.FileID,
				Required:  true,
			})
			continue
		}
		if err := copyIntoZip(zw, "overrides/"+f.RelPath, filepath.Join(dataDir, filepath.FromSlash(f.RelPath))); err != nil {
			zw.Close()
			return err
		}
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		zw.Close()
		return fmt.Errorf("encoding manifest.json: %w", err)
	}
	entry, err := zw.Create("manifest.json")
	if err != nil {
		zw.Close()
		return fmt.Errorf("writing manifest.json: %w", err)
	}
	if _, err := entry.Write(data); err != nil {
		zw.Close()
		return err
	}

	return zw.Close()
}

// CurseForgeArchive is an opened, parsed CurseForge modpack export.
type CurseForgeArchive struct {
	Manifest *CFManifest
	zr       *zip.ReadCloser
}

// OpenCurseForgePack opens a CurseForge modpack zip and parses its
// manifest.json.
func OpenCurseForgePack(path string) (*CurseForgeArchive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening curseforge pack %s: %w", path, err)
	}
	var m CFManifest
	f, err := zr.Open("manifest.json")
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("curseforge pack %s missing manifest.json: %w", path, err)
	}
	err = json.NewDecoder(f).Decode(&m)
	f.Close()
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("parsing manifest.json: %w", err)
	}
	if m.ManifestType != cfManifestType {
		zr.Close()
		return nil, fmt.Errorf("unsupported manifestType %q", m.ManifestType)
	}
	return &CurseForgeArchive{Manifest: &m, zr: zr}, nil
}

// Close releases the archive's underlying file handle.
func (a *CurseForgeArchive) Close() error {
	return a.zr.Close()
}

// GameVersion reconstructs a core.GameVersion from the manifest's
// minecraft block. Loader ids are expected in "<type>-<version>" form, the
// same shape WriteCurseForgePack emits; an id with no "-" separator is
// skipped rather than erroring, since a handwritten manifest.json is free
// to use an opaque loader id the client doesn't recognize.
func (a *CurseForgeArchive) GameVersion() core.GameVersion {
	gv := core.GameVersion{Release: a.Manifest.Minecraft.Version}
	for _, l := range a.Manifest.Minecraft.ModLoaders {
		typ, ver, ok := splitLoaderID(l.ID)
		if !ok {
			continue
		}
		gv.Modloaders = append(gv.Modloaders, core.LoaderRef{Type: typ, Version: ver})
	}
	return gv
}

func splitLoaderID(id string) (core.LoaderType, string, bool) {
	for _, t := range []core.LoaderType{core.LoaderNeoForge, core.LoaderForge, core.LoaderFabric, core.LoaderQuilt} {
		prefix := string(t) + "-"
		if len(id) > len(prefix) && id[:len(prefix)] == prefix {
			return t, id[len(prefix):], true
		}
	}
	return "", "", false
}

// ExtractOverrides writes every file under the archive's overrides/ tree
// into destDir, the same semantics as ModrinthArchive.ExtractOverrides.
func (a *CurseForgeArchive) ExtractOverrides(destDir string) error {
	prefix := a.Manifest.Overrides + "/"
	for _, f := range a.zr.File {
		rel, ok := stripPrefix(f.Name, prefix)
		if !ok || rel == "" || f.FileInfo().IsDir() {
			continue
		}
		if err := extractZipFile(f, filepath.Join(destDir, filepath.FromSlash(rel))); err != nil {
			return err
		}
	}
	return nil
}

// AddonRefs returns the project/file id pairs the modpack materialization
// stage resolves against the CurseForge API ("download addon metadata for
// each declared mod", spec.md §4.2 stage 2).
func (a *CurseForgeArchive) AddonRefs() []CurseForgeFileID {
	out := make([]CurseForgeFileID, len(a.Manifest.Files))
	for i, f := range a.Manifest.Files {
		out[i] = CurseForgeFileID{ProjectID: f.ProjectID, FileID: f.FileID}
	}
	return out
}
