package pack

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/quasar/mclauncher-core/internal/core"
)

const modrinthFormatVersion = 1

// ModrinthIndex is the top-level manifest of a .mrpack archive, per
// spec.md §6: `modrinth.index.json` with format_version=1,
// game="minecraft".
type ModrinthIndex struct {
	FormatVersion int               `json:"formatVersion"`
	Game          string            `json:"game"`
	VersionID     string            `json:"versionId,omitempty"`
	Name          string            `json:"name"`
	Summary       string            `json:"summary,omitempty"`
	Files         []ModrinthFile    `json:"files"`
	Dependencies  map[string]string `json:"dependencies"`
}

// ModrinthFile is one entry of ModrinthIndex.Files, per spec.md §6:
// {path, hashes:{sha512,sha1}, downloads:[url], fileSize}.
type ModrinthFile struct {
	Path      string            `json:"path"`
	Hashes    FileHashes        `json:"hashes"`
	Env       map[string]string `json:"env,omitempty"`
	Downloads []string          `json:"downloads"`
	FileSize  int64             `json:"fileSize"`
}

func dependencyMap(d DependencyConstraints) map[string]string {
	m := map[string]string{"minecraft": d.Minecraft}
	if d.Forge != "" {
		m["forge"] = d.Forge
	}
	if d.NeoForge != "" {
		m["neoforge"] = d.NeoForge
	}
	if d.FabricLoader != "" {
		m["fabric-loader"] = d.FabricLoader
	}
	if d.QuiltLoader != "" {
		m["quilt-loader"] = d.QuiltLoader
	}
	return m
}

// WriteModrinthPack writes a .mrpack archive to w, drawing embedded
// overrides from dataDir (the instance's game working directory, spec.md
// §6). Files passing opts.Filter are either referenced in the index
// (when opts.LinkMods and the file carries a DownloadURL) or copied
// verbatim under overrides/.
func WriteModrinthPack(w io.Writer, dataDir string, gv core.GameVersion, files []ModFileRef, opts ExportOptions) error {
	deps, err := DependenciesFromGameVersion(gv)
	if err != nil {
		return err
	}

	index := ModrinthIndex{
		FormatVersion: modrinthFormatVersion,
		Game:          "minecraft",
		Name:          opts.Name,
		Summary:       opts.Summary,
		VersionID:     opts.Version,
		Dependencies:  dependencyMap(deps),
		Files:         []ModrinthFile{},
	}

	zw := zip.NewWriter(w)

	for _, f := range files {
		if !opts.Filter.Includes(f.RelPath) {
			continue
		}
		if opts.LinkMods && f.DownloadURL != "" {
			index.Files = append(index.Files, ModrinthFile{
				Path:      f.RelPath,
				Hashes:    f.Hashes,
				Downloads: []string{f.DownloadURL},
				FileSize:  f.SizeBytes,
			})
			continue
		}
		if err := copyIntoZip(zw, "overrides/"+f.RelPath, filepath.Join(dataDir, filepath.FromSlash(f.RelPath))); err != nil {
			zw.Close()
			return err
		}
	}

	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		zw.Close()
		return fmt.Errorf("encoding modrinth.index.json: %w", err)
	}
	entry, err := zw.Create("modrinth.index.json")
	if err != nil {
		zw.Close()
		return fmt.Errorf("writing modrinth.index.json: %w", err)
	}
	if _, err := entry.Write(data); err != nil {
		zw.Close()
		return err
	}

	return zw.Close()
}

func copyIntoZip(zw *zip.Writer, entryName, srcPath string) error {
	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("exporting %s: %w", entryName, err)
	}
	defer src.Close()

	entry, err := zw.Create(entryName)
	if err != nil {
		return fmt.Errorf("creating zip entry %s: %w", entryName, err)
	}
	if _, err := io.Copy(entry, src); err != nil {
		return fmt.Errorf("writing zip entry %s: %w", entryName, err)
	}
	return nil
}

// ModrinthArchive is an opened, validated .mrpack ready for materialization
// into an instance directory, the counterpart to the Prepare/Install
// Pipeline's modpack-materialization stage (spec.md §4.2 stage 2).
type ModrinthArchive struct {
	Index *ModrinthIndex
	zr    *zip.ReadCloser
}

// OpenModrinthPack opens a .mrpack file and parses its index. The caller
// must call Close when done.
func OpenModrinthPack(path string) (*ModrinthArchive, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening mrpack %s: %w", path, err)
	}
	var idx ModrinthIndex
	f, err := zr.Open("modrinth.index.json")
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("mrpack %s missing modrinth.index.json: %w", path, err)
	}
	err = json.NewDecoder(f).Decode(&idx)
	f.Close()
	if err != nil {
		zr.Close()
		return nil, fmt.Errorf("parsing modrinth.index.json: %w", err)
	}
	if idx.FormatVersion != modrinthFormatVersion {
		zr.Close()
		return nil, fmt.Errorf("unsupported mrpack formatVersion %d", idx.FormatVersion)
	}
	return &ModrinthArchive{Index: &idx, zr: zr}, nil
}

// Close releases the archive's underlying file handle.
func (a *ModrinthArchive) Close() error {
	return a.zr.Close()
}

// GameVersion reconstructs a core.GameVersion from the archive's
// dependency block, the Prepare pipeline's first stage of turning a
// modpack descriptor into an instance configuration (spec.md §4.2 stage 2:
// "the instance configuration is rewritten with the resolved game
// version").
func (a *ModrinthArchive) GameVersion() core.GameVersion {
	gv := core.GameVersion{Release: a.Index.Dependencies["minecraft"]}
	if v, ok := a.Index.Dependencies["forge"]; ok {
		gv.Modloaders = append(gv.Modloaders, core.LoaderRef{Type: core.LoaderForge, Version: v})
	}
	if v, ok := a.Index.Dependencies["neoforge"]; ok {
		gv.Modloaders = append(gv.Modloaders, core.LoaderRef{Type: core.LoaderNeoForge, Version: v})
	}
	if v, ok := a.Index.Dependencies["fabric-loader"]; ok {
		gv.Modloaders = append(gv.Modloaders, core.LoaderRef{Type: core.LoaderFabric, Version: v})
	}
	if v, ok := a.Index.Dependencies["quilt-loader"]; ok {
		gv.Modloaders = append(gv.Modloaders, core.LoaderRef{Type: core.LoaderQuilt, Version: v})
	}
	return gv
}

// ExtractOverrides writes every file under the archive's overrides/ tree
// into destDir (the instance's data/ directory), stripping the
// "overrides/" prefix.
func (a *ModrinthArchive) ExtractOverrides(destDir string) error {
	for _, f := range a.zr.File {
		rel, ok := stripPrefix(f.Name, "overrides/")
		if !ok || rel == "" || f.FileInfo().IsDir() {
			continue
		}
		if err := extractZipFile(f, filepath.Join(destDir, filepath.FromSlash(rel))); err != nil {
			return err
		}
	}
	return nil
}

func stripPrefix(name, prefix string) (string, bool) {
	if len(name) < len(prefix) || name[:len(prefix)] != prefix {
		return "", false
	}
	return name[len(prefix):], true
}

func extractZipFile(f *zip.File, destPath string) error {
	if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(destPath), err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("reading %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(destPath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode().Perm()|0644)
	if err != nil {
		return fmt.Errorf("writing %s: %w", destPath, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("extracting %s: %w", destPath, err)
	}
	return nil
}

// AddonDownload is a single declared-mod download the modpack
// materialization stage resolves for non-linked files (spec.md §4.2 stage
// 2: "download addon metadata for each declared mod").
type AddonDownload struct {
	RelPath     string
	DownloadURL string
	Hashes      FileHashes
	SizeBytes   int64
}

// Downloads returns the set of files the index references by URL (the
// `files` array), which the caller downloads into the instance's data/
// directory during first-run materialization. Overrides are handled
// separately by ExtractOverrides.
func (a *ModrinthArchive) Downloads() []AddonDownload {
	out := make([]AddonDownload, 0, len(a.Index.Files))
	for _, f := range a.Index.Files {
		if len(f.Downloads) == 0 {
			continue
		}
		out = append(out, AddonDownload{
			RelPath:     f.Path,
			DownloadURL: f.Downloads[0],
			Hashes:      f.Hashes,
			SizeBytes:   f.FileSize,
		})
	}
	return out
}

// Downloader fetches url and writes its content to destPath, the
// collaborator the Download Engine already implements for
// checksum-verified fetches; the modpack materialization stage reuses it
// rather than rolling its own HTTP client.
type Downloader func(ctx context.Context, url, destPath string) error

// MaterializeDownloads fetches every addon download into destDir using
// fetch, the caller-supplied Downloader (normally internal/download).
func (a *ModrinthArchive) MaterializeDownloads(ctx context.Context, destDir string, fetch Downloader) error {
	for _, d := range a.Downloads() {
		destPath := filepath.Join(destDir, filepath.FromSlash(d.RelPath))
		if err := os.MkdirAll(filepath.Dir(destPath), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", filepath.Dir(destPath), err)
		}
		if err := fetch(ctx, d.DownloadURL, destPath); err != nil {
			return fmt.Errorf("downloading %s: %w", d.RelPath, err)
		}
	}
	return nil
}
