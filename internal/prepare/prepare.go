// Package prepare implements the instance preparation pipeline
// (spec.md §4.2): resolving a version manifest, selecting a Java
// runtime, installing a modloader, downloading the resulting file set,
// and unpacking natives/assets, all reported through a single weighted
// task.Task.
package prepare

import (
	"archive/zip"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/quasar/mclauncher-core/internal/api"
	"github.com/quasar/mclauncher-core/internal/config"
	"github.com/quasar/mclauncher-core/internal/core"
	"github.com/quasar/mclauncher-core/internal/download"
	"github.com/quasar/mclauncher-core/internal/java"
	"github.com/quasar/mclauncher-core/internal/modloader"
	"github.com/quasar/mclauncher-core/internal/pack"
	"github.com/quasar/mclauncher-core/internal/task"
)

// assetResourcesBaseURL is Mojang's content-addressed asset CDN; an object's
// URL is always this base plus its hash's two-char prefix and the hash.
const assetResourcesBaseURL = "https://resources.download.minecraft.net/"

// sentinelName marks an instance directory as mid-preparation; its
// presence after a crash tells the next Pipeline run to start over from
// scratch rather than trusting a half-extracted instance.
const sentinelName = ".preparing"

// Download priorities: the client jar and libraries gate launch and are
// comparatively few, so they're worth dispatching ahead of the much
// larger bulk asset object list when a batch exceeds the Download
// Engine's worker count.
const (
	downloadPriorityClientJar = 2
	downloadPriorityLibrary   = 1
)

// Subtask names, in pipeline order. Weights follow spec.md §4.2: the
// download stage dominates wall-clock time and carries the heaviest
// weight, while metadata/bookkeeping stages are comparatively free.
const (
	SubtaskSentinel    = "sentinel"
	SubtaskModpack     = "modpack"
	SubtaskVersionInfo = "version_info"
	SubtaskJava        = "java"
	SubtaskModloader   = "modloader"
	SubtaskDownload    = "download"
	SubtaskNatives     = "natives"
	SubtaskAssets      = "assets"
	SubtaskPostProcess = "post_process"
	SubtaskFinalize    = "finalize"
)

// Pipeline holds the collaborators each prepare stage needs.
type Pipeline struct {
	cfg       *config.Config
	mojang    *api.MojangClient
	resolver  *java.Resolver
	downloads *download.Manager

	// modrinth and saveInstance are optional; when unset, modpack
	// materialization is a no-op on the assumption the caller (an import
	// flow) already extracted overrides and set GameVersion before Run was
	// invoked. Wired via WithModpackSupport.
	modrinth     *api.ModrinthClient
	saveInstance func(*core.Instance) error
}

// NewPipeline wires up a Pipeline from its component clients.
func NewPipeline(cfg *config.Config, mojang *api.MojangClient, resolver *java.Resolver, downloads *download.Manager) *Pipeline {
	return &Pipeline{cfg: cfg, mojang: mojang, resolver: resolver, downloads: downloads}
}

// WithModpackSupport wires in the Modrinth client and the persistence
// callback the first-run modpack materialization stage (spec.md §4.2 stage
// 2) needs to resolve a .mrpack archive and save the instance's rewritten
// GameVersion. Returns p for chaining.
func (p *Pipeline) WithModpackSupport(modrinth *api.ModrinthClient, saveInstance func(*core.Instance) error) *Pipeline {
	p.modrinth = modrinth
	p.saveInstance = saveInstance
	return p
}

// Result is everything a completed prepare run produces for the launch
// composer to use.
type Result struct {
	Version  *core.VersionDetails
	JavaPath string
}

// Run executes every stage of the pipeline for inst, reporting progress
// through t. A failure at any stage leaves the sentinel file in place so
// the next Run knows this instance was left mid-preparation.
func (p *Pipeline) Run(ctx context.Context, t *task.Task, inst *core.Instance) (*Result, error) {
	if err := p.writeSentinel(inst); err != nil {
		return nil, t.Fail(fmt.Errorf("writing sentinel: %w", err))
	}

	t.Subtask(SubtaskSentinel).Complete()

	if err := p.materializeModpack(ctx, t, inst); err != nil {
		return nil, t.Fail(err)
	}

	version, err := p.resolveVersion(ctx, t, inst)
	if err != nil {
		return nil, t.Fail(err)
	}

	javaPath, err := p.resolveJava(ctx, t, version)
	if err != nil {
		return nil, t.Fail(err)
	}

	version, processors, err := p.prepareModloader(ctx, t, inst, version)
	if err != nil {
		return nil, t.Fail(err)
	}

	if err := p.downloadFiles(ctx, t, version); err != nil {
		return nil, t.Fail(err)
	}

	if err := p.extractNatives(ctx, t, inst, version); err != nil {
		return nil, t.Fail(err)
	}

	if err := p.reconstructAssets(ctx, t, inst, version); err != nil {
		return nil, t.Fail(err)
	}

	if err := p.runPostProcessors(ctx, t, inst, javaPath, processors); err != nil {
		return nil, t.Fail(err)
	}

	if err := p.removeSentinel(inst); err != nil {
		return nil, t.Fail(fmt.Errorf("removing sentinel: %w", err))
	}
	t.Subtask(SubtaskFinalize).Complete()
	t.Complete()

	return &Result{Version: version, JavaPath: javaPath}, nil
}

func (p *Pipeline) sentinelPath(inst *core.Instance) string {
	return filepath.Join(inst.Path, sentinelName)
}

func (p *Pipeline) writeSentinel(inst *core.Instance) error {
	return os.WriteFile(p.sentinelPath(inst), []byte("preparing"), 0644)
}

func (p *Pipeline) removeSentinel(inst *core.Instance) error {
	err := os.Remove(p.sentinelPath(inst))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// WasInterrupted reports whether a prior prepare run on this instance
// crashed before completing, per the sentinel invariant.
func (p *Pipeline) WasInterrupted(inst *core.Instance) bool {
	_, err := os.Stat(p.sentinelPath(inst))
	return err == nil
}

func (p *Pipeline) materializeModpack(ctx context.Context, t *task.Task, inst *core.Instance) error {
	st := t.Subtask(SubtaskModpack)
	if inst.Config.ModpackSource == nil {
		st.Complete()
		return nil
	}
	if inst.Config.ModpackSource.Platform != "modrinth" || p.modrinth == nil {
		// CurseForge pack materialization, and a caller that hasn't wired a
		// Modrinth client in via WithModpackSupport, both assume the
		// instance was already materialized before Run was invoked (e.g. by
		// an import flow that called internal/pack directly).
		st.Complete()
		return nil
	}

	archivePath, err := p.downloadModpackArchive(ctx, inst.Config.ModpackSource)
	if err != nil {
		return fmt.Errorf("downloading modpack archive: %w", err)
	}
	archive, err := pack.OpenModrinthPack(archivePath)
	if err != nil {
		return fmt.Errorf("opening modpack archive: %w", err)
	}
	defer archive.Close()

	dataDir := filepath.Join(inst.Path, "data")
	if err := archive.ExtractOverrides(dataDir); err != nil {
		return fmt.Errorf("extracting modpack overrides: %w", err)
	}
	if err := archive.MaterializeDownloads(ctx, dataDir, p.fetchFile); err != nil {
		return fmt.Errorf("downloading modpack files: %w", err)
	}

	inst.Config.GameVersion = archive.GameVersion()
	if p.saveInstance != nil {
		if err := p.saveInstance(inst); err != nil {
			return fmt.Errorf("persisting resolved modpack version: %w", err)
		}
	}

	st.Complete()
	return nil
}

// downloadModpackArchive resolves the modpack's declared Modrinth version
// to its .mrpack file and downloads it into the shared temp directory,
// reusing the Download Engine rather than a bespoke HTTP call so the
// archive gets the same checksum/retry discipline as every other fetch.
func (p *Pipeline) downloadModpackArchive(ctx context.Context, src *core.ModpackSource) (string, error) {
	version, err := p.modrinth.GetVersion(ctx, src.VersionID)
	if err != nil {
		return "", err
	}
	var archiveFile *api.VersionFile
	for i := range version.Files {
		if strings.HasSuffix(version.Files[i].Filename, ".mrpack") {
			archiveFile = &version.Files[i]
			break
		}
	}
	if archiveFile == nil {
		return "", fmt.Errorf("modrinth version %s has no .mrpack file", src.VersionID)
	}

	if err := os.MkdirAll(p.cfg.TempDir, 0755); err != nil {
		return "", err
	}
	destPath := filepath.Join(p.cfg.TempDir, archiveFile.Filename)
	items := []download.Item{{
		URL:  archiveFile.URL,
		Path: destPath,
		SHA1: archiveFile.Hashes.SHA1,
		Size: archiveFile.Size,
	}}
	if _, err := p.downloads.Download(ctx, items, nil); err != nil {
		return "", err
	}
	return destPath, nil
}

// fetchFile satisfies pack.Downloader by routing a single-file fetch
// through the Download Engine.
func (p *Pipeline) fetchFile(ctx context.Context, url, destPath string) error {
	_, err := p.downloads.Download(ctx, []download.Item{{URL: url, Path: destPath}}, nil)
	return err
}

func (p *Pipeline) resolveVersion(ctx context.Context, t *task.Task, inst *core.Instance) (*core.VersionDetails, error) {
	st := t.Subtask(SubtaskVersionInfo)
	defer st.Complete()

	if inst.Config.GameVersion.IsCustom() {
		return nil, fmt.Errorf("custom version files are not yet supported by this pipeline")
	}

	version, err := p.mojang.ResolveVersionDetails(ctx, inst.Config.GameVersion.Release, false)
	if err != nil {
		return nil, fmt.Errorf("resolving version %s: %w", inst.Config.GameVersion.Release, err)
	}
	return version, nil
}

func (p *Pipeline) resolveJava(ctx context.Context, t *task.Task, version *core.VersionDetails) (string, error) {
	st := t.Subtask(SubtaskJava)
	defer st.Complete()

	profile := java.ProfileLegacy
	javaPath, err := p.resolver.Resolve(ctx, profile, version.JavaVersion.MajorVersion, func(msg string) {
		st.Activate(task.WeightLow)
	})
	if err != nil {
		return "", fmt.Errorf("resolving java runtime: %w", err)
	}
	return javaPath, nil
}

func (p *Pipeline) prepareModloader(ctx context.Context, t *task.Task, inst *core.Instance, version *core.VersionDetails) (*core.VersionDetails, []modloader.Processor, error) {
	st := t.Subtask(SubtaskModloader)
	defer st.Complete()

	if len(inst.Config.GameVersion.Modloaders) == 0 {
		return version, nil, nil
	}

	// Each loader's client (ForgeClient/FabricClient/NeoForge/Quilt)
	// fetches its own overlay VersionDetails by LoaderRef.Version; only
	// the first configured loader is applied, matching the single-loader
	// instance model spec.md §3 describes.
	loader := inst.Config.GameVersion.Modloaders[0]
	overlay, processors, err := fetchLoaderOverlay(ctx, loader)
	if err != nil {
		return nil, nil, fmt.Errorf("preparing modloader %s %s: %w", loader.Type, loader.Version, err)
	}
	if overlay == nil {
		return version, nil, nil
	}
	return modloader.Merge(version, overlay), processors, nil
}

// fetchLoaderOverlay resolves a loader reference to its overlay
// VersionDetails and install post-processors. Only vanilla-equivalent
// loaders with no extra client wiring are supported by this pipeline;
// Forge/NeoForge's installer-profile flow additionally needs their
// Maven-hosted installer jar, wired by the caller's ForgeClient/
// FabricClient before Run is invoked in a full deployment.
func fetchLoaderOverlay(ctx context.Context, loader core.LoaderRef) (*core.VersionDetails, []modloader.Processor, error) {
	switch loader.Type {
	case core.LoaderVanilla:
		return nil, nil, nil
	default:
		return nil, nil, fmt.Errorf("loader %s requires a pre-fetched overlay, none supplied", loader.Type)
	}
}

func (p *Pipeline) downloadFiles(ctx context.Context, t *task.Task, version *core.VersionDetails) error {
	st := t.Subtask(SubtaskDownload)
	st.Activate(task.WeightHighest)

	var items []download.Item
	for _, lib := range modloader.FilterLibraries(version.Libraries, core.Features{}) {
		if lib.Downloads == nil {
			continue
		}
		if lib.Downloads.Artifact != nil {
			items = append(items, download.Item{
				URL:      lib.Downloads.Artifact.URL,
				Path:     filepath.Join(p.cfg.LibrariesDir, lib.Downloads.Artifact.Path),
				SHA1:     lib.Downloads.Artifact.SHA1,
				Size:     lib.Downloads.Artifact.Size,
				Priority: downloadPriorityLibrary,
			})
		}
		if lib.Downloads.Classifiers != nil {
			if _, art := modloader.NativesClassifier(lib.Downloads.Classifiers); art != nil {
				items = append(items, download.Item{
					URL:      art.URL,
					Path:     filepath.Join(p.cfg.LibrariesDir, art.Path),
					SHA1:     art.SHA1,
					Size:     art.Size,
					Priority: downloadPriorityLibrary,
				})
			}
		}
	}

	if version.Downloads.Client != nil {
		items = append(items, download.Item{
			URL:      version.Downloads.Client.URL,
			Path:     p.versionJarPath(version),
			SHA1:     version.Downloads.Client.SHA1,
			Size:     version.Downloads.Client.Size,
			Priority: downloadPriorityClientJar,
		})
	}

	assetItems, err := p.assetDownloadItems(ctx, version)
	if err != nil {
		return fmt.Errorf("resolving asset objects: %w", err)
	}
	items = append(items, assetItems...)

	progressCh := make(chan download.Progress, 16)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for pr := range progressCh {
			if pr.TotalItems > 0 {
				st.SetProgress(float64(pr.CompletedItems), float64(pr.TotalItems))
			}
		}
	}()

	result, err := p.downloads.Download(ctx, items, progressCh)
	close(progressCh)
	<-done

	if err != nil {
		return fmt.Errorf("downloading files: %w", err)
	}
	if result.Failed > 0 {
		return fmt.Errorf("%d files failed to download", result.Failed)
	}
	st.Complete()
	return nil
}

// versionJarPath locates a version's client jar under LibrariesDir,
// matching internal/launch.Composer.buildClasspath's expectation exactly
// (both must agree since one writes the file and the other reads it).
func (p *Pipeline) versionJarPath(version *core.VersionDetails) string {
	return filepath.Join(p.cfg.LibrariesDir, "com", "mojang", "minecraft",
		version.ID, fmt.Sprintf("minecraft-%s-client.jar", version.ID))
}

func (p *Pipeline) assetIndexPath(version *core.VersionDetails) string {
	return filepath.Join(p.cfg.AssetsDir, "indexes", version.AssetIndex.ID+".json")
}

// assetDownloadItems fetches and parses the version's asset index, then
// enqueues every referenced object as a content-addressed download under
// assets/objects/<hash[:2]>/<hash> (spec.md §4.2 stage 6). The index itself
// is downloaded through the same Download Engine so it benefits from the
// same checksum/retry discipline as everything else.
func (p *Pipeline) assetDownloadItems(ctx context.Context, version *core.VersionDetails) ([]download.Item, error) {
	if version.AssetIndex.URL == "" {
		return nil, nil
	}

	indexPath := p.assetIndexPath(version)
	if err := os.MkdirAll(filepath.Dir(indexPath), 0755); err != nil {
		return nil, err
	}
	indexItem := download.Item{
		URL:  version.AssetIndex.URL,
		Path: indexPath,
		SHA1: version.AssetIndex.SHA1,
		Size: version.AssetIndex.Size,
	}
	if _, err := p.downloads.Download(ctx, []download.Item{indexItem}, nil); err != nil {
		return nil, fmt.Errorf("downloading asset index: %w", err)
	}

	idx, err := p.readAssetIndex(version)
	if err != nil {
		return nil, err
	}

	items := make([]download.Item, 0, len(idx.Objects))
	for _, obj := range idx.Objects {
		if len(obj.Hash) < 2 {
			continue
		}
		items = append(items, download.Item{
			URL:  assetResourcesBaseURL + obj.Hash[:2] + "/" + obj.Hash,
			Path: filepath.Join(p.cfg.AssetsDir, obj.Path()),
			SHA1: obj.Hash,
			Size: obj.Size,
		})
	}
	return items, nil
}

func (p *Pipeline) readAssetIndex(version *core.VersionDetails) (*core.AssetIndexFile, error) {
	data, err := os.ReadFile(p.assetIndexPath(version))
	if err != nil {
		return nil, fmt.Errorf("reading asset index: %w", err)
	}
	var idx core.AssetIndexFile
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("parsing asset index: %w", err)
	}
	return &idx, nil
}

// extractNatives unpacks every platform-matching natives classifier jar
// into a per-instance, per-version natives directory (spec.md §4.2 stage 7).
// Paths under a library's Extract.Exclude (or, absent one, "META-INF/") are
// skipped, matching Mojang's own natives-jar exclusion rule.
func (p *Pipeline) extractNatives(ctx context.Context, t *task.Task, inst *core.Instance, version *core.VersionDetails) error {
	st := t.Subtask(SubtaskNatives)
	defer st.Complete()

	nativesDir := filepath.Join(p.cfg.NativesDir, inst.Shortpath)
	if err := os.MkdirAll(nativesDir, 0755); err != nil {
		return err
	}

	for _, lib := range modloader.FilterLibraries(version.Libraries, core.Features{}) {
		if lib.Downloads == nil || lib.Downloads.Classifiers == nil {
			continue
		}
		_, art := modloader.NativesClassifier(lib.Downloads.Classifiers)
		if art == nil {
			continue
		}

		exclude := []string{"META-INF/"}
		if lib.Extract != nil && len(lib.Extract.Exclude) > 0 {
			exclude = lib.Extract.Exclude
		}

		jarPath := filepath.Join(p.cfg.LibrariesDir, art.Path)
		if err := extractNativeJar(jarPath, nativesDir, exclude); err != nil {
			return fmt.Errorf("extracting natives from %s: %w", lib.Name, err)
		}
	}
	return nil
}

// extractNativeJar unzips src into destDir, dropping entries under any of
// the given excluded prefixes and directory entries themselves.
func extractNativeJar(src, destDir string, exclude []string) error {
	r, err := zip.OpenReader(src)
	if err != nil {
		return err
	}
	defer r.Close()

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if matchesAnyPrefix(f.Name, exclude) {
			continue
		}

		target := filepath.Join(destDir, filepath.FromSlash(f.Name))
		if err := os.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return err
		}

		rc, err := f.Open()
		if err != nil {
			return err
		}
		out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, f.Mode())
		if err != nil {
			rc.Close()
			return err
		}
		_, copyErr := io.Copy(out, rc)
		out.Close()
		rc.Close()
		if copyErr != nil {
			return copyErr
		}
	}
	return nil
}

func matchesAnyPrefix(name string, prefixes []string) bool {
	for _, prefix := range prefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

// reconstructAssets realizes the assets tree for legacy (pre-1.6) indexes,
// which resolve assets by their original relative path rather than the
// modern content-addressed objects/ pool (spec.md §4.2 stage 8). Modern
// indexes need no reconstruction: the shared objects pool downloadFiles
// populated is already what the client reads from directly.
func (p *Pipeline) reconstructAssets(ctx context.Context, t *task.Task, inst *core.Instance, version *core.VersionDetails) error {
	st := t.Subtask(SubtaskAssets)
	defer st.Complete()

	if version.AssetIndex.ID == "" {
		return nil
	}
	if !version.AssetIndex.IsLegacy() {
		return nil
	}

	idx, err := p.readAssetIndex(version)
	if err != nil {
		return err
	}

	resourcesDir := filepath.Join(inst.Path, "data", "resources")
	for name, obj := range idx.Objects {
		src := filepath.Join(p.cfg.AssetsDir, obj.Path())
		dst := filepath.Join(resourcesDir, filepath.FromSlash(name))
		if err := copyAssetObject(src, dst); err != nil {
			return fmt.Errorf("reconstructing asset %s: %w", name, err)
		}
	}
	return nil
}

func copyAssetObject(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return err
	}
	defer out.Close()

	_, err = io.Copy(out, in)
	return err
}

func (p *Pipeline) runPostProcessors(ctx context.Context, t *task.Task, inst *core.Instance, javaPath string, processors []modloader.Processor) error {
	st := t.Subtask(SubtaskPostProcess)
	defer st.Complete()

	if len(processors) == 0 {
		return nil
	}
	vars := map[string]string{
		"SIDE":          "client",
		"MINECRAFT_JAR": filepath.Join(p.cfg.LibrariesDir, "com", "mojang", "minecraft"),
		"LIBRARY_DIR":   p.cfg.LibrariesDir,
	}
	return modloader.RunProcessors(ctx, javaPath, processors, vars)
}

// NewTask creates a task.Task pre-populated with this pipeline's subtask
// names, the download stage weighted highest per spec.md §4.2, and the
// Java subtask deferred (zero weight) until resolveJava discovers it
// actually needs to download a runtime.
func NewTask(ctx context.Context, id int64, name string) *task.Task {
	return task.New(ctx, id, name, map[string]task.Weight{
		SubtaskSentinel:    task.WeightLowest,
		SubtaskModpack:     task.WeightMedium,
		SubtaskVersionInfo: task.WeightLow,
		SubtaskJava:        0,
		SubtaskModloader:   task.WeightMedium,
		SubtaskDownload:    0, // activated in downloadFiles once the file list is known
		SubtaskNatives:     task.WeightLow,
		SubtaskAssets:      task.WeightHigh,
		SubtaskPostProcess: task.WeightMedium,
		SubtaskFinalize:    task.WeightLowest,
	})
}
