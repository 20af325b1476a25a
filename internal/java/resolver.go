package java

import (
	"context"
	"fmt"
	"path/filepath"
)

// Profile names one of the historical Java requirement tiers Minecraft
// versions fall into, independent of whatever javaVersion.majorVersion a
// given version.json happens to declare (older manifests omit it
// entirely).
type Profile string

const (
	ProfileLegacy           Profile = "legacy"
	ProfileAlpha            Profile = "alpha"
	ProfileBeta             Profile = "beta"
	ProfileGamma            Profile = "gamma"
	ProfileMinecraftJavaExe Profile = "minecraft-java-exe"
)

// profileMajorVersions maps each profile to the major Java version it
// requires.
var profileMajorVersions = map[Profile]int{
	ProfileLegacy:           8,
	ProfileAlpha:            16,
	ProfileBeta:             17,
	ProfileGamma:            17,
	ProfileMinecraftJavaExe: 14,
}

// RequiredMajorVersion resolves a profile to the Java major version a
// launch needs, falling back to the version.json's own javaVersion field
// when declaredMajor is nonzero (newer manifests are authoritative; the
// profile table only matters for versions that don't declare one).
func RequiredMajorVersion(profile Profile, declaredMajor int) int {
	if declaredMajor > 0 {
		return declaredMajor
	}
	if major, ok := profileMajorVersions[profile]; ok {
		return major
	}
	return profileMajorVersions[ProfileLegacy]
}

// Resolver picks an installed or managed Java runtime satisfying a
// version's Java requirement.
type Resolver struct {
	detector   *Detector
	downloader *Downloader
	managedDir string
}

// NewResolver creates a Resolver that looks for installed runtimes via
// detector and falls back to downloading a managed runtime under
// managedDir.
func NewResolver(detector *Detector, downloader *Downloader, managedDir string) *Resolver {
	return &Resolver{detector: detector, downloader: downloader, managedDir: managedDir}
}

// Resolve returns a java executable satisfying profile (falling back to
// declaredMajor when the version descriptor names one explicitly),
// preferring an already-installed runtime over a managed download.
// progressCb receives human-readable status lines when a download is
// required.
func (r *Resolver) Resolve(ctx context.Context, profile Profile, declaredMajor int, progressCb func(string)) (string, error) {
	if progressCb == nil {
		progressCb = func(string) {}
	}
	requiredMajor := RequiredMajorVersion(profile, declaredMajor)

	versionDir := filepath.Join(r.managedDir, fmt.Sprintf("%d", requiredMajor))
	if exe, err := r.downloader.FindJavaExecutable(versionDir); err == nil {
		return exe, nil
	}

	if inst := r.detector.FindForProfile(profile, declaredMajor); inst != nil && inst.MajorVersion >= requiredMajor {
		return inst.Path, nil
	}

	progressCb(fmt.Sprintf("Downloading Java %d...", requiredMajor))
	exe, err := r.downloader.DownloadRuntime(ctx, requiredMajor, r.managedDir, progressCb)
	if err != nil {
		return "", fmt.Errorf("resolving java %d: %w", requiredMajor, err)
	}
	return exe, nil
}
