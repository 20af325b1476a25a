// Package modloader resolves Forge, NeoForge, Fabric and Quilt version
// manifests against a vanilla version and merges the two into the single
// core.VersionDetails the launcher actually runs.
package modloader

import (
	"strings"

	"github.com/quasar/mclauncher-core/internal/core"
)

// Merge combines a vanilla base version with a modloader's overlay, the
// way Mojang's own "inheritsFrom" version files are resolved: MainClass,
// Assets and AssetIndex take the overlay's value when set, while other
// scalar fields (ID, Type, JavaVersion, Downloads, ReleaseTime) keep the
// base's value; a non-empty overlay MinecraftArguments is appended to the
// base's after a space rather than replacing it. Library lists are
// concatenated with the overlay taking precedence on a name collision,
// and argument lists are concatenated parent-then-child so the overlay's
// JVM/game args are appended after the vanilla ones rather than replacing
// them.
func Merge(base, overlay *core.VersionDetails) *core.VersionDetails {
	if overlay == nil {
		return base
	}
	if base == nil {
		return overlay
	}

	merged := *base

	if overlay.MainClass != "" {
		merged.MainClass = overlay.MainClass
	}
	if overlay.Assets != "" {
		merged.Assets = overlay.Assets
	}
	if overlay.AssetIndex.ID != "" {
		merged.AssetIndex = overlay.AssetIndex
	}
	if overlay.MinecraftArguments != "" {
		merged.MinecraftArguments = base.MinecraftArguments + " " + overlay.MinecraftArguments
	}

	merged.Libraries = mergeLibraries(base.Libraries, overlay.Libraries)
	merged.Arguments = mergeArguments(base.Arguments, overlay.Arguments)

	return &merged
}

// mergeLibraries concatenates two library lists, letting the overlay
// (child) version win when both lists name the same artifact. Name
// collision is keyed on the Maven coordinate (Library.Name) with its
// version dropped, group:artifact plus any classifier, so an overlay's
// newer version of a library replaces the base's older one.
func mergeLibraries(base, overlay []core.Library) []core.Library {
	byName := make(map[string]int, len(base)+len(overlay))
	merged := make([]core.Library, 0, len(base)+len(overlay))
	key := func(name string) string {
		parts := strings.Split(name, ":")
		if len(parts) >= 3 {
			parts = append(parts[:2:2], parts[3:]...)
		}
		return strings.Join(parts, ":")
	}

	for _, lib := range base {
		byName[key(lib.Name)] = len(merged)
		merged = append(merged, lib)
	}
	for _, lib := range overlay {
		if idx, ok := byName[key(lib.Name)]; ok {
			merged[idx] = lib
			continue
		}
		byName[key(lib.Name)] = len(merged)
		merged = append(merged, lib)
	}
	return merged
}

// mergeArguments concatenates JVM and game argument lists parent-then-child.
func mergeArguments(base, overlay *core.Arguments) *core.Arguments {
	if overlay == nil {
		return base
	}
	if base == nil {
		return overlay
	}
	return &core.Arguments{
		Game: append(append([]interface{}{}, base.Game...), overlay.Game...),
		JVM:  append(append([]interface{}{}, base.JVM...), overlay.JVM...),
	}
}
