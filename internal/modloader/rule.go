package modloader

import (
	"runtime"

	"github.com/quasar/mclauncher-core/internal/core"
)

// FilterLibraries drops libraries whose rules don't apply to the current
// platform, generalizing the teacher's inline libraryApplies (OS-only)
// check into the full OS+arch+feature evaluation core.Evaluate provides.
func FilterLibraries(libs []core.Library, features core.Features) []core.Library {
	osName := goOSToMojangOS(runtime.GOOS)
	arch := runtime.GOARCH

	filtered := make([]core.Library, 0, len(libs))
	for _, lib := range libs {
		if core.Evaluate(lib.Rules, osName, arch, features) {
			filtered = append(filtered, lib)
		}
	}
	return filtered
}

// FilterArguments drops entries from a JVM or game argument list whose
// attached rules don't apply. Mojang's modern argument format mixes plain
// strings with {rules, value} objects; entries of the latter shape are
// decoded and rule-checked, everything else passes through unconditionally.
func FilterArguments(args []interface{}, features core.Features) []interface{} {
	osName := goOSToMojangOS(runtime.GOOS)
	arch := runtime.GOARCH

	filtered := make([]interface{}, 0, len(args))
	for _, arg := range args {
		m, ok := arg.(map[string]interface{})
		if !ok {
			filtered = append(filtered, arg)
			continue
		}
		rawRules, ok := m["rules"]
		if !ok {
			filtered = append(filtered, arg)
			continue
		}
		rules := decodeRules(rawRules)
		if core.Evaluate(rules, osName, arch, features) {
			filtered = append(filtered, m["value"])
		}
	}
	return filtered
}

func decodeRules(raw interface{}) []core.Rule {
	list, ok := raw.([]interface{})
	if !ok {
		return nil
	}
	rules := make([]core.Rule, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		var r core.Rule
		if action, ok := m["action"].(string); ok {
			r.Action = action
		}
		if osMap, ok := m["os"].(map[string]interface{}); ok {
			osRule := &core.OSRule{}
			if name, ok := osMap["name"].(string); ok {
				osRule.Name = name
			}
			if arch, ok := osMap["arch"].(string); ok {
				osRule.Arch = arch
			}
			r.OS = osRule
		}
		if fm, ok := m["features"].(map[string]interface{}); ok {
			f := &core.Features{}
			f.IsDemoUser, _ = fm["is_demo_user"].(bool)
			f.HasCustomRes, _ = fm["has_custom_resolution"].(bool)
			f.HasQuickPlaysup, _ = fm["has_quick_plays_support"].(bool)
			f.IsQuickPlaySingle, _ = fm["is_quick_play_singleplayer"].(bool)
			f.IsQuickPlayMulti, _ = fm["is_quick_play_multiplayer"].(bool)
			f.IsQuickPlayRealms, _ = fm["is_quick_play_realms"].(bool)
			r.Features = f
		}
		rules = append(rules, r)
	}
	return rules
}

// goOSToMojangOS translates Go's GOOS into the OS name Mojang's version
// manifests use, preferring "osx" for legacy manifests that predate the
// "natives-macos" classifier switch (Design Notes §9).
func goOSToMojangOS(goos string) string {
	switch goos {
	case "darwin":
		return "osx"
	case "windows":
		return "windows"
	default:
		return "linux"
	}
}

// NativesClassifier returns the natives classifier key a library's
// Classifiers map should be looked up under for the current platform,
// preferring "natives-macos" and falling back to the legacy
// "natives-osx" key some older Forge/vanilla manifests still use.
func NativesClassifier(classifiers map[string]*core.Artifact) (string, *core.Artifact) {
	var candidates []string
	switch runtime.GOOS {
	case "darwin":
		candidates = []string{"natives-macos", "natives-osx"}
	case "windows":
		candidates = []string{"natives-windows"}
	default:
		candidates = []string{"natives-linux"}
	}
	for _, key := range candidates {
		if a, ok := classifiers[key]; ok {
			return key, a
		}
	}
	return "", nil
}
