package modloader

import (
	"runtime"
	"testing"

	"github.com/quasar/mclauncher-core/internal/core"
)

func TestFilterLibraries(t *testing.T) {
	libs := []core.Library{
		{Name: "always"},
		{Name: "windows-only", Rules: []core.Rule{
			{Action: "allow", OS: &core.OSRule{Name: "windows"}},
		}},
	}

	filtered := FilterLibraries(libs, core.Features{})
	names := map[string]bool{}
	for _, l := range filtered {
		names[l.Name] = true
	}
	if !names["always"] {
		t.Error("expected unconditional library to pass")
	}
}

func TestNativesClassifier_PrefersMacosOverOsx(t *testing.T) {
	classifiers := map[string]*core.Artifact{
		"natives-macos": {Path: "new"},
		"natives-osx":   {Path: "old"},
	}
	if runtime.GOOS != "darwin" {
		t.Skip("only meaningful on darwin")
	}
	key, artifact := NativesClassifier(classifiers)
	if key != "natives-macos" || artifact == nil || artifact.Path != "new" {
		t.Errorf("got %q (%+v), want natives-macos", key, artifact)
	}
}
