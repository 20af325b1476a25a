package modloader

import (
	"reflect"
	"testing"

	"github.com/quasar/mclauncher-core/internal/core"
)

func TestMerge_ScalarFieldsOverlayWins(t *testing.T) {
	base := &core.VersionDetails{MainClass: "net.minecraft.client.main.Main", Assets: "1.21"}
	overlay := &core.VersionDetails{MainClass: "cpw.mods.bootstraplauncher.BootstrapLauncher"}

	merged := Merge(base, overlay)
	if merged.MainClass != overlay.MainClass {
		t.Errorf("MainClass = %q, want overlay value", merged.MainClass)
	}
	if merged.Assets != "1.21" {
		t.Errorf("Assets should fall back to base, got %q", merged.Assets)
	}
}

func TestMerge_LibrariesConcatenateWithOverlayPrecedence(t *testing.T) {
	base := &core.VersionDetails{
		Libraries: []core.Library{
			{Name: "com.google.guava:guava:31.0"},
			{Name: "org.ow2.asm:asm:9.3"},
		},
	}
	overlay := &core.VersionDetails{
		Libraries: []core.Library{
			{Name: "org.ow2.asm:asm:9.5"},
			{Name: "net.minecraftforge:forge:1.21-50.0"},
		},
	}

	merged := Merge(base, overlay)
	want := []core.Library{
		{Name: "com.google.guava:guava:31.0"},
		{Name: "org.ow2.asm:asm:9.5"},
		{Name: "net.minecraftforge:forge:1.21-50.0"},
	}
	if !reflect.DeepEqual(merged.Libraries, want) {
		t.Fatalf("got %+v, want %+v", merged.Libraries, want)
	}
}

func TestMerge_ArgumentsConcatenateParentThenChild(t *testing.T) {
	base := &core.VersionDetails{
		Arguments: &core.Arguments{Game: []interface{}{"--username", "${auth_player_name}"}},
	}
	overlay := &core.VersionDetails{
		Arguments: &core.Arguments{Game: []interface{}{"--launchTarget", "forgeclient"}},
	}

	merged := Merge(base, overlay)
	want := []interface{}{"--username", "${auth_player_name}", "--launchTarget", "forgeclient"}
	if !reflect.DeepEqual(merged.Arguments.Game, want) {
		t.Fatalf("got %+v, want %+v", merged.Arguments.Game, want)
	}
}
