package pack

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/quasar/mclauncher-core/internal/core"
)

// natureCompassRef reproduces the literal scenario from spec.md §8.3/§8.4:
// an instance on 1.16.5/forge 36.2.34 with exactly one mod, Modrinth
// project fPetb5Kh version o0SCfsMe.
func natureCompassRef() (core.GameVersion, ModFileRef) {
	gv := core.GameVersion{
		Release:    "1.16.5",
		Modloaders: []core.LoaderRef{{Type: core.LoaderForge, Version: "36.2.34"}},
	}
	ref := ModFileRef{
		RelPath:     "mods/NaturesCompass-1.16.5-1.9.1-forge.jar",
		SizeBytes:   12345,
		Hashes:      FileHashes{SHA1: "deadbeef", SHA512: "cafef00d"},
		DownloadURL: "https://cdn.modrinth.com/data/fPetb5Kh/versions/o0SCfsMe/NaturesCompass-1.16.5-1.9.1-forge.jar",
	}
	return gv, ref
}

func writeFixtureJar(t *testing.T, dataDir, relPath string) {
	t.Helper()
	full := filepath.Join(dataDir, filepath.FromSlash(relPath))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(full, []byte("fake jar bytes"), 0644); err != nil {
		t.Fatal(err)
	}
}

// TestWriteModrinthPack_LinkedMods matches spec.md §8.3: exporting with
// filter {"mods": null} and link_mods=true.
func TestWriteModrinthPack_LinkedMods(t *testing.T) {
	dataDir := t.TempDir()
	gv, ref := natureCompassRef()
	writeFixtureJar(t, dataDir, ref.RelPath)

	var buf bytes.Buffer
	opts := ExportOptions{
		Name:     "Test Pack",
		Filter:   ExportFilter{Categories: map[string][]string{"mods": nil}},
		LinkMods: true,
	}
	if err := WriteModrinthPack(&buf, dataDir, gv, []ModFileRef{ref}, opts); err != nil {
		t.Fatalf("WriteModrinthPack: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("opening exported zip: %v", err)
	}

	idx := readIndex(t, zr)
	if len(idx.Files) != 1 {
		t.Fatalf("want 1 file in index, got %d", len(idx.Files))
	}
	f := idx.Files[0]
	if f.Path != "mods/NaturesCompass-1.16.5-1.9.1-forge.jar" {
		t.Errorf("unexpected path: %s", f.Path)
	}
	if len(f.Downloads) != 1 || f.Downloads[0] != ref.DownloadURL {
		t.Errorf("unexpected downloads: %v", f.Downloads)
	}
	wantDeps := map[string]string{"minecraft": "1.16.5", "forge": "36.2.34"}
	if !mapsEqual(idx.Dependencies, wantDeps) {
		t.Errorf("dependencies = %v, want %v", idx.Dependencies, wantDeps)
	}

	for _, zf := range zr.File {
		if zf.Name == "overrides/mods/NaturesCompass-1.16.5-1.9.1-forge.jar" {
			t.Errorf("overrides/mods entry should be absent when the mod is linked")
		}
	}
}

// TestWriteModrinthPack_UnlinkedMods matches spec.md §8.4: same instance,
// link_mods=false.
func TestWriteModrinthPack_UnlinkedMods(t *testing.T) {
	dataDir := t.TempDir()
	gv, ref := natureCompassRef()
	writeFixtureJar(t, dataDir, ref.RelPath)

	var buf bytes.Buffer
	opts := ExportOptions{
		Name:     "Test Pack",
		Filter:   ExportFilter{Categories: map[string][]string{"mods": nil}},
		LinkMods: false,
	}
	if err := WriteModrinthPack(&buf, dataDir, gv, []ModFileRef{ref}, opts); err != nil {
		t.Fatalf("WriteModrinthPack: %v", err)
	}

	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("opening exported zip: %v", err)
	}

	idx := readIndex(t, zr)
	if len(idx.Files) != 0 {
		t.Errorf("want 0 files in index when unlinked, got %d", len(idx.Files))
	}

	found := false
	for _, zf := range zr.File {
		if zf.Name == "overrides/mods/NaturesCompass-1.16.5-1.9.1-forge.jar" {
			found = true
		}
	}
	if !found {
		t.Error("overrides/mods/NaturesCompass-1.16.5-1.9.1-forge.jar should be present when unlinked")
	}
}

func TestExportFilter_ExcludesUndeclaredCategory(t *testing.T) {
	filter := ExportFilter{Categories: map[string][]string{"mods": nil}}
	if filter.Includes("resourcepacks/Foo.zip") {
		t.Error("a category absent from Categories should be excluded entirely")
	}
	if !filter.Includes("mods/Foo.jar") {
		t.Error("mods should be included under {mods: nil}")
	}
}

func TestExportFilter_ExcludesNamedFile(t *testing.T) {
	filter := ExportFilter{Categories: map[string][]string{"mods": {"Bad.jar"}}}
	if filter.Includes("mods/Bad.jar") {
		t.Error("explicitly excluded file should not be included")
	}
	if !filter.Includes("mods/Good.jar") {
		t.Error("non-excluded file in an included category should be included")
	}
}

func TestOpenModrinthPack_RoundTrip(t *testing.T) {
	dataDir := t.TempDir()
	gv, ref := natureCompassRef()
	writeFixtureJar(t, dataDir, ref.RelPath)

	var buf bytes.Buffer
	opts := ExportOptions{
		Name:     "Test Pack",
		Filter:   ExportFilter{Categories: map[string][]string{"mods": nil}},
		LinkMods: false,
	}
	if err := WriteModrinthPack(&buf, dataDir, gv, []ModFileRef{ref}, opts); err != nil {
		t.Fatalf("WriteModrinthPack: %v", err)
	}

	path := filepath.Join(t.TempDir(), "pack.mrpack")
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil {
		t.Fatal(err)
	}

	archive, err := OpenModrinthPack(path)
	if err != nil {
		t.Fatalf("OpenModrinthPack: %v", err)
	}
	defer archive.Close()

	gotGV := archive.GameVersion()
	if gotGV.Release != "1.16.5" || len(gotGV.Modloaders) != 1 || gotGV.Modloaders[0].Version != "36.2.34" {
		t.Errorf("GameVersion() = %+v", gotGV)
	}

	extractDir := t.TempDir()
	if err := archive.ExtractOverrides(extractDir); err != nil {
		t.Fatalf("ExtractOverrides: %v", err)
	}
	if _, err := os.Stat(filepath.Join(extractDir, "mods", "NaturesCompass-1.16.5-1.9.1-forge.jar")); err != nil {
		t.Errorf("expected extracted mod jar: %v", err)
	}

	if len(archive.Downloads()) != 0 {
		t.Errorf("unlinked pack should have no Downloads(), got %d", len(archive.Downloads()))
	}
}

func readIndex(t *testing.T, zr *zip.Reader) ModrinthIndex {
	t.Helper()
	f, err := zr.Open("modrinth.index.json")
	if err != nil {
		t.Fatalf("missing modrinth.index.json: %v", err)
	}
	defer f.Close()
	var idx ModrinthIndex
	if err := json.NewDecoder(f).Decode(&idx); err != nil {
		t.Fatalf("decoding modrinth.index.json: %v", err)
	}
	return idx
}

func mapsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
