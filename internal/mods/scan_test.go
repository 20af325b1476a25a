package mods

import (
	"os"
	"path/filepath"
	"testing"
)

func TestScanInstance_AddsAndRemovesFiles(t *testing.T) {
	dir := t.TempDir()
	modPath := filepath.Join(dir, "sodium.jar")
	if err := os.WriteFile(modPath, []byte("pretend jar bytes"), 0644); err != nil {
		t.Fatalf("writing fixture jar: %v", err)
	}

	store := NewStore()
	result, err := ScanInstance(store, 1, dir)
	if err != nil {
		t.Fatalf("ScanInstance: %v", err)
	}
	if len(result.Added) != 1 {
		t.Fatalf("expected 1 added file, got %d", len(result.Added))
	}

	files := store.Files(1)
	if len(files) != 1 || files[0].Filename != "sodium.jar" {
		t.Fatalf("unexpected store contents: %+v", files)
	}
	if !files[0].Enabled {
		t.Error("expected file to be enabled")
	}

	if _, ok := store.Metadata(files[0].MetadataID); !ok {
		t.Fatal("expected a metadata row to be created for the new jar")
	}

	if err := os.Remove(modPath); err != nil {
		t.Fatalf("removing fixture jar: %v", err)
	}
	result, err = ScanInstance(store, 1, dir)
	if err != nil {
		t.Fatalf("ScanInstance (second pass): %v", err)
	}
	if len(result.Removed) != 1 || result.Removed[0] != "sodium.jar" {
		t.Fatalf("expected sodium.jar to be reported removed, got %+v", result.Removed)
	}
	if len(store.Files(1)) != 0 {
		t.Fatal("expected file to be removed from the store")
	}
}

func TestScanInstance_DisabledSuffixTracked(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "sodium.jar.disabled"), []byte("x"), 0644); err != nil {
		t.Fatalf("writing fixture jar: %v", err)
	}

	store := NewStore()
	if _, err := ScanInstance(store, 1, dir); err != nil {
		t.Fatalf("ScanInstance: %v", err)
	}

	files := store.Files(1)
	if len(files) != 1 {
		t.Fatalf("expected 1 file, got %d", len(files))
	}
	if files[0].Enabled {
		t.Error("expected disabled suffix to mark the file as disabled")
	}
	if files[0].DisplayFilename() != "sodium.jar" {
		t.Errorf("expected display name to strip suffix, got %q", files[0].DisplayFilename())
	}
}

func TestScanInstance_TwoIdenticalJarsShareOneMetadataRow(t *testing.T) {
	dir := t.TempDir()
	content := []byte("identical bytes across two copies")
	if err := os.WriteFile(filepath.Join(dir, "a.jar"), content, 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "b.jar"), content, 0644); err != nil {
		t.Fatal(err)
	}

	store := NewStore()
	if _, err := ScanInstance(store, 1, dir); err != nil {
		t.Fatalf("ScanInstance: %v", err)
	}

	files := store.Files(1)
	if len(files) != 2 {
		t.Fatalf("expected 2 files, got %d", len(files))
	}
	if files[0].MetadataID != files[1].MetadataID {
		t.Errorf("expected identical jars to share a metadata row: %s != %s", files[0].MetadataID, files[1].MetadataID)
	}
}

func TestScanInstance_NonexistentDirIsNotAnError(t *testing.T) {
	store := NewStore()
	result, err := ScanInstance(store, 1, filepath.Join(t.TempDir(), "does-not-exist"))
	if err != nil {
		t.Fatalf("expected no error for a missing mods directory, got %v", err)
	}
	if len(result.Added) != 0 {
		t.Errorf("expected no files added, got %+v", result.Added)
	}
}
