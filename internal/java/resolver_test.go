package java

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestRequiredMajorVersion_ProfileTable(t *testing.T) {
	tests := []struct {
		profile Profile
		want    int
	}{
		{ProfileLegacy, 8},
		{ProfileAlpha, 16},
		{ProfileBeta, 17},
		{ProfileGamma, 17},
		{ProfileMinecraftJavaExe, 14},
	}
	for _, tt := range tests {
		if got := RequiredMajorVersion(tt.profile, 0); got != tt.want {
			t.Errorf("RequiredMajorVersion(%v, 0) = %d, want %d", tt.profile, got, tt.want)
		}
	}
}

func TestRequiredMajorVersion_DeclaredMajorWins(t *testing.T) {
	if got := RequiredMajorVersion(ProfileLegacy, 21); got != 21 {
		t.Errorf("expected declared major to take precedence, got %d", got)
	}
}

func TestResolver_PrefersManagedInstallOverDownload(t *testing.T) {
	dir := t.TempDir()
	managedDir := filepath.Join(dir, "java")
	binName := "java"
	if runtime.GOOS == "windows" {
		binName = "java.exe"
	}
	binDir := filepath.Join(managedDir, "17", "bin")
	if err := os.MkdirAll(binDir, 0755); err != nil {
		t.Fatal(err)
	}
	exePath := filepath.Join(binDir, binName)
	if err := os.WriteFile(exePath, []byte("#!/bin/sh\n"), 0755); err != nil {
		t.Fatal(err)
	}

	r := NewResolver(NewDetector(), NewDownloader(), managedDir)
	got, err := r.Resolve(context.Background(), ProfileGamma, 0, nil)
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if got != exePath {
		t.Errorf("Resolve() = %q, want %q", got, exePath)
	}
}
